// Package monitor is the host side of the robot's telemetry link.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"linebot/host/serial"
	"linebot/protocol"
)

// EventBacklog is how many undelivered events a Monitor buffers before it
// starts dropping the oldest
const EventBacklog = 64

// ErrNoReply is returned when the robot acknowledges identify but never
// sends the reply
var ErrNoReply = errors.New("no identify reply")

// Monitor tracks the latest status report and forwards control events
type Monitor struct {
	link *protocol.HostLink

	mu       sync.Mutex
	status   protocol.Status
	updated  time.Time
	version  string
	statuses uint32
	dropped  uint32
	unknown  uint32

	events  chan protocol.Event
	replies chan string
}

// Dial opens the serial port described by cfg and starts monitoring it
func Dial(cfg *serial.Config) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Device, err)
	}
	return New(port), nil
}

// New monitors an already open link
func New(port io.ReadWriteCloser) *Monitor {
	m := &Monitor{
		link:    protocol.NewHostLink(port),
		events:  make(chan protocol.Event, EventBacklog),
		replies: make(chan string, 1),
	}
	m.link.SetReportHandler(m.handleReport)
	return m
}

func (m *Monitor) handleReport(msgID uint16, data *[]byte) {
	switch msgID {
	case protocol.MsgStatus:
		s, err := protocol.DecodeStatus(data)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.status = s
		m.updated = time.Now()
		m.statuses++
		m.mu.Unlock()

	case protocol.MsgEvent:
		e, err := protocol.DecodeEvent(data)
		if err != nil {
			return
		}
		m.pushEvent(e)

	case protocol.MsgIdentifyReply:
		v, err := protocol.DecodeVLQString(data)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.version = v
		m.mu.Unlock()
		select {
		case m.replies <- v:
		default:
		}

	default:
		m.mu.Lock()
		m.unknown++
		m.mu.Unlock()
	}
}

// pushEvent queues e, discarding the oldest queued event when the reader
// has fallen behind
func (m *Monitor) pushEvent(e protocol.Event) {
	for {
		select {
		case m.events <- e:
			return
		default:
		}
		select {
		case <-m.events:
			m.mu.Lock()
			m.dropped++
			m.mu.Unlock()
		default:
		}
	}
}

// Identify asks the robot for its firmware version
func (m *Monitor) Identify(timeout time.Duration) (string, error) {
	select {
	case <-m.replies:
	default:
	}
	if err := m.link.SendCommandWithTimeout(protocol.MsgIdentify, nil, timeout); err != nil {
		return "", fmt.Errorf("identify: %w", err)
	}
	select {
	case v := <-m.replies:
		return v, nil
	case <-time.After(timeout):
		return "", ErrNoReply
	}
}

// Status returns the latest status report and when it arrived. The time
// is zero until the first report.
func (m *Monitor) Status() (protocol.Status, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.updated
}

// Version returns the firmware version from the last identify reply
func (m *Monitor) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Stats returns the number of status reports received, events dropped
// from the backlog and reports of unknown type
func (m *Monitor) Stats() (statuses, dropped, unknown uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses, m.dropped, m.unknown
}

// Events delivers control events in arrival order
func (m *Monitor) Events() <-chan protocol.Event {
	return m.events
}

// Estop halts the robot until Resume
func (m *Monitor) Estop() error {
	return m.link.SendCommand(protocol.MsgEstop, nil)
}

// Resume releases a host halt
func (m *Monitor) Resume() error {
	return m.link.SendCommand(protocol.MsgResume, nil)
}

// SetTelemetry sets the status report interval in control ticks; zero
// stops periodic reports
func (m *Monitor) SetTelemetry(ticks uint32) error {
	return m.link.SendCommand(protocol.MsgSetTelemetry, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, ticks)
	})
}

// DumpEvents asks the robot to resend its event ring
func (m *Monitor) DumpEvents() error {
	return m.link.SendCommand(protocol.MsgDumpEvents, nil)
}

// SetDebug toggles the robot's debug output
func (m *Monitor) SetDebug(enable bool) error {
	var v uint32
	if enable {
		v = 1
	}
	return m.link.SendCommand(protocol.MsgSetDebug, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, v)
	})
}

// Close stops monitoring and closes the port
func (m *Monitor) Close() error {
	return m.link.Close()
}
