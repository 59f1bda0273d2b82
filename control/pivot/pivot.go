// Package pivot drives encoder-gated in-place turns.
//
// The machine is stepped once per control tick while a side is latched in
// the shared direction flag. It owns the motors and the encoder counters
// from the request until it clears the flag, and it always clears the flag
// within the configured safety ceiling.
package pivot

import (
	"linebot/control"
	"linebot/core"
)

// State of the pivot machine
type State uint8

const (
	Idle State = iota
	Prep
	Turning
	Finish
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Prep:
		return "PREP"
	case Turning:
		return "TURNING"
	case Finish:
		return "FINISH"
	}
	return "UNKNOWN"
}

// Machine is the pivot state machine
type Machine struct {
	cfg       control.PivotConfig
	prepTicks uint32

	motors   control.Motors
	encoders core.EncoderDriver
	dir      *control.Direction
	onEvent  control.EventSink

	state    State
	side     control.Side
	target   int32
	acc      int32
	safety   uint32
	prepLeft uint32

	completed    uint32
	timeouts     uint32
	driverErrors uint32
}

// New creates an idle machine
func New(cfg control.PivotConfig, timing control.TimingConfig, motors control.Motors,
	encoders core.EncoderDriver, dir *control.Direction) *Machine {
	return &Machine{
		cfg:       cfg,
		prepTicks: timing.Ticks(cfg.PrepMS),
		motors:    motors,
		encoders:  encoders,
		dir:       dir,
	}
}

// SetEventSink installs the event callback
func (m *Machine) SetEventSink(sink control.EventSink) {
	m.onEvent = sink
}

// State returns the current state
func (m *Machine) State() State { return m.state }

// Side returns the latched side, SideNone when idle
func (m *Machine) Side() control.Side { return m.side }

// Accumulated returns |ΔL|+|ΔR| summed since the turn started
func (m *Machine) Accumulated() int32 { return m.acc }

// Stats returns completed turns, safety timeouts and motor driver errors
func (m *Machine) Stats() (completed, timeouts, driverErrors uint32) {
	return m.completed, m.timeouts, m.driverErrors
}

// Handle advances the machine by one tick
func (m *Machine) Handle() {
	switch m.state {
	case Idle:
		req := m.dir.Load()
		if req == control.SideNone {
			return
		}
		m.begin(req)

	case Prep:
		m.check(m.motors.Stop())
		if m.prepLeft > 0 {
			m.prepLeft--
		}
		if m.prepLeft == 0 {
			m.startTurning()
		}

	case Turning:
		m.drive()

		dl := core.TakeDelta(m.encoders, core.EncoderLeft)
		dr := core.TakeDelta(m.encoders, core.EncoderRight)
		m.acc += abs32(dl) + abs32(dr)
		m.safety++

		if m.acc >= m.target {
			m.state = Finish
			return
		}
		if m.safety >= m.cfg.SafetyTicks {
			m.timeouts++
			m.emit(core.EvtPivotTimeout, m.acc, int32(m.safety))
			core.DebugPrintln("[PIVOT] safety ceiling, acc=" + core.Itoa(int(m.acc)))
			m.release()
		}

	case Finish:
		m.completed++
		m.emit(core.EvtPivotFinish, m.acc, int32(m.safety))
		m.release()

	default:
		m.release()
	}
}

// Resume re-enables the drivers after a supervisory stop interrupted a turn
func (m *Machine) Resume() {
	if m.state == Turning {
		m.check(m.motors.SetDisabled(false, false))
	}
}

// begin stops the robot and latches the requested side
func (m *Machine) begin(side control.Side) {
	m.check(m.motors.Stop())
	m.check(m.motors.SetDisabled(true, true))
	m.resetEncoders()

	m.side = side
	m.target = m.cfg.Target(side)
	m.acc = 0
	m.safety = 0
	m.emit(core.EvtPivotStart, int32(side), m.target)

	if m.prepTicks > 0 {
		m.prepLeft = m.prepTicks
		m.state = Prep
		return
	}
	m.startTurning()
}

func (m *Machine) startTurning() {
	m.check(m.motors.SetDisabled(false, false))
	m.resetEncoders()
	m.state = Turning
}

// drive commands the differential for the latched side
func (m *Machine) drive() {
	speed := m.cfg.Speed(m.side)
	var steer int
	switch m.side {
	case control.SideLeft:
		steer = speed
	case control.SideRight, control.SideUTurn:
		steer = -speed
	}
	m.check(m.motors.Steer(0, steer))
}

// release is the single cleanup path: motors stopped, counters handed back
// to the odometry task, then the request flag cleared
func (m *Machine) release() {
	m.check(m.motors.Stop())
	m.check(m.motors.SetDisabled(false, false))
	m.resetEncoders()

	m.state = Idle
	m.side = control.SideNone
	m.target = 0
	m.acc = 0
	m.safety = 0
	m.prepLeft = 0

	m.dir.Clear()
}

func (m *Machine) resetEncoders() {
	m.encoders.ResetCount(core.EncoderLeft)
	m.encoders.ResetCount(core.EncoderRight)
}

func (m *Machine) check(err error) {
	if err != nil {
		m.driverErrors++
	}
}

func (m *Machine) emit(evt uint8, v1, v2 int32) {
	if m.onEvent != nil {
		m.onEvent(evt, v1, v2)
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
