package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ReportHandler receives each robot-to-host message. data holds the
// arguments following the message ID.
type ReportHandler func(msgID uint16, data *[]byte)

var (
	ErrLinkClosed = errors.New("link closed")
	ErrAckTimeout = errors.New("ack timeout")
	ErrNak        = errors.New("command rejected: sequence mismatch")
)

// HostLink is the host end of the link: it sends commands and waits for
// their ACK, and hands every report frame to a ReportHandler.
type HostLink struct {
	port io.ReadWriteCloser

	currentSeq     uint32 // atomic, 0x10-0x1F
	isSynchronized uint32 // atomic bool

	inputBuffer *FifoBuffer
	ackChan     chan uint8

	handlerMu sync.RWMutex
	handler   ReportHandler

	writeMutex sync.Mutex
	stopOnce   sync.Once
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewHostLink starts reading from port in the background
func NewHostLink(port io.ReadWriteCloser) *HostLink {
	l := &HostLink{
		port:           port,
		currentSeq:     MessageDest,
		isSynchronized: 1,
		inputBuffer:    NewFifoBuffer(1024),
		ackChan:        make(chan uint8, 4),
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// SetReportHandler installs the callback for report frames
func (l *HostLink) SetReportHandler(h ReportHandler) {
	l.handlerMu.Lock()
	l.handler = h
	l.handlerMu.Unlock()
}

// SendCommand sends one command and waits up to two seconds for its ACK
func (l *HostLink) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return l.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout sends one command and waits for its ACK
func (l *HostLink) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()

	seq := uint8(atomic.LoadUint32(&l.currentSeq))
	msg, err := BuildFrame(seq, cmdID, args)
	if err != nil {
		return err
	}

	// Stale ACKs from an earlier timeout would be mistaken for ours
	for len(l.ackChan) > 0 {
		<-l.ackChan
	}

	if _, err := l.port.Write(msg); err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}

	select {
	case ack := <-l.ackChan:
		atomic.StoreUint32(&l.currentSeq, uint32(ack))
		if ack != nextSeq(seq) {
			return ErrNak
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("command %d: %w after %v", cmdID, ErrAckTimeout, timeout)
	case <-l.stopChan:
		return ErrLinkClosed
	}
}

// BuildFrame encodes a single-command frame with the given sequence byte
func BuildFrame(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{0, seq})
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}

	msgLen := scratch.CurPosition() + MessageTrailerSize
	if msgLen > MessageLengthMax {
		return nil, fmt.Errorf("message too long: %d bytes (max %d)", msgLen, MessageLengthMax)
	}
	scratch.Update(MessagePositionLen, uint8(msgLen))

	crc := CRC16(scratch.Result())
	scratch.Output([]byte{uint8(crc >> 8), uint8(crc & 0xFF), MessageValueSync})

	frame := make([]byte, scratch.CurPosition())
	copy(frame, scratch.Result())
	return frame, nil
}

func (l *HostLink) readLoop() {
	defer close(l.doneChan)

	buffer := make([]byte, 256)
	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		n, err := l.port.Read(buffer)
		if err != nil {
			if err == io.EOF {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			l.inputBuffer.Write(buffer[:n])
			l.processFrames()
		}
	}
}

// processFrames parses complete frames out of the input buffer
func (l *HostLink) processFrames() {
	data := l.inputBuffer.Data()

	for len(data) > 0 {
		if atomic.LoadUint32(&l.isSynchronized) == 0 {
			i := 0
			for i < len(data) && data[i] != MessageValueSync {
				i++
			}
			if i == len(data) {
				data = nil
				break
			}
			data = data[i+1:]
			atomic.StoreUint32(&l.isSynchronized, 1)
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		payload, seq, n, status := scanFrame(data)
		if status == frameNeedMore {
			break
		}
		if status == frameBad {
			atomic.StoreUint32(&l.isSynchronized, 0)
			continue
		}
		data = data[n:]
		l.dispatch(seq, payload)
	}

	consumed := l.inputBuffer.Available() - len(data)
	if consumed > 0 {
		l.inputBuffer.Pop(consumed)
	}
}

func (l *HostLink) dispatch(seq uint8, payload []byte) {
	if len(payload) == 0 {
		select {
		case l.ackChan <- seq:
		default:
		}
		return
	}

	l.handlerMu.RLock()
	h := l.handler
	l.handlerMu.RUnlock()
	if h == nil {
		return
	}

	frame := make([]byte, len(payload))
	copy(frame, payload)
	for len(frame) > 0 {
		msgID, err := DecodeVLQUint(&frame)
		if err != nil {
			return
		}
		before := len(frame)
		h(uint16(msgID), &frame)
		if len(frame) == before {
			// Handler did not understand the message, so the rest of
			// the frame cannot be located
			return
		}
	}
}

// Close stops the reader and closes the port
func (l *HostLink) Close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.port != nil {
			err = l.port.Close()
		}
		<-l.doneChan
	})
	return err
}
