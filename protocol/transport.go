package protocol

import "sync/atomic"

// CommandHandler is a function type for handling decoded commands
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the robot end of the link. It parses host command frames,
// acknowledges them, and frames outgoing telemetry into an OutputBuffer that
// the target flushes to USB or UART.
type Transport struct {
	isSynchronized uint32 // atomic bool (0 = false, 1 = true)
	nextSequence   uint32 // atomic uint8 stored as uint32, 0x10-0x1F

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // Called when the host restarts its sequence
	flushCallback func() // Called to push an ACK out immediately

	framesIn  uint32
	framesBad uint32
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		isSynchronized: 1,
		nextSequence:   MessageDest,
		output:         output,
		handler:        handler,
	}
}

// Receive consumes as many complete frames as input holds
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			t.setSynchronized(true)
			t.encodeAckNak()
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		frame, seq, n, status := scanFrame(data)
		if status == frameNeedMore {
			break
		}
		if status == frameBad {
			atomic.AddUint32(&t.framesBad, 1)
			t.setSynchronized(false)
			continue
		}
		data = data[n:]
		atomic.AddUint32(&t.framesIn, 1)

		// A host that restarts begins again at MessageDest
		expectedSeq := uint8(atomic.LoadUint32(&t.nextSequence))
		if seq == MessageDest && expectedSeq != MessageDest {
			atomic.StoreUint32(&t.nextSequence, MessageDest)
			expectedSeq = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}

		if seq == expectedSeq {
			atomic.StoreUint32(&t.nextSequence, uint32(nextSeq(seq)))
			_ = t.parseFrame(frame)
		}
		// A mismatched sequence still gets a reply; it tells the host
		// which sequence we expect
		t.encodeAckNak()
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame dispatches every command in a frame
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.setSynchronized(false)
			return err
		}
		if t.handler == nil {
			return nil
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			// The rest of the frame cannot be decoded without the
			// handler's argument layout
			return err
		}
	}
	return nil
}

// encodeAckNak sends an empty frame carrying the next expected sequence
func (t *Transport) encodeAckNak() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	crc := CRC16([]byte{MessageLengthMin, ns})

	t.output.Output([]byte{
		MessageLengthMin,
		ns,
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame writes one frame whose payload is produced by frameData
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	frameData(t.output)

	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// SendCommand frames a single message with its arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the link to its power-on state
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, MessageDest)

	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// Stats returns the number of accepted and rejected frames
func (t *Transport) Stats() (in, bad uint32) {
	return atomic.LoadUint32(&t.framesIn), atomic.LoadUint32(&t.framesBad)
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback that pushes pending output to the wire
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}
