package protocol

import (
	"io"
	"testing"
	"time"
)

func TestTransportDispatchAndAck(t *testing.T) {
	out := NewScratchOutput()
	var gotID uint16
	var gotArg uint32
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		gotID = cmdID
		v, err := DecodeVLQUint(data)
		gotArg = v
		return err
	})

	frame, err := BuildFrame(MessageDest, MsgSetTelemetry, func(o OutputBuffer) {
		EncodeVLQUint(o, 25)
	})
	if err != nil {
		t.Fatalf("BuildFrame failed: %v", err)
	}

	in := NewSliceInputBuffer(frame)
	tr.Receive(in)

	if gotID != MsgSetTelemetry || gotArg != 25 {
		t.Errorf("Handler got id=%d arg=%d", gotID, gotArg)
	}
	if in.Available() != 0 {
		t.Errorf("Receive left %d bytes", in.Available())
	}

	ack := out.Result()
	if len(ack) != MessageLengthMin || ack[MessagePositionSeq] != MessageDest+1 {
		t.Errorf("Unexpected ACK %v", ack)
	}
	if framesIn, bad := tr.Stats(); framesIn != 1 || bad != 0 {
		t.Errorf("Stats in=%d bad=%d", framesIn, bad)
	}
}

func TestTransportPartialAndCorrupt(t *testing.T) {
	out := NewScratchOutput()
	calls := 0
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		calls++
		return nil
	})

	frame, _ := BuildFrame(MessageDest, MsgEstop, nil)

	// Half a frame waits for the rest
	in := NewSliceInputBuffer(frame[:3])
	tr.Receive(in)
	if calls != 0 || in.Available() != 3 {
		t.Fatalf("Partial frame: calls=%d available=%d", calls, in.Available())
	}

	// A corrupted CRC is dropped and the next good frame is accepted
	bad := append([]byte(nil), frame...)
	bad[len(bad)-2] ^= 0xFF
	good, _ := BuildFrame(MessageDest, MsgEstop, nil)
	stream := append(bad, good...)
	tr.Receive(NewSliceInputBuffer(stream))
	if calls != 1 {
		t.Errorf("Expected exactly one dispatched frame, got %d", calls)
	}
	if _, badFrames := tr.Stats(); badFrames == 0 {
		t.Error("Corrupt frame not counted")
	}
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	out := NewScratchOutput()
	tr := NewTransport(out, nil)

	status := Status{
		Clock:      123456,
		Cursor:     42,
		Maneuver:   2,
		Phase:      3,
		PivotState: 2,
		Distance:   -17,
		Steer:      -11,
		OnLine:     0x24,
		Contrast:   [SensorChannels]uint16{5, 60, 4095, 0, 99, 100},
		HaltReason: HaltObstacle,
	}
	tr.SendCommand(MsgStatus, func(o OutputBuffer) { EncodeStatus(o, &status) })

	payload, _, n, st := scanFrame(out.Result())
	if st != frameOK || n != len(out.Result()) {
		t.Fatalf("scanFrame status=%d n=%d len=%d", st, n, len(out.Result()))
	}
	id, _ := DecodeVLQUint(&payload)
	if uint16(id) != MsgStatus {
		t.Fatalf("Expected MsgStatus, got %d", id)
	}
	got, err := DecodeStatus(&payload)
	if err != nil {
		t.Fatalf("DecodeStatus failed: %v", err)
	}
	if got != status {
		t.Errorf("Status mismatch:\n got %+v\nwant %+v", got, status)
	}
	if !got.Halted() {
		t.Error("Expected halted status")
	}
}

// loopPort connects a HostLink directly to a robot-side Transport.
type loopPort struct {
	robot  *Transport
	out    *ScratchOutput
	rx     chan []byte
	closed chan struct{}
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.robot.Receive(NewSliceInputBuffer(append([]byte(nil), b...)))
	reply := append([]byte(nil), p.out.Result()...)
	p.out.Reset()
	p.rx <- reply
	return len(b), nil
}

func (p *loopPort) Read(b []byte) (int, error) {
	select {
	case d := <-p.rx:
		return copy(b, d), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *loopPort) Close() error {
	close(p.closed)
	return nil
}

func TestHostLinkCommandAndReport(t *testing.T) {
	port := &loopPort{
		out:    NewScratchOutput(),
		rx:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
	port.robot = NewTransport(port.out, func(cmdID uint16, data *[]byte) error {
		if cmdID == MsgIdentify {
			port.robot.SendCommand(MsgIdentifyReply, func(o OutputBuffer) {
				EncodeVLQString(o, Version)
			})
		}
		return nil
	})

	link := NewHostLink(port)
	defer link.Close()

	versions := make(chan string, 1)
	link.SetReportHandler(func(msgID uint16, data *[]byte) {
		if msgID == MsgIdentifyReply {
			s, err := DecodeVLQString(data)
			if err == nil {
				versions <- s
			}
		}
	})

	if err := link.SendCommandWithTimeout(MsgIdentify, nil, time.Second); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	select {
	case v := <-versions:
		if v != Version {
			t.Errorf("Version = %q, want %q", v, Version)
		}
	case <-time.After(time.Second):
		t.Fatal("No identify reply")
	}

	// Second command uses the advanced sequence and is accepted too
	if err := link.SendCommandWithTimeout(MsgEstop, nil, time.Second); err != nil {
		t.Errorf("Second command failed: %v", err)
	}
}

func TestSplitFrames(t *testing.T) {
	out := NewScratchOutput()
	tr := NewTransport(out, nil)
	tr.SendCommand(MsgIdentifyReply, func(o OutputBuffer) { EncodeVLQString(o, Version) })
	tr.SendCommand(MsgEvent, func(o OutputBuffer) {
		EncodeEvent(o, &Event{Type: 9, Cursor: 140, Clock: 77, Value1: 140})
	})
	stream := append([]byte{0x00, MessageValueSync}, out.Result()...)

	payloads, rest := SplitFrames(append(stream, stream[2:5]...))
	if len(payloads) != 2 {
		t.Fatalf("SplitFrames returned %d payloads, want 2", len(payloads))
	}
	if len(rest) != 3 {
		t.Errorf("rest = %d bytes, want the 3-byte partial frame", len(rest))
	}

	p := payloads[1]
	id, _ := DecodeVLQUint(&p)
	evt, err := DecodeEvent(&p)
	if uint16(id) != MsgEvent || err != nil || evt.Cursor != 140 || evt.Value1 != 140 {
		t.Errorf("Second payload id=%d evt=%+v err=%v", id, evt, err)
	}
}
