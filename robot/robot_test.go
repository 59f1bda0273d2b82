package robot

import (
	"testing"
	"time"

	"linebot/control"
	"linebot/control/config"
	"linebot/control/path"
	"linebot/control/pivot"
	"linebot/core"
	"linebot/protocol"
	"linebot/sim"
)

func testConfig(route ...control.Maneuver) *control.Config {
	cfg := config.Default()
	cfg.Sensors.Samples = 4
	cfg.Path.WaypointHoldMS = 200
	cfg.Telemetry.IntervalTicks = 0
	cfg.Route = control.RouteConfig{Maneuvers: route}
	return cfg
}

func newSimRobot(t *testing.T, cfg *control.Config, segmentMM float64) (*Robot, *sim.Sim) {
	t.Helper()
	s := sim.New(cfg, sim.TrackFor(cfg.Route, segmentMM))
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	r.Start(s.Now())
	return r, s
}

// collect records every event the robot emits
func collect(r *Robot) *[]core.ControlEvent {
	var events []core.ControlEvent
	r.EventRing().OnEvent = func(evt core.ControlEvent) {
		events = append(events, evt)
	}
	return &events
}

func count(events []core.ControlEvent, typ uint8) int {
	n := 0
	for _, e := range events {
		if e.EventType == typ {
			n++
		}
	}
	return n
}

func TestMissionCompletes(t *testing.T) {
	cfg := testConfig(
		control.Straight, control.TurnLeft,
		control.Straight, control.Waypoint, control.UTurn,
		control.Straight, control.TurnRight,
		control.Straight, control.Goal,
	)
	cfg.Route.WaypointsMM = []int32{120}
	r, s := newSimRobot(t, cfg, 200)
	events := collect(r)

	if !s.Run(r, 30*time.Second, r.Done) {
		t.Fatalf("Mission not done after %v: cursor=%d phase=%s pose=%+v",
			s.Elapsed(), r.Runner().Cursor(), r.Runner().Phase(), s.World.Pose())
	}

	if r.Runner().Cursor() != 8 {
		t.Errorf("Finished at cursor %d, want 8", r.Runner().Cursor())
	}
	if s.World.Segment() != 3 {
		t.Errorf("Finished on segment %d, want 3", s.World.Segment())
	}
	completed, timeouts, _ := r.Pivot().Stats()
	if completed != 3 || timeouts != 0 {
		t.Errorf("Pivots completed=%d timeouts=%d, want 3/0", completed, timeouts)
	}

	evts := *events
	for _, c := range []struct {
		typ  uint8
		want int
	}{
		{core.EvtPivotStart, 3},
		{core.EvtPivotFinish, 3},
		{core.EvtPivotTimeout, 0},
		{core.EvtWaypointArmed, 1},
		{core.EvtWaypointReach, 1},
		{core.EvtGoal, 1},
		{core.EvtCursorAdvance, 8},
	} {
		if got := count(evts, c.typ); got != c.want {
			t.Errorf("%s events = %d, want %d", core.EventName(c.typ), got, c.want)
		}
	}
	if last := evts[len(evts)-1]; last.EventType != core.EvtGoal {
		t.Errorf("Last event %s, want GOAL", core.EventName(last.EventType))
	}

	// The waypoint stop lands on its distance, within one tick of travel
	for _, e := range evts {
		if e.EventType == core.EvtWaypointReach && (e.Value1 < 120 || e.Value1 > 125) {
			t.Errorf("Waypoint reached at %dmm, want 120", e.Value1)
		}
	}

	// Parked at the goal: stopped with both drivers disabled
	if l, rr := r.Wheels().Duty(); l != 0 || rr != 0 {
		t.Errorf("Goal duty = %d/%d", l, rr)
	}
	if l, rr := r.Wheels().Disabled(); !l || !rr {
		t.Error("Drivers still enabled at goal")
	}
	if r.DriverErrors() != 0 {
		t.Errorf("DriverErrors = %d", r.DriverErrors())
	}
}

func TestEstopFreezesStraight(t *testing.T) {
	cfg := testConfig(control.Straight, control.TurnLeft, control.Straight, control.Goal)
	r, s := newSimRobot(t, cfg, 300)

	s.Run(r, 300*time.Millisecond, nil)
	before := s.World.Pose()
	if before.AlongMM < 20 {
		t.Fatalf("Robot did not start driving: %+v", before)
	}

	r.Halt(protocol.HaltHost)
	s.Run(r, 300*time.Millisecond, nil)
	if after := s.World.Pose(); after != before {
		t.Errorf("Robot moved while halted: %+v -> %+v", before, after)
	}
	if l, rr := r.Wheels().Disabled(); !l || !rr {
		t.Error("Drivers enabled while halted")
	}
	if r.Halted() != protocol.HaltHost {
		t.Errorf("Halted = %d", r.Halted())
	}

	r.Resume()
	if !s.Run(r, 20*time.Second, r.Done) {
		t.Fatalf("Mission not done after resume, pose %+v", s.World.Pose())
	}
}

func TestEstopDuringPivot(t *testing.T) {
	cfg := testConfig(control.Straight, control.TurnLeft, control.Straight, control.Goal)
	r, s := newSimRobot(t, cfg, 200)
	events := collect(r)

	turning := func() bool { return r.Pivot().State() == pivot.Turning }
	if !s.Run(r, 10*time.Second, turning) {
		t.Fatal("Pivot never started turning")
	}
	s.Run(r, 24*time.Millisecond, nil)

	r.Halt(protocol.HaltHost)
	frozen := s.World.Pose()
	s.Run(r, 2*time.Second, nil)
	if s.World.Pose() != frozen {
		t.Errorf("Body turned while halted: %+v -> %+v", frozen, s.World.Pose())
	}
	if r.Runner().Phase() != path.PhasePivot || r.Pivot().State() != pivot.Turning {
		t.Errorf("Halt lost the pivot: phase=%s state=%s", r.Runner().Phase(), r.Pivot().State())
	}

	r.Resume()
	if !s.Run(r, 20*time.Second, r.Done) {
		t.Fatalf("Mission not done after resume, pose %+v", s.World.Pose())
	}
	if n := count(*events, core.EvtPivotTimeout); n != 0 {
		t.Errorf("Halted pivot timed out %d times", n)
	}
	if count(*events, core.EvtHalt) != 1 || count(*events, core.EvtResume) != 1 {
		t.Error("Expected one HALT and one RESUME event")
	}
}

func TestObstacleHaltAndClear(t *testing.T) {
	cfg := testConfig(control.Straight, control.TurnLeft, control.Straight, control.Goal)
	cfg.Obstacle.Enabled = true
	r, s := newSimRobot(t, cfg, 400)
	r.SetRangeSensor(s.HW.Range)

	// No reading is not an obstacle
	s.Run(r, 100*time.Millisecond, nil)
	if r.Halted() != protocol.HaltNone {
		t.Fatal("Halted without a reading")
	}

	s.HW.Range.Set(100)
	s.Run(r, 100*time.Millisecond, nil)
	if r.Halted() != protocol.HaltObstacle {
		t.Fatalf("Halted = %d, want obstacle", r.Halted())
	}

	// Between the halt and clear distances nothing changes
	s.HW.Range.Set(150)
	s.Run(r, 100*time.Millisecond, nil)
	if r.Halted() != protocol.HaltObstacle {
		t.Errorf("Resumed inside the hysteresis gap")
	}

	s.HW.Range.Set(200)
	s.Run(r, 100*time.Millisecond, nil)
	if r.Halted() != protocol.HaltNone {
		t.Fatalf("Still halted after the obstacle cleared")
	}

	// A host stop is never lifted by the obstacle clearing
	s.HW.Range.Set(100)
	s.Run(r, 100*time.Millisecond, nil)
	r.Halt(protocol.HaltHost)
	s.HW.Range.Set(300)
	s.Run(r, 100*time.Millisecond, nil)
	if r.Halted() != protocol.HaltHost {
		t.Errorf("Halted = %d, want host", r.Halted())
	}

	// An obstacle never downgrades a host stop
	r.Halt(protocol.HaltObstacle)
	if r.Halted() != protocol.HaltHost {
		t.Errorf("Obstacle overrode host stop")
	}
	r.Resume()
	if r.Halted() != protocol.HaltNone {
		t.Errorf("Resume left halt %d", r.Halted())
	}
}

func TestDriverErrorsReported(t *testing.T) {
	cfg := testConfig(control.Straight, control.TurnLeft, control.Straight, control.Goal)
	r, s := newSimRobot(t, cfg, 300)
	events := collect(r)

	s.Run(r, 50*time.Millisecond, nil)
	s.HW.PWM.Fail = true
	s.Run(r, 50*time.Millisecond, nil)

	if r.DriverErrors() == 0 {
		t.Fatal("No driver errors counted")
	}
	if count(*events, core.EvtDriverError) == 0 {
		t.Error("No DRIVER_ERROR event")
	}
	if st := r.Status(); st.DriverErrors != r.DriverErrors() {
		t.Errorf("Status.DriverErrors = %d, want %d", st.DriverErrors, r.DriverErrors())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(control.Straight, control.TurnLeft)
	if _, err := New(cfg); err == nil {
		t.Error("Expected error for a route without GOAL")
	}
}

// hostLink plays the host end against the robot transport
type hostLink struct {
	t   *testing.T
	r   *Robot
	tr  *protocol.Transport
	out *protocol.ScratchOutput
	seq uint8
	rx  []byte
}

func newHostLink(t *testing.T, r *Robot) *hostLink {
	h := &hostLink{t: t, r: r, out: protocol.NewScratchOutput(), seq: protocol.MessageDest}
	h.tr = protocol.NewTransport(h.out, r.HandleCommand)
	r.AttachTransport(h.tr)
	return h
}

func (h *hostLink) send(id uint16, args func(protocol.OutputBuffer)) {
	h.t.Helper()
	frame, err := protocol.BuildFrame(h.seq, id, args)
	if err != nil {
		h.t.Fatalf("BuildFrame failed: %v", err)
	}
	h.tr.Receive(protocol.NewSliceInputBuffer(frame))
	h.seq = ((h.seq + 1) & protocol.MessageSeqMask) | protocol.MessageDest
	h.drain()
}

// Poll runs the robot and keeps its output buffer from filling
func (h *hostLink) Poll(now uint32) {
	h.r.Poll(now)
	h.drain()
}

func (h *hostLink) drain() {
	h.rx = append(h.rx, h.out.Result()...)
	h.out.Reset()
}

// reports returns the payloads received for one message ID and clears
// the receive buffer
func (h *hostLink) reports(id uint16) [][]byte {
	payloads, _ := protocol.SplitFrames(h.rx)
	h.rx = nil
	var out [][]byte
	for _, p := range payloads {
		msg, err := protocol.DecodeVLQUint(&p)
		if err == nil && uint16(msg) == id {
			out = append(out, p)
		}
	}
	return out
}

func TestTelemetryAndCommands(t *testing.T) {
	cfg := testConfig(control.Straight, control.TurnLeft, control.Straight, control.Goal)
	r, s := newSimRobot(t, cfg, 300)
	h := newHostLink(t, r)

	h.send(protocol.MsgIdentify, nil)
	replies := h.reports(protocol.MsgIdentifyReply)
	if len(replies) != 1 {
		t.Fatalf("identify replies = %d", len(replies))
	}
	if v, err := protocol.DecodeVLQString(&replies[0]); err != nil || v != protocol.Version {
		t.Errorf("identify = %q, %v", v, err)
	}

	h.send(protocol.MsgSetTelemetry, func(o protocol.OutputBuffer) { protocol.EncodeVLQUint(o, 5) })
	s.Run(h, 100*time.Millisecond, nil)

	frames := h.reports(protocol.MsgStatus)
	if len(frames) != 2 {
		t.Fatalf("status frames = %d, want 2", len(frames))
	}
	var statuses []protocol.Status
	for _, f := range frames {
		st, err := protocol.DecodeStatus(&f)
		if err != nil {
			t.Fatalf("DecodeStatus failed: %v", err)
		}
		statuses = append(statuses, st)
	}
	first, second := statuses[0], statuses[1]
	if first.Cursor != 0 || first.Maneuver != uint8(control.Straight) || first.Phase != uint8(path.PhaseDrive) {
		t.Errorf("Unexpected status %+v", first)
	}
	if second.Distance <= first.Distance || first.Distance <= 0 {
		t.Errorf("Distance did not grow: %d then %d", first.Distance, second.Distance)
	}
	if second.OnLine&0x24 != 0x24 {
		t.Errorf("Tracking channels off the line: mask %#x", second.OnLine)
	}
	if second.Clock-first.Clock != core.TimerFromMS(5*cfg.Timing.ControlPeriodMS) {
		t.Errorf("Status spacing = %d ticks", second.Clock-first.Clock)
	}

	// estop reports a HALT event as it happens
	h.send(protocol.MsgEstop, nil)
	if r.Halted() != protocol.HaltHost {
		t.Fatalf("estop did not halt")
	}
	evts := h.reports(protocol.MsgEvent)
	if len(evts) != 1 {
		t.Fatalf("events after estop = %d, want 1", len(evts))
	}
	if e, err := protocol.DecodeEvent(&evts[0]); err != nil || e.Type != core.EvtHalt || e.Value1 != int32(protocol.HaltHost) {
		t.Errorf("HALT event = %+v, %v", e, err)
	}

	s.Run(h, 100*time.Millisecond, nil)
	frames = h.reports(protocol.MsgStatus)
	if len(frames) == 0 {
		t.Fatal("No telemetry while halted")
	}
	if st, _ := protocol.DecodeStatus(&frames[len(frames)-1]); !st.Halted() {
		t.Errorf("Status while halted = %+v", st)
	}

	h.send(protocol.MsgResume, nil)
	if r.Halted() != protocol.HaltNone {
		t.Error("resume did not clear the halt")
	}

	// dump_events replays the retained ring
	h.reports(protocol.MsgEvent)
	h.send(protocol.MsgDumpEvents, nil)
	if got, want := len(h.reports(protocol.MsgEvent)), len(r.Events()); got != want {
		t.Errorf("dump_events sent %d events, ring holds %d", got, want)
	}

	h.send(protocol.MsgSetDebug, func(o protocol.OutputBuffer) { protocol.EncodeVLQUint(o, 1) })
	if !core.IsDebugEnabled() {
		t.Error("set_debug did not enable debug output")
	}
	h.send(protocol.MsgSetDebug, func(o protocol.OutputBuffer) { protocol.EncodeVLQUint(o, 0) })
	if core.IsDebugEnabled() {
		t.Error("set_debug did not disable debug output")
	}

	// Telemetry off
	h.send(protocol.MsgSetTelemetry, func(o protocol.OutputBuffer) { protocol.EncodeVLQUint(o, 0) })
	s.Run(h, 100*time.Millisecond, nil)
	if n := len(h.reports(protocol.MsgStatus)); n != 0 {
		t.Errorf("status frames with telemetry off = %d", n)
	}

	if in, bad := h.tr.Stats(); bad != 0 || in == 0 {
		t.Errorf("transport in=%d bad=%d", in, bad)
	}
}
