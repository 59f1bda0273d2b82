package odometry

import (
	"testing"

	"linebot/control"
	"linebot/core"
)

type fakeEncoders struct {
	counts [2]int32
	resets int
}

func (f *fakeEncoders) ReadCount(axis core.EncoderAxis) int32 { return f.counts[axis] }
func (f *fakeEncoders) ResetCount(axis core.EncoderAxis) {
	f.counts[axis] = 0
	f.resets++
}

func (f *fakeEncoders) add(left, right int32) {
	f.counts[core.EncoderLeft] += left
	f.counts[core.EncoderRight] += right
}

func defaultOdometry() control.OdometryConfig {
	return control.OdometryConfig{
		CountsPerRev:     228,
		WheelRadiusMM:    34,
		PiX1000:          3142,
		CalibrationX1000: 1000,
	}
}

func TestAccumulateForward(t *testing.T) {
	enc := &fakeEncoders{}
	var dir control.Direction
	acc := New(defaultOdometry(), enc, &dir)

	// 2+2 counts per period is 1.874 mm; the remainder carries over
	for i := 0; i < 10; i++ {
		enc.add(2, 2)
		acc.Update()
	}
	if got := acc.Distance(); got != 18 {
		t.Errorf("Distance = %d, want 18", got)
	}
	if enc.counts != [2]int32{} {
		t.Errorf("Counters not cleared: %v", enc.counts)
	}
}

func TestAccumulateReverse(t *testing.T) {
	enc := &fakeEncoders{}
	acc := New(defaultOdometry(), enc, &control.Direction{})

	for i := 0; i < 10; i++ {
		enc.add(-2, -2)
		acc.Update()
	}
	if got := acc.Distance(); got != -18 {
		t.Errorf("Distance = %d, want -18", got)
	}
}

func TestCalibration(t *testing.T) {
	cfg := defaultOdometry()
	cfg.CalibrationX1000 = 1100
	enc := &fakeEncoders{}
	acc := New(cfg, enc, &control.Direction{})

	for i := 0; i < 10; i++ {
		enc.add(2, 2)
		acc.Update()
	}
	if got := acc.Distance(); got != 20 {
		t.Errorf("Distance = %d, want 20", got)
	}
}

func TestSkippedWhilePivoting(t *testing.T) {
	enc := &fakeEncoders{}
	var dir control.Direction
	acc := New(defaultOdometry(), enc, &dir)

	dir.Store(control.SideLeft)
	enc.add(50, -50)
	acc.Update()

	if acc.Distance() != 0 {
		t.Errorf("Distance changed during pivot: %d", acc.Distance())
	}
	if enc.counts != [2]int32{50, -50} {
		t.Errorf("Pivot-owned counters touched: %v", enc.counts)
	}
	if _, skipped := acc.Updates(); skipped != 1 {
		t.Errorf("Expected 1 skipped update, got %d", skipped)
	}

	dir.Clear()
	enc.counts = [2]int32{}
	enc.add(100, 100)
	acc.Update()
	// 200 counts * 937 / 2 = 93.7 mm
	if got := acc.Distance(); got != 93 {
		t.Errorf("Distance = %d, want 93", got)
	}
}

func TestReset(t *testing.T) {
	enc := &fakeEncoders{}
	acc := New(defaultOdometry(), enc, &control.Direction{})

	enc.add(100, 100)
	acc.Update()
	if acc.Distance() == 0 {
		t.Fatal("Expected nonzero distance")
	}
	acc.Reset()
	if acc.Distance() != 0 {
		t.Errorf("Reset left %d", acc.Distance())
	}
}
