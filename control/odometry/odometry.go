// Package odometry accumulates straight-line travel from the wheel encoders.
//
// Update runs from the periodic odometry timer and is the only writer of the
// travel total. The control loop reads it through Distance and zeroes it
// with Reset when a waypoint distance is armed.
package odometry

import (
	"sync/atomic"

	"linebot/control"
	"linebot/core"
)

// Accumulator converts encoder deltas into millimetres of travel
type Accumulator struct {
	encoders core.EncoderDriver
	dir      *control.Direction

	mmPerCountX1000  int32
	calibrationX1000 int32

	distance atomic.Int32

	// Sub-millimetre remainder in micrometres, writer-owned
	residual int32

	updates uint32
	skipped uint32
}

// New creates an accumulator. dir is the shared pivot flag; while it is set
// the pivot machine owns the counters and Update leaves them alone.
func New(cfg control.OdometryConfig, encoders core.EncoderDriver, dir *control.Direction) *Accumulator {
	cal := cfg.CalibrationX1000
	if cal == 0 {
		cal = 1000
	}
	return &Accumulator{
		encoders:         encoders,
		dir:              dir,
		mmPerCountX1000:  cfg.MMPerCountX1000(),
		calibrationX1000: cal,
	}
}

// Update consumes the encoder deltas since the previous call
func (a *Accumulator) Update() {
	if a.dir != nil && a.dir.Pivoting() {
		a.skipped++
		return
	}
	a.updates++

	dl := core.TakeDelta(a.encoders, core.EncoderLeft)
	dr := core.TakeDelta(a.encoders, core.EncoderRight)

	sum := abs32(dl) + abs32(dr)
	if sum == 0 {
		return
	}

	// Average of both wheels in micrometres, then calibration with rounding
	um := int64(sum) * int64(a.mmPerCountX1000) / 2
	um = (um*int64(a.calibrationX1000) + 500) / 1000
	if dl+dr < 0 {
		um = -um
	}

	a.residual += int32(um)
	mm := a.residual / 1000
	a.residual -= mm * 1000
	if mm != 0 {
		a.distance.Add(mm)
	}
}

// Distance returns the signed travel in millimetres since the last Reset
func (a *Accumulator) Distance() int32 {
	return a.distance.Load()
}

// Reset zeroes the travel total
func (a *Accumulator) Reset() {
	a.distance.Store(0)
}

// Updates returns how many periods accumulated and how many were skipped
// because a pivot owned the counters
func (a *Accumulator) Updates() (accumulated, skipped uint32) {
	return a.updates, a.skipped
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
