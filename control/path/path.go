// Package path walks the fixed maneuver list.
//
// Each control tick the runner looks at the maneuver under the cursor and
// either steers along the line, hands the motors to the pivot machine, holds
// at a waypoint, or parks at the goal. Timed windows are counted in ticks so
// Tick never blocks.
package path

import (
	"linebot/control"
	"linebot/control/linesensor"
	"linebot/core"
)

// Phase is the runner's activity within the current maneuver
type Phase uint8

const (
	PhaseDrive  Phase = iota // steering along a straight segment
	PhasePivot               // pivot machine owns the motors
	PhaseSettle              // brake window after a pivot
	PhaseHold                // stopped at a waypoint
	PhaseGoal                // terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseDrive:
		return "DRIVE"
	case PhasePivot:
		return "PIVOT"
	case PhaseSettle:
		return "SETTLE"
	case PhaseHold:
		return "HOLD"
	case PhaseGoal:
		return "GOAL"
	}
	return "UNKNOWN"
}

// Steering is the line-tracking controller
type Steering interface {
	Update(normalized []float32) int
	Reset()
}

// Pivot is stepped while a side is latched in the direction flag
type Pivot interface {
	Handle()
	Resume()
}

// Odometer is the travel distance cell
type Odometer interface {
	Distance() int32
	Reset()
}

// Deps are the collaborators the runner drives
type Deps struct {
	Motors   control.Motors
	Steering Steering
	Pivot    Pivot
	Odometer Odometer
	Dir      *control.Direction
	Events   control.EventSink
}

// Runner is the maneuver sequencer
type Runner struct {
	route     []control.Maneuver
	waypoints []int32
	deps      Deps

	center        int
	holdTicks     uint32
	settleTicks   uint32
	cooldownTicks uint32

	cursor  int
	phase   Phase
	wpIndex int

	// Waypoint arming for the STRAIGHT at pairCursor
	pairCursor int
	armed      bool
	target     int32
	fallback   bool

	holdLeft     uint32
	settleLeft   uint32
	cooldownLeft uint32

	driversOff   bool
	steer        int
	driverErrors uint32
}

// New creates a runner at the start of route
func New(cfg *control.Config, route control.RouteConfig, deps Deps) *Runner {
	return &Runner{
		route:         route.Maneuvers,
		waypoints:     route.WaypointsMM,
		deps:          deps,
		center:        cfg.Drive.CenterDuty,
		holdTicks:     cfg.Timing.Ticks(cfg.Path.WaypointHoldMS),
		settleTicks:   cfg.Timing.Ticks(cfg.Pivot.BrakeMS),
		cooldownTicks: cfg.Timing.Ticks(cfg.Path.TurnCooldownMS),
		pairCursor:    -1,
		// Motor setup leaves the drivers disabled
		driversOff: true,
	}
}

// Cursor returns the index of the current maneuver
func (r *Runner) Cursor() int { return r.cursor }

// Current returns the maneuver under the cursor
func (r *Runner) Current() control.Maneuver { return r.at(r.cursor) }

// Phase returns the current phase
func (r *Runner) Phase() Phase { return r.phase }

// Done reports whether the goal has been reached
func (r *Runner) Done() bool { return r.phase == PhaseGoal }

// Steer returns the last steering output
func (r *Runner) Steer() int { return r.steer }

// Armed returns the armed waypoint distance, if any
func (r *Runner) Armed() (target int32, ok bool) { return r.target, r.armed }

// DriverErrors returns the number of failed motor commands
func (r *Runner) DriverErrors() uint32 { return r.driverErrors }

// at treats positions past the end as GOAL
func (r *Runner) at(i int) control.Maneuver {
	if i < 0 || i >= len(r.route) {
		return control.Goal
	}
	return r.route[i]
}

// Tick runs one control step with this tick's sensor snapshot
func (r *Runner) Tick(s linesensor.Snapshot) {
	if r.phase == PhaseGoal {
		return
	}

	cur := r.at(r.cursor)
	if cur == control.Goal {
		r.park()
		r.phase = PhaseGoal
		r.emit(core.EvtGoal, int32(r.cursor), 0)
		return
	}

	switch r.phase {
	case PhaseSettle:
		r.check(r.deps.Motors.Stop())
		if r.settleLeft > 0 {
			r.settleLeft--
		}
		if r.settleLeft == 0 {
			r.phase = PhaseDrive
			r.cooldownLeft = r.cooldownTicks
		}
		return

	case PhaseHold:
		if r.holdLeft > 0 {
			r.holdLeft--
		}
		if r.holdLeft == 0 {
			r.phase = PhaseDrive
			r.advance()
		}
		return
	}

	switch {
	case cur == control.Straight:
		r.straight(s)
	case cur.IsTurn():
		r.turn(cur)
	case cur == control.Waypoint:
		r.park()
		r.holdLeft = r.holdTicks
		r.phase = PhaseHold
		if r.holdLeft == 0 {
			r.phase = PhaseDrive
			r.advance()
		}
	}
}

// straight steers along the line and decides when the segment ends
func (r *Runner) straight(s linesensor.Snapshot) {
	next := r.at(r.cursor + 1)
	r.armWaypoint(next)

	if r.armed && r.deps.Odometer.Distance() >= r.target {
		r.emit(core.EvtWaypointReach, r.deps.Odometer.Distance(), r.target)
		r.armed = false
		r.park()
		r.advance()
		return
	}

	intersection := s.Intersection && r.cooldownLeft == 0
	if r.cooldownLeft > 0 {
		r.cooldownLeft--
	}
	if intersection && !r.armed {
		r.emit(core.EvtIntersection, int32(next), int32(s.OnLineMask()))
		if r.gatedByIntersection(next) {
			r.advance()
			return
		}
	}

	if r.driversOff {
		r.check(r.deps.Motors.SetDisabled(false, false))
		r.driversOff = false
	}
	n := s.Channels
	if n > len(s.Normalized) {
		n = len(s.Normalized)
	}
	r.steer = r.deps.Steering.Update(s.Normalized[:n])
	r.check(r.deps.Motors.Steer(r.center, r.steer))
}

// gatedByIntersection reports whether an accepted intersection ends the
// current STRAIGHT given the maneuver that follows it
func (r *Runner) gatedByIntersection(next control.Maneuver) bool {
	switch {
	case next.IsTurn():
		return true
	case next == control.Straight, next == control.Goal:
		return true
	case next == control.Waypoint:
		return r.fallback
	}
	return false
}

// armWaypoint draws the next table distance the first time a STRAIGHT
// followed by WAYPOINT is reached
func (r *Runner) armWaypoint(next control.Maneuver) {
	if next != control.Waypoint || r.pairCursor == r.cursor {
		return
	}
	r.pairCursor = r.cursor

	if r.wpIndex >= len(r.waypoints) {
		r.fallback = true
		r.emit(core.EvtWaypointNoDist, int32(r.cursor), int32(r.wpIndex))
		return
	}
	r.target = r.waypoints[r.wpIndex]
	r.deps.Odometer.Reset()
	r.armed = true
	r.emit(core.EvtWaypointArmed, r.target, int32(r.wpIndex))
	r.wpIndex++
}

// turn latches the side once and steps the pivot machine until it clears
// the flag
func (r *Runner) turn(cur control.Maneuver) {
	if r.phase != PhasePivot {
		r.deps.Dir.Store(cur.Side())
		r.phase = PhasePivot
	}
	r.deps.Pivot.Handle()
	if r.deps.Dir.Pivoting() {
		return
	}

	r.deps.Steering.Reset()
	r.steer = 0
	r.advance()
	r.settleLeft = r.settleTicks
	if r.settleLeft > 0 {
		r.phase = PhaseSettle
	} else {
		r.phase = PhaseDrive
		r.cooldownLeft = r.cooldownTicks
	}
}

// park stops both wheels and disables the drivers
func (r *Runner) park() {
	r.steer = 0
	r.check(r.deps.Motors.Stop())
	r.check(r.deps.Motors.SetDisabled(true, true))
	r.driversOff = true
}

func (r *Runner) advance() {
	r.cursor++
	r.armed = false
	r.fallback = false
	r.emit(core.EvtCursorAdvance, int32(r.cursor), int32(r.at(r.cursor)))
}

// Halt stops the motors for a supervisory stop. The caller stops calling
// Tick until Resume.
func (r *Runner) Halt() {
	r.park()
}

// Resume hands power back to whichever phase was interrupted
func (r *Runner) Resume() {
	switch r.phase {
	case PhasePivot:
		r.deps.Pivot.Resume()
	case PhaseSettle:
		r.check(r.deps.Motors.SetDisabled(false, false))
		r.driversOff = false
	}
}

func (r *Runner) check(err error) {
	if err != nil {
		r.driverErrors++
	}
}

func (r *Runner) emit(evt uint8, v1, v2 int32) {
	if r.deps.Events != nil {
		r.deps.Events(evt, v1, v2)
	}
}
