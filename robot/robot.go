// Package robot assembles the controllers onto the core scheduler.
//
// Two periodic timers drive everything: the odometry timer folds encoder
// counts into the travel cell, and the control timer reads the sensors,
// steps the path runner and emits telemetry. Supervisory commands from the
// host arrive through the protocol transport and the command registry.
package robot

import (
	"fmt"

	"linebot/control"
	"linebot/control/linesensor"
	"linebot/control/motor"
	"linebot/control/odometry"
	"linebot/control/path"
	"linebot/control/pivot"
	"linebot/control/steering"
	"linebot/core"
	"linebot/protocol"
)

// RangeSensor reports the distance to the nearest object ahead. Zero means
// no valid reading.
type RangeSensor interface {
	RangeMM() (uint16, error)
}

// Robot owns every controller and the shared direction flag
type Robot struct {
	cfg *control.Config

	sched     *core.Scheduler
	odoTimer  core.Timer
	ctrlTimer core.Timer

	dir      control.Direction
	wheels   *motor.Wheels
	odo      *odometry.Accumulator
	sensors  *linesensor.Reader
	steering *steering.Controller
	pivot    *pivot.Machine
	runner   *path.Runner

	events    core.EventRing
	registry  *core.CommandRegistry
	transport *protocol.Transport
	obstacle  RangeSensor

	haltReason        uint8
	telemetryInterval uint32
	ticks             uint32
	last              linesensor.Snapshot

	sensorErrors   uint32
	obstacleErrors uint32
	reportedErrors uint32
}

// New builds the robot over the registered core drivers
func New(cfg *control.Config) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("robot config: %w", err)
	}

	r := &Robot{
		cfg:               cfg,
		sched:             core.NewScheduler(),
		registry:          core.NewCommandRegistry(),
		telemetryInterval: cfg.Telemetry.IntervalTicks,
	}

	adc := core.MustADC()
	if err := adc.Init(core.ADCConfig{}); err != nil {
		return nil, fmt.Errorf("adc init: %w", err)
	}
	sampler := core.NewContrastSampler(adc, cfg.Sensors.Samples)
	if err := sampler.Configure(cfg.Sensors.Channels); err != nil {
		return nil, fmt.Errorf("adc channels: %w", err)
	}

	wheels, err := motor.New(cfg.Drive, core.MustPWM(), core.MustGPIO())
	if err != nil {
		return nil, err
	}
	r.wheels = wheels

	encoders := core.MustEncoder()
	r.odo = odometry.New(cfg.Odometry, encoders, &r.dir)
	r.sensors = linesensor.New(cfg.Sensors, sampler)
	r.steering = steering.New(cfg.Steering, cfg.Timing)
	r.pivot = pivot.New(cfg.Pivot, cfg.Timing, wheels, encoders, &r.dir)
	r.pivot.SetEventSink(r.record)
	r.runner = path.New(cfg, cfg.Route, path.Deps{
		Motors:   wheels,
		Steering: r.steering,
		Pivot:    r.pivot,
		Odometer: r.odo,
		Dir:      &r.dir,
		Events:   r.record,
	})

	r.odoTimer.Handler = r.odometryEvent
	r.ctrlTimer.Handler = r.controlEvent

	if err := r.registerCommands(); err != nil {
		return nil, err
	}
	return r, nil
}

// Start schedules the periodic tasks relative to now
func (r *Robot) Start(now uint32) {
	r.odoTimer.WakeTime = now + core.TimerFromMS(r.cfg.Timing.OdometryPeriodMS)
	r.ctrlTimer.WakeTime = now + core.TimerFromMS(r.cfg.Timing.ControlPeriodMS)
	r.sched.ScheduleTimer(&r.odoTimer)
	r.sched.ScheduleTimer(&r.ctrlTimer)
	core.DebugPrintln("[ROBOT] started, route=" + core.Itoa(len(r.cfg.Route.Maneuvers)))
}

// Poll runs every task due at now
func (r *Robot) Poll(now uint32) {
	r.sched.Dispatch(now)
}

// NextWake returns when the next task is due
func (r *Robot) NextWake() (uint32, bool) {
	return r.sched.NextWake()
}

func (r *Robot) odometryEvent(t *core.Timer) uint8 {
	r.odo.Update()
	t.WakeTime += core.TimerFromMS(r.cfg.Timing.OdometryPeriodMS)
	return core.SF_RESCHEDULE
}

func (r *Robot) controlEvent(t *core.Timer) uint8 {
	r.controlTick()
	t.WakeTime += core.TimerFromMS(r.cfg.Timing.ControlPeriodMS)
	return core.SF_RESCHEDULE
}

// controlTick is one pass of the control loop
func (r *Robot) controlTick() {
	r.ticks++

	snap := r.sensors.Read()
	r.last = snap
	r.sensorErrors += uint32(snap.Errors)

	if r.obstacle != nil && r.cfg.Obstacle.Enabled && r.ticks%r.cfg.Obstacle.PollTicks == 0 {
		r.checkObstacle()
	}

	if r.haltReason == protocol.HaltNone {
		r.runner.Tick(snap)
	}

	if errs := r.DriverErrors(); errs != r.reportedErrors {
		r.reportedErrors = errs
		r.record(core.EvtDriverError, int32(errs), 0)
	}

	if r.telemetryInterval > 0 && r.ticks%r.telemetryInterval == 0 {
		r.sendStatus()
	}
}

// SetRangeSensor installs the forward obstacle sensor
func (r *Robot) SetRangeSensor(s RangeSensor) {
	r.obstacle = s
}

func (r *Robot) checkObstacle() {
	mm, err := r.obstacle.RangeMM()
	if err != nil {
		r.obstacleErrors++
		return
	}
	if mm == 0 {
		return
	}
	switch {
	case r.haltReason == protocol.HaltNone && mm < r.cfg.Obstacle.HaltMM:
		r.Halt(protocol.HaltObstacle)
	case r.haltReason == protocol.HaltObstacle && mm > r.cfg.Obstacle.ClearMM:
		r.Resume()
	}
}

// Halt stops the mission in place. The runner, pivot and waypoint timers
// are frozen until Resume.
func (r *Robot) Halt(reason uint8) {
	if reason == protocol.HaltNone || r.haltReason == reason {
		return
	}
	// A host stop overrides an obstacle stop, never the reverse
	if r.haltReason == protocol.HaltHost {
		return
	}
	wasHalted := r.haltReason != protocol.HaltNone
	r.haltReason = reason
	if !wasHalted {
		r.runner.Halt()
	}
	r.record(core.EvtHalt, int32(reason), 0)
}

// Resume continues from where Halt stopped
func (r *Robot) Resume() {
	if r.haltReason == protocol.HaltNone {
		return
	}
	r.haltReason = protocol.HaltNone
	r.runner.Resume()
	r.record(core.EvtResume, 0, 0)
}

// Halted returns the active halt reason
func (r *Robot) Halted() uint8 { return r.haltReason }

// Done reports whether the route reached GOAL
func (r *Robot) Done() bool { return r.runner.Done() }

// Runner exposes the path runner for inspection
func (r *Robot) Runner() *path.Runner { return r.runner }

// Pivot exposes the pivot machine for inspection
func (r *Robot) Pivot() *pivot.Machine { return r.pivot }

// Wheels exposes the motor mapping for inspection
func (r *Robot) Wheels() *motor.Wheels { return r.wheels }

// Distance returns the travel since the last waypoint arming
func (r *Robot) Distance() int32 { return r.odo.Distance() }

// Events returns the retained control events, oldest first
func (r *Robot) Events() []core.ControlEvent { return r.events.Events() }

// EventRing exposes the event ring so callers can observe events as they
// are recorded
func (r *Robot) EventRing() *core.EventRing { return &r.events }

// Ticks returns the number of control ticks run
func (r *Robot) Ticks() uint32 { return r.ticks }

// DriverErrors sums failed motor commands across the controllers
func (r *Robot) DriverErrors() uint32 {
	_, _, pivotErrs := r.pivot.Stats()
	return r.runner.DriverErrors() + pivotErrs
}

// Status builds a telemetry snapshot
func (r *Robot) Status() protocol.Status {
	s := protocol.Status{
		Clock:        core.GetTime(),
		Cursor:       uint16(r.runner.Cursor()),
		Maneuver:     uint8(r.runner.Current()),
		Phase:        uint8(r.runner.Phase()),
		PivotState:   uint8(r.pivot.State()),
		Distance:     r.odo.Distance(),
		Steer:        int32(r.runner.Steer()),
		OnLine:       r.last.OnLineMask(),
		HaltReason:   r.haltReason,
		DriverErrors: r.DriverErrors(),
	}
	for i := 0; i < protocol.SensorChannels && i < r.last.Channels; i++ {
		s.Contrast[i] = r.last.Contrast[i]
	}
	return s
}

// record stamps a controller event with the cursor and clock
func (r *Robot) record(evt uint8, v1, v2 int32) {
	var cursor uint16
	if r.runner != nil {
		cursor = uint16(r.runner.Cursor())
	}
	r.events.Record(evt, cursor, core.GetTime(), v1, v2)
}
