package sim

import (
	"time"

	"linebot/control"
	"linebot/core"
)

// Poller is the firmware side of the loop: it runs every task due at now
type Poller interface {
	Poll(now uint32)
}

// DefaultStep is the physics integration step
const DefaultStep = time.Millisecond

// Sim couples a World to the core clock. Each step advances the body,
// publishes the new time through core.SetTime and polls the firmware.
type Sim struct {
	HW    *Hardware
	World *World

	step    time.Duration
	now     uint32
	elapsed time.Duration
}

// New installs fresh hardware as the core drivers and builds a world for
// cfg over track. Create the robot after New so it binds to these drivers.
func New(cfg *control.Config, track []Segment) *Sim {
	hw := NewHardware()
	hw.Install()
	s := &Sim{
		HW:    hw,
		World: NewWorld(cfg.Drive, DefaultGeometry(cfg), hw, track),
		step:  DefaultStep,
		now:   core.TimerFromMS(1),
	}
	core.SetTime(s.now)
	return s
}

// Now returns the simulated clock in timer ticks
func (s *Sim) Now() uint32 { return s.now }

// Elapsed returns the simulated time since New
func (s *Sim) Elapsed() time.Duration { return s.elapsed }

// Step advances one integration step
func (s *Sim) Step(p Poller) {
	s.World.Step(s.step)
	s.now += core.TimerFromUS(uint32(s.step / time.Microsecond))
	s.elapsed += s.step
	core.SetTime(s.now)
	p.Poll(s.now)
}

// Run steps for at most d and stops early once done reports true. It
// returns whether done was reached.
func (s *Sim) Run(p Poller, d time.Duration, done func() bool) bool {
	for end := s.elapsed + d; s.elapsed < end; {
		s.Step(p)
		if done != nil && done() {
			return true
		}
	}
	return false
}
