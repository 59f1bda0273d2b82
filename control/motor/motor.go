// Package motor maps signed wheel percentages onto two locked anti-phase
// H-bridge channels and their active-high disable lines.
package motor

import (
	"fmt"

	"linebot/control"
	"linebot/core"
)

// Wheels drives the left and right motors
type Wheels struct {
	cfg control.DriveConfig
	pwm core.PWMDriver
	max uint32

	leftPin, rightPin core.PWMPin

	// On means the driver is disabled
	leftDisable, rightDisable *core.DigitalOut

	left, right int
}

// New configures both PWM channels at 50% (stopped) and both drivers
// disabled
func New(cfg control.DriveConfig, pwm core.PWMDriver, gpio core.GPIODriver) (*Wheels, error) {
	w := &Wheels{
		cfg:      cfg,
		pwm:      pwm,
		leftPin:  core.PWMPin(cfg.LeftPWMPin),
		rightPin: core.PWMPin(cfg.RightPWMPin),
	}
	if w.cfg.LeftSign == 0 {
		w.cfg.LeftSign = 1
	}
	if w.cfg.RightSign == 0 {
		w.cfg.RightSign = 1
	}

	for _, pin := range []core.PWMPin{w.leftPin, w.rightPin} {
		if err := pwm.ConfigureHardwarePWM(pin, cfg.PWMPeriodNs); err != nil {
			return nil, fmt.Errorf("configure pwm pin %d: %w", pin, err)
		}
	}
	w.max = pwm.GetMaxValue()

	var err error
	w.leftDisable, err = core.NewDigitalOut(gpio, core.GPIOPin(cfg.LeftDisablePin), true, false)
	if err != nil {
		return nil, fmt.Errorf("configure left disable pin: %w", err)
	}
	w.rightDisable, err = core.NewDigitalOut(gpio, core.GPIOPin(cfg.RightDisablePin), true, false)
	if err != nil {
		return nil, fmt.Errorf("configure right disable pin: %w", err)
	}

	if err := w.Set(0, 0); err != nil {
		return nil, err
	}
	return w, nil
}

// Set commands each wheel directly, clamped to [-100, 100]
func (w *Wheels) Set(left, right int) error {
	left = core.ClampPercent(left)
	right = core.ClampPercent(right)

	errL := w.pwm.SetDutyCycle(w.leftPin, core.DutyToCompare(w.cfg.LeftSign*left, w.max))
	errR := w.pwm.SetDutyCycle(w.rightPin, core.DutyToCompare(w.cfg.RightSign*right, w.max))
	w.left, w.right = left, right

	if errL != nil {
		return errL
	}
	return errR
}

// Steer drives around a center duty: steer is added to the right wheel and
// subtracted from the left. The right wheel is trimmed, and while cruising
// forward neither wheel drops below the minimum forward duty.
func (w *Wheels) Steer(center, steer int) error {
	right := core.ClampPercent(center + steer)
	left := core.ClampPercent(center - steer)

	right = core.ClampPercent(right * (100 - w.cfg.RightTrimPercent) / 100)

	if center > 0 {
		floor := w.cfg.MinForwardDuty
		if right > 0 && right < floor {
			right = floor
		}
		if left > 0 && left < floor {
			left = floor
		}
	}
	return w.Set(left, right)
}

// Stop holds both wheels at zero duty
func (w *Wheels) Stop() error {
	return w.Set(0, 0)
}

// SetDisabled gates each driver; true cuts power to that motor
func (w *Wheels) SetDisabled(left, right bool) error {
	if err := w.leftDisable.Set(left); err != nil {
		return err
	}
	return w.rightDisable.Set(right)
}

// Duty returns the last commanded percentages, before sign mapping
func (w *Wheels) Duty() (left, right int) {
	return w.left, w.right
}

// Disabled reports the driver gate state
func (w *Wheels) Disabled() (left, right bool) {
	return w.leftDisable.On(), w.rightDisable.On()
}

// Shutdown stops both wheels and disables both drivers
func (w *Wheels) Shutdown() error {
	err := w.Stop()
	if e := w.leftDisable.Shutdown(); err == nil {
		err = e
	}
	if e := w.rightDisable.Shutdown(); err == nil {
		err = e
	}
	return err
}
