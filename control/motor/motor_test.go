package motor

import (
	"errors"
	"testing"

	"linebot/control"
	"linebot/core"
)

type mockPWM struct {
	period  map[core.PWMPin]uint64
	compare map[core.PWMPin]core.PWMValue
	fail    bool
}

func newMockPWM() *mockPWM {
	return &mockPWM{
		period:  make(map[core.PWMPin]uint64),
		compare: make(map[core.PWMPin]core.PWMValue),
	}
}

func (m *mockPWM) ConfigureHardwarePWM(pin core.PWMPin, periodNs uint64) error {
	m.period[pin] = periodNs
	return nil
}

func (m *mockPWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	if m.fail {
		return errors.New("pwm fault")
	}
	m.compare[pin] = value
	return nil
}

func (m *mockPWM) GetMaxValue() uint32              { return 1000 }
func (m *mockPWM) DisablePWM(pin core.PWMPin) error { return nil }

type mockGPIO struct {
	level map[core.GPIOPin]bool
}

func (m *mockGPIO) ConfigureOutput(pin core.GPIOPin) error      { return nil }
func (m *mockGPIO) ConfigureInputPullUp(pin core.GPIOPin) error { return nil }
func (m *mockGPIO) SetPin(pin core.GPIOPin, value bool) error {
	m.level[pin] = value
	return nil
}
func (m *mockGPIO) GetPin(pin core.GPIOPin) (bool, error) { return m.level[pin], nil }

func driveConfig() control.DriveConfig {
	return control.DriveConfig{
		CenterDuty:       25,
		RightTrimPercent: 5,
		MinForwardDuty:   15,
		LeftSign:         1,
		RightSign:        -1,
		PWMPeriodNs:      50000,
		LeftPWMPin:       16,
		RightPWMPin:      18,
		LeftDisablePin:   20,
		RightDisablePin:  21,
	}
}

func newWheels(t *testing.T) (*Wheels, *mockPWM, *mockGPIO) {
	t.Helper()
	pwm := newMockPWM()
	gpio := &mockGPIO{level: make(map[core.GPIOPin]bool)}
	w, err := New(driveConfig(), pwm, gpio)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w, pwm, gpio
}

func TestNewStartsSafe(t *testing.T) {
	w, pwm, gpio := newWheels(t)

	if pwm.period[16] != 50000 || pwm.period[18] != 50000 {
		t.Errorf("Periods = %v", pwm.period)
	}
	if pwm.compare[16] != 500 || pwm.compare[18] != 500 {
		t.Errorf("Initial compare = %v, want 500 (stopped)", pwm.compare)
	}
	// Disable lines are active high
	if !gpio.level[20] || !gpio.level[21] {
		t.Error("Drivers not disabled at start")
	}
	if l, r := w.Disabled(); !l || !r {
		t.Error("Disabled() disagrees with pins")
	}
}

func TestSteerMapping(t *testing.T) {
	tests := []struct {
		name                string
		center, steer       int
		wantLeft, wantRight int
		cmpLeft, cmpRight   core.PWMValue
	}{
		// right 30 trimmed to 28
		{"mild right steer", 25, 5, 20, 28, 600, 360},
		// right 14 trimmed to 13, raised to the floor
		{"floor applied", 25, -11, 36, 15, 680, 425},
		// pivot: no floor with zero center
		{"left pivot", 0, 24, -24, 22, 380, 390},
		{"u-turn", 0, -42, 42, -39, 710, 695},
		{"clamped", 90, 30, 60, 95, 800, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, pwm, _ := newWheels(t)
			if err := w.Steer(tt.center, tt.steer); err != nil {
				t.Fatalf("Steer failed: %v", err)
			}
			l, r := w.Duty()
			if l != tt.wantLeft || r != tt.wantRight {
				t.Errorf("Duty = (%d, %d), want (%d, %d)", l, r, tt.wantLeft, tt.wantRight)
			}
			if pwm.compare[16] != tt.cmpLeft || pwm.compare[18] != tt.cmpRight {
				t.Errorf("Compare = (%d, %d), want (%d, %d)",
					pwm.compare[16], pwm.compare[18], tt.cmpLeft, tt.cmpRight)
			}
		})
	}
}

func TestStopAndDisable(t *testing.T) {
	w, pwm, gpio := newWheels(t)

	if err := w.SetDisabled(false, false); err != nil {
		t.Fatal(err)
	}
	if gpio.level[20] || gpio.level[21] {
		t.Error("Drivers still disabled")
	}
	w.Steer(25, 0)
	w.Stop()
	if pwm.compare[16] != 500 || pwm.compare[18] != 500 {
		t.Errorf("Stop compare = %v", pwm.compare)
	}

	w.SetDisabled(true, false)
	if l, r := w.Disabled(); !l || r {
		t.Errorf("Disabled = (%v, %v)", l, r)
	}

	w.Steer(25, 0)
	if err := w.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if l, r := w.Duty(); l != 0 || r != 0 {
		t.Error("Shutdown left wheels driving")
	}
	if !gpio.level[20] || !gpio.level[21] {
		t.Error("Shutdown left drivers enabled")
	}
}

func TestSetReportsErrors(t *testing.T) {
	w, pwm, _ := newWheels(t)
	pwm.fail = true
	if err := w.Set(10, 10); err == nil {
		t.Error("Expected PWM error")
	}
}
