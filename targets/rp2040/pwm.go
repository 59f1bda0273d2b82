//go:build rp2040

package main

import (
	"errors"
	"machine"

	"linebot/core"
)

// defaultPWMMax is the compare range of a 20 kHz slice at 125 MHz, used
// until the first pin is configured
const defaultPWMMax = 6250

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDriver implements core.PWMDriver over the eight PWM slices.
// Every slice in use must run the same period so one compare range
// serves all pins.
type RP2040PWMDriver struct {
	// slice number -> configured period in nanoseconds
	slices map[uint8]uint64

	// pin number -> channel within its slice
	channels map[uint32]uint8

	peripherals map[uint8]pwmPeripheral
	max         uint32
}

var errPeriodMismatch = errors.New("pwm: slice already running a different period")

// NewRP2040PWMDriver creates a new RP2040 PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		slices:      make(map[uint8]uint64),
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
		max:         defaultPWMMax,
	}
}

// GetMaxValue returns the compare value that holds the output high
func (d *RP2040PWMDriver) GetMaxValue() uint32 {
	return d.max
}

// ConfigureHardwarePWM routes pin to its slice and starts it at periodNs.
// GPIO N belongs to slice (N>>1)&7, channel A when N is even.
func (d *RP2040PWMDriver) ConfigureHardwarePWM(pin core.PWMPin, periodNs uint64) error {
	pinNum := uint32(pin)
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = getPWMPeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	if existing, ok := d.slices[sliceNum]; ok && existing != periodNs {
		return errPeriodMismatch
	}
	if err := pwm.Configure(machine.PWMConfig{Period: periodNs}); err != nil {
		return err
	}
	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return err
	}

	d.slices[sliceNum] = periodNs
	d.channels[pinNum] = channel
	// A compare of Top+1 never lets the counter catch up: 100% duty
	d.max = pwm.Top() + 1
	pwm.Set(channel, d.max/2)
	return nil
}

// SetDutyCycle writes a raw compare value, 0 to GetMaxValue()
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	pinNum := uint32(pin)
	channel, exists := d.channels[pinNum]
	if !exists {
		return errors.New("pwm: pin not configured")
	}
	if uint32(value) > d.max {
		value = core.PWMValue(d.max)
	}
	d.peripherals[uint8((pinNum>>1)&0x7)].Set(channel, uint32(value))
	return nil
}

// DisablePWM drives the output low. TinyGo cannot hand the pin back to
// the GPIO function, so it stays in PWM mode at zero duty.
func (d *RP2040PWMDriver) DisablePWM(pin core.PWMPin) error {
	pinNum := uint32(pin)
	channel, exists := d.channels[pinNum]
	if !exists {
		return nil
	}
	d.peripherals[uint8((pinNum>>1)&0x7)].Set(channel, 0)
	delete(d.channels, pinNum)
	return nil
}

// getPWMPeripheral returns the TinyGo PWM group for a slice
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
