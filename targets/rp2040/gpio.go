//go:build rp2040

package main

import (
	"machine"

	"linebot/core"
)

// RPGPIODriver implements core.GPIODriver. GPIO numbers map directly to
// machine pins.
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = p
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	d.configuredPins[pin] = p
	return nil
}

// SetPin drives a pin, configuring it as an output on first use
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		p = d.configuredPins[pin]
	}
	p.Set(value)
	return nil
}

// GetPin reads a pin; unconfigured pins read low
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	p, exists := d.configuredPins[pin]
	if !exists {
		return false, nil
	}
	return p.Get(), nil
}
