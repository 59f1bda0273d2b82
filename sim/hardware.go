// Package sim stands in for the robot's peripherals on a desktop build.
//
// Hardware registers fake ADC, PWM, GPIO and encoder drivers with core so
// the firmware packages run unchanged. World moves a differential-drive
// body along a taped track from the compare values the firmware writes and
// feeds the resulting reflectance contrast and encoder counts back.
package sim

import (
	"errors"
	"fmt"
	"math"

	"linebot/core"
)

// Channels is the number of simulated ADC channels
const Channels = 8

// adcBase is the dark level the simulated photodiodes sit at
const adcBase = 1800

var errReadFailed = errors.New("sim adc: conversion failed")

// ADC alternates each channel between a base level and base+contrast, so a
// peak-to-peak sampler of two or more reads recovers the contrast exactly.
type ADC struct {
	contrast   [Channels]uint16
	high       [Channels]bool
	configured [Channels]bool

	// FailReads makes every conversion return an error
	FailReads bool
}

func (a *ADC) Init(cfg core.ADCConfig) error { return nil }

func (a *ADC) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= Channels {
		return fmt.Errorf("sim adc: channel %d out of range", ch)
	}
	a.configured[ch] = true
	return nil
}

func (a *ADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if a.FailReads {
		return 0, errReadFailed
	}
	if int(ch) >= Channels || !a.configured[ch] {
		return 0, fmt.Errorf("sim adc: channel %d not configured", ch)
	}
	a.high[ch] = !a.high[ch]
	if a.high[ch] {
		return core.ADCValue(adcBase + uint32(a.contrast[ch])), nil
	}
	return adcBase, nil
}

// SetContrast sets the peak-to-peak swing a channel reports
func (a *ADC) SetContrast(ch int, pp uint16) {
	if ch < 0 || ch >= Channels {
		return
	}
	if pp > core.ADCMax-adcBase {
		pp = core.ADCMax - adcBase
	}
	a.contrast[ch] = pp
}

// Contrast returns the swing last set on a channel
func (a *ADC) Contrast(ch int) uint16 {
	if ch < 0 || ch >= Channels {
		return 0
	}
	return a.contrast[ch]
}

// PWM records the compare value of every configured pin
type PWM struct {
	max     uint32
	compare map[core.PWMPin]core.PWMValue
	period  map[core.PWMPin]uint64

	// Fail makes SetDutyCycle return an error
	Fail bool
}

// NewPWM creates a PWM driver whose full-scale compare value is max
func NewPWM(max uint32) *PWM {
	return &PWM{
		max:     max,
		compare: make(map[core.PWMPin]core.PWMValue),
		period:  make(map[core.PWMPin]uint64),
	}
}

func (p *PWM) ConfigureHardwarePWM(pin core.PWMPin, periodNs uint64) error {
	if periodNs == 0 {
		return fmt.Errorf("sim pwm: pin %d: zero period", pin)
	}
	p.period[pin] = periodNs
	p.compare[pin] = core.PWMValue(p.max / 2)
	return nil
}

func (p *PWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	if p.Fail {
		return fmt.Errorf("sim pwm: pin %d: write failed", pin)
	}
	if _, ok := p.period[pin]; !ok {
		return fmt.Errorf("sim pwm: pin %d not configured", pin)
	}
	if uint32(value) > p.max {
		return fmt.Errorf("sim pwm: pin %d: compare %d above %d", pin, value, p.max)
	}
	p.compare[pin] = value
	return nil
}

func (p *PWM) GetMaxValue() uint32 { return p.max }

func (p *PWM) DisablePWM(pin core.PWMPin) error {
	delete(p.period, pin)
	delete(p.compare, pin)
	return nil
}

// Compare returns the raw compare value of a pin
func (p *PWM) Compare(pin core.PWMPin) core.PWMValue {
	return p.compare[pin]
}

// Duty decodes a pin's compare value back into a signed percentage.
// Unconfigured pins read as stopped.
func (p *PWM) Duty(pin core.PWMPin) int {
	v, ok := p.compare[pin]
	if !ok {
		return 0
	}
	return core.CompareToDuty(v, p.max)
}

// GPIO keeps the level of every pin
type GPIO struct {
	level  map[core.GPIOPin]bool
	output map[core.GPIOPin]bool
}

// NewGPIO creates a GPIO driver with every pin low
func NewGPIO() *GPIO {
	return &GPIO{
		level:  make(map[core.GPIOPin]bool),
		output: make(map[core.GPIOPin]bool),
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.output[pin] = true
	return nil
}

func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	g.output[pin] = false
	g.level[pin] = true
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if !g.output[pin] {
		return fmt.Errorf("sim gpio: pin %d is not an output", pin)
	}
	g.level[pin] = value
	return nil
}

func (g *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	return g.level[pin], nil
}

// Level returns the pin level without error handling
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.level[pin]
}

// Encoders accumulates fractional wheel travel into whole quadrature counts
type Encoders struct {
	count [2]int32
	frac  [2]float64
}

func (e *Encoders) ReadCount(axis core.EncoderAxis) int32 {
	return e.count[axis]
}

func (e *Encoders) ResetCount(axis core.EncoderAxis) {
	e.count[axis] = 0
}

// Advance adds signed travel in counts; the fraction carries over
func (e *Encoders) Advance(axis core.EncoderAxis, counts float64) {
	e.frac[axis] += counts
	whole := math.Trunc(e.frac[axis])
	e.count[axis] += int32(whole)
	e.frac[axis] -= whole
}

// Range is a forward distance sensor with a settable reading
type Range struct {
	mm  uint16
	err error
}

// Set changes the reported distance; zero reports no target
func (r *Range) Set(mm uint16) { r.mm = mm }

// SetError makes every reading fail with err until cleared with nil
func (r *Range) SetError(err error) { r.err = err }

func (r *Range) RangeMM() (uint16, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.mm, nil
}

// Hardware bundles one set of simulated peripherals
type Hardware struct {
	ADC      *ADC
	PWM      *PWM
	GPIO     *GPIO
	Encoders *Encoders
	Range    *Range
}

// DefaultPWMMax matches the compare resolution of a 20 kHz RP2040 slice
const DefaultPWMMax = 6250

// NewHardware creates a fresh peripheral set
func NewHardware() *Hardware {
	return &Hardware{
		ADC:      &ADC{},
		PWM:      NewPWM(DefaultPWMMax),
		GPIO:     NewGPIO(),
		Encoders: &Encoders{},
		Range:    &Range{},
	}
}

// Install registers the peripherals as the core drivers
func (h *Hardware) Install() {
	core.SetADCDriver(h.ADC)
	core.SetPWMDriver(h.PWM)
	core.SetGPIODriver(h.GPIO)
	core.SetEncoderDriver(h.Encoders)
}
