//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/vl53l1x"
)

const (
	rangeI2CFrequency = 400 * machine.KHz
	vl53l1xDefault    = 0x29

	// 20 ms timing budget, measuring back to back in continuous mode
	rangeBudgetUs = 20000
	rangePeriodMs = 25

	// Readings at or past this are out of range
	rangeCeilingMM = 4000
)

var errRangeNotFound = errors.New("vl53l1x: sensor not responding")

// RangeSensor adapts a VL53L1X to robot.RangeSensor. Reads never block;
// while no new measurement is ready it reports 0, which the robot ignores.
type RangeSensor struct {
	dev vl53l1x.Device
}

// NewRangeSensor configures I2C0 and starts continuous ranging
func NewRangeSensor(address uint16) (*RangeSensor, error) {
	bus := machine.I2C0
	err := bus.Configure(machine.I2CConfig{
		Frequency: rangeI2CFrequency,
		SDA:       rangeSDA,
		SCL:       rangeSCL,
	})
	if err != nil {
		return nil, err
	}

	s := &RangeSensor{dev: vl53l1x.New(bus)}
	if address != 0 && address != vl53l1xDefault {
		s.dev.SetAddress(uint8(address))
	}
	if !s.dev.Configure(true) {
		return nil, errRangeNotFound
	}
	s.dev.SetMeasurementTimingBudget(rangeBudgetUs)
	s.dev.StartContinuous(rangePeriodMs)
	return s, nil
}

// RangeMM returns the newest distance, 0 when nothing new is ready
func (s *RangeSensor) RangeMM() (uint16, error) {
	mm := s.dev.Read(false)
	if mm >= rangeCeilingMM {
		mm = rangeCeilingMM
	}
	return mm, nil
}
