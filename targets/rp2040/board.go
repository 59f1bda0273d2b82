//go:build rp2040

package main

import "machine"

// Wiring of the robot's controller board. Motor PWM and driver disable
// pins come from the drive configuration.
const (
	// Analog multiplexer for the reflectance array: three select lines and
	// a common output on ADC0
	muxSelect0 = machine.GPIO6
	muxSelect1 = machine.GPIO7
	muxSelect2 = machine.GPIO8
	muxOutput  = machine.ADC0

	// Quadrature encoders, channel B on the next pin
	leftEncoderA  = machine.GPIO10
	rightEncoderA = machine.GPIO12

	// Forward range sensor on I2C0
	rangeSDA = machine.GPIO4
	rangeSCL = machine.GPIO5

	statusLED = machine.LED
)
