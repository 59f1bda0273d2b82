// Package serial opens the robot's USB CDC link from host tools.
package serial

import (
	"io"
)

// Port is an open link to the robot
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3"), or "auto" to pick the
	// robot from the USB port list
	Device string

	// Baud rate; USB CDC ignores it but UART adapters do not
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the settings the firmware's UART fallback expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
