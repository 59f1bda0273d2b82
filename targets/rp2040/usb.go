//go:build rp2040

package main

import (
	"machine"
)

// InitUSB starts the USB CDC-ACM port. On RP2040 machine.Serial is USB,
// and the descriptors come from the TinyGo runtime.
func InitUSB() error {
	return machine.Serial.Configure(machine.UARTConfig{})
}

// USBAvailable returns the number of bytes waiting to be read
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data, returning how much was accepted
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
