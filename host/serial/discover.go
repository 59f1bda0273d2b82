package serial

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// AutoDevice asks Open to find the robot itself
const AutoDevice = "auto"

// RaspberryPiVID is the USB vendor ID the RP2040 enumerates with
const RaspberryPiVID = "2E8A"

// ErrNoRobot is returned when no candidate port is attached
var ErrNoRobot = errors.New("no robot serial port found")

// PortInfo describes one attached serial port
type PortInfo struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// Robot reports whether the port looks like the robot's USB CDC link
func (p PortInfo) Robot() bool {
	return p.USB && strings.EqualFold(p.VID, RaspberryPiVID)
}

// ListPorts returns every serial port the OS reports
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	return ports, nil
}

// AutoDetect returns the robot's port: the first RP2040 USB device, or
// the only USB serial device when exactly one is attached
func AutoDetect() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	return pick(ports)
}

func pick(ports []PortInfo) (string, error) {
	var usb []PortInfo
	for _, p := range ports {
		if p.Robot() {
			return p.Name, nil
		}
		if p.USB {
			usb = append(usb, p)
		}
	}
	if len(usb) == 1 {
		return usb[0].Name, nil
	}
	if len(usb) > 1 {
		return "", fmt.Errorf("%w: %d USB serial ports, pass -device", ErrNoRobot, len(usb))
	}
	return "", ErrNoRobot
}
