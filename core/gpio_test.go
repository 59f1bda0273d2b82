package core

import "testing"

// MockGPIODriver is a test implementation of GPIODriver
type MockGPIODriver struct {
	pins   map[GPIOPin]bool
	writes int
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins: make(map[GPIOPin]bool),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullUp(pin GPIOPin) error {
	m.pins[pin] = true
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	m.pins[pin] = value
	m.writes++
	return nil
}

func (m *MockGPIODriver) GetPin(pin GPIOPin) (bool, error) {
	return m.pins[pin], nil
}

func TestDigitalOutDefaultAndShutdown(t *testing.T) {
	mockDriver := NewMockGPIODriver()
	SetGPIODriver(mockDriver)

	// Motor driver disable line: high means disabled, default disabled
	dout, err := NewDigitalOut(MustGPIO(), 12, true, false)
	if err != nil {
		t.Fatalf("NewDigitalOut failed: %v", err)
	}
	if !mockDriver.pins[12] || !dout.On() {
		t.Fatal("Expected pin to start at its default (high)")
	}

	if err := dout.Set(false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if mockDriver.pins[12] {
		t.Error("Expected pin low after Set(false)")
	}

	writes := mockDriver.writes
	_ = dout.Set(false)
	if mockDriver.writes != writes {
		t.Error("Unchanged state should not write the pin again")
	}

	if err := dout.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !mockDriver.pins[12] {
		t.Error("Expected pin back at default after Shutdown")
	}
}

func TestDigitalOutInvert(t *testing.T) {
	mockDriver := NewMockGPIODriver()

	dout, err := NewDigitalOut(mockDriver, 3, false, true)
	if err != nil {
		t.Fatalf("NewDigitalOut failed: %v", err)
	}
	if !mockDriver.pins[3] {
		t.Error("Active-low output in logical off state should drive the pin high")
	}
	_ = dout.Set(true)
	if mockDriver.pins[3] {
		t.Error("Active-low output in logical on state should drive the pin low")
	}
}
