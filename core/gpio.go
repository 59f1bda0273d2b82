// Digital outputs with a known safe level
package core

// DigitalOut flags
const (
	DF_ON         = 1 << 0 // Current logical state
	DF_DEFAULT_ON = 1 << 1 // Logical state applied on shutdown
	DF_INVERT     = 1 << 2 // Pin is active-low
)

// DigitalOut is a configured GPIO output. Logical "on" is translated to a
// pin level through DF_INVERT.
type DigitalOut struct {
	Pin   GPIOPin
	Flags uint8

	drv GPIODriver
}

// NewDigitalOut configures pin as an output and drives it to defaultOn.
func NewDigitalOut(drv GPIODriver, pin GPIOPin, defaultOn, invert bool) (*DigitalOut, error) {
	d := &DigitalOut{Pin: pin, drv: drv}
	if defaultOn {
		d.Flags |= DF_DEFAULT_ON
	}
	if invert {
		d.Flags |= DF_INVERT
	}
	if err := drv.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := d.Set(defaultOn); err != nil {
		return nil, err
	}
	return d, nil
}

// Set changes the logical state. The pin is only written on a change.
func (d *DigitalOut) Set(on bool) error {
	if on == d.On() && d.Flags&dfWritten != 0 {
		return nil
	}
	level := on
	if d.Flags&DF_INVERT != 0 {
		level = !level
	}
	if err := d.drv.SetPin(d.Pin, level); err != nil {
		return err
	}
	d.Flags |= dfWritten
	if on {
		d.Flags |= DF_ON
	} else {
		d.Flags &^= DF_ON
	}
	return nil
}

// On reports the last logical state written.
func (d *DigitalOut) On() bool {
	return d.Flags&DF_ON != 0
}

// Shutdown returns the output to its default state.
func (d *DigitalOut) Shutdown() error {
	return d.Set(d.Flags&DF_DEFAULT_ON != 0)
}

// dfWritten marks that the pin has been driven at least once.
const dfWritten = 1 << 7
