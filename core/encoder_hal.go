package core

// EncoderAxis selects one of the two drive wheel encoders.
type EncoderAxis uint8

const (
	EncoderLeft  EncoderAxis = 0
	EncoderRight EncoderAxis = 1
)

// EncoderDriver is the abstract quadrature counter interface.
// Counts are signed, positive for forward wheel rotation.
type EncoderDriver interface {
	// ReadCount returns the net count accumulated since the last reset.
	ReadCount(axis EncoderAxis) int32

	// ResetCount zeroes the counter for one axis.
	ResetCount(axis EncoderAxis)
}

// Global singleton used by core code.
var encoderDriver EncoderDriver

// SetEncoderDriver is called by target-specific code to register its driver.
func SetEncoderDriver(d EncoderDriver) {
	encoderDriver = d
}

// MustEncoder returns the configured driver or panics if missing.
func MustEncoder() EncoderDriver {
	if encoderDriver == nil {
		panic("encoder driver not configured")
	}
	return encoderDriver
}

// TakeDelta reads an axis and zeroes it, returning the counts seen since the
// previous call.
func TakeDelta(d EncoderDriver, axis EncoderAxis) int32 {
	state := disableInterrupts()
	n := d.ReadCount(axis)
	d.ResetCount(axis)
	restoreInterrupts(state)
	return n
}
