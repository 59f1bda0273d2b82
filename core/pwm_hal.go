package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is a compare value in [0, GetMaxValue()]
type PWMValue uint32

// PWMDriver is the abstract PWM interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type PWMDriver interface {
	// ConfigureHardwarePWM configures a pin for hardware PWM output
	// periodNs: PWM period in nanoseconds
	ConfigureHardwarePWM(pin PWMPin, periodNs uint64) error

	// SetDutyCycle sets the compare value for a pin
	// value: 0 (fully low) to GetMaxValue() (fully high)
	SetDutyCycle(pin PWMPin, value PWMValue) error

	// GetMaxValue returns the compare value that means 100% high
	GetMaxValue() uint32

	// DisablePWM drives the pin low and stops using it
	DisablePWM(pin PWMPin) error
}

// Global singleton used by core code.
var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
