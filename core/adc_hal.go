package core

// ADCChannelID identifies a logical reflectance channel (0..N-1).
// Targets decide how a channel maps onto pins or an external multiplexer.
type ADCChannelID uint8

// ADCValue is a raw 12-bit conversion result.
type ADCValue uint16

// ADCMax is the largest value a 12-bit converter returns.
const ADCMax = 4095

// ADCConfig is the high-level config the core cares about.
type ADCConfig struct {
	// Reference voltage in millivolts, 0 for the target default.
	Reference uint32
}

// ADCDriver is the abstract ADC interface that core code uses.
type ADCDriver interface {
	// Init powers up and configures the ADC peripheral.
	Init(cfg ADCConfig) error

	// ConfigureChannel prepares a channel for analog input.
	ConfigureChannel(ch ADCChannelID) error

	// ReadRaw performs a one-shot conversion on the given channel.
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}

// Global singleton used by core code.
var adcDriver ADCDriver

// SetADCDriver is called by target-specific code to register its driver.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// MustADC returns the configured driver or panics if missing.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("ADC driver not configured")
	}
	return adcDriver
}
