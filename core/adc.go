// Reflectance sampling
// Each line sensor is an IR emitter/phototransistor pair whose output rides on
// ambient noise; the useful signal is how far the reading swings over a burst
// of conversions, not its absolute level.
package core

// DefaultContrastSamples is the burst length used when none is configured.
const DefaultContrastSamples = 256

// ContrastSampler reduces a burst of ADC conversions on one channel to a
// peak-to-peak count.
type ContrastSampler struct {
	adc     ADCDriver
	samples int
}

// NewContrastSampler creates a sampler reading samples conversions per call.
func NewContrastSampler(adc ADCDriver, samples int) *ContrastSampler {
	if samples <= 0 {
		samples = DefaultContrastSamples
	}
	return &ContrastSampler{adc: adc, samples: samples}
}

// Samples returns the burst length.
func (s *ContrastSampler) Samples() int {
	return s.samples
}

// Configure prepares every channel in [0, channels).
func (s *ContrastSampler) Configure(channels int) error {
	for ch := 0; ch < channels; ch++ {
		if err := s.adc.ConfigureChannel(ADCChannelID(ch)); err != nil {
			return err
		}
	}
	return nil
}

// Sample returns max-min over the burst for one channel.
// A conversion error aborts the burst and reports zero contrast.
func (s *ContrastSampler) Sample(ch ADCChannelID) (uint16, error) {
	lo := ADCValue(ADCMax)
	hi := ADCValue(0)
	for i := 0; i < s.samples; i++ {
		v, err := s.adc.ReadRaw(ch)
		if err != nil {
			return 0, err
		}
		if v > ADCMax {
			v = ADCMax
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi < lo {
		return 0, nil
	}
	return uint16(hi - lo), nil
}
