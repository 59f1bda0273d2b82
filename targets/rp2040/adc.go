//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"

	"linebot/core"
)

// muxChannels is the width of the 4051-style analog multiplexer
const muxChannels = 8

// muxSettle covers the multiplexer's switching time plus the ADC input
// capacitor charging through it
const muxSettle = 5 * time.Microsecond

var errMuxChannel = errors.New("adc: channel beyond multiplexer")

// MuxADCDriver implements core.ADCDriver over one ADC input behind an
// analog multiplexer. Each channel ID is a multiplexer input.
type MuxADCDriver struct {
	adc        machine.ADC
	sel        [3]machine.Pin
	current    int
	configured [muxChannels]bool
}

// NewMuxADCDriver constructs the driver but does not Init() it yet
func NewMuxADCDriver(output machine.Pin, sel0, sel1, sel2 machine.Pin) *MuxADCDriver {
	return &MuxADCDriver{
		adc:     machine.ADC{Pin: output},
		sel:     [3]machine.Pin{sel0, sel1, sel2},
		current: -1,
	}
}

func (d *MuxADCDriver) Init(cfg core.ADCConfig) error {
	machine.InitADC()
	if err := d.adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	for _, p := range d.sel {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}
	d.current = 0
	return nil
}

// ConfigureChannel marks a multiplexer input as in use
func (d *MuxADCDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= muxChannels {
		return errMuxChannel
	}
	d.configured[ch] = true
	return nil
}

// ReadRaw selects the channel if needed and returns a 12-bit conversion.
// Consecutive reads of one channel do not switch the multiplexer.
func (d *MuxADCDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if int(ch) >= muxChannels || !d.configured[ch] {
		return 0, errMuxChannel
	}
	if int(ch) != d.current {
		for bit, p := range d.sel {
			p.Set(ch&(1<<bit) != 0)
		}
		d.current = int(ch)
		time.Sleep(muxSettle)
	}
	// TinyGo scales conversions to 16 bits
	return core.ADCValue(d.adc.Get() >> 4), nil
}
