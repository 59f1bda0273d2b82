// Package linesensor classifies the reflectance array once per control tick
// and turns the intersection channels into a debounced, edge-triggered
// intersection signal.
package linesensor

import (
	"linebot/control"
	"linebot/core"
)

// MaxChannels bounds the array size carried in a Snapshot
const MaxChannels = 8

// Sampler returns the contrast count of one channel
type Sampler interface {
	Sample(ch core.ADCChannelID) (uint16, error)
}

// Snapshot is one tick's view of the array
type Snapshot struct {
	Channels   int
	Contrast   [MaxChannels]uint16
	OnLine     [MaxChannels]bool
	Normalized [MaxChannels]float32

	// Intersection is true only on the tick a junction is accepted
	Intersection bool
	// AtJunction is the debounced state of the intersection channels
	AtJunction bool

	// Sample errors this tick; failed channels read as zero contrast
	Errors int
}

// OnLineMask packs the on-line flags, bit n for channel n
func (s *Snapshot) OnLineMask() uint8 {
	var m uint8
	for i := 0; i < s.Channels && i < 8; i++ {
		if s.OnLine[i] {
			m |= 1 << i
		}
	}
	return m
}

type junctionChannel struct {
	channel int
	stable  bool
	pending int
}

// Reader polls the sampler and holds the debounce state
type Reader struct {
	cfg     control.SensorConfig
	sampler Sampler

	junction []junctionChannel
	armed    bool
	clear    int

	accepted uint32
}

// New creates a reader for the configured channels
func New(cfg control.SensorConfig, sampler Sampler) *Reader {
	r := &Reader{
		cfg:     cfg,
		sampler: sampler,
	}
	for _, ch := range cfg.IntersectionChannels {
		r.junction = append(r.junction, junctionChannel{channel: ch})
	}
	r.Reset()
	return r
}

// Reset forgets debounce history and re-arms the intersection detector
func (r *Reader) Reset() {
	for i := range r.junction {
		r.junction[i].stable = false
		r.junction[i].pending = 0
	}
	r.armed = true
	r.clear = 0
}

// Accepted returns the number of intersections accepted so far
func (r *Reader) Accepted() uint32 {
	return r.accepted
}

// Read samples every channel and updates the intersection detector
func (r *Reader) Read() Snapshot {
	var s Snapshot
	n := r.cfg.Channels
	if n > MaxChannels {
		n = MaxChannels
	}
	s.Channels = n

	for ch := 0; ch < n; ch++ {
		pp, err := r.sampler.Sample(core.ADCChannelID(ch))
		if err != nil {
			s.Errors++
			pp = 0
		}
		s.Contrast[ch] = pp
		s.OnLine[ch] = r.inBand(pp, 0)
		s.Normalized[ch] = r.cfg.Normalize(pp)
	}

	s.AtJunction = r.updateJunction(&s)
	if s.AtJunction {
		r.clear = 0
		if r.armed {
			r.armed = false
			r.accepted++
			s.Intersection = true
		}
	} else if !r.armed {
		r.clear++
		if r.clear >= r.cfg.ClearTicks {
			r.armed = true
			r.clear = 0
		}
	}
	return s
}

// updateJunction debounces each intersection channel and reports whether
// any of them is on
func (r *Reader) updateJunction(s *Snapshot) bool {
	on := false
	for i := range r.junction {
		j := &r.junction[i]
		if j.channel < 0 || j.channel >= s.Channels {
			continue
		}

		// The band widens while the channel is on
		var widen uint16
		if j.stable {
			widen = r.cfg.Hysteresis
		}
		raw := r.inBand(s.Contrast[j.channel], widen)

		if raw != j.stable {
			j.pending++
			if j.pending >= r.cfg.DebounceTicks {
				j.stable = raw
				j.pending = 0
			}
		} else {
			j.pending = 0
		}

		s.OnLine[j.channel] = j.stable
		if j.stable {
			on = true
		}
	}
	return on
}

// inBand reports min-widen < pp < max+widen
func (r *Reader) inBand(pp uint16, widen uint16) bool {
	lo := int32(r.cfg.BandMin) - int32(widen)
	hi := int32(r.cfg.BandMax) + int32(widen)
	v := int32(pp)
	return v > lo && v < hi
}
