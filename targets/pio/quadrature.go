//go:build rp2040

// Package pio counts wheel encoder edges with the RP2040's PIO blocks.
package pio

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"linebot/core"
)

// Edge sampler, one state machine per wheel. IN base is channel A and
// channel B is the next pin. On every rising edge of A the two pin levels
// are pushed; B tells the direction of rotation.
//
//	.wrap_target
//	    wait 0 pin 0
//	    wait 1 pin 0
//	    in   pins, 2
//	    push noblock
//	.wrap
var quadratureProgram = []uint16{
	0x2020, // 0: wait 0 pin 0
	0x20a0, // 1: wait 1 pin 0
	0x4002, // 2: in pins, 2
	0x8000, // 3: push noblock
}

const anyOrigin = -1

var errNoStateMachine = errors.New("pio: no free state machine")

// Quadrature counts the edges of one encoder
type Quadrature struct {
	sm     rp2pio.StateMachine
	pinA   machine.Pin
	invert bool
	count  int32
}

// loaded holds the program offset on each block it has been added to
var loaded = map[*rp2pio.PIO]uint8{}

// claim takes the first free state machine on block
func claim(block *rp2pio.PIO) (rp2pio.StateMachine, bool) {
	for i := uint8(0); i < 4; i++ {
		sm := block.StateMachine(i)
		if sm.TryClaim() {
			return sm, true
		}
	}
	return rp2pio.StateMachine{}, false
}

// NewQuadrature claims a state machine on block and starts sampling the
// encoder on pinA and pinA+1. invert flips the counting direction for a
// wheel mounted mirrored.
func NewQuadrature(block *rp2pio.PIO, pinA machine.Pin, invert bool) (*Quadrature, error) {
	sm, ok := claim(block)
	if !ok {
		return nil, errNoStateMachine
	}

	offset, ok := loaded[block]
	if !ok {
		var err error
		offset, err = block.AddProgram(quadratureProgram, anyOrigin)
		if err != nil {
			return nil, err
		}
		loaded[block] = offset
	}

	pinB := pinA + 1
	pinA.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	pinB.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(pinA)
	// Shift left so the pins land in the low bits: bit 0 is A, bit 1 is B
	cfg.SetInShift(false, false, 32)
	cfg.SetWrap(offset+uint8(len(quadratureProgram))-1, offset)
	// Sample at 12.5 MHz; plenty for a few kHz of edges and filters glitches
	cfg.SetClkDivIntFrac(10, 0)

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(pinA, 2, false)
	sm.SetEnabled(true)

	return &Quadrature{sm: sm, pinA: pinA, invert: invert}, nil
}

// drain folds every pending edge into the count
func (q *Quadrature) drain() {
	for !q.sm.IsRxFIFOEmpty() {
		levels := q.sm.RxGet()
		forward := levels&0b10 == 0
		if forward != q.invert {
			q.count++
		} else {
			q.count--
		}
	}
}

// Count returns the net edges since the last Reset
func (q *Quadrature) Count() int32 {
	q.drain()
	return q.count
}

// Reset zeroes the count. Edges already sampled are discarded with it.
func (q *Quadrature) Reset() {
	q.drain()
	q.count = 0
}

// Encoders implements core.EncoderDriver over a left and right Quadrature
type Encoders struct {
	axes [2]*Quadrature
}

// NewEncoders samples the left encoder on leftA/leftA+1 and the right on
// rightA/rightA+1, both on PIO0
func NewEncoders(leftA, rightA machine.Pin, invertLeft, invertRight bool) (*Encoders, error) {
	left, err := NewQuadrature(rp2pio.PIO0, leftA, invertLeft)
	if err != nil {
		return nil, err
	}
	right, err := NewQuadrature(rp2pio.PIO0, rightA, invertRight)
	if err != nil {
		return nil, err
	}
	return &Encoders{axes: [2]*Quadrature{left, right}}, nil
}

func (e *Encoders) ReadCount(axis core.EncoderAxis) int32 {
	return e.axes[axis].Count()
}

func (e *Encoders) ResetCount(axis core.EncoderAxis) {
	e.axes[axis].Reset()
}
