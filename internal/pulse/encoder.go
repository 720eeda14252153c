// Package pulse turns colors into the timed high/low pulse trains understood
// by single-wire addressable LEDs.
package pulse

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/model"
)

const (
	bitsPerColor = 24
	// SymbolsPerColor is two symbols (high, low) for each of the 24 bits.
	SymbolsPerColor = 2 * bitsPerColor
)

// Symbol is one level held for Ticks periods of the train frequency.
type Symbol struct {
	Level gpio.Level
	Ticks uint16
}

// Train is an ordered pulse sequence at a fixed tick frequency.
type Train struct {
	Freq    physic.Frequency
	Symbols []Symbol
}

func (t Train) Len() int {
	return len(t.Symbols)
}

// Ticks is the total length of the train in ticks.
func (t Train) Ticks() int {
	n := 0
	for _, s := range t.Symbols {
		n += int(s.Ticks)
	}
	return n
}

// Duration is the wall time needed to drive the whole train out.
func (t Train) Duration() time.Duration {
	var d time.Duration
	for _, s := range t.Symbols {
		d += tickDuration(s.Ticks, t.Freq)
	}
	return d
}

// Encoder holds the precomputed bit symbols for one tick frequency.
type Encoder struct {
	freq   physic.Frequency
	timing Timing
	// bits[v] is the high/low pair for a bit of value v.
	bits [2][2]Symbol
}

// NewEncoder converts the timing table to ticks at freq.
func NewEncoder(freq physic.Frequency, t Timing) (*Encoder, error) {
	e := &Encoder{freq: freq, timing: t}
	durations := [2][2]time.Duration{{t.T0H, t.T0L}, {t.T1H, t.T1L}}
	for v := range durations {
		high, err := Ticks(durations[v][0], freq)
		if err != nil {
			return nil, err
		}
		low, err := Ticks(durations[v][1], freq)
		if err != nil {
			return nil, err
		}
		e.bits[v] = [2]Symbol{{Level: gpio.High, Ticks: high}, {Level: gpio.Low, Ticks: low}}
	}
	if e.bits[0][0].Ticks == e.bits[1][0].Ticks {
		return nil, &EncodingError{
			Freq:   freq,
			Reason: fmt.Sprintf("0 and 1 bits both round to a %d tick high pulse", e.bits[0][0].Ticks),
		}
	}
	return e, nil
}

func (e *Encoder) Frequency() physic.Frequency {
	return e.freq
}

// Encode renders colors back to back, GRB order, most significant bit first.
func (e *Encoder) Encode(colors []model.Color) Train {
	syms := make([]Symbol, 0, SymbolsPerColor*len(colors))
	for _, c := range colors {
		// e.g. rgb (1,2,4):
		// G        R        B
		// 00000010 00000001 00000100
		word := c.GRB()
		for i := bitsPerColor - 1; i >= 0; i-- {
			pair := e.bits[(word>>uint(i))&1]
			syms = append(syms, pair[0], pair[1])
		}
	}
	return Train{Freq: e.freq, Symbols: syms}
}

// Encode is a shortcut for NewEncoder(freq, WS2812).Encode(colors).
func Encode(colors []model.Color, freq physic.Frequency) (Train, error) {
	e, err := NewEncoder(freq, WS2812)
	if err != nil {
		return Train{}, err
	}
	return e.Encode(colors), nil
}
