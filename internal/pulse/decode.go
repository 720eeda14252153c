package pulse

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/neopixel-ap/model"
)

var errTrainLength = errors.New("pulse: train length is not a multiple of 48 symbols")

// Decode recovers the colors of a train produced by this package, matching
// each high pulse against the bit table at the train frequency.
func (e *Encoder) Decode(t Train) ([]model.Color, error) {
	if t.Freq != e.freq {
		return nil, fmt.Errorf("pulse: train at %s decoded with encoder at %s", t.Freq, e.freq)
	}
	if len(t.Symbols)%SymbolsPerColor != 0 {
		return nil, errTrainLength
	}
	out := make([]model.Color, 0, len(t.Symbols)/SymbolsPerColor)
	for p := 0; p < len(t.Symbols); p += SymbolsPerColor {
		var word uint32
		for i := 0; i < bitsPerColor; i++ {
			high, low := t.Symbols[p+2*i], t.Symbols[p+2*i+1]
			if high.Level != gpio.High || low.Level != gpio.Low {
				return nil, fmt.Errorf("pulse: symbol %d is not a high/low pair", p+2*i)
			}
			word <<= 1
			switch high.Ticks {
			case e.bits[1][0].Ticks:
				word |= 1
			case e.bits[0][0].Ticks:
			default:
				return nil, fmt.Errorf("pulse: symbol %d has unknown high duration of %d ticks", p+2*i, high.Ticks)
			}
		}
		out = append(out, model.FromGRB(word))
	}
	return out, nil
}

// Decode decodes a WS2812 train.
func Decode(t Train) ([]model.Color, error) {
	e, err := NewEncoder(t.Freq, WS2812)
	if err != nil {
		return nil, err
	}
	return e.Decode(t)
}
