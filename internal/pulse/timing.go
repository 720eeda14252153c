package pulse

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

// MaxTicks is the largest duration a single symbol can carry. It matches the
// 15-bit duration field of RMT style pulse generators.
const MaxTicks = 1<<15 - 1

// Timing holds the high/low durations of a 0 bit and a 1 bit.
type Timing struct {
	T0H, T0L time.Duration
	T1H, T1L time.Duration
}

// WS2812 is the bit timing expected by WS2812/NeoPixel LEDs.
var WS2812 = Timing{
	T0H: 350 * time.Nanosecond,
	T0L: 800 * time.Nanosecond,
	T1H: 700 * time.Nanosecond,
	T1L: 600 * time.Nanosecond,
}

// EncodingError reports a pulse duration that cannot be expressed at a tick
// frequency.
type EncodingError struct {
	Duration time.Duration
	Freq     physic.Frequency
	Reason   string
}

func (e *EncodingError) Error() string {
	if e.Duration == 0 {
		return fmt.Sprintf("pulse: cannot encode at %s: %s", e.Freq, e.Reason)
	}
	return fmt.Sprintf("pulse: cannot represent %s at %s: %s", e.Duration, e.Freq, e.Reason)
}

// Ticks converts d to the nearest whole number of ticks at freq.
func Ticks(d time.Duration, freq physic.Frequency) (uint16, error) {
	if freq <= 0 {
		return 0, &EncodingError{Duration: d, Freq: freq, Reason: "tick frequency must be positive"}
	}
	hz := float64(freq) / float64(physic.Hertz)
	n := math.Round(d.Seconds() * hz)
	switch {
	case n < 1:
		return 0, &EncodingError{Duration: d, Freq: freq, Reason: "shorter than one tick"}
	case n > MaxTicks:
		return 0, &EncodingError{Duration: d, Freq: freq, Reason: fmt.Sprintf("longer than %d ticks", MaxTicks)}
	}
	return uint16(n), nil
}

// tickDuration is the inverse of Ticks.
func tickDuration(n uint16, freq physic.Frequency) time.Duration {
	if freq <= 0 {
		return 0
	}
	hz := float64(freq) / float64(physic.Hertz)
	return time.Duration(math.Round(float64(n) * float64(time.Second) / hz))
}
