package led

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
)

// DefaultStreamFreq gives 125ns ticks, enough to resolve every WS2812 pulse.
const DefaultStreamFreq = 8 * physic.MegaHertz

// Stream drives the data line through a pin capable of bit streaming, e.g.
// the DMA backed GPIOs of a Raspberry Pi.
type Stream struct {
	mu   sync.Mutex
	pin  gpiostream.PinOut
	freq physic.Frequency
}

func NewStream(p gpiostream.PinOut, freq physic.Frequency) *Stream {
	if freq <= 0 {
		freq = DefaultStreamFreq
	}
	return &Stream{pin: p, freq: freq}
}

// OpenStream looks the pin up by name on an initialized host.
func OpenStream(name string, freq physic.Frequency) (*Stream, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	s, ok := p.(gpiostream.PinOut)
	if !ok {
		return nil, fmt.Errorf("gpio %s does not support streaming", p)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %s: %w", p, err)
	}
	return NewStream(s, freq), nil
}

func (s *Stream) TickFrequency() physic.Frequency { return s.freq }

func (s *Stream) Emit(t pulse.Train) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pin == nil {
		return fault("gpio", ErrClosed)
	}
	if err := checkFreq("gpio", t, s.freq); err != nil {
		return err
	}
	b := &gpiostream.BitStream{Bits: pulse.Raster(t), Freq: s.freq}
	if err := s.pin.StreamOut(b); err != nil {
		return fault("gpio", fmt.Errorf("stream out on %s: %w", s.pin, err))
	}
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin == nil {
		return nil
	}
	err := s.pin.Halt()
	s.pin = nil
	return err
}
