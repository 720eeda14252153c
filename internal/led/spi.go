package led

import (
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
)

// DefaultSPIFreq expands each WS2812 bit into 3 SPI bits (0b100 / 0b110).
const DefaultSPIFreq = 2400 * physic.KiloHertz

// DefaultLatch is the low time that makes the LED latch the new color.
const DefaultLatch = 300 * time.Microsecond

// SPI drives the data line with the MOSI pin: one SPI bit per tick.
type SPI struct {
	mu     sync.Mutex
	conn   spi.Conn
	closer io.Closer
	freq   physic.Frequency
	latch  []byte
}

// NewSPI connects to p at freq. latch is appended as zero bytes after every
// train.
func NewSPI(p spi.Port, freq physic.Frequency, latch time.Duration) (*SPI, error) {
	if freq <= 0 {
		freq = DefaultSPIFreq
	}
	if latch <= 0 {
		latch = DefaultLatch
	}
	c, err := p.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	hz := float64(freq) / float64(physic.Hertz)
	n := int(latch.Seconds()*hz+7) / 8
	return &SPI{conn: c, freq: freq, latch: make([]byte, n)}, nil
}

// OpenSPI opens a port by name ("" for the first one) on an initialized host.
func OpenSPI(name string, freq physic.Frequency, latch time.Duration) (*SPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	s, err := NewSPI(p, freq, latch)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.closer = p
	return s, nil
}

func (s *SPI) TickFrequency() physic.Frequency { return s.freq }

func (s *SPI) Emit(t pulse.Train) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fault("spi", ErrClosed)
	}
	if err := checkFreq("spi", t, s.freq); err != nil {
		return err
	}
	buf := append(pulse.Raster(t), s.latch...)
	if err := s.conn.Tx(buf, nil); err != nil {
		return fault("spi", fmt.Errorf("tx: %w", err))
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}
	return nil
}
