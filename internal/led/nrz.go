package led

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
)

// NRZ hands pixels to the periph nrzled driver, which builds its own NRZ
// frame. Trains are decoded back to colors first, so it accepts the same
// input as the other channels.
type NRZ struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	closer io.Closer
	pixels int
	freq   physic.Frequency
}

// NewNRZ wraps an SPI port. freq is the tick frequency trains are encoded at
// before being decoded again; it does not affect the wire.
func NewNRZ(p spi.Port, pixels int, freq physic.Frequency) (*NRZ, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", pixels)
	}
	if freq <= 0 {
		freq = DefaultSimFreq
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &NRZ{dev: d, pixels: pixels, freq: freq}, nil
}

// OpenNRZ opens an SPI port by name ("" for the first one).
func OpenNRZ(name string, pixels int, freq physic.Frequency) (*NRZ, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	n, err := NewNRZ(p, pixels, freq)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	n.closer = p
	return n, nil
}

func (n *NRZ) TickFrequency() physic.Frequency { return n.freq }

func (n *NRZ) Emit(t pulse.Train) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dev == nil {
		return fault("nrzled", ErrClosed)
	}
	colors, err := pulse.Decode(t)
	if err != nil {
		return fault("nrzled", err)
	}
	if len(colors) > n.pixels {
		return fault("nrzled", fmt.Errorf("%d colors for %d pixels", len(colors), n.pixels))
	}
	buf := make([]byte, 0, 3*len(colors))
	for _, c := range colors {
		buf = append(buf, c.R, c.G, c.B)
	}
	if _, err := n.dev.Write(buf); err != nil {
		return fault("nrzled", err)
	}
	return nil
}

func (n *NRZ) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return nil
	}
	err := n.dev.Halt()
	n.dev = nil
	if n.closer != nil {
		if cerr := n.closer.Close(); err == nil {
			err = cerr
		}
		n.closer = nil
	}
	return err
}
