package led

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
	"github.com/coreman2200/neopixel-ap/model"
)

// DefaultSimFreq mirrors an 80MHz RMT source clock with a divider of 1.
const DefaultSimFreq = 80 * physic.MegaHertz

// Sim records every train instead of driving a pin. Used when no hardware
// is present and by tests.
type Sim struct {
	freq physic.Frequency
	// Hold blocks each Emit for this long on top of the train duration when
	// Realtime is set. Set before the first Emit.
	Hold     time.Duration
	Realtime bool

	mu       sync.Mutex
	trains   []pulse.Train
	failNext error
	closed   bool

	inFlight atomic.Int32
	overlaps atomic.Int32
}

func NewSim(freq physic.Frequency) *Sim {
	if freq <= 0 {
		freq = DefaultSimFreq
	}
	return &Sim{freq: freq}
}

func (s *Sim) TickFrequency() physic.Frequency { return s.freq }

func (s *Sim) Emit(t pulse.Train) error {
	if s.inFlight.Add(1) > 1 {
		s.overlaps.Add(1)
	}
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	closed, injected := s.closed, s.failNext
	s.failNext = nil
	s.mu.Unlock()

	if closed {
		return fault("sim", ErrClosed)
	}
	if injected != nil {
		return fault("sim", injected)
	}
	if err := checkFreq("sim", t, s.freq); err != nil {
		return err
	}
	if s.Realtime {
		time.Sleep(t.Duration() + s.Hold)
	}

	s.mu.Lock()
	s.trains = append(s.trains, t)
	s.mu.Unlock()
	return nil
}

// FailNext makes the next Emit fail with err.
func (s *Sim) FailNext(err error) {
	if err == nil {
		err = errors.New("injected fault")
	}
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Trains returns every train emitted so far, oldest first.
func (s *Sim) Trains() []pulse.Train {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pulse.Train(nil), s.trains...)
}

// Overlaps counts Emit calls that started while another was running.
func (s *Sim) Overlaps() int {
	return int(s.overlaps.Load())
}

// Showing decodes the last train, i.e. what a real LED would display.
func (s *Sim) Showing() ([]model.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.trains) == 0 {
		return nil, false
	}
	c, err := pulse.Decode(s.trains[len(s.trains)-1])
	if err != nil {
		return nil, false
	}
	return c, true
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
