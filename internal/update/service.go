// Package update turns raw color requests into LED transmissions.
package update

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/coreman2200/neopixel-ap/internal/led"
	"github.com/coreman2200/neopixel-ap/internal/pulse"
	"github.com/coreman2200/neopixel-ap/model"
)

// RequestLen is the only accepted body size: R, G, B.
const RequestLen = 3

// Transmitter grants exclusive, scoped use of the LED channel. *led.Owner
// implements it.
type Transmitter interface {
	Do(ctx context.Context, fn func(led.Channel) error) error
}

// Hooks are called after each request. Both are optional. OnAccepted runs
// while the channel is held, in transmission order, and must not block.
type Hooks struct {
	OnAccepted func(model.Color)
	OnError    func(error)
}

// Stats is a point in time copy of the service counters.
type Stats struct {
	Accepted      uint64       `json:"accepted"`
	Rejected      uint64       `json:"rejected"`
	Failed        uint64       `json:"failed"`
	Transmissions uint64       `json:"transmissions"`
	Last          *model.Color `json:"-"`
}

type Service struct {
	tx    Transmitter
	hooks Hooks

	accepted      atomic.Uint64
	rejected      atomic.Uint64
	failed        atomic.Uint64
	transmissions atomic.Uint64

	mu   sync.Mutex
	last *model.Color
}

func New(tx Transmitter, hooks Hooks) *Service {
	return &Service{tx: tx, hooks: hooks}
}

// Handle validates body, then encodes and emits it while holding the
// channel. The accepted color is returned for the acknowledgment. Nothing is
// retried.
func (s *Service) Handle(ctx context.Context, body []byte) (model.Color, error) {
	lg := zerolog.Ctx(ctx)

	if len(body) != RequestLen {
		s.rejected.Add(1)
		err := &RequestError{Kind: MalformedBody, Len: len(body)}
		lg.Warn().Int("len", len(body)).Msg("rejected color update")
		s.reportError(err)
		return model.Color{}, err
	}
	c := model.RGB(body[0], body[1], body[2])
	lg.Debug().Stringer("color", c).Msg("color update received")

	var encErr error
	err := s.tx.Do(ctx, func(ch led.Channel) error {
		t, err := pulse.Encode([]model.Color{c}, ch.TickFrequency())
		if err != nil {
			encErr = err
			return err
		}
		s.transmissions.Add(1)
		if err := ch.Emit(t); err != nil {
			return err
		}
		s.mu.Lock()
		s.last = &c
		s.mu.Unlock()
		// Still holding the channel, so hooks see colors in wire order.
		if s.hooks.OnAccepted != nil {
			s.hooks.OnAccepted(c)
		}
		return nil
	})
	if err != nil {
		s.failed.Add(1)
		reqErr := &RequestError{Kind: TransmitFailed, Err: err}
		if encErr != nil {
			reqErr.Kind = EncodingFailed
		}
		lg.Error().Err(err).Stringer("color", c).Str("kind", reqErr.Kind.String()).Msg("color update failed")
		s.reportError(reqErr)
		return model.Color{}, reqErr
	}

	s.accepted.Add(1)
	lg.Info().Stringer("color", c).Msg("color updated")
	return c, nil
}

func (s *Service) reportError(err error) {
	if s.hooks.OnError != nil {
		s.hooks.OnError(err)
	}
}

// Last is the color of the most recent successful transmission.
func (s *Service) Last() (model.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.Color{}, false
	}
	return *s.last, true
}

func (s *Service) Stats() Stats {
	st := Stats{
		Accepted:      s.accepted.Load(),
		Rejected:      s.rejected.Load(),
		Failed:        s.failed.Load(),
		Transmissions: s.transmissions.Load(),
	}
	if c, ok := s.Last(); ok {
		st.Last = &c
	}
	return st
}

// IsShutdown reports whether err came from a closed channel or an abandoned
// wait rather than the hardware itself.
func IsShutdown(err error) bool {
	return errors.Is(err, led.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
