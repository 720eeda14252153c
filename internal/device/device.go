// Package device sequences startup and keeps the process alive while
// requests are served.
package device

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type Phase int32

const (
	Booting Phase = iota
	NetworkStarting
	NetworkUp
	ServingRequests
)

func (p Phase) String() string {
	switch p {
	case Booting:
		return "booting"
	case NetworkStarting:
		return "network_starting"
	case NetworkUp:
		return "network_up"
	case ServingRequests:
		return "serving_requests"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// ConfigurationError is a startup failure. The process cannot continue.
type ConfigurationError struct {
	Phase Phase
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("startup failed while %s: %v", e.Phase, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type Device struct {
	Idle  time.Duration
	phase atomic.Int32
}

func New(idle time.Duration) *Device {
	if idle <= 0 {
		idle = time.Second
	}
	return &Device{Idle: idle}
}

func (d *Device) Phase() Phase { return Phase(d.phase.Load()) }

func (d *Device) enter(p Phase) {
	d.phase.Store(int32(p))
	log.Info().Stringer("phase", p).Msg("device phase")
}

// Boot acquires the hardware, then brings the network up. Either failure is
// returned as a *ConfigurationError naming the phase it happened in.
func (d *Device) Boot(ctx context.Context, hardware func() error, network func(context.Context) error) error {
	d.enter(Booting)
	if err := hardware(); err != nil {
		return &ConfigurationError{Phase: Booting, Err: err}
	}
	d.enter(NetworkStarting)
	if err := network(ctx); err != nil {
		return &ConfigurationError{Phase: NetworkStarting, Err: err}
	}
	d.enter(NetworkUp)
	return nil
}

// Serve runs serve in the background and idles until ctx is done or serve
// fails. It returns serve's error, or nil after a clean shutdown.
func (d *Device) Serve(ctx context.Context, serve func(context.Context) error) error {
	d.enter(ServingRequests)

	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()

	ticker := time.NewTicker(d.Idle)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return <-done
		case <-ticker.C:
			log.Trace().Msg("idle")
		}
	}
}
