package led

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
)

// Channel abstracts the single pulse generator wired to the LED data line.
type Channel interface {
	// TickFrequency is the resolution trains must be encoded at.
	TickFrequency() physic.Frequency
	// Emit drives the whole train out and returns once it is on the wire.
	Emit(t pulse.Train) error
	// Close releases resources.
	Close() error
}

var (
	// ErrHardwareFault matches every TransmitError.
	ErrHardwareFault = errors.New("led: hardware fault")
	// ErrClosed is returned once the channel or its owner is closed.
	ErrClosed = errors.New("led: channel closed")
)

// TransmitError wraps a failure of the signal generator.
type TransmitError struct {
	Backend string
	Err     error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("led %s: %v", e.Backend, e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }

func (e *TransmitError) Is(target error) bool {
	return target == ErrHardwareFault
}

func fault(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &TransmitError{Backend: backend, Err: err}
}

func checkFreq(backend string, t pulse.Train, want physic.Frequency) error {
	if t.Freq != want {
		return fault(backend, fmt.Errorf("train encoded at %s, channel runs at %s", t.Freq, want))
	}
	return nil
}
