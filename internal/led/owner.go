package led

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const (
	jobPending int32 = iota
	jobRunning
	jobWithdrawn
)

type job struct {
	fn     func(Channel) error
	state  atomic.Int32
	result chan error
}

// Owner holds the only reference to a Channel. Jobs run one at a time on a
// dedicated goroutine, so blocking emissions never stall the callers' own
// goroutines beyond waiting for their turn.
type Owner struct {
	ch   Channel
	jobs chan *job

	quit     chan struct{}
	stopped  chan struct{}
	once     sync.Once
	closeErr error
}

func NewOwner(ch Channel) *Owner {
	o := &Owner{
		ch:      ch,
		jobs:    make(chan *job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *Owner) loop() {
	defer close(o.stopped)
	for {
		select {
		case j := <-o.jobs:
			if !j.state.CompareAndSwap(jobPending, jobRunning) {
				continue
			}
			j.result <- o.run(j.fn)
		case <-o.quit:
			return
		}
	}
}

func (o *Owner) run(fn func(Channel) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("transmit job panicked")
			err = &TransmitError{Backend: "owner", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn(o.ch)
}

// Do runs fn with exclusive access to the channel. Once fn has started it
// runs to completion; ctx only bounds the wait for the channel.
func (o *Owner) Do(ctx context.Context, fn func(Channel) error) error {
	j := &job{fn: fn, result: make(chan error, 1)}
	select {
	case o.jobs <- j:
	case <-o.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		if j.state.CompareAndSwap(jobPending, jobWithdrawn) {
			return ctx.Err()
		}
		return <-j.result
	}
}

// Close stops the worker after the running job and closes the channel.
func (o *Owner) Close() error {
	o.once.Do(func() {
		close(o.quit)
		<-o.stopped
		o.closeErr = o.ch.Close()
	})
	return o.closeErr
}
