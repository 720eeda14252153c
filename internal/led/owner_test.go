package led

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
	"github.com/coreman2200/neopixel-ap/model"
)

func emitColor(c model.Color) func(Channel) error {
	return func(ch Channel) error {
		t, err := pulse.Encode([]model.Color{c}, ch.TickFrequency())
		if err != nil {
			return err
		}
		return ch.Emit(t)
	}
}

func TestOwnerSerializesEmits(t *testing.T) {
	sim := NewSim(0)
	sim.Realtime = true
	sim.Hold = 2 * time.Millisecond
	o := NewOwner(sim)
	defer o.Close()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, o.Do(context.Background(), emitColor(model.RGB(uint8(i), 0, 0))))
		}(i)
	}
	wg.Wait()

	trains := sim.Trains()
	require.Len(t, trains, n)
	assert.Equal(t, 0, sim.Overlaps())

	seen := map[uint8]bool{}
	for _, tr := range trains {
		assert.Equal(t, 48, tr.Len())
		c, err := pulse.Decode(tr)
		require.NoError(t, err)
		seen[c[0].R] = true
	}
	assert.Len(t, seen, n)
}

func TestOwnerWithdrawsWaitingJob(t *testing.T) {
	sim := NewSim(0)
	o := NewOwner(sim)
	defer o.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- o.Do(context.Background(), func(Channel) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ran := false
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := o.Do(ctx, func(Channel) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	// The worker is free again and the withdrawn job never ran.
	require.NoError(t, o.Do(context.Background(), emitColor(model.RGB(1, 1, 1))))
	assert.False(t, ran)
	assert.Len(t, sim.Trains(), 1)
}

func TestOwnerRecoversPanic(t *testing.T) {
	o := NewOwner(NewSim(0))
	defer o.Close()

	err := o.Do(context.Background(), func(Channel) error { panic("boom") })
	assert.ErrorIs(t, err, ErrHardwareFault)

	assert.NoError(t, o.Do(context.Background(), emitColor(model.RGB(0, 0, 1))))
}

func TestOwnerClose(t *testing.T) {
	sim := NewSim(0)
	o := NewOwner(sim)
	require.NoError(t, o.Close())
	require.NoError(t, o.Close())

	err := o.Do(context.Background(), emitColor(model.RGB(1, 2, 3)))
	assert.ErrorIs(t, err, ErrClosed)

	tr, err := pulse.Encode([]model.Color{model.RGB(1, 2, 3)}, sim.TickFrequency())
	require.NoError(t, err)
	assert.ErrorIs(t, sim.Emit(tr), ErrHardwareFault)
}
