package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok() error { return nil }

func TestBootPhases(t *testing.T) {
	d := New(time.Millisecond)
	assert.Equal(t, Booting, d.Phase())

	var seen []Phase
	err := d.Boot(context.Background(),
		func() error { seen = append(seen, d.Phase()); return nil },
		func(context.Context) error { seen = append(seen, d.Phase()); return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []Phase{Booting, NetworkStarting}, seen)
	assert.Equal(t, NetworkUp, d.Phase())
}

func TestBootFailures(t *testing.T) {
	boom := errors.New("boom")

	err := New(0).Boot(context.Background(), func() error { return boom }, func(context.Context) error {
		t.Fatal("network started after hardware failure")
		return nil
	})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, Booting, cfgErr.Phase)
	assert.ErrorIs(t, err, boom)

	err = New(0).Boot(context.Background(), ok, func(context.Context) error { return boom })
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, NetworkStarting, cfgErr.Phase)
	assert.Equal(t, "startup failed while network_starting: boom", err.Error())
}

func TestServeUntilCancelled(t *testing.T) {
	d := New(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- d.Serve(ctx, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		})
	}()

	<-started
	assert.Equal(t, ServingRequests, d.Phase())
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServeReturnsServeError(t *testing.T) {
	boom := errors.New("listener closed")
	err := New(time.Millisecond).Serve(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "serving_requests", ServingRequests.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
