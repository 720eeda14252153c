package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServeHTTPShutsDownOnCancel(t *testing.T) {
	ln := listen(t)
	srv := &http.Server{Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- serveHTTP(ctx, srv, ln) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		res.Body.Close()
		return true
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serveHTTP did not return after cancel")
	}
}

func TestServeHTTPReturnsEarlyServeError(t *testing.T) {
	ln := listen(t)
	require.NoError(t, ln.Close())

	errc := make(chan error, 1)
	go func() { errc <- serveHTTP(context.Background(), &http.Server{}, ln) }()

	// ctx never ends; the shutdown goroutine must still be released.
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serveHTTP hung after Serve failed")
	}
}
