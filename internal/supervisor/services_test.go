// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockServer struct {
	started  chan struct{}
	release  chan struct{}
	shutdown bool
}

func newMockServer() *mockServer {
	return &mockServer{started: make(chan struct{}), release: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	<-m.release
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdown = true
	close(m.release)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, srv.shutdown)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
}

func TestHTTPServerService_PropagatesStartupFailure(t *testing.T) {
	boom := errors.New("bind failed")
	svc := NewHTTPServerService(failingServer{err: boom}, time.Second)

	err := svc.Serve(context.Background())
	require.ErrorIs(t, err, boom)
}

type failingServer struct{ err error }

func (f failingServer) ListenAndServe() error            { return f.err }
func (f failingServer) Shutdown(_ context.Context) error { return nil }

func TestBusService_RunsUntilContextEnds(t *testing.T) {
	svc := NewBusService(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("bus service did not stop")
	}
}
