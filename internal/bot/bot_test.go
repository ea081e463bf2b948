// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/transport"
)

func testConfig() Config {
	return Config{
		CooldownTime:            20 * time.Millisecond,
		InspectTimeout:          50 * time.Millisecond,
		MaxReconnectAttempts:    3,
		BaseReconnectDelay:      5 * time.Millisecond,
		MaxReconnectDelay:       40 * time.Millisecond,
		AccountThrottleCooldown: 30 * time.Minute,
	}
}

func TestInitialize_Ready(t *testing.T) {
	b := New("user1", models.Account{Username: "user1"}, "", func() transport.GameTransport {
		return transport.NewFakeTransport()
	}, testConfig())

	require.NoError(t, b.Initialize(context.Background()))
	assert.True(t, b.IsReady())
}

func TestInitialize_PermanentError(t *testing.T) {
	fake := transport.NewFakeTransport()
	fake.FailLogin = models.NewTransportError(models.ErrAccountDisabled, nil)

	b := New("user2", models.Account{Username: "user2"}, "", func() transport.GameTransport { return fake }, testConfig())

	err := b.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, b.IsPermanentlyFailed())
	assert.True(t, b.GetReconnectStatus().PermanentlyFailed)
}

func TestInspect_TransitionsToCooldownThenReady(t *testing.T) {
	b := New("user3", models.Account{Username: "user3"}, "", func() transport.GameTransport {
		return transport.NewFakeTransport()
	}, testConfig())
	require.NoError(t, b.Initialize(context.Background()))

	item, err := b.Inspect(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.True(t, item.HasPaintSeed)
	assert.True(t, b.IsCooldown())

	assert.Eventually(t, b.IsReady, time.Second, time.Millisecond)
}

func TestInspect_SameInputDeterministic(t *testing.T) {
	b := New("user4", models.Account{Username: "user4"}, "", func() transport.GameTransport {
		return transport.NewFakeTransport()
	}, testConfig())
	require.NoError(t, b.Initialize(context.Background()))

	first, err := b.Inspect(context.Background(), 10, 20, 30)
	require.NoError(t, err)
	require.Eventually(t, b.IsReady, time.Second, time.Millisecond)

	second, err := b.Inspect(context.Background(), 10, 20, 30)
	require.NoError(t, err)
	assert.Equal(t, first.PaintSeed, second.PaintSeed)
	assert.Equal(t, first.PaintWear, second.PaintWear)
}

func TestBackoffDelay_WithinBounds(t *testing.T) {
	base := 30 * time.Second
	max := 600 * time.Second
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(base, max, attempt)
		capped := min(base*time.Duration(1<<uint(attempt)), max)
		lower := time.Duration(float64(capped) * 0.5)
		assert.GreaterOrEqual(t, d, lower)
		assert.LessOrEqual(t, d, capped)
	}
}

func TestScheduleReconnect_EmitsEvents(t *testing.T) {
	fake := transport.NewFakeTransport()
	cfg := testConfig()
	cfg.MaxReconnectAttempts = 1

	b := New("user5", models.Account{Username: "user5"}, "", func() transport.GameTransport { return fake }, cfg)
	require.NoError(t, b.Initialize(context.Background()))

	fake.FailInspect = models.NewTransportError(models.ErrTransportDrop, nil)
	_, err := b.Inspect(context.Background(), 1, 2, 3)
	require.Error(t, err)

	var sawScheduled bool
	timeout := time.After(time.Second)
	for !sawScheduled {
		select {
		case ev := <-b.Events():
			if ev.Kind == EventReconnectScheduled {
				sawScheduled = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for reconnectScheduled event")
		}
	}
}
