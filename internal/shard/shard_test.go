// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package shard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/bus"
	"github.com/BCSkins-com/bcskins-inspect/internal/config"
	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/transport"
)

func testConfig() *config.Config {
	return &config.Config{
		BotsPerWorker:        50,
		MaxQueueSize:         100,
		QueueTimeout:         time.Second,
		InspectTimeout:       200 * time.Millisecond,
		BotCooldownTime:      10 * time.Millisecond,
		MaxRetries:           2,
		MaxReconnectAttempts: 2,
		BaseReconnectDelay:   5 * time.Millisecond,
		MaxReconnectDelay:    20 * time.Millisecond,
		HealthCheckInterval:  time.Minute,
		StatsUpdateInterval:  20 * time.Millisecond,
	}
}

// gatedTransport fails login for one specific username, so a partition
// can mix healthy and disabled accounts under one factory.
type gatedTransport struct {
	*transport.FakeTransport
	disabledUser string
}

func (g *gatedTransport) Login(ctx context.Context, cred models.Account, proxyURL string) error {
	if cred.Username == g.disabledUser {
		return models.NewTransportError(models.ErrAccountDisabled, nil)
	}
	return g.FakeTransport.Login(ctx, cred, proxyURL)
}

func drainEnvelopes(t *testing.T, msgs <-chan *message.Message, want bus.Kind, timeout time.Duration) bus.Envelope {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-msgs:
			require.True(t, ok, "manager topic closed early")
			var env bus.Envelope
			require.NoError(t, json.Unmarshal(msg.Payload, &env))
			msg.Ack()
			if env.Kind == want {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s envelope", want)
		}
	}
}

func startShard(t *testing.T, accounts []models.Account, factory transport.Factory) (*bus.Bus, <-chan *message.Message) {
	t.Helper()
	b, err := bus.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	events, err := b.Subscribe(ctx, bus.ManagerTopic())
	require.NoError(t, err)

	s := New(0, testConfig(), b, factory, accounts)
	go func() { _ = s.Serve(ctx) }()

	return b, events
}

func TestShard_InspectPublishesResult(t *testing.T) {
	accounts := []models.Account{{Username: "alpha"}, {Username: "beta"}}
	b, events := startShard(t, accounts, func() transport.GameTransport {
		return transport.NewFakeTransport()
	})

	drainEnvelopes(t, events, bus.KindBotInitialized, 2*time.Second)

	require.NoError(t, b.Publish(bus.ShardTopic(0), bus.Envelope{
		Kind:    bus.KindInspect,
		AssetID: 555,
		Owner:   76561198000000001,
		Proof:   42,
	}))

	env := drainEnvelopes(t, events, bus.KindInspectResult, 2*time.Second)
	require.NotNil(t, env.Item)
	assert.EqualValues(t, 555, env.AssetID)
	assert.EqualValues(t, 555, env.Item.ItemID)
}

func TestShard_NoBotsReadyError(t *testing.T) {
	b, events := startShard(t, nil, func() transport.GameTransport {
		return transport.NewFakeTransport()
	})

	// the first stats envelope proves the shard has subscribed to its
	// command topic; the in-memory bus drops messages with no subscriber
	drainEnvelopes(t, events, bus.KindStats, 2*time.Second)

	require.NoError(t, b.Publish(bus.ShardTopic(0), bus.Envelope{
		Kind:    bus.KindInspect,
		AssetID: 7,
	}))

	env := drainEnvelopes(t, events, bus.KindInspectError, 2*time.Second)
	assert.Equal(t, string(errs.KindNoBotsReady), env.ErrorKind)
}

func TestShard_DisabledAccountDroppedFromPartition(t *testing.T) {
	accounts := []models.Account{{Username: "good"}, {Username: "bad"}}
	_, events := startShard(t, accounts, func() transport.GameTransport {
		return &gatedTransport{FakeTransport: transport.NewFakeTransport(), disabledUser: "bad"}
	})

	env := drainEnvelopes(t, events, bus.KindStats, 2*time.Second)
	require.NotNil(t, env.Stats)
	assert.Len(t, env.Stats.Bots, 1, "disabled account must not produce a bot")
}

func TestShard_StatsCarryBotRows(t *testing.T) {
	accounts := []models.Account{{Username: "statsbot"}}
	_, events := startShard(t, accounts, func() transport.GameTransport {
		return transport.NewFakeTransport()
	})

	env := drainEnvelopes(t, events, bus.KindStats, 2*time.Second)
	require.NotNil(t, env.Stats)
	require.Len(t, env.Stats.Bots, 1)
	row := env.Stats.Bots[0]
	assert.Equal(t, "stat***", row.Username)
	assert.Equal(t, models.BotReady.String(), row.State)
	assert.Equal(t, 1, env.Stats.ReadyCount)
}
