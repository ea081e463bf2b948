// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

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
		WorkerEnabled:        true,
		BotsPerWorker:        2,
		MaxQueueSize:         100,
		QueueTimeout:         3 * time.Second,
		InspectTimeout:       500 * time.Millisecond,
		BotCooldownTime:      10 * time.Millisecond,
		MaxRetries:           3,
		MaxReconnectAttempts: 2,
		BaseReconnectDelay:   5 * time.Millisecond,
		MaxReconnectDelay:    20 * time.Millisecond,
		HealthCheckInterval:  time.Minute,
		StatsUpdateInterval:  20 * time.Millisecond,
	}
}

// countingTransport counts physical Inspect calls across the fleet and
// can slow them down, so coalescing is observable.
type countingTransport struct {
	*transport.FakeTransport
	calls *atomic.Int64
	delay time.Duration
}

func (c *countingTransport) Inspect(ctx context.Context, owner, assetID, proof uint64) (models.ItemInfo, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.FakeTransport.Inspect(ctx, owner, assetID, proof)
}

func startFleet(t *testing.T, cfg *config.Config, accounts []models.Account, factory transport.Factory) *Manager {
	t.Helper()
	b, err := bus.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := New(cfg, b, factory, accounts)
	go func() { _ = m.Serve(ctx) }()
	for _, s := range m.Shards() {
		go func() { _ = s.Serve(ctx) }()
	}

	return m
}

func waitReady(t *testing.T, m *Manager, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Stats().ReadyBots >= want
	}, 5*time.Second, 10*time.Millisecond, "fleet never reported %d ready bots", want)
}

func TestPartition_DisabledWorkersIsSingleShard(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerEnabled = false

	accounts := make([]models.Account, 7)
	parts := Partition(accounts, cfg)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0], 7)
}

func TestPartition_SplitsByBotsPerWorker(t *testing.T) {
	cfg := testConfig()

	accounts := make([]models.Account, 5)
	parts := Partition(accounts, cfg)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[2], 1)
}

func TestInspect_EndToEnd(t *testing.T) {
	accounts := []models.Account{{Username: "a1"}, {Username: "a2"}, {Username: "a3"}}
	m := startFleet(t, testConfig(), accounts, func() transport.GameTransport {
		return transport.NewFakeTransport()
	})
	require.Len(t, m.Shards(), 2)
	waitReady(t, m, 3)

	item, err := m.Inspect(context.Background(), 76561198000000001, 9001, 77, 0, models.PriorityNormal)
	require.NoError(t, err)
	assert.EqualValues(t, 9001, item.ItemID)

	assert.Eventually(t, func() bool { return m.Stats().Success == 1 }, time.Second, 10*time.Millisecond)
}

func TestInspect_CoalescesConcurrentSameAsset(t *testing.T) {
	var calls atomic.Int64
	accounts := []models.Account{{Username: "solo"}}
	m := startFleet(t, testConfig(), accounts, func() transport.GameTransport {
		return &countingTransport{FakeTransport: transport.NewFakeTransport(), calls: &calls, delay: 150 * time.Millisecond}
	})
	waitReady(t, m, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = m.Inspect(context.Background(), 76561198000000001, 4242, 1, 0, models.PriorityNormal)
		}(i)
	}
	wg.Wait()

	require.NoError(t, results[0])
	require.NoError(t, results[1])
	assert.EqualValues(t, 1, calls.Load(), "concurrent requests for one asset must share one physical inspect")
}

func TestInspect_NoBotsReadyFailsFast(t *testing.T) {
	cfg := testConfig()
	m := startFleet(t, cfg, nil, func() transport.GameTransport {
		return transport.NewFakeTransport()
	})

	start := time.Now()
	_, err := m.Inspect(context.Background(), 76561198000000001, 13, 1, 0, models.PriorityNormal)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errs.ErrNoBotsReady)
	assert.Less(t, elapsed, cfg.QueueTimeout, "NoBotsReady must not wait out the full deadline")
	assert.Eventually(t, func() bool { return m.Stats().Retried >= 1 }, time.Second, 10*time.Millisecond)
}

func TestSubmit_QueueFullBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 2

	b, err := bus.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	// no Serve: entries stay resident so the capacity bound is observable
	m := New(cfg, b, func() transport.GameTransport { return transport.NewFakeTransport() }, nil)

	_, _, err = m.Submit(1, 101, 1, 0, models.PriorityNormal)
	require.NoError(t, err)
	_, _, err = m.Submit(1, 102, 1, 0, models.PriorityNormal)
	require.NoError(t, err)

	_, _, err = m.Submit(1, 103, 1, 0, models.PriorityNormal)
	require.ErrorIs(t, err, errs.ErrQueueFull)
}

func TestStats_MergesCountersAndQueue(t *testing.T) {
	accounts := []models.Account{{Username: "m1"}, {Username: "m2"}}
	m := startFleet(t, testConfig(), accounts, func() transport.GameTransport {
		return transport.NewFakeTransport()
	})
	waitReady(t, m, 2)

	_, err := m.Inspect(context.Background(), 76561198000000001, 31337, 5, 0, models.PriorityNormal)
	require.NoError(t, err)
	m.IncrementCached()

	require.Eventually(t, func() bool { return m.Stats().Success == 1 }, time.Second, 10*time.Millisecond)
	stats := m.Stats()
	assert.EqualValues(t, 1, stats.Cached)
	assert.GreaterOrEqual(t, stats.TotalBots, 2)
	assert.NotZero(t, stats.ResponseTimeAllTime.P50)
}
