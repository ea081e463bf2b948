// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package manager implements the worker manager: account partitioning
// into shards, weighted-random dispatch over shards with ready bots, the
// retry policy for transient inspect failures, and fleet-wide stats
// aggregation. All shard communication crosses the process bus; the
// manager never holds a bot pointer.
package manager

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BCSkins-com/bcskins-inspect/internal/bus"
	"github.com/BCSkins-com/bcskins-inspect/internal/config"
	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/metrics"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/queue"
	"github.com/BCSkins-com/bcskins-inspect/internal/shard"
	"github.com/BCSkins-com/bcskins-inspect/internal/transport"
)

// retryDelay spaces out re-dispatch attempts after a transient failure so
// a fleet that momentarily has zero ready bots isn't hammered in a tight
// loop before anyone finishes cooling down.
const retryDelay = 250 * time.Millisecond

// Manager routes admission-queue entries onto shards and aggregates their
// stats streams into one fleet snapshot.
type Manager struct {
	cfg    *config.Config
	b      *bus.Bus
	q      *queue.Queue
	shards []*shard.Shard

	mu         sync.Mutex
	shardStats map[int]models.ShardStats

	success           atomic.Int64
	cached            atomic.Int64
	failed            atomic.Int64
	timeouts          atomic.Int64
	retried           atomic.Int64
	successAfterRetry atomic.Int64

	rt *responseTimes
}

// New partitions accounts into shards and builds the manager around them.
// The shards are not started here — the caller adds Shards() and the
// manager itself to a supervisor.
func New(cfg *config.Config, b *bus.Bus, factory transport.Factory, accounts []models.Account) *Manager {
	m := &Manager{
		cfg:        cfg,
		b:          b,
		q:          queue.New(cfg.MaxQueueSize),
		shardStats: make(map[int]models.ShardStats),
		rt:         newResponseTimes(),
	}
	m.q.OnTimeout = func(assetID uint64) {
		m.timeouts.Add(1)
		metrics.InspectRequestsTotal.WithLabelValues("timeout").Inc()
	}

	for i, partition := range Partition(accounts, cfg) {
		m.shards = append(m.shards, shard.New(i, cfg, b, factory, partition))
	}
	return m
}

// Partition splits accounts into disjoint per-shard slices. With workers
// disabled the whole fleet runs as a single shard (the single-thread
// fallback); otherwise shard count is ceil(len(accounts)/BOTS_PER_WORKER).
func Partition(accounts []models.Account, cfg *config.Config) [][]models.Account {
	if len(accounts) == 0 {
		return nil
	}
	if !cfg.WorkerEnabled {
		return [][]models.Account{accounts}
	}

	size := cfg.BotsPerWorker
	var out [][]models.Account
	for start := 0; start < len(accounts); start += size {
		end := min(start+size, len(accounts))
		out = append(out, accounts[start:end])
	}
	return out
}

// Shards exposes the shard services for supervisor registration.
func (m *Manager) Shards() []*shard.Shard { return m.shards }

func (m *Manager) String() string { return "worker-manager" }

// Serve implements suture.Service: one goroutine drains the admission
// queue into shard dispatches while the main loop consumes shard events
// from the manager topic.
func (m *Manager) Serve(ctx context.Context) error {
	events, err := m.b.Subscribe(ctx, bus.ManagerTopic())
	if err != nil {
		return err
	}

	go m.dispatchLoop(ctx)

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				m.q.FailAll(errs.ErrShuttingDown)
				return nil
			}
			var env bus.Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()
			m.handleEvent(env)

		case <-ctx.Done():
			m.q.FailAll(errs.ErrShuttingDown)
			return ctx.Err()
		}
	}
}

func (m *Manager) dispatchLoop(ctx context.Context) {
	for {
		entry, ok := m.q.Next(ctx)
		if !ok {
			return
		}
		m.dispatch(entry)
	}
}

// dispatch assigns one entry to a shard by weighted random choice over
// shards with at least one ready bot, weight = ready-bot count. With no
// ready bot anywhere the entry takes the transient-failure path
// immediately instead of waiting out its deadline.
func (m *Manager) dispatch(entry *models.QueueEntry) {
	shardID, ok := m.pickShard()
	if !ok {
		m.retryOrFail(entry.AssetID, errs.KindNoBotsReady)
		return
	}

	err := m.b.Publish(bus.ShardTopic(shardID), bus.Envelope{
		Kind:     bus.KindInspect,
		ShardID:  shardID,
		AssetID:  entry.AssetID,
		Owner:    entry.Owner,
		Proof:    entry.Proof,
		MarketID: entry.MarketID,
		Priority: entry.Priority,
	})
	if err != nil {
		logging.Error().Err(err).Uint64("asset_id", entry.AssetID).Int("shard", shardID).Msg("Dispatch publish failed")
		m.retryOrFail(entry.AssetID, errs.KindTransportDrop)
	}
}

func (m *Manager) pickShard() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, stats := range m.shardStats {
		total += stats.ReadyCount
	}
	if total == 0 {
		return 0, false
	}

	pick := rand.IntN(total)
	for id, stats := range m.shardStats {
		if pick < stats.ReadyCount {
			return id, true
		}
		pick -= stats.ReadyCount
	}
	return 0, false
}

func (m *Manager) handleEvent(env bus.Envelope) {
	switch env.Kind {
	case bus.KindInspectResult:
		if env.Item == nil {
			return
		}
		entry, ok := m.q.Complete(env.AssetID, queue.Result{Item: *env.Item})
		if !ok {
			// the queue entry timed out before the bot finished; the
			// late result is discarded.
			return
		}
		m.success.Add(1)
		metrics.InspectRequestsTotal.WithLabelValues("success").Inc()
		if entry.RetryCount > 0 {
			m.successAfterRetry.Add(1)
		}
		d := time.Since(entry.EnqueuedAt)
		m.rt.Observe(d)
		metrics.ObserveInspectDuration(d)

	case bus.KindInspectError:
		kind := errs.Kind(env.ErrorKind)
		if errs.IsTransient(kind) {
			m.retryOrFail(env.AssetID, kind)
			return
		}
		if _, ok := m.q.Complete(env.AssetID, queue.Result{Err: errs.New(kind, "")}); ok {
			m.failed.Add(1)
			metrics.InspectRequestsTotal.WithLabelValues("failed").Inc()
		}

	case bus.KindStats:
		if env.Stats != nil {
			m.mu.Lock()
			m.shardStats[env.ShardID] = *env.Stats
			m.mu.Unlock()
		}

	case bus.KindBotInitialized:
		logging.Debug().Str("username", env.Username).Int("shard", env.ShardID).Msg("Bot initialized")

	case bus.KindBotStatusChange:
		logging.Debug().Str("username", env.Username).Int("shard", env.ShardID).
			Str("state", env.State.String()).Msg("Bot status change")

	case bus.KindShutdownDone:
		logging.Info().Int("shard", env.ShardID).Msg("Shard reported shutdown complete")
	}
}

// retryOrFail re-queues a transiently-failed entry if its retry budget
// and deadline allow, otherwise resolves it with the failure.
func (m *Manager) retryOrFail(assetID uint64, kind errs.Kind) {
	entry, ok := m.q.Entry(assetID)
	if !ok {
		return
	}

	if entry.RetryCount < m.cfg.MaxRetries && time.Now().Add(retryDelay).Before(entry.Deadline) {
		m.retried.Add(1)
		metrics.InspectRequestsTotal.WithLabelValues("retried").Inc()
		time.AfterFunc(retryDelay, func() { m.q.Requeue(assetID) })
		return
	}

	if _, ok := m.q.Complete(assetID, queue.Result{Err: errs.New(kind, "")}); ok {
		m.failed.Add(1)
		metrics.InspectRequestsTotal.WithLabelValues("failed").Inc()
	}
}

// Submit admits a request without waiting for it; the returned channel
// resolves once the inspect completes, times out, or fails. The bool
// reports whether the request coalesced onto an in-flight entry.
func (m *Manager) Submit(owner, assetID, proof, marketID uint64, priority models.Priority) (<-chan queue.Result, bool, error) {
	deadline := time.Now().Add(m.cfg.QueueTimeout)
	return m.q.Add(assetID, owner, proof, marketID, priority, deadline)
}

// Inspect admits a request and blocks until it resolves or ctx ends.
func (m *Manager) Inspect(ctx context.Context, owner, assetID, proof, marketID uint64, priority models.Priority) (models.ItemInfo, error) {
	ch, _, err := m.Submit(owner, assetID, proof, marketID, priority)
	if err != nil {
		return models.ItemInfo{}, err
	}

	select {
	case res := <-ch:
		return res.Item, res.Err
	case <-ctx.Done():
		return models.ItemInfo{}, errs.ErrShuttingDown
	}
}

// IncrementCached bumps the cache-hit counter on behalf of the
// coordinator, which owns the cache lookup.
func (m *Manager) IncrementCached() {
	m.cached.Add(1)
	metrics.InspectRequestsTotal.WithLabelValues("cached").Inc()
	metrics.CacheHitsTotal.Inc()
}

// QueueFull reports whether the admission queue is at capacity.
func (m *Manager) QueueFull() bool { return m.q.IsFull() }

// ReconnectBot asks every shard to force-reconnect username; only the
// owning shard will match it.
func (m *Manager) ReconnectBot(username string) {
	for _, s := range m.shards {
		_ = m.b.Publish(bus.ShardTopic(s.ID()), bus.Envelope{Kind: bus.KindReconnectBot, Username: username})
	}
}

// ReconnectAll asks every shard to force-reconnect its whole partition.
func (m *Manager) ReconnectAll() {
	for _, s := range m.shards {
		_ = m.b.Publish(bus.ShardTopic(s.ID()), bus.Envelope{Kind: bus.KindReconnectAll})
	}
}

// Stats merges the latest per-shard snapshots, queue state, counters, and
// response-time percentiles into one fleet snapshot.
func (m *Manager) Stats() models.FleetMetrics {
	m.mu.Lock()
	shards := make([]models.ShardStats, 0, len(m.shardStats))
	for _, stats := range m.shardStats {
		shards = append(shards, stats)
	}
	m.mu.Unlock()

	out := models.FleetMetrics{
		Shards:          shards,
		BotsByState:     make(map[string]int),
		QueueByPriority: make(map[string]int),

		Success:           m.success.Load(),
		Cached:            m.cached.Load(),
		Failed:            m.failed.Load(),
		Timeouts:          m.timeouts.Load(),
		Retried:           m.retried.Load(),
		SuccessAfterRetry: m.successAfterRetry.Load(),
	}

	for _, stats := range shards {
		out.ReadyBots += stats.ReadyCount
		for state, n := range stats.BotsByState {
			out.BotsByState[state] += n
			out.TotalBots += n
		}
	}

	entries := m.q.Metrics()
	out.QueueSize = len(entries)
	out.QueueEntries = entries
	for _, e := range entries {
		out.QueueByPriority[e.Priority]++
	}

	out.ResponseTimeAllTime, out.ResponseTimeWindow = m.rt.Snapshot()
	return out
}
