// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package shard implements the worker shard: a supervised service
// owning the bots of one credential partition (at most BOTS_PER_WORKER
// accounts when workers are enabled), driven entirely by envelopes on the
// process bus. A shard never shares a bot pointer with the manager or
// another shard, and throttle/failed-account bookkeeping never leaves
// the owning shard.
package shard

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/BCSkins-com/bcskins-inspect/internal/bot"
	"github.com/BCSkins-com/bcskins-inspect/internal/bus"
	"github.com/BCSkins-com/bcskins-inspect/internal/config"
	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/metrics"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/transport"
)

// firstHealthCheckDelay is how soon after boot the first health check
// runs, ahead of the regular HEALTH_CHECK_INTERVAL cadence.
const firstHealthCheckDelay = 30 * time.Second

// Shard owns a disjoint partition of the credential list. It subscribes
// to its command topic, dispatches inspects onto randomly-chosen ready
// bots, and periodically publishes stats and health-check outcomes back
// to the manager topic.
type Shard struct {
	id       int
	cfg      *config.Config
	b        *bus.Bus
	factory  transport.Factory
	accounts []models.Account

	mu             sync.Mutex
	bots           map[string]*bot.Bot
	throttledUntil map[string]time.Time
	failedAt       map[string]time.Time
	dropped        map[string]bool

	// limiter paces outbound inspects toward the game servers; per-bot
	// cooldowns bound steady-state throughput, the limiter bounds bursts
	// right after many bots leave cooldown at once.
	limiter *rate.Limiter

	wg sync.WaitGroup
}

// New builds a Shard for one partition of the credential list.
func New(id int, cfg *config.Config, b *bus.Bus, factory transport.Factory, accounts []models.Account) *Shard {
	return &Shard{
		id:             id,
		cfg:            cfg,
		b:              b,
		factory:        factory,
		accounts:       accounts,
		bots:           make(map[string]*bot.Bot),
		throttledUntil: make(map[string]time.Time),
		failedAt:       make(map[string]time.Time),
		dropped:        make(map[string]bool),
		limiter:        rate.NewLimiter(rate.Limit(20), 5),
	}
}

func (s *Shard) String() string { return "shard-" + strconv.Itoa(s.id) }

// ID returns the shard's index within the fleet.
func (s *Shard) ID() int { return s.id }

// Serve implements suture.Service: subscribe to the command topic, log the
// partition in, then loop over commands and timers until ctx is cancelled
// or a shutdown command arrives.
func (s *Shard) Serve(ctx context.Context) error {
	commands, err := s.b.Subscribe(ctx, bus.ShardTopic(s.id))
	if err != nil {
		return err
	}

	s.initializeAll(ctx)

	firstHealth := time.NewTimer(firstHealthCheckDelay)
	defer firstHealth.Stop()
	healthTicker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer healthTicker.Stop()
	statsTicker := time.NewTicker(s.cfg.StatsUpdateInterval)
	defer statsTicker.Stop()

	for {
		select {
		case msg, ok := <-commands:
			if !ok {
				s.shutdown()
				return suture.ErrDoNotRestart
			}
			var env bus.Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()
			if done := s.handleCommand(ctx, env); done {
				return suture.ErrDoNotRestart
			}

		case <-firstHealth.C:
			s.healthCheck(ctx)
			s.publishStats()

		case <-healthTicker.C:
			s.healthCheck(ctx)
			s.publishStats()

		case <-statsTicker.C:
			s.publishStats()

		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		}
	}
}

func (s *Shard) handleCommand(ctx context.Context, env bus.Envelope) (done bool) {
	switch env.Kind {
	case bus.KindInspect:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleInspect(ctx, env)
		}()

	case bus.KindGetStats:
		s.publishStats()

	case bus.KindHealthCheck:
		s.healthCheck(ctx)
		s.publishStats()

	case bus.KindReconnectBot:
		s.mu.Lock()
		b, ok := s.bots[env.Username]
		s.mu.Unlock()
		if ok {
			b.ForceReconnect()
		}

	case bus.KindReconnectAll:
		s.mu.Lock()
		all := make([]*bot.Bot, 0, len(s.bots))
		for _, b := range s.bots {
			all = append(all, b)
		}
		s.mu.Unlock()
		for _, b := range all {
			b.ForceReconnect()
		}

	case bus.KindShutdown:
		s.shutdown()
		return true
	}
	return false
}

// handleInspect picks a ready bot uniformly at random and drives one
// inspect through it, publishing the result or a classified error back to
// the manager topic.
func (s *Shard) handleInspect(ctx context.Context, env bus.Envelope) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	b := s.pickReady()
	if b == nil {
		s.publishError(env, errs.KindNoBotsReady)
		return
	}

	item, err := b.Inspect(ctx, env.Owner, env.AssetID, env.Proof)
	if err != nil {
		s.publishError(env, classifyInspectError(err))
		return
	}

	out := bus.Envelope{
		Kind:      bus.KindInspectResult,
		ShardID:   s.id,
		RequestID: env.RequestID,
		AssetID:   env.AssetID,
		Item:      &item,
		Username:  b.Username(),
	}
	if err := s.b.Publish(bus.ManagerTopic(), out); err != nil {
		logging.Error().Err(err).Uint64("asset_id", env.AssetID).Msg("Publish inspect result failed")
	}
}

// pickReady claims one Ready bot uniformly at random. The claim is a
// CAS-style BeginInspect so two concurrent dispatches can never win the
// same bot; on a lost race the scan continues from the random start.
func (s *Shard) pickReady() *bot.Bot {
	s.mu.Lock()
	ready := make([]*bot.Bot, 0, len(s.bots))
	for _, b := range s.bots {
		if b.IsReady() {
			ready = append(ready, b)
		}
	}
	s.mu.Unlock()

	if len(ready) == 0 {
		return nil
	}
	start := rand.IntN(len(ready))
	for i := range ready {
		if b := ready[(start+i)%len(ready)]; b.BeginInspect() {
			return b
		}
	}
	return nil
}

func (s *Shard) publishError(env bus.Envelope, kind errs.Kind) {
	out := bus.Envelope{
		Kind:      bus.KindInspectError,
		ShardID:   s.id,
		RequestID: env.RequestID,
		AssetID:   env.AssetID,
		ErrorKind: string(kind),
	}
	if err := s.b.Publish(bus.ManagerTopic(), out); err != nil {
		logging.Error().Err(err).Uint64("asset_id", env.AssetID).Msg("Publish inspect error failed")
	}
}

// initializeAll logs the whole partition in concurrently, each account
// with up to MAX_RETRIES attempts.
func (s *Shard) initializeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, acct := range s.accounts {
		wg.Add(1)
		go func(acct models.Account) {
			defer wg.Done()
			s.initAccount(ctx, acct)
		}(acct)
	}
	wg.Wait()

	s.mu.Lock()
	n := len(s.bots)
	s.mu.Unlock()
	logging.Info().Int("shard", s.id).Int("bots", n).Int("accounts", len(s.accounts)).Msg("Shard initialized")
}

// initAccount attempts one login with retries, recording the outcome in
// the shard-local throttle/failed/dropped maps.
func (s *Shard) initAccount(ctx context.Context, acct models.Account) {
	botCfg := bot.Config{
		CooldownTime:            s.cfg.BotCooldownTime,
		InspectTimeout:          s.cfg.InspectTimeout,
		MaxReconnectAttempts:    s.cfg.MaxReconnectAttempts,
		BaseReconnectDelay:      s.cfg.BaseReconnectDelay,
		MaxReconnectDelay:       s.cfg.MaxReconnectDelay,
		AccountThrottleCooldown: config.AccountThrottleCooldown,
	}

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		b := bot.New(acct.Username, acct, s.cfg.ProxyURL, s.factory, botCfg)
		err := b.Initialize(ctx)
		if err == nil {
			s.adopt(b)
			return
		}

		kind, classified := models.ClassifyError(err)
		switch {
		case classified && kind.IsPermanent():
			// ACCOUNT_DISABLED / INVALID_PASSWORD: drop from the partition.
			s.mu.Lock()
			s.dropped[acct.Username] = true
			s.mu.Unlock()
			logging.Warn().Str("username", models.TruncatedUsername(acct.Username)).
				Str("kind", string(kind)).Int("shard", s.id).Msg("Account dropped from partition")
			return

		case classified && kind == models.ErrLoginThrottled:
			s.mu.Lock()
			s.throttledUntil[acct.Username] = time.Now().Add(config.AccountThrottleCooldown)
			s.mu.Unlock()
			logging.Warn().Str("username", models.TruncatedUsername(acct.Username)).
				Int("shard", s.id).Msg("Account login throttled")
			return
		}

		logging.Warn().Err(err).Str("username", models.TruncatedUsername(acct.Username)).
			Int("attempt", attempt+1).Int("shard", s.id).Msg("Bot login failed")
	}

	s.mu.Lock()
	s.failedAt[acct.Username] = time.Now()
	s.mu.Unlock()
}

func (s *Shard) adopt(b *bot.Bot) {
	s.mu.Lock()
	s.bots[b.Username()] = b
	delete(s.failedAt, b.Username())
	delete(s.throttledUntil, b.Username())
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.forwardEvents(b)
	}()

	_ = s.b.Publish(bus.ManagerTopic(), bus.Envelope{
		Kind:     bus.KindBotInitialized,
		ShardID:  s.id,
		Username: models.TruncatedUsername(b.Username()),
	})
}

// forwardEvents relays a bot's lifecycle events onto the manager topic as
// botStatusChange envelopes and keeps the reconnect metrics current.
func (s *Shard) forwardEvents(b *bot.Bot) {
	for ev := range b.Events() {
		if ev.Kind == bot.EventReconnecting {
			metrics.ReconnectAttemptsTotal.WithLabelValues(models.TruncatedUsername(b.Username())).Inc()
		}
		_ = s.b.Publish(bus.ManagerTopic(), bus.Envelope{
			Kind:     bus.KindBotStatusChange,
			ShardID:  s.id,
			Username: models.TruncatedUsername(b.Username()),
			State:    b.State(),
		})
	}
}

// healthCheck walks the partition: stranded bots get a reconnect
// scheduled, and accounts without a live bot whose failure cooldown
// elapsed get a fresh initialization attempt.
func (s *Shard) healthCheck(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var stranded []*bot.Bot
	for _, b := range s.bots {
		if !b.IsError() && !b.IsDisconnected() {
			continue
		}
		rs := b.GetReconnectStatus()
		if rs.Scheduled || rs.PermanentlyFailed {
			continue
		}
		if until, ok := s.throttledUntil[b.Username()]; ok && now.Before(until) {
			continue
		}
		stranded = append(stranded, b)
	}

	var retry []models.Account
	for _, acct := range s.accounts {
		if _, alive := s.bots[acct.Username]; alive {
			continue
		}
		if s.dropped[acct.Username] {
			continue
		}
		if until, ok := s.throttledUntil[acct.Username]; ok {
			if now.Before(until) {
				continue
			}
			delete(s.throttledUntil, acct.Username)
		}
		if failed, ok := s.failedAt[acct.Username]; ok && now.Sub(failed) < config.AccountThrottleCooldown {
			continue
		}
		retry = append(retry, acct)
	}
	s.mu.Unlock()

	for _, b := range stranded {
		b.ScheduleReconnect()
	}
	for _, acct := range retry {
		s.wg.Add(1)
		go func(acct models.Account) {
			defer s.wg.Done()
			s.initAccount(ctx, acct)
		}(acct)
	}
}

// publishStats emits the periodic stats snapshot and refreshes the
// per-shard state gauges.
func (s *Shard) publishStats() {
	stats := s.snapshot()
	for state, n := range stats.BotsByState {
		metrics.BotsByState.WithLabelValues(strconv.Itoa(s.id), state).Set(float64(n))
	}
	_ = s.b.Publish(bus.ManagerTopic(), bus.Envelope{
		Kind:    bus.KindStats,
		ShardID: s.id,
		Stats:   &stats,
	})
}

func (s *Shard) snapshot() models.ShardStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.ShardStats{
		ShardID:     s.id,
		BotsByState: make(map[string]int),
		Bots:        make([]models.BotStatusRow, 0, len(s.bots)),
	}
	for _, b := range s.bots {
		state := b.State()
		stats.BotsByState[state.String()]++
		if state == models.BotReady {
			stats.ReadyCount++
		}
		stats.Bots = append(stats.Bots, models.BotStatusRow{
			Username:        models.TruncatedUsername(b.Username()),
			State:           state.String(),
			Counters:        b.Counters(),
			ReconnectStatus: b.GetReconnectStatus(),
		})
	}
	return stats
}

// shutdown destroys every bot best-effort (a failed Destroy never blocks
// the others) and reports completion to the manager.
func (s *Shard) shutdown() {
	s.mu.Lock()
	all := make([]*bot.Bot, 0, len(s.bots))
	for _, b := range s.bots {
		all = append(all, b)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, b := range all {
		wg.Add(1)
		go func(b *bot.Bot) {
			defer wg.Done()
			if err := b.Destroy(); err != nil {
				logging.Warn().Err(err).Str("username", models.TruncatedUsername(b.Username())).Msg("Bot destroy failed")
			}
		}(b)
	}
	wg.Wait()

	_ = s.b.Publish(bus.ManagerTopic(), bus.Envelope{
		Kind:    bus.KindShutdownDone,
		ShardID: s.id,
	})
	logging.Info().Int("shard", s.id).Int("bots", len(all)).Msg("Shard shut down")
}

func classifyInspectError(err error) errs.Kind {
	var ge *errs.Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if kind, ok := models.ClassifyError(err); ok {
		switch kind {
		case models.ErrTransportDrop:
			return errs.KindTransportDrop
		case models.ErrInspectTimeout:
			return errs.KindInspectTimeout
		}
	}
	return errs.KindTransportDrop
}

