// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package bot implements the per-account state machine: login, inspect,
// cooldown, disconnect/reconnect with full-jitter backoff, and the
// permanent-error terminal state. Each bot's inspect calls run through
// a circuit breaker; a call the open breaker rejects is handled like any
// other failed inspect (Error state, reconnect scheduled).
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/metrics"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/transport"
)

// Config holds the timing parameters a Bot needs; all are sourced from
// internal/config.Config by the shard that owns the bot.
type Config struct {
	CooldownTime         time.Duration
	InspectTimeout       time.Duration
	MaxReconnectAttempts int
	BaseReconnectDelay   time.Duration
	MaxReconnectDelay    time.Duration
	// AccountThrottleCooldown is how long a LOGIN_THROTTLED account sits
	// out before the shard's health check retries it.
	AccountThrottleCooldown time.Duration
}

// Bot is one logged-in game account. It is owned exclusively by a single
// Worker Shard — the manager and other shards never hold a pointer to
// it, so the only real concurrency a Bot deals with internally is
// between its owning shard's goroutines and its own reconnect timers.
type Bot struct {
	mu sync.RWMutex

	username string
	account  models.Account
	proxyURL string
	factory  transport.Factory
	cfg      Config

	transport transport.GameTransport
	state     models.BotState
	counters  models.BotCounters
	reconnect models.ReconnectStatus
	lastErr   error

	cb *gobreaker.CircuitBreaker[models.ItemInfo]

	events chan Event

	cooldownTimer  *time.Timer
	reconnectTimer *time.Timer
	closed         bool
}

// New builds a Bot that has not yet been initialized (state Initializing).
func New(username string, account models.Account, proxyURL string, factory transport.Factory, cfg Config) *Bot {
	b := &Bot{
		username: username,
		account:  account,
		proxyURL: proxyURL,
		factory:  factory,
		cfg:      cfg,
		state:    models.BotInitializing,
		reconnect: models.ReconnectStatus{
			MaxAttempts:  cfg.MaxReconnectAttempts,
			CanReconnect: true,
		},
		events: make(chan Event, 32),
	}

	b.cb = gobreaker.NewCircuitBreaker[models.ItemInfo](gobreaker.Settings{
		Name:        "bot-" + username,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(models.TruncatedUsername(username)).Set(cbStateValue(to))
		},
	})

	return b
}

// Events returns the channel every state transition is reported on.
func (b *Bot) Events() <-chan Event { return b.events }

func (b *Bot) emit(ev Event) {
	ev.Username = b.username
	select {
	case b.events <- ev:
	default:
		// a slow/absent consumer must never block the bot's own state
		// machine; dropping a stats-adjacent event is preferable to a
		// stuck shard.
	}
}

func (b *Bot) setState(s models.BotState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *Bot) State() models.BotState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bot) IsReady() bool             { return b.State() == models.BotReady }
func (b *Bot) IsBusy() bool              { return b.State() == models.BotBusy }
func (b *Bot) IsCooldown() bool          { return b.State() == models.BotCooldown }
func (b *Bot) IsDisconnected() bool      { return b.State() == models.BotDisconnected }
func (b *Bot) IsError() bool             { return b.State() == models.BotError }
func (b *Bot) IsPermanentlyFailed() bool { return b.State() == models.BotPermanentlyFailed }

func (b *Bot) Username() string { return b.username }

func (b *Bot) Counters() models.BotCounters {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.counters
}

func (b *Bot) GetReconnectStatus() models.ReconnectStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reconnect
}

// Initialize logs the bot in. Permanent transport errors terminate the
// bot; LOGIN_THROTTLED parks it in Cooldown for AccountThrottleCooldown
// and the shard is expected to skip it from its partition meanwhile.
func (b *Bot) Initialize(ctx context.Context) error {
	sess := b.factory()
	if err := sess.Login(ctx, b.account, b.proxyURL); err != nil {
		return b.handleLoginError(sess, err)
	}

	b.mu.Lock()
	b.transport = sess
	b.mu.Unlock()

	b.setState(models.BotReady)
	b.emit(Event{Kind: EventReady})
	go b.watchTransport(sess)
	return nil
}

// watchTransport consumes the session's asynchronous event stream: a
// transport drop or reported error arriving between inspect calls moves
// the bot out of Ready/Busy and into the reconnect path.
func (b *Bot) watchTransport(sess transport.GameTransport) {
	for ev := range sess.Events() {
		b.mu.RLock()
		closed := b.closed
		current := b.transport
		b.mu.RUnlock()
		if closed || current != sess {
			return
		}

		switch ev.Kind {
		case transport.EventDisconnected:
			b.setState(models.BotDisconnected)
			b.emit(Event{Kind: EventDisconnected})
			b.ScheduleReconnect()
		case transport.EventError:
			if ev.Err.IsPermanent() {
				b.setState(models.BotPermanentlyFailed)
				b.mu.Lock()
				b.reconnect.PermanentlyFailed = true
				b.reconnect.CanReconnect = false
				b.mu.Unlock()
				b.emit(Event{Kind: EventPermanentlyFailed})
				return
			}
			b.setState(models.BotError)
			b.emit(Event{Kind: EventError})
			b.ScheduleReconnect()
		}
	}
}

func (b *Bot) handleLoginError(sess transport.GameTransport, err error) error {
	kind, classified := models.ClassifyError(err)

	switch {
	case classified && kind.IsPermanent():
		b.setState(models.BotPermanentlyFailed)
		b.mu.Lock()
		b.lastErr = err
		b.reconnect.PermanentlyFailed = true
		b.reconnect.CanReconnect = false
		b.mu.Unlock()
		b.emit(Event{Kind: EventPermanentlyFailed, Err: err})
		_ = sess.Close()
		return err

	case classified && kind == models.ErrLoginThrottled:
		b.setState(models.BotCooldown)
		b.scheduleCooldown(b.cfg.AccountThrottleCooldown)
		_ = sess.Close()
		return err

	default:
		b.setState(models.BotError)
		b.mu.Lock()
		b.lastErr = err
		b.mu.Unlock()
		b.emit(Event{Kind: EventError, Err: err})
		_ = sess.Close()
		return err
	}
}

// BeginInspect atomically claims a Ready bot for one inspect, moving it
// to Busy. Two dispatch goroutines racing for the same bot can both see
// it Ready; only one wins the claim.
func (b *Bot) BeginInspect() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != models.BotReady {
		return false
	}
	b.state = models.BotBusy
	return true
}

// Inspect drives one inspect round-trip, enforcing InspectTimeout and
// routing the call through the bot's circuit breaker. The shard claims
// the bot with BeginInspect before calling Inspect.
func (b *Bot) Inspect(ctx context.Context, owner, assetID, proof uint64) (models.ItemInfo, error) {
	b.setState(models.BotBusy)

	cctx, cancel := context.WithTimeout(ctx, b.cfg.InspectTimeout)
	defer cancel()

	item, err := b.cb.Execute(func() (models.ItemInfo, error) {
		b.mu.RLock()
		sess := b.transport
		b.mu.RUnlock()
		return sess.Inspect(cctx, owner, assetID, proof)
	})

	if err != nil {
		return b.handleInspectError(err)
	}

	b.mu.Lock()
	b.counters.InspectCount++
	b.counters.SuccessCount++
	b.counters.LastInspectTime = time.Now()
	b.mu.Unlock()

	b.scheduleCooldown(b.cfg.CooldownTime)
	b.emit(Event{Kind: EventInspected, Item: &item})
	return item, nil
}

func (b *Bot) handleInspectError(err error) (models.ItemInfo, error) {
	b.mu.Lock()
	b.counters.InspectCount++
	b.counters.FailureCount++
	b.mu.Unlock()

	if errors.Is(err, context.DeadlineExceeded) {
		b.scheduleCooldown(b.cfg.CooldownTime)
		return models.ItemInfo{}, errs.ErrInspectTimeout
	}

	kind, classified := models.ClassifyError(err)
	switch {
	case classified && kind.IsPermanent():
		b.setState(models.BotPermanentlyFailed)
		b.emit(Event{Kind: EventPermanentlyFailed, Err: err})
		return models.ItemInfo{}, err
	case classified && kind == models.ErrTransportDrop:
		b.setState(models.BotDisconnected)
		b.emit(Event{Kind: EventDisconnected, Err: err})
		b.ScheduleReconnect()
		return models.ItemInfo{}, fmt.Errorf("%w: %v", errs.ErrTransportDrop, err)
	default:
		b.setState(models.BotError)
		b.emit(Event{Kind: EventError, Err: err})
		b.ScheduleReconnect()
		return models.ItemInfo{}, err
	}
}

// scheduleCooldown parks the bot in Cooldown for d, returning it to Ready
// once it elapses.
func (b *Bot) scheduleCooldown(d time.Duration) {
	b.setState(models.BotCooldown)
	b.mu.Lock()
	if b.cooldownTimer != nil {
		b.cooldownTimer.Stop()
	}
	b.cooldownTimer = time.AfterFunc(d, func() {
		b.mu.RLock()
		closed := b.closed
		b.mu.RUnlock()
		if !closed {
			b.setState(models.BotReady)
		}
	})
	b.mu.Unlock()
}

// ScheduleReconnect arms the reconnect timer with full-jitter
// exponential backoff: delay = min(max, base*2^attempt) * rand(0.5, 1.0).
// The shard's health check also calls this directly for bots it finds
// stranded in Error/Disconnected with nothing scheduled.
func (b *Bot) ScheduleReconnect() {
	b.mu.Lock()
	if b.reconnect.PermanentlyFailed || !b.reconnect.CanReconnect {
		b.mu.Unlock()
		return
	}
	attempt := b.reconnect.Attempts
	if attempt >= b.cfg.MaxReconnectAttempts {
		b.mu.Unlock()
		b.setState(models.BotPermanentlyFailed)
		b.mu.Lock()
		b.reconnect.PermanentlyFailed = true
		b.reconnect.CanReconnect = false
		b.mu.Unlock()
		b.emit(Event{Kind: EventMaxReconnectAttemptsReached, Attempt: attempt, MaxAttempts: b.cfg.MaxReconnectAttempts})
		b.emit(Event{Kind: EventPermanentlyFailed})
		return
	}

	delay := backoffDelay(b.cfg.BaseReconnectDelay, b.cfg.MaxReconnectDelay, attempt)
	b.reconnect.Attempts = attempt + 1
	b.reconnect.Scheduled = true
	b.reconnect.NextAttemptAt = time.Now().Add(delay)
	b.mu.Unlock()

	b.emit(Event{Kind: EventReconnectScheduled, Attempt: attempt + 1, MaxAttempts: b.cfg.MaxReconnectAttempts, Delay: delay})

	b.mu.Lock()
	if b.reconnectTimer != nil {
		b.reconnectTimer.Stop()
	}
	b.reconnectTimer = time.AfterFunc(delay, b.reconnectNow)
	b.mu.Unlock()
}

func (b *Bot) reconnectNow() {
	b.mu.RLock()
	closed := b.closed
	attempt := b.reconnect.Attempts
	b.mu.RUnlock()
	if closed {
		return
	}

	b.emit(Event{Kind: EventReconnecting, Attempt: attempt})

	if err := b.Initialize(context.Background()); err != nil {
		b.ScheduleReconnect()
		return
	}

	b.mu.Lock()
	b.reconnect.Attempts = 0
	b.reconnect.Scheduled = false
	b.mu.Unlock()
	b.emit(Event{Kind: EventReconnected})
}

// ForceReconnect triggers an out-of-band reconnect attempt (admin
// command), bypassing the scheduled timer.
func (b *Bot) ForceReconnect() {
	b.mu.Lock()
	if b.reconnectTimer != nil {
		b.reconnectTimer.Stop()
	}
	permanentlyFailed := b.reconnect.PermanentlyFailed
	b.mu.Unlock()
	if permanentlyFailed {
		return
	}
	go b.reconnectNow()
}

// Destroy tears the bot's session down best-effort; it is not
// guaranteed to be called on already-permanently-failed bots during
// normal shutdown.
func (b *Bot) Destroy() error {
	b.mu.Lock()
	b.closed = true
	if b.cooldownTimer != nil {
		b.cooldownTimer.Stop()
	}
	if b.reconnectTimer != nil {
		b.reconnectTimer.Stop()
	}
	sess := b.transport
	b.mu.Unlock()

	if sess != nil {
		return sess.Close()
	}
	return nil
}

func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	capped := base * time.Duration(1<<uint(attempt))
	if capped > maxDelay || capped <= 0 {
		capped = maxDelay
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(capped) * jitter)
}

func cbStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
