// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package metrics exposes Prometheus instrumentation for the inspect
// gateway: a set of promauto-registered vectors consumed by the default
// registry and served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InspectRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspect_requests_total",
		Help: "Total inspect requests by outcome (success, cached, failed, timeout, retried).",
	}, []string{"outcome"})

	InspectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspect_duration_seconds",
		Help:    "Time from admission-queue enqueue to completion.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
	})

	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "admission_queue_size",
		Help: "Current number of entries resident in the admission queue.",
	})

	QueueFullTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "admission_queue_full_total",
		Help: "Number of submissions rejected because the admission queue was full.",
	})

	BotsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bots_by_state",
		Help: "Number of bots currently in each state, per shard.",
	}, []string{"shard", "state"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bot_circuit_breaker_state",
		Help: "Circuit breaker state per bot username (0=closed,1=half-open,2=open).",
	}, []string{"username"})

	ReconnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_reconnect_attempts_total",
		Help: "Total reconnect attempts made, per bot.",
	}, []string{"username"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspect_cache_hits_total",
		Help: "Cache hits served without dispatching a bot inspect.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspect_cache_misses_total",
		Help: "Cache misses that required dispatching a bot inspect.",
	})
)

// ObserveInspectDuration records a completed inspect's duration.
func ObserveInspectDuration(d time.Duration) {
	InspectDuration.Observe(d.Seconds())
}
