// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package models

// ShardStats is one shard's contribution to a fleet snapshot.
type ShardStats struct {
	ShardID     int            `json:"shardId"`
	BotsByState map[string]int `json:"botsByState"`
	Bots        []BotStatusRow `json:"bots"`
	ReadyCount  int            `json:"readyCount"`
}

// Percentiles holds p50/p95/p99 response-time readings in milliseconds.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// FleetMetrics is the derived, per-snapshot view returned by /stats.
type FleetMetrics struct {
	Shards []ShardStats `json:"shards"`

	BotsByState map[string]int `json:"botsByState"`
	TotalBots   int            `json:"totalBots"`
	ReadyBots   int            `json:"readyBots"`

	QueueSize       int                  `json:"queueSize"`
	QueueByPriority map[string]int       `json:"queueByPriority"`
	QueueEntries    []QueueSnapshotEntry `json:"queueEntries,omitempty"`

	Success           int64 `json:"success"`
	Cached            int64 `json:"cached"`
	Failed            int64 `json:"failed"`
	Timeouts          int64 `json:"timeouts"`
	Retried           int64 `json:"retried"`
	SuccessAfterRetry int64 `json:"successAfterRetry"`

	ResponseTimeAllTime Percentiles `json:"responseTimeAllTimeMs"`
	ResponseTimeWindow  Percentiles `json:"responseTimeWindowMs"`
}
