// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package models

import "time"

// Priority ranks queue entries; High beats Normal beats Low, ties break by
// insertion time (enqueuedAt).
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// QueueEntry is one admission-queue entry, keyed uniquely by AssetID. A
// second submission for the same asset coalesces onto the existing entry
// rather than creating a duplicate.
type QueueEntry struct {
	AssetID    uint64
	Owner      uint64
	Proof      uint64
	MarketID   uint64
	EnqueuedAt time.Time
	Deadline   time.Time
	Priority   Priority
	RetryCount int
}

// QueueSnapshotEntry is the read-only projection of a QueueEntry exposed by
// Queue.Metrics().
type QueueSnapshotEntry struct {
	AssetID    uint64    `json:"assetId"`
	Priority   string    `json:"priority"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Deadline   time.Time `json:"deadline"`
	RetryCount int       `json:"retryCount"`
	Waiters    int       `json:"waiters"`
}
