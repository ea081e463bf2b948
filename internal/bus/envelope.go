// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package bus

import "github.com/BCSkins-com/bcskins-inspect/internal/models"

// Kind discriminates the Envelope sum type: one struct carries every
// message shape, and Kind says which fields are meaningful.
type Kind string

const (
	// Manager -> shard
	KindInspect      Kind = "inspect"
	KindGetStats     Kind = "getStats"
	KindShutdown     Kind = "shutdown"
	KindReconnectBot Kind = "reconnectBot"
	KindReconnectAll Kind = "reconnectAll"
	KindHealthCheck  Kind = "healthCheck"

	// Shard -> manager
	KindInspectResult   Kind = "inspectResult"
	KindInspectError    Kind = "inspectError"
	KindBotStatusChange Kind = "botStatusChange"
	KindBotInitialized  Kind = "botInitialized"
	KindStats           Kind = "stats"
	KindShutdownDone    Kind = "shutdownDone"
)

// Envelope is the single wire type every bus message is encoded as.
type Envelope struct {
	Kind      Kind   `json:"kind"`
	ShardID   int    `json:"shard_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	AssetID  uint64          `json:"asset_id,omitempty"`
	Owner    uint64          `json:"owner,omitempty"`
	Proof    uint64          `json:"proof,omitempty"`
	MarketID uint64          `json:"market_id,omitempty"`
	Priority models.Priority `json:"priority,omitempty"`

	Item      *models.ItemInfo `json:"item,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`

	Username string          `json:"username,omitempty"`
	State    models.BotState `json:"state,omitempty"`

	Stats *models.ShardStats `json:"stats,omitempty"`
}
