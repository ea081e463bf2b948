// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package models holds the domain and wire types shared across the
// inspect gateway: the inbound descriptor, the item attributes a bot
// returns, bot/queue/fleet state, and the persisted asset/history rows.
package models

// Descriptor identifies a single in-game item to inspect. Exactly one of
// S (owner steam id) or M (market id) is non-zero; the parser and the
// validator both enforce this invariant.
type Descriptor struct {
	S uint64 `json:"s" validate:"required_without=M"`
	A uint64 `json:"a" validate:"required"`
	D uint64 `json:"d" validate:"required"`
	M uint64 `json:"m" validate:"required_without=S"`

	Refresh     bool `json:"refresh"`
	Reply       bool `json:"reply"`
	LowPriority bool `json:"lowPriority"`
}

// IsMarketItem reports whether the descriptor addresses a market listing
// (M set) rather than a player-owned asset (S set).
func (d Descriptor) IsMarketItem() bool {
	return d.M != 0
}

// Owner returns the owner/market identifier that is actually set.
func (d Descriptor) Owner() uint64 {
	if d.S != 0 {
		return d.S
	}
	return d.M
}
