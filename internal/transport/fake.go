// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package transport

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// FakeTransport is a deterministic, in-memory GameTransport used when no
// real game-client library is wired in (the default, and what the test
// suite drives against). Every field of the returned ItemInfo is derived
// from the request's (owner, assetID, proof), so repeated inspects of the
// same asset always yield the same result.
type FakeTransport struct {
	// FailLogin, when set, makes Login return this error instead of
	// succeeding — used to exercise ACCOUNT_DISABLED / INVALID_PASSWORD
	// initialization handling in bot tests.
	FailLogin error

	// FailInspect, when set, makes the next Inspect call return this
	// error instead of a result, then clears itself.
	FailInspect error

	events chan Event
	closed bool
}

// NewFakeTransport builds a ready-to-use fake session.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{events: make(chan Event, 8)}
}

func (f *FakeTransport) Login(_ context.Context, _ models.Account, _ string) error {
	return f.FailLogin
}

func (f *FakeTransport) Inspect(_ context.Context, owner, assetID, proof uint64) (models.ItemInfo, error) {
	if f.FailInspect != nil {
		err := f.FailInspect
		f.FailInspect = nil
		return models.ItemInfo{}, err
	}

	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%d-%d-%d", owner, assetID, proof)
	seed := h.Sum32()

	return models.ItemInfo{
		AccountID:     uint32(owner),
		ItemID:        assetID,
		DefIndex:      seed % 2000,
		PaintIndex:    (seed / 7) % 1000,
		Rarity:        (seed % 6) + 1,
		Quality:       4,
		HasPaintWear:  true,
		HasPaintSeed:  true,
		HasPaintIndex: true,
		PaintWear:     float64(seed%1000) / 1000.0,
		PaintSeed:     seed % 1000,
		Stickers:      nil,
		Keychains:     nil,
		Inventory:     1,
		Origin:        (seed % 8) + 1,
	}, nil
}

// Events returns the fake's (normally empty) asynchronous event channel.
// Tests that want to exercise disconnect/error handling send on it
// directly via Emit.
func (f *FakeTransport) Events() <-chan Event {
	return f.events
}

// Emit injects an asynchronous event, simulating a transport drop or
// reported error arriving outside of an Inspect call.
func (f *FakeTransport) Emit(ev Event) {
	if !f.closed {
		f.events <- ev
	}
}

func (f *FakeTransport) Close() error {
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}
