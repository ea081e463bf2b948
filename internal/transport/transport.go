// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package transport defines the game-protocol collaborator boundary
// and a deterministic fake implementation. The wire-level protocol lives
// in whatever game-client library gets plugged in; the gateway only
// needs a narrow interface to drive against, and a fake that behaves
// deterministically enough to exercise the bot state machine and shard
// logic in tests.
package transport

import (
	"context"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// EventKind classifies an asynchronous transport event not tied to a
// specific inspect call.
type EventKind string

const (
	EventDisconnected EventKind = "disconnected"
	EventError        EventKind = "error"
)

// Event is one asynchronous notification a logged-in session can raise
// between inspect calls.
type Event struct {
	Kind EventKind
	Err  models.ErrorKind
}

// GameTransport is the narrow contract a bot drives. The core owns all
// retry/backoff; GameTransport only performs the raw protocol actions.
type GameTransport interface {
	// Login authenticates cred, optionally through proxyURL. A permanent
	// failure must surface through err wrapping one of the ErrorKind
	// values IsPermanent() reports true for.
	Login(ctx context.Context, cred models.Account, proxyURL string) error

	// Inspect performs one inspect round-trip. The caller is responsible
	// for imposing INSPECT_TIMEOUT via ctx.
	Inspect(ctx context.Context, owner, assetID, proof uint64) (models.ItemInfo, error)

	// Events streams asynchronous disconnect/error notifications raised
	// outside of an Inspect call. Closed when the session is torn down.
	Events() <-chan Event

	// Close releases the session. Idempotent.
	Close() error
}

// Factory builds a GameTransport for a single bot session. A Bot calls
// Factory on every login attempt, including each reconnect.
type Factory func() GameTransport
