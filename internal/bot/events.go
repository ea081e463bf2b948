// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package bot

import (
	"time"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// EventKind discriminates Event: the bot is an explicit state machine
// that writes typed events to a channel instead of firing callbacks.
type EventKind string

const (
	EventReady                      EventKind = "ready"
	EventInspected                  EventKind = "inspected"
	EventDisconnected               EventKind = "disconnected"
	EventReconnectScheduled         EventKind = "reconnectScheduled"
	EventReconnecting               EventKind = "reconnecting"
	EventReconnected                EventKind = "reconnected"
	EventMaxReconnectAttemptsReached EventKind = "maxReconnectAttemptsReached"
	EventPermanentlyFailed          EventKind = "permanentlyFailed"
	EventError                      EventKind = "error"
)

// Event is the single message type a Bot ever writes to its event
// channel; Kind says which fields are meaningful.
type Event struct {
	Kind     EventKind
	Username string

	Item *models.ItemInfo
	Err  error

	Attempt     int
	MaxAttempts int
	Delay       time.Duration
}
