// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package errs defines the gateway's error taxonomy: user
// errors surfaced as 4xx, transient inspect errors retried internally and
// surfaced as 504 if retries are exhausted, bot-permanent errors that are
// terminal for one bot but never surfaced to the caller, and
// infrastructure errors handled per collaborator.
package errs

import "errors"

// Kind is one taxonomy entry. Kinds are compared with errors.Is via the
// sentinel errors below, never by type name.
type Kind string

const (
	KindBadDescriptor   Kind = "BadDescriptor"
	KindQueueFull       Kind = "QueueFull"
	KindNoBotsReady     Kind = "NoBotsReady"
	KindInspectTimeout  Kind = "InspectTimeout"
	KindTransportDrop   Kind = "TransportDrop"
	KindShuttingDown    Kind = "ShuttingDown"
	KindPersistenceDown Kind = "PersistenceUnavailable"
	KindCacheDown       Kind = "CacheUnavailable"
)

// Error is a gateway error carrying its taxonomy Kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Msg
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrBadDescriptor  = New(KindBadDescriptor, "malformed inspect descriptor")
	ErrQueueFull      = New(KindQueueFull, "admission queue is at capacity")
	ErrNoBotsReady    = New(KindNoBotsReady, "no ready bots available")
	ErrInspectTimeout = New(KindInspectTimeout, "inspect deadline exceeded")
	ErrTransportDrop  = New(KindTransportDrop, "game transport dropped the connection")
	ErrShuttingDown   = New(KindShuttingDown, "gateway is shutting down")
)

// Is implements errors.Is comparison by Kind so wrapped/rebuilt errors of
// the same kind still match a sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// IsTransient reports whether kind is retried internally by the
// coordinator/manager rather than surfaced immediately.
func IsTransient(kind Kind) bool {
	switch kind {
	case KindNoBotsReady, KindInspectTimeout, KindTransportDrop:
		return true
	default:
		return false
	}
}

// StatusCode maps a Kind to the HTTP status the gateway returns for it.
func StatusCode(kind Kind) int {
	switch kind {
	case KindBadDescriptor:
		return 400
	case KindQueueFull:
		return 429
	case KindNoBotsReady, KindInspectTimeout, KindTransportDrop:
		return 504
	default:
		return 500
	}
}
