// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// NewRequestID mints a short, display-friendly request correlation id.
func NewRequestID() string {
	return uuid.New().String()[:8]
}

// ContextWithRequestID attaches id to ctx for later retrieval by request
// handlers and HTTP middleware.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
