// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package models

import (
	"errors"
	"fmt"
)

// TransportError lets a GameTransport implementation report a classified
// ErrorKind alongside the underlying cause, so the bot state machine can
// branch on IsPermanent() without string-sniffing error messages.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err with kind.
func NewTransportError(kind ErrorKind, err error) *TransportError {
	return &TransportError{Kind: kind, Err: err}
}

// ClassifyError extracts the ErrorKind from err, if any transport error in
// its chain carries one.
func ClassifyError(err error) (ErrorKind, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
