// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package parser implements the steam inspect link grammar
// and the descriptor validation the HTTP layer needs before admitting a
// request.
package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// linkPattern matches either "S{owner}A{asset}D{proof}" or
// "M{market}A{asset}D{proof}" anywhere in a percent-decoded inspect link.
// The leading space the grammar requires before S/M is not part of the
// capture (it may or may not still be present after decoding).
var linkPattern = regexp.MustCompile(`(?:S(\d+)|M(\d+))A(\d+)D(\d+)`)

var validate = validator.New()

// ParseLink parses a full steam inspect-link URL
// ("steam://rungame/730/{id}/+csgo_econ_action_preview S{owner}A{asset}D{proof}"
// or the M-prefixed market variant) into a Descriptor.
func ParseLink(raw string) (models.Descriptor, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	m := linkPattern.FindStringSubmatch(decoded)
	if m == nil {
		return models.Descriptor{}, fmt.Errorf("%w: no S/M A D triple found in link", errs.ErrBadDescriptor)
	}

	var d models.Descriptor
	if m[1] != "" {
		d.S, err = strconv.ParseUint(m[1], 10, 64)
	} else {
		d.M, err = strconv.ParseUint(m[2], 10, 64)
	}
	if err != nil {
		return models.Descriptor{}, fmt.Errorf("%w: %v", errs.ErrBadDescriptor, err)
	}
	if d.A, err = strconv.ParseUint(m[3], 10, 64); err != nil {
		return models.Descriptor{}, fmt.Errorf("%w: %v", errs.ErrBadDescriptor, err)
	}
	if d.D, err = strconv.ParseUint(m[4], 10, 64); err != nil {
		return models.Descriptor{}, fmt.Errorf("%w: %v", errs.ErrBadDescriptor, err)
	}

	return d, Validate(d)
}

// Format renders a Descriptor back into its canonical steam inspect link,
// the inverse of ParseLink for well-formed descriptors
// (parse(format(desc)) == desc).
func Format(d models.Descriptor) string {
	const previewPrefix = "steam://rungame/730/76561202255233023/+csgo_econ_action_preview"
	if d.IsMarketItem() {
		return fmt.Sprintf("%s M%dA%dD%d", previewPrefix, d.M, d.A, d.D)
	}
	return fmt.Sprintf("%s S%dA%dD%d", previewPrefix, d.S, d.A, d.D)
}

// Validate checks struct-level tags plus the "exactly one of S, M" cross
// field invariant the tags alone can't express (required_without only
// guarantees "at least one").
func Validate(d models.Descriptor) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBadDescriptor, err)
	}
	if (d.S != 0) == (d.M != 0) {
		return fmt.Errorf("%w: exactly one of s, m must be non-zero", errs.ErrBadDescriptor)
	}
	return nil
}
