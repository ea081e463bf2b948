// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package formatter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

func TestFormat_WearNames(t *testing.T) {
	cases := []struct {
		wear float64
		want string
	}{
		{0.01, "Factory New"},
		{0.08, "Minimal Wear"},
		{0.20, "Field-Tested"},
		{0.40, "Well-Worn"},
		{0.80, "Battle-Scarred"},
	}
	for _, tc := range cases {
		item := models.ItemInfo{HasPaintWear: true, PaintWear: tc.wear}
		resp := Format(models.Descriptor{S: 1, A: 2, D: 3}, item, "deadbeef")
		assert.Equal(t, tc.want, resp.Iteminfo.WearName, "wear %v", tc.wear)
	}
}

func TestFormat_NoWearNameWithoutWear(t *testing.T) {
	resp := Format(models.Descriptor{S: 1, A: 2, D: 3}, models.ItemInfo{}, "deadbeef")
	assert.Empty(t, resp.Iteminfo.WearName)
}

func TestFormat_EmptyAttachmentArraysNotNull(t *testing.T) {
	resp := Format(models.Descriptor{S: 1, A: 2, D: 3}, models.ItemInfo{}, "deadbeef")

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stickers":[]`)
	assert.Contains(t, string(data), `"keychains":[]`)
}

func TestFormat_DescriptorFieldsAsStrings(t *testing.T) {
	d := models.Descriptor{S: 76561198000000001, A: 42, D: 99}
	resp := Format(d, models.ItemInfo{}, "deadbeef")

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"s":"76561198000000001"`)
	assert.Contains(t, string(data), `"a":"42"`)
}
