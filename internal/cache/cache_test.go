// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGet_MissOnEmpty(t *testing.T) {
	c := openTestCache(t)
	_, err := c.Get(42)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSetGet_RoundTrip(t *testing.T) {
	c := openTestCache(t)

	item := models.ItemInfo{
		ItemID:       42,
		DefIndex:     7,
		PaintIndex:   44,
		HasPaintWear: true,
		PaintWear:    0.07,
		Stickers:     []models.StickerInfo{{Slot: 0, ID: 202}},
	}
	require.NoError(t, c.Set(42, item))

	got, err := c.Get(42)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.ItemID)
	assert.Equal(t, 0.07, got.PaintWear)
	require.Len(t, got.Stickers, 1)
}

func TestDelete_RemovesEntry(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Set(7, models.ItemInfo{ItemID: 7}))
	require.NoError(t, c.Delete(7))

	_, err := c.Get(7)
	assert.ErrorIs(t, err, ErrMiss)

	// deleting a missing key is not an error
	assert.NoError(t, c.Delete(7))
}
