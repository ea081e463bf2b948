// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleAsset() models.AssetRecord {
	return models.AssetRecord{
		UniqueID:   "ab12cd34",
		AssetID:    1001,
		Owner:      76561198000000001,
		DefIndex:   7,
		PaintIndex: 44,
		PaintSeed:  661,
		PaintWear:  0.07,
		Origin:     2,
		Rarity:     5,
		Stickers:   []models.StickerInfo{{Slot: 0, ID: 202, Wear: 0.05}},
		UpdatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestUpsertAsset_IdempotentByUniqueID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleAsset()
	require.NoError(t, s.UpsertAsset(ctx, rec))
	require.NoError(t, s.UpsertAsset(ctx, rec))

	got, err := s.FindAsset(ctx, rec.AssetID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.UniqueID, got.UniqueID)
	assert.Equal(t, rec.PaintWear, got.PaintWear)
	require.Len(t, got.Stickers, 1)
	assert.EqualValues(t, 202, got.Stickers[0].ID)
}

func TestFindAsset_MissingIsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.FindAsset(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindPriorAsset_ExcludesCurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleAsset()
	require.NoError(t, s.UpsertAsset(ctx, rec))

	// same attribute tuple, later sighting under a new asset id
	later := rec
	later.UniqueID = rec.UniqueID // same item, same upsert key
	later.AssetID = 2002

	prior, err := s.FindPriorAsset(ctx, later, later.AssetID)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.EqualValues(t, 1001, prior.AssetID)

	// the current asset id never matches itself
	self, err := s.FindPriorAsset(ctx, rec, rec.AssetID)
	require.NoError(t, err)
	assert.Nil(t, self)
}

func TestInsertHistory_UniquePerAsset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := models.HistoryRecord{
		UniqueID:  "ab12cd34",
		AssetID:   1001,
		EventType: models.HistoryUnboxed,
		NewOwner:  76561198000000001,
		CreatedAt: time.Now().UTC(),
	}

	inserted, err := s.InsertHistory(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertHistory(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate (uniqueId, assetId) must be a no-op")

	events, err := s.HistoryFor(ctx, rec.UniqueID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.HistoryUnboxed, events[0].EventType)
}
