// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

func TestAdd_RejectsAtCapacity(t *testing.T) {
	q := New(2)

	_, coalesced, err := q.Add(1, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, coalesced)

	_, coalesced, err = q.Add(2, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, coalesced)

	_, _, err = q.Add(3, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Second))
	require.ErrorIs(t, err, errs.ErrQueueFull)
}

func TestAdd_CoalescesSameAsset(t *testing.T) {
	q := New(10)

	ch1, coalesced, err := q.Add(42, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, coalesced)

	ch2, coalesced, err := q.Add(42, 1, 1, 0, models.PriorityHigh, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.True(t, coalesced)

	assert.Equal(t, 1, q.Size())

	q.Complete(42, Result{Item: models.ItemInfo{ItemID: 42}})

	r1 := <-ch1
	r2 := <-ch2
	assert.Equal(t, uint64(42), r1.Item.ItemID)
	assert.Equal(t, uint64(42), r2.Item.ItemID)
}

func TestNext_PriorityOrder(t *testing.T) {
	q := New(10)
	_, _, _ = q.Add(1, 1, 1, 0, models.PriorityLow, time.Now().Add(time.Minute))
	_, _, _ = q.Add(2, 1, 1, 0, models.PriorityHigh, time.Now().Add(time.Minute))
	_, _, _ = q.Add(3, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Minute))

	ctx := context.Background()
	first, ok := q.Next(ctx)
	require.True(t, ok)
	assert.EqualValues(t, 2, first.AssetID)

	second, ok := q.Next(ctx)
	require.True(t, ok)
	assert.EqualValues(t, 3, second.AssetID)

	third, ok := q.Next(ctx)
	require.True(t, ok)
	assert.EqualValues(t, 1, third.AssetID)
}

func TestExpire_DeliversTimeoutToWaiters(t *testing.T) {
	q := New(10)
	var timedOut uint64
	q.OnTimeout = func(assetID uint64) { timedOut = assetID }

	ch, _, err := q.Add(7, 1, 1, 0, models.PriorityNormal, time.Now().Add(10*time.Millisecond))
	require.NoError(t, err)

	r := <-ch
	require.Error(t, r.Err)
	assert.EqualValues(t, 7, timedOut)
	assert.Zero(t, q.Size())
}

func TestRequeue_PreservesWaitersAndBumpsRetryCount(t *testing.T) {
	q := New(10)
	ch, _, err := q.Add(9, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)

	entry, ok := q.Next(context.Background())
	require.True(t, ok)
	assert.EqualValues(t, 9, entry.AssetID)

	require.True(t, q.Requeue(9))

	entry2, ok := q.Next(context.Background())
	require.True(t, ok)
	assert.EqualValues(t, 9, entry2.AssetID)
	assert.Equal(t, 1, entry2.RetryCount)

	q.Complete(9, Result{Item: models.ItemInfo{ItemID: 9}})
	r := <-ch
	assert.Equal(t, uint64(9), r.Item.ItemID)
}

func TestComplete_ReturnsResolvedEntry(t *testing.T) {
	q := New(10)
	_, _, err := q.Add(11, 1, 1, 0, models.PriorityHigh, time.Now().Add(time.Minute))
	require.NoError(t, err)

	entry, ok := q.Complete(11, Result{Item: models.ItemInfo{ItemID: 11}})
	require.True(t, ok)
	assert.EqualValues(t, 11, entry.AssetID)
	assert.Equal(t, models.PriorityHigh, entry.Priority)

	_, ok = q.Complete(11, Result{})
	assert.False(t, ok, "second completion must report the entry as gone")
}

func TestFailAll_ReleasesEveryWaiter(t *testing.T) {
	q := New(10)
	ch1, _, err := q.Add(21, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)
	ch2, _, err := q.Add(22, 1, 1, 0, models.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)

	q.FailAll(errs.ErrShuttingDown)

	r1 := <-ch1
	r2 := <-ch2
	assert.ErrorIs(t, r1.Err, errs.ErrShuttingDown)
	assert.ErrorIs(t, r2.Err, errs.ErrShuttingDown)
	assert.Zero(t, q.Size())
}

func TestEntry_ReturnsResidentCopy(t *testing.T) {
	q := New(10)
	_, _, err := q.Add(31, 1, 1, 0, models.PriorityLow, time.Now().Add(time.Minute))
	require.NoError(t, err)

	entry, ok := q.Entry(31)
	require.True(t, ok)
	assert.Equal(t, models.PriorityLow, entry.Priority)

	_, ok = q.Entry(99)
	assert.False(t, ok)
}
