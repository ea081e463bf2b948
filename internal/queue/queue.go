// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package queue implements the bounded priority admission queue. It
// doubles as the fleet-wide in-flight de-dup table: an assetId resident
// in the byAsset map, whether still waiting for dispatch or already
// handed to a bot, can never have a second physical inspect started for
// it. Keeping admission and de-dup in one structure avoids holding two
// maps in sync for the same guarantee.
//
// Entries order by (priority, enqueuedAt) on a container/heap with an
// index field per entry and a parallel by-key map for O(1) coalesce
// lookups.
package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/metrics"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// Result is delivered to every waiter coalesced onto an entry once it
// resolves, successfully or not.
type Result struct {
	Item models.ItemInfo
	Err  error
}

type entry struct {
	models.QueueEntry
	waiters []chan Result
	index   int
	timer   *time.Timer
}

// Queue is the bounded, priority-ordered admission queue.
type Queue struct {
	mu      sync.Mutex
	h       queueHeap
	byAsset map[uint64]*entry
	maxSize int
	notify  chan struct{}

	// OnTimeout is invoked (if set) whenever an entry expires before
	// dispatch or completion, for the manager's `timeouts` counter.
	OnTimeout func(assetID uint64)
}

// New builds a Queue bounded to maxSize resident entries.
func New(maxSize int) *Queue {
	return &Queue{
		byAsset: make(map[uint64]*entry),
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
	}
}

// Add admits a request. If assetID is already resident, the caller's
// completion coalesces onto the existing entry instead of creating a
// duplicate — the second return value reports which happened.
func (q *Queue) Add(assetID, owner, proof, marketID uint64, priority models.Priority, deadline time.Time) (<-chan Result, bool, error) {
	q.mu.Lock()

	if e, ok := q.byAsset[assetID]; ok {
		ch := make(chan Result, 1)
		e.waiters = append(e.waiters, ch)
		q.mu.Unlock()
		return ch, true, nil
	}

	if len(q.byAsset) >= q.maxSize {
		q.mu.Unlock()
		metrics.QueueFullTotal.Inc()
		return nil, false, fmt.Errorf("%w: admission queue at capacity (%d)", errs.ErrQueueFull, q.maxSize)
	}

	e := &entry{
		QueueEntry: models.QueueEntry{
			AssetID:    assetID,
			Owner:      owner,
			Proof:      proof,
			MarketID:   marketID,
			EnqueuedAt: time.Now(),
			Deadline:   deadline,
			Priority:   priority,
		},
		index: -1,
	}
	ch := make(chan Result, 1)
	e.waiters = []chan Result{ch}

	q.byAsset[assetID] = e
	heap.Push(&q.h, e)
	e.timer = time.AfterFunc(time.Until(deadline), func() { q.expire(assetID) })

	metrics.QueueSize.Set(float64(len(q.byAsset)))
	q.mu.Unlock()
	q.signal()

	return ch, false, nil
}

// Next blocks until an un-dispatched entry is available (by priority,
// then insertion order) or ctx is cancelled. The entry is removed from
// the dispatch order but stays resident (for coalescing/timeout) until
// Complete or Requeue is called.
func (q *Queue) Next(ctx context.Context) (*models.QueueEntry, bool) {
	for {
		q.mu.Lock()
		if len(q.h) > 0 {
			e := heap.Pop(&q.h).(*entry)
			qe := e.QueueEntry
			q.mu.Unlock()
			return &qe, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Requeue pushes a dispatched entry back into priority order, for the
// manager's retry policy. The same waiters and deadline carry over;
// retryCount is bumped.
func (q *Queue) Requeue(assetID uint64) bool {
	q.mu.Lock()
	e, ok := q.byAsset[assetID]
	if !ok {
		q.mu.Unlock()
		return false
	}
	e.RetryCount++
	e.index = -1
	heap.Push(&q.h, e)
	q.mu.Unlock()

	q.signal()
	return true
}

// Complete resolves assetID, fanning result out to every coalesced
// waiter and releasing the entry. The resolved entry is returned so the
// caller can read its retry count and enqueue time; ok is false if the
// entry already expired or was never admitted — a late bot result for a
// timed-out request lands here and is discarded.
func (q *Queue) Complete(assetID uint64, result Result) (models.QueueEntry, bool) {
	q.mu.Lock()
	e, ok := q.byAsset[assetID]
	if !ok {
		q.mu.Unlock()
		return models.QueueEntry{}, false
	}
	delete(q.byAsset, assetID)
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.index >= 0 {
		heap.Remove(&q.h, e.index)
	}
	waiters := e.waiters
	entry := e.QueueEntry
	metrics.QueueSize.Set(float64(len(q.byAsset)))
	q.mu.Unlock()

	for _, ch := range waiters {
		ch <- result
		close(ch)
	}
	return entry, true
}

func (q *Queue) expire(assetID uint64) {
	q.mu.Lock()
	e, ok := q.byAsset[assetID]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.byAsset, assetID)
	if e.index >= 0 {
		heap.Remove(&q.h, e.index)
	}
	waiters := e.waiters
	metrics.QueueSize.Set(float64(len(q.byAsset)))
	q.mu.Unlock()

	if q.OnTimeout != nil {
		q.OnTimeout(assetID)
	}
	for _, ch := range waiters {
		ch <- Result{Err: errs.ErrInspectTimeout}
		close(ch)
	}
}

// Entry returns a copy of the resident entry for assetID, if any.
func (q *Queue) Entry(assetID uint64) (models.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byAsset[assetID]
	if !ok {
		return models.QueueEntry{}, false
	}
	return e.QueueEntry, true
}

// FailAll resolves every resident entry with err; used at shutdown so no
// waiter is left hanging.
func (q *Queue) FailAll(err error) {
	q.mu.Lock()
	entries := make([]*entry, 0, len(q.byAsset))
	for _, e := range q.byAsset {
		entries = append(entries, e)
	}
	q.byAsset = make(map[uint64]*entry)
	q.h = nil
	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	metrics.QueueSize.Set(0)
	q.mu.Unlock()

	for _, e := range entries {
		for _, ch := range e.waiters {
			ch <- Result{Err: err}
			close(ch)
		}
	}
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Size returns the number of resident entries (queued or dispatched, not
// yet completed).
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byAsset)
}

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byAsset) >= q.maxSize
}

// Metrics returns a snapshot of every resident entry.
func (q *Queue) Metrics() []models.QueueSnapshotEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.QueueSnapshotEntry, 0, len(q.byAsset))
	for _, e := range q.byAsset {
		out = append(out, models.QueueSnapshotEntry{
			AssetID:    e.AssetID,
			Priority:   e.Priority.String(),
			EnqueuedAt: e.EnqueuedAt,
			Deadline:   e.Deadline,
			RetryCount: e.RetryCount,
			Waiters:    len(e.waiters),
		})
	}
	return out
}

// queueHeap orders entries by (priority ascending, enqueuedAt ascending):
// high priority first, ties broken by arrival order.
type queueHeap []*entry

func (h queueHeap) Len() int { return len(h) }

func (h queueHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].EnqueuedAt.Before(h[j].EnqueuedAt)
}

func (h queueHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *queueHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *queueHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
