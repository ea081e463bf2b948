// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package coordinator is the public entry point for inspect requests:
// it checks the blacklist and cache, admits a request into the fleet,
// persists the result, classifies the history event, and hands the
// formatted response back to the HTTP layer.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BCSkins-com/bcskins-inspect/internal/cache"
	"github.com/BCSkins-com/bcskins-inspect/internal/config"
	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/formatter"
	"github.com/BCSkins-com/bcskins-inspect/internal/history"
	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/metrics"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/queue"
)

// Fleet is the narrow slice of the worker manager the coordinator needs.
type Fleet interface {
	Submit(owner, assetID, proof, marketID uint64, priority models.Priority) (<-chan queue.Result, bool, error)
	IncrementCached()
}

// Persistence is the asset/history store contract.
type Persistence interface {
	FindAsset(ctx context.Context, assetID uint64) (*models.AssetRecord, error)
	FindPriorAsset(ctx context.Context, rec models.AssetRecord, excludeAssetID uint64) (*models.AssetRecord, error)
	UpsertAsset(ctx context.Context, rec models.AssetRecord) error
	InsertHistory(ctx context.Context, rec models.HistoryRecord) (bool, error)
}

// ResultCache is the inspect-result cache contract; lookup errors are
// treated as misses.
type ResultCache interface {
	Get(assetID uint64) (models.ItemInfo, error)
	Set(assetID uint64, item models.ItemInfo) error
}

// Outcome is the coordinator's reply: either a completed item response,
// or an accepted-for-background acknowledgment (reply=false).
type Outcome struct {
	Accepted bool
	AssetID  uint64
	Item     *formatter.ItemResponse
}

// Coordinator wires the collaborators together for one process.
type Coordinator struct {
	cfg       *config.Config
	fleet     Fleet
	cache     ResultCache
	store     Persistence
	blacklist map[uint64]struct{}
}

// New builds a Coordinator. blacklist may be nil.
func New(cfg *config.Config, fleet Fleet, c ResultCache, s Persistence, blacklist map[uint64]struct{}) *Coordinator {
	if blacklist == nil {
		blacklist = map[uint64]struct{}{}
	}
	return &Coordinator{cfg: cfg, fleet: fleet, cache: c, store: s, blacklist: blacklist}
}

// InspectItem runs the full request flow for one parsed descriptor:
// blacklist, cache, fleet, persistence, history, formatting.
func (c *Coordinator) InspectItem(ctx context.Context, d models.Descriptor) (Outcome, error) {
	if _, banned := c.blacklist[d.A]; banned {
		return Outcome{}, fmt.Errorf("%w: asset %d is blacklisted", errs.ErrBadDescriptor, d.A)
	}

	refresh := d.Refresh && c.cfg.AllowRefresh
	if !refresh {
		item, err := c.cache.Get(d.A)
		switch {
		case err == nil:
			c.fleet.IncrementCached()
			resp := formatter.Format(d, item, UniqueID(item))
			return Outcome{AssetID: d.A, Item: &resp}, nil
		case !errors.Is(err, cache.ErrMiss):
			// a broken cache degrades to a miss, never a failed request
			logging.Warn().Err(err).Uint64("asset_id", d.A).Msg("Cache lookup failed")
		}
	}
	metrics.CacheMissesTotal.Inc()

	priority := models.PriorityNormal
	if d.LowPriority {
		priority = models.PriorityLow
	}

	ch, coalesced, err := c.fleet.Submit(d.Owner(), d.A, d.D, d.M, priority)
	if err != nil {
		return Outcome{}, err
	}
	if coalesced {
		logging.Debug().Uint64("asset_id", d.A).Msg("Coalesced onto in-flight inspect")
	}

	if !d.Reply {
		go c.completeBackground(d, ch)
		return Outcome{Accepted: true, AssetID: d.A}, nil
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return Outcome{}, res.Err
		}
		return c.finish(ctx, d, res.Item)
	case <-ctx.Done():
		return Outcome{}, errs.ErrShuttingDown
	}
}

// completeBackground drains a reply=false completion: results are
// persisted and cached exactly as in the foreground path, but errors
// are only logged; nobody is waiting on the response.
func (c *Coordinator) completeBackground(d models.Descriptor, ch <-chan queue.Result) {
	res, ok := <-ch
	if !ok {
		return
	}
	if res.Err != nil {
		logging.Warn().Err(res.Err).Uint64("asset_id", d.A).Msg("Background inspect failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.finish(ctx, d, res.Item); err != nil {
		logging.Warn().Err(err).Uint64("asset_id", d.A).Msg("Background result processing failed")
	}
}

// finish persists one successful inspect and formats the response.
func (c *Coordinator) finish(ctx context.Context, d models.Descriptor, item models.ItemInfo) (Outcome, error) {
	uniqueID := UniqueID(item)

	rec := models.AssetRecord{
		UniqueID:   uniqueID,
		AssetID:    d.A,
		Owner:      d.Owner(),
		DefIndex:   item.DefIndex,
		PaintIndex: item.PaintIndex,
		PaintSeed:  item.PaintSeed,
		PaintWear:  item.PaintWear,
		Origin:     item.Origin,
		QuestID:    item.QuestID,
		Rarity:     item.Rarity,
		Stickers:   item.Stickers,
		Keychains:  item.Keychains,
		UpdatedAt:  time.Now(),
	}

	// read the prior record before writing the current one, so the
	// classifier can never compare the item against itself
	prior, err := c.store.FindPriorAsset(ctx, rec, d.A)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", errs.KindPersistenceDown, err)
	}

	if err := c.store.UpsertAsset(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", errs.KindPersistenceDown, err)
	}

	// history requires the full attribute tuple; a result missing seed,
	// wear, or paint index is cached and returned but never logged
	if item.HasPaintSeed && item.HasPaintWear && item.HasPaintIndex {
		if event, loggable := history.Classify(history.Input{
			Owner:     d.Owner(),
			Origin:    models.InspectOrigin(item.Origin),
			Stickers:  item.Stickers,
			Keychains: item.Keychains,
		}, prior); loggable {
			prevOwner := uint64(0)
			if prior != nil {
				prevOwner = prior.Owner
			}
			inserted, err := c.store.InsertHistory(ctx, models.HistoryRecord{
				UniqueID:  uniqueID,
				AssetID:   d.A,
				EventType: event,
				PrevOwner: prevOwner,
				NewOwner:  d.Owner(),
				CreatedAt: time.Now(),
			})
			if err != nil {
				return Outcome{}, fmt.Errorf("%s: %w", errs.KindPersistenceDown, err)
			}
			if inserted {
				logging.Info().Str("unique_id", uniqueID).Uint64("asset_id", d.A).
					Str("event", string(event)).Msg("History event logged")
			}
		}
	}

	if err := c.cache.Set(d.A, item); err != nil {
		logging.Warn().Err(err).Uint64("asset_id", d.A).Msg("Cache write failed")
	}

	resp := formatter.Format(d, item, uniqueID)
	return Outcome{AssetID: d.A, Item: &resp}, nil
}
