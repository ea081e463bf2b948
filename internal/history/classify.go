// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package history implements the deterministic event classifier that
// turns a pair of (current, prior) inspect results into a single
// HistoryEventType.
package history

import (
	"strconv"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// marketProxyPrefix is the SteamID64 range prefix real player accounts
// fall under; an owner id that does not start with it is treated as a
// market-proxy id rather than a real user.
const marketProxyPrefix = "7656"

// Input is the subset of a fresh inspect result the classifier needs.
type Input struct {
	Owner     uint64
	Origin    models.InspectOrigin
	Stickers  []models.StickerInfo
	Keychains []models.StickerInfo
}

// Classify compares curr against the most recent asset record sharing its
// (paintWear, paintIndex, defIndex, paintSeed, origin, questId, rarity)
// tuple and returns the event type to log, and whether anything loggable
// actually happened (a same-owner inspect with no sticker/keychain change
// produces no history row).
func Classify(curr Input, prior *models.AssetRecord) (models.HistoryEventType, bool) {
	if prior == nil {
		return originEvent(curr.Origin), true
	}

	if curr.Owner != prior.Owner {
		prevIsUser := isRealUser(prior.Owner)
		currIsUser := isRealUser(curr.Owner)

		switch {
		case prevIsUser && !currIsUser:
			return models.HistoryMarketListing, true
		case prevIsUser:
			return models.HistoryTrade, true
		default:
			return models.HistoryMarketBuy, true
		}
	}

	if ev, ok := stickerDiff(curr.Stickers, prior.Stickers); ok {
		return ev, true
	}
	if ev, ok := keychainDiff(curr.Keychains, prior.Keychains); ok {
		return ev, true
	}
	return "", false
}

func originEvent(origin models.InspectOrigin) models.HistoryEventType {
	switch origin {
	case models.OriginTradedUp:
		return models.HistoryTradedUp
	case models.OriginDropped:
		return models.HistoryDropped
	case models.OriginPurchasedIngame:
		return models.HistoryPurchasedIngame
	case models.OriginUnboxed:
		return models.HistoryUnboxed
	case models.OriginCrafted:
		return models.HistoryCrafted
	default:
		return models.HistoryUnknown
	}
}

func isRealUser(owner uint64) bool {
	s := strconv.FormatUint(owner, 10)
	return len(s) >= len(marketProxyPrefix) && s[:len(marketProxyPrefix)] == marketProxyPrefix
}

// stickerDiff compares sticker slots by (slot, id, offset_x, offset_y,
// offset_z, rotation). A strict wear increase on a slot that still holds
// the same sticker id is reported as a scrape rather than a generic change.
func stickerDiff(curr, prev []models.StickerInfo) (models.HistoryEventType, bool) {
	if len(curr) > len(prev) {
		return models.HistoryStickerApply, true
	}
	if len(curr) < len(prev) {
		return models.HistoryStickerRemove, true
	}

	prevBySlot := make(map[uint32]models.StickerInfo, len(prev))
	for _, p := range prev {
		prevBySlot[p.Slot] = p
	}

	changed := false
	scraped := false
	for _, c := range curr {
		p, ok := prevBySlot[c.Slot]
		if !ok {
			changed = true
			continue
		}
		if p.ID != c.ID || p.OffsetX != c.OffsetX || p.OffsetY != c.OffsetY ||
			p.OffsetZ != c.OffsetZ || p.Rotation != c.Rotation {
			changed = true
		}
		if p.ID == c.ID && c.Wear > p.Wear {
			scraped = true
		}
	}

	// a strict wear increase on an unchanged slot is itself a loggable
	// change, so it must not fall through the no-change short-circuit
	if !changed && !scraped {
		return "", false
	}
	if scraped {
		return models.HistoryStickerScrape, true
	}
	return models.HistoryStickerChange, true
}

func keychainDiff(curr, prev []models.StickerInfo) (models.HistoryEventType, bool) {
	switch {
	case len(prev) == 0 && len(curr) > 0:
		return models.HistoryKeychainAdded, true
	case len(prev) > 0 && len(curr) == 0:
		return models.HistoryKeychainRemoved, true
	}
	if keychainsEqual(curr, prev) {
		return "", false
	}
	return models.HistoryKeychainChanged, true
}

func keychainsEqual(a, b []models.StickerInfo) bool {
	if len(a) != len(b) {
		return false
	}
	bySlot := make(map[uint32]models.StickerInfo, len(b))
	for _, k := range b {
		bySlot[k.Slot] = k
	}
	for _, k := range a {
		prev, ok := bySlot[k.Slot]
		if !ok || prev != k {
			return false
		}
	}
	return true
}
