// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package models

import "time"

// AssetRecord is the upserted row for a specific asset, keyed by UniqueID.
type AssetRecord struct {
	UniqueID   string    `db:"unique_id"`
	AssetID    uint64    `db:"asset_id"`
	Owner      uint64    `db:"owner"`
	DefIndex   uint32    `db:"def_index"`
	PaintIndex uint32    `db:"paint_index"`
	PaintSeed  uint32    `db:"paint_seed"`
	PaintWear  float64   `db:"paint_wear"`
	Origin     uint32    `db:"origin"`
	QuestID    uint32    `db:"quest_id"`
	Rarity     uint32    `db:"rarity"`
	Stickers   []StickerInfo `db:"stickers"`
	Keychains  []StickerInfo `db:"keychains"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// HistoryEventType classifies an observed transition between two
// inspections of the same logical item.
type HistoryEventType string

const (
	HistoryPurchasedIngame HistoryEventType = "PURCHASED_INGAME"
	HistoryUnboxed         HistoryEventType = "UNBOXED"
	HistoryCrafted         HistoryEventType = "CRAFTED"
	HistoryDropped         HistoryEventType = "DROPPED"
	HistoryTradedUp        HistoryEventType = "TRADED_UP"
	HistoryUnknown         HistoryEventType = "UNKNOWN"

	HistoryTrade          HistoryEventType = "TRADE"
	HistoryMarketBuy      HistoryEventType = "MARKET_BUY"
	HistoryMarketListing  HistoryEventType = "MARKET_LISTING"

	HistoryStickerApply  HistoryEventType = "STICKER_APPLY"
	HistoryStickerRemove HistoryEventType = "STICKER_REMOVE"
	HistoryStickerChange HistoryEventType = "STICKER_CHANGE"
	HistoryStickerScrape HistoryEventType = "STICKER_SCRAPE"

	HistoryKeychainAdded   HistoryEventType = "KEYCHAIN_ADDED"
	HistoryKeychainRemoved HistoryEventType = "KEYCHAIN_REMOVED"
	HistoryKeychainChanged HistoryEventType = "KEYCHAIN_CHANGED"
)

// HistoryRecord is an append-only row logging one classified transition.
type HistoryRecord struct {
	UniqueID  string           `db:"unique_id"`
	AssetID   uint64           `db:"asset_id"`
	EventType HistoryEventType `db:"event_type"`
	PrevOwner uint64           `db:"prev_owner"`
	NewOwner  uint64           `db:"new_owner"`
	CreatedAt time.Time        `db:"created_at"`
}
