// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package formatter owns the projection from the game transport's item
// record to the response DTO the HTTP surface returns. The transport
// yields a loosely-typed record; everything the gateway doesn't model
// explicitly rides through untouched in the item's Extra bag, and this
// package decides what the caller actually sees.
package formatter

import (
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// ItemResponse is the 200-success body: {"iteminfo": {...}}.
type ItemResponse struct {
	Iteminfo Iteminfo `json:"iteminfo"`
}

// Accepted is the body returned for reply=false submissions that were
// admitted but will complete in the background.
type Accepted struct {
	Accepted bool   `json:"accepted"`
	AssetID  uint64 `json:"assetId"`
}

// Iteminfo is the caller-visible projection of one inspect result.
type Iteminfo struct {
	models.ItemInfo

	UniqueID string `json:"uniqueid,omitempty"`
	WearName string `json:"wear_name,omitempty"`

	S uint64 `json:"s,string"`
	A uint64 `json:"a,string"`
	D uint64 `json:"d,string"`
	M uint64 `json:"m,string"`
}

// Format builds the response DTO for one successful inspect.
func Format(d models.Descriptor, item models.ItemInfo, uniqueID string) ItemResponse {
	info := Iteminfo{
		ItemInfo: item,
		UniqueID: uniqueID,
		S:        d.S,
		A:        d.A,
		D:        d.D,
		M:        d.M,
	}
	if item.HasPaintWear {
		info.WearName = wearName(item.PaintWear)
	}
	if info.Stickers == nil {
		info.Stickers = []models.StickerInfo{}
	}
	if info.Keychains == nil {
		info.Keychains = []models.StickerInfo{}
	}
	return ItemResponse{Iteminfo: info}
}

// wearName maps a float value onto the game's exterior buckets.
func wearName(wear float64) string {
	switch {
	case wear < 0.07:
		return "Factory New"
	case wear < 0.15:
		return "Minimal Wear"
	case wear < 0.38:
		return "Field-Tested"
	case wear < 0.45:
		return "Well-Worn"
	default:
		return "Battle-Scarred"
	}
}
