// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package models

// StickerInfo describes one sticker or keychain slot applied to an item.
// Keychains reuse the same shape as stickers (the game protocol represents
// both as "attachments" distinguished only by which field of ItemInfo they
// live in).
type StickerInfo struct {
	Slot     uint32  `json:"slot"`
	ID       uint32  `json:"id"`
	Wear     float32 `json:"wear,omitempty"`
	Scale    float32 `json:"scale,omitempty"`
	Rotation float32 `json:"rotation,omitempty"`
	TintID   uint32  `json:"tint_id,omitempty"`
	OffsetX  float32 `json:"offset_x,omitempty"`
	OffsetY  float32 `json:"offset_y,omitempty"`
	OffsetZ  float32 `json:"offset_z,omitempty"`
	Pattern  uint32  `json:"pattern,omitempty"`
	Name     string  `json:"name,omitempty"`
}

// ItemInfo is the typed projection of a bot's inspect result. Fields the
// game transport reports that aren't modeled here land in Extra, so a
// newer protocol field never requires a breaking change to this struct.
type ItemInfo struct {
	AccountID  uint32 `json:"account_id,omitempty"`
	ItemID     uint64 `json:"item_id,omitempty"`
	DefIndex   uint32 `json:"defindex"`
	PaintIndex uint32 `json:"paintindex"`
	Rarity     uint32 `json:"rarity"`
	Quality    uint32 `json:"quality"`

	// The Has* flags distinguish "field absent" from "field is zero":
	// null is normalized to 0 when present-but-unset, but a result
	// missing any of paintSeed/paintWear/paintIndex is never
	// history-logged.
	HasPaintWear  bool          `json:"-"`
	HasPaintSeed  bool          `json:"-"`
	HasPaintIndex bool          `json:"-"`
	PaintWear     float64       `json:"floatvalue"`
	PaintSeed     uint32        `json:"paintseed"`
	CustomName    string        `json:"custom_name,omitempty"`
	Stickers      []StickerInfo `json:"stickers"`
	Keychains     []StickerInfo `json:"keychains"`
	Inventory     uint32        `json:"inventory,omitempty"`
	Origin        uint32        `json:"origin,omitempty"`
	QuestID       uint32        `json:"quest_id,omitempty"`
	DropReason    uint32        `json:"drop_reason,omitempty"`
	MusicIndex    uint32        `json:"music_index,omitempty"`
	EntIndex      int32         `json:"ent_index,omitempty"`
	PetIndex      uint32        `json:"pet_index,omitempty"`
	IsSouvenir    bool          `json:"souvenir"`
	IsStatTrak    bool          `json:"stattrak"`

	// Extra carries any forward-compatible fields the game transport
	// reported that this struct does not model explicitly.
	Extra map[string]any `json:"-"`
}

// InspectOrigin enumerates the game's item-origin codes used by the
// history classifier to infer a source for a never-before-seen asset.
type InspectOrigin uint32

const (
	OriginPurchasedIngame InspectOrigin = 1
	OriginUnboxed         InspectOrigin = 2
	OriginCrafted         InspectOrigin = 3
	OriginDropped         InspectOrigin = 4
	OriginTradedUp        InspectOrigin = 8
)
