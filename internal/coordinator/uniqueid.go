// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package coordinator

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// UniqueID derives the asset upsert key: the first 8 hex digits of
// SHA-1("{paintSeed}-{paintIndex}-{paintWear}-{defIndex}"), with absent
// seed/wear normalized to 0. The wear renders in shortest
// decimal form so 0.07 hashes as "0.07", not "0.070000".
func UniqueID(item models.ItemInfo) string {
	seed := uint32(0)
	if item.HasPaintSeed {
		seed = item.PaintSeed
	}
	wear := "0"
	if item.HasPaintWear {
		wear = strconv.FormatFloat(item.PaintWear, 'g', -1, 64)
	}

	canonical := fmt.Sprintf("%d-%d-%s-%d", seed, item.PaintIndex, wear, item.DefIndex)
	sum := sha1.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])[:8]
}
