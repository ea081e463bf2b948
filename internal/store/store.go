// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package store persists asset and history rows in DuckDB. It is the only
// component that touches the database; the coordinator thread owns it, so
// no query here ever runs concurrently with another writer.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// Store wraps the DuckDB connection and the asset/history data access
// methods the coordinator needs.
type Store struct {
	conn *sql.DB
}

// Open creates (or reopens) the database at path and applies pending
// migrations. Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	dsn := path
	if path == ":memory:" {
		dsn = ""
	}
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %s: %w", path, err)
	}

	// DuckDB is an embedded single-writer engine; one connection is the
	// whole story.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info().Str("path", path).Msg("Database opened")
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping verifies the connection is still usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// FindAsset returns the most recently updated row for assetID, or nil if
// the asset has never been persisted.
func (s *Store) FindAsset(ctx context.Context, assetID uint64) (*models.AssetRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT unique_id, asset_id, owner, def_index, paint_index, paint_seed,
		       paint_wear, origin, quest_id, rarity, stickers, keychains, updated_at
		FROM assets
		WHERE asset_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, int64(assetID))
	return scanAsset(row)
}

// FindPriorAsset returns the most recent asset row matching the item
// attribute tuple the history classifier compares against, excluding
// excludeAssetID so a just-written row can never be compared to itself.
func (s *Store) FindPriorAsset(ctx context.Context, rec models.AssetRecord, excludeAssetID uint64) (*models.AssetRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT unique_id, asset_id, owner, def_index, paint_index, paint_seed,
		       paint_wear, origin, quest_id, rarity, stickers, keychains, updated_at
		FROM assets
		WHERE paint_wear = ? AND paint_index = ? AND def_index = ? AND paint_seed = ?
		  AND origin = ? AND quest_id = ? AND rarity = ?
		  AND asset_id <> ?
		ORDER BY updated_at DESC
		LIMIT 1`,
		rec.PaintWear, int64(rec.PaintIndex), int64(rec.DefIndex), int64(rec.PaintSeed),
		int64(rec.Origin), int64(rec.QuestID), int64(rec.Rarity), int64(excludeAssetID))
	return scanAsset(row)
}

// UpsertAsset inserts or replaces the row keyed by rec.UniqueID. Identical
// results for the same item therefore collapse to one row.
func (s *Store) UpsertAsset(ctx context.Context, rec models.AssetRecord) error {
	stickers, err := json.Marshal(rec.Stickers)
	if err != nil {
		return fmt.Errorf("marshal stickers: %w", err)
	}
	keychains, err := json.Marshal(rec.Keychains)
	if err != nil {
		return fmt.Errorf("marshal keychains: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO assets (unique_id, asset_id, owner, def_index, paint_index,
		                    paint_seed, paint_wear, origin, quest_id, rarity,
		                    stickers, keychains, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unique_id) DO UPDATE SET
			asset_id = excluded.asset_id,
			owner = excluded.owner,
			stickers = excluded.stickers,
			keychains = excluded.keychains,
			updated_at = excluded.updated_at`,
		rec.UniqueID, int64(rec.AssetID), int64(rec.Owner), int64(rec.DefIndex),
		int64(rec.PaintIndex), int64(rec.PaintSeed), rec.PaintWear,
		int64(rec.Origin), int64(rec.QuestID), int64(rec.Rarity),
		string(stickers), string(keychains), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert asset %s: %w", rec.UniqueID, err)
	}
	return nil
}

// InsertHistory appends one classified event. The (unique_id, asset_id)
// uniqueness constraint makes re-inspections of an already-logged asset
// a no-op; the bool reports whether a row was actually written.
func (s *Store) InsertHistory(ctx context.Context, rec models.HistoryRecord) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO history (unique_id, asset_id, event_type, prev_owner, new_owner, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (unique_id, asset_id) DO NOTHING`,
		rec.UniqueID, int64(rec.AssetID), string(rec.EventType),
		int64(rec.PrevOwner), int64(rec.NewOwner), rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert history %s/%d: %w", rec.UniqueID, rec.AssetID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil
	}
	return n > 0, nil
}

// HistoryFor returns the append-only event log for uniqueID, oldest first.
func (s *Store) HistoryFor(ctx context.Context, uniqueID string) ([]models.HistoryRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT unique_id, asset_id, event_type, prev_owner, new_owner, created_at
		FROM history
		WHERE unique_id = ?
		ORDER BY created_at ASC`, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", uniqueID, err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var assetID, prevOwner, newOwner int64
		var eventType string
		if err := rows.Scan(&rec.UniqueID, &assetID, &eventType, &prevOwner, &newOwner, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.AssetID = uint64(assetID)
		rec.PrevOwner = uint64(prevOwner)
		rec.NewOwner = uint64(newOwner)
		rec.EventType = models.HistoryEventType(eventType)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.AssetRecord, error) {
	var rec models.AssetRecord
	var assetID, owner, defIndex, paintIndex, paintSeed, origin, questID, rarity int64
	var stickers, keychains string
	err := row.Scan(&rec.UniqueID, &assetID, &owner, &defIndex, &paintIndex,
		&paintSeed, &rec.PaintWear, &origin, &questID, &rarity,
		&stickers, &keychains, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}

	rec.AssetID = uint64(assetID)
	rec.Owner = uint64(owner)
	rec.DefIndex = uint32(defIndex)
	rec.PaintIndex = uint32(paintIndex)
	rec.PaintSeed = uint32(paintSeed)
	rec.Origin = uint32(origin)
	rec.QuestID = uint32(questID)
	rec.Rarity = uint32(rarity)

	if stickers != "" {
		if err := json.Unmarshal([]byte(stickers), &rec.Stickers); err != nil {
			logging.Warn().Err(err).Str("unique_id", rec.UniqueID).Msg("Corrupt sticker JSON in asset row")
		}
	}
	if keychains != "" {
		if err := json.Unmarshal([]byte(keychains), &rec.Keychains); err != nil {
			logging.Warn().Err(err).Str("unique_id", rec.UniqueID).Msg("Corrupt keychain JSON in asset row")
		}
	}
	return &rec, nil
}
