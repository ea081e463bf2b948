// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package store

import (
	"context"
	"fmt"

	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
)

// Migration is one versioned, append-only schema change. Versions are
// tracked in schema_migrations so each statement runs exactly once per
// database file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_assets",
			SQL: `CREATE TABLE IF NOT EXISTS assets (
				unique_id TEXT PRIMARY KEY,
				asset_id BIGINT NOT NULL,
				owner BIGINT NOT NULL,
				def_index BIGINT NOT NULL,
				paint_index BIGINT NOT NULL,
				paint_seed BIGINT NOT NULL,
				paint_wear DOUBLE NOT NULL,
				origin BIGINT NOT NULL,
				quest_id BIGINT NOT NULL,
				rarity BIGINT NOT NULL,
				stickers TEXT,
				keychains TEXT,
				updated_at TIMESTAMP NOT NULL
			);`,
		},
		{
			Version: 2,
			Name:    "create_history",
			SQL: `CREATE TABLE IF NOT EXISTS history (
				unique_id TEXT NOT NULL,
				asset_id BIGINT NOT NULL,
				event_type TEXT NOT NULL,
				prev_owner BIGINT NOT NULL,
				new_owner BIGINT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				PRIMARY KEY (unique_id, asset_id)
			);`,
		},
		{
			Version: 3,
			Name:    "index_assets_lookup",
			SQL: `CREATE INDEX IF NOT EXISTS idx_assets_asset_id ON assets (asset_id);
			      CREATE INDEX IF NOT EXISTS idx_assets_attrs ON assets (paint_wear, paint_index, def_index, paint_seed);`,
		},
	}
}

// migrate applies all unapplied migrations inside one transaction each.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations() {
		if applied[m.Version] {
			continue
		}

		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		logging.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}
	return nil
}
