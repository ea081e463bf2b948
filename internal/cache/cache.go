// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package cache is the persistent inspect-result cache, keyed by asset id
// and backed by BadgerDB so a process restart does not cold-start every
// asset. Entries have no TTL: a cached result stays valid until a caller
// explicitly asks for a refresh.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// ErrMiss is returned by Get when no entry exists for the asset.
var ErrMiss = errors.New("cache miss")

// Cache wraps a Badger instance holding serialized inspect results.
type Cache struct {
	db     *badger.DB
	gcStop chan struct{}
}

// Open creates or reopens the cache at dir. Pass "" to run fully
// in-memory (tests).
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache at %q: %w", dir, err)
	}

	c := &Cache{db: db, gcStop: make(chan struct{})}
	if dir != "" {
		go c.gcLoop()
	}
	return c, nil
}

// Get returns the cached result for assetID, or ErrMiss.
func (c *Cache) Get(assetID uint64) (models.ItemInfo, error) {
	var item models.ItemInfo
	err := c.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get(key(assetID))
		if err != nil {
			return err
		}
		return it.Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.ItemInfo{}, ErrMiss
	}
	if err != nil {
		return models.ItemInfo{}, fmt.Errorf("cache get %d: %w", assetID, err)
	}
	return item, nil
}

// Set stores item under assetID, overwriting any previous entry.
func (c *Cache) Set(assetID uint64, item models.ItemInfo) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal cache entry %d: %w", assetID, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(assetID), data)
	})
	if err != nil {
		return fmt.Errorf("cache set %d: %w", assetID, err)
	}
	return nil
}

// Delete removes the entry for assetID, if any.
func (c *Cache) Delete(assetID uint64) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(assetID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("cache delete %d: %w", assetID, err)
	}
	return nil
}

// Close stops value-log GC and closes the database.
func (c *Cache) Close() error {
	close(c.gcStop)
	return c.db.Close()
}

// gcLoop runs Badger's value-log garbage collection periodically; Badger
// never reclaims value-log space on its own.
func (c *Cache) gcLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.gcStop:
			return
		case <-ticker.C:
			for {
				if err := c.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Debug().Err(err).Msg("Cache value-log GC pass ended")
					}
					break
				}
			}
		}
	}
}

func key(assetID uint64) []byte {
	k := make([]byte, 14)
	copy(k, "asset:")
	binary.BigEndian.PutUint64(k[6:], assetID)
	return k
}
