// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package credentials loads the account credential file and the asset
// blacklist. Both files share the same line grammar: one entry per line,
// blank lines and '#' comments ignored.
package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

// LoadAccounts reads a credential file of "username:password" lines. Only
// the first ':' separates fields, so passwords may themselves contain
// colons. Duplicate usernames are rejected: the session directory is
// shared across shards and two bots must never own the same session file.
func LoadAccounts(path string) ([]models.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open credential file %s: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var accounts []models.Account

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		username, password, found := strings.Cut(text, ":")
		if !found || username == "" {
			return nil, fmt.Errorf("credential file %s line %d: expected username:password", path, line)
		}
		if seen[username] {
			return nil, fmt.Errorf("credential file %s line %d: duplicate username %s", path, line, models.TruncatedUsername(username))
		}
		seen[username] = true

		accounts = append(accounts, models.Account{Username: username, Password: password})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credential file %s: %w", path, err)
	}

	logging.Info().Int("accounts", len(accounts)).Str("path", path).Msg("Loaded credentials")
	return accounts, nil
}

// LoadBlacklist reads a newline-delimited file of blacklisted asset ids.
// A missing file is not an error — the blacklist is optional.
func LoadBlacklist(path string) (map[uint64]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[uint64]struct{}{}, nil
		}
		return nil, fmt.Errorf("open blacklist %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[uint64]struct{})
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("blacklist %s line %d: %w", path, line, err)
		}
		out[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist %s: %w", path, err)
	}

	if len(out) > 0 {
		logging.Info().Int("entries", len(out)).Str("path", path).Msg("Loaded asset blacklist")
	}
	return out, nil
}
