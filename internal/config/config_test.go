// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.WorkerEnabled)
	assert.Equal(t, 50, cfg.BotsPerWorker)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, 10*time.Second, cfg.QueueTimeout)
	assert.Equal(t, 30*time.Second, cfg.BotCooldownTime)
	assert.Equal(t, 10, cfg.MaxReconnectAttempts)
	assert.Equal(t, 600*time.Second, cfg.MaxReconnectDelay)
	assert.Equal(t, "./sessions", cfg.SessionPath)
	assert.Equal(t, "./blacklist.txt", cfg.BlacklistPath)
}

func TestLoad_EnvOverridesInMilliseconds(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WORKER_ENABLED", "true")
	t.Setenv("QUEUE_TIMEOUT", "2500")
	t.Setenv("BOT_COOLDOWN_TIME", "1000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.WorkerEnabled)
	assert.Equal(t, 2500*time.Millisecond, cfg.QueueTimeout)
	assert.Equal(t, time.Second, cfg.BotCooldownTime)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Port = -1
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.MaxReconnectDelay = cfg.BaseReconnectDelay / 2
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.MaxQueueSize = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, defaultConfig().Validate())
}
