// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package config loads the gateway's configuration from defaults, an
// optional YAML file, and environment variables, in that precedence
// order (lowest to highest).
package config

import "time"

// Config is the full, typed configuration surface. Field names mirror
// the environment variables (see koanf.go for the env mapping).
type Config struct {
	Port int `koanf:"port"`

	WorkerEnabled bool `koanf:"worker_enabled"`
	BotsPerWorker int  `koanf:"bots_per_worker"`

	MaxQueueSize  int           `koanf:"max_queue_size"`
	QueueTimeout  time.Duration `koanf:"queue_timeout"`
	InspectTimeout time.Duration `koanf:"inspect_timeout"`

	BotCooldownTime time.Duration `koanf:"bot_cooldown_time"`
	MaxRetries      int           `koanf:"max_retries"`

	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	BaseReconnectDelay   time.Duration `koanf:"base_reconnect_delay"`
	MaxReconnectDelay    time.Duration `koanf:"max_reconnect_delay"`

	HealthCheckInterval time.Duration `koanf:"health_check_interval"`
	StatsUpdateInterval time.Duration `koanf:"stats_update_interval"`

	ProxyURL     string `koanf:"proxy_url"`
	AllowRefresh bool   `koanf:"allow_refresh"`

	SessionPath   string `koanf:"session_path"`
	BlacklistPath string `koanf:"blacklist_path"`

	CredentialsPath string `koanf:"credentials_path"`
	DatabasePath    string `koanf:"database_path"`
	CachePath       string `koanf:"cache_path"`

	AdminTokenSecret string `koanf:"admin_token_secret"`

	LogLevel  string `koanf:"log_level"`
	LogPretty bool   `koanf:"log_pretty"`
}

// AccountThrottleCooldown is the fixed 30-minute account-level throttle
// window used on LOGIN_THROTTLED, not user-configurable.
const AccountThrottleCooldown = 30 * time.Minute

func defaultConfig() *Config {
	return &Config{
		Port: 3000,

		WorkerEnabled: false,
		BotsPerWorker: 50,

		MaxQueueSize:   100,
		QueueTimeout:   10 * time.Second,
		InspectTimeout: 10 * time.Second,

		BotCooldownTime: 30 * time.Second,
		MaxRetries:      3,

		MaxReconnectAttempts: 10,
		BaseReconnectDelay:   30 * time.Second,
		MaxReconnectDelay:    600 * time.Second,

		HealthCheckInterval: 60 * time.Second,
		StatsUpdateInterval: 3 * time.Second,

		ProxyURL:     "",
		AllowRefresh: false,

		SessionPath:   "./sessions",
		BlacklistPath: "./blacklist.txt",

		CredentialsPath: "./accounts.txt",
		DatabasePath:    "./bcskins-inspect.duckdb",
		CachePath:       "./cache",

		AdminTokenSecret: "",

		LogLevel:  "info",
		LogPretty: false,
	}
}
