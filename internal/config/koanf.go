// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the optional YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// millisDefaults covers every millisecond-valued setting, keyed exactly
// as the env vars are (lowercased). Koanf is seeded with
// these plain integers rather than the Config struct's time.Duration
// fields so that every layer (defaults, file, env) agrees on "an integer
// number of milliseconds" and no unit-detection heuristic is needed.
func millisDefaults() map[string]int64 {
	d := defaultConfig()
	return map[string]int64{
		"queue_timeout":         int64(d.QueueTimeout / time.Millisecond),
		"inspect_timeout":       int64(d.InspectTimeout / time.Millisecond),
		"bot_cooldown_time":     int64(d.BotCooldownTime / time.Millisecond),
		"base_reconnect_delay":  int64(d.BaseReconnectDelay / time.Millisecond),
		"max_reconnect_delay":   int64(d.MaxReconnectDelay / time.Millisecond),
		"health_check_interval": int64(d.HealthCheckInterval / time.Millisecond),
		"stats_update_interval": int64(d.StatsUpdateInterval / time.Millisecond),
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// environment variables, in that order of increasing precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	msDefaults := make(map[string]interface{}, len(millisDefaults()))
	for key, val := range millisDefaults() {
		msDefaults[key] = val
	}
	if err := k.Load(confmap.Provider(msDefaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load millisecond defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	ms := func(key string) time.Duration {
		return time.Duration(k.Int64(key)) * time.Millisecond
	}

	cfg := &Config{
		Port:          k.Int("port"),
		WorkerEnabled: k.Bool("worker_enabled"),
		BotsPerWorker: k.Int("bots_per_worker"),

		MaxQueueSize:   k.Int("max_queue_size"),
		QueueTimeout:   ms("queue_timeout"),
		InspectTimeout: ms("inspect_timeout"),

		BotCooldownTime: ms("bot_cooldown_time"),
		MaxRetries:      k.Int("max_retries"),

		MaxReconnectAttempts: k.Int("max_reconnect_attempts"),
		BaseReconnectDelay:   ms("base_reconnect_delay"),
		MaxReconnectDelay:    ms("max_reconnect_delay"),

		HealthCheckInterval: ms("health_check_interval"),
		StatsUpdateInterval: ms("stats_update_interval"),

		ProxyURL:     k.String("proxy_url"),
		AllowRefresh: k.Bool("allow_refresh"),

		SessionPath:   k.String("session_path"),
		BlacklistPath: k.String("blacklist_path"),

		CredentialsPath: k.String("credentials_path"),
		DatabasePath:    k.String("database_path"),
		CachePath:       k.String("cache_path"),

		AdminTokenSecret: k.String("admin_token_secret"),

		LogLevel:  k.String("log_level"),
		LogPretty: k.Bool("log_pretty"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
