// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package config

import "fmt"

// Validate rejects configurations that would leave the gateway unable to
// start safely.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.BotsPerWorker <= 0 {
		return fmt.Errorf("bots_per_worker must be positive")
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive")
	}
	if c.QueueTimeout <= 0 || c.InspectTimeout <= 0 {
		return fmt.Errorf("queue_timeout and inspect_timeout must be positive")
	}
	if c.MaxReconnectDelay < c.BaseReconnectDelay {
		return fmt.Errorf("max_reconnect_delay must be >= base_reconnect_delay")
	}
	if c.MaxRetries < 0 || c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("retry/attempt counts cannot be negative")
	}
	return nil
}
