// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Command server runs the inspect gateway: configuration, persistence,
// cache, credential loading, the bot fleet, and the HTTP surface, all
// under one supervisor tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BCSkins-com/bcskins-inspect/internal/bus"
	"github.com/BCSkins-com/bcskins-inspect/internal/cache"
	"github.com/BCSkins-com/bcskins-inspect/internal/config"
	"github.com/BCSkins-com/bcskins-inspect/internal/coordinator"
	"github.com/BCSkins-com/bcskins-inspect/internal/credentials"
	"github.com/BCSkins-com/bcskins-inspect/internal/httpapi"
	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/manager"
	"github.com/BCSkins-com/bcskins-inspect/internal/store"
	"github.com/BCSkins-com/bcskins-inspect/internal/supervisor"
	"github.com/BCSkins-com/bcskins-inspect/internal/transport"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Gateway exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logging.Info().Int("port", cfg.Port).Bool("worker_enabled", cfg.WorkerEnabled).Msg("Starting inspect gateway")

	if err := os.MkdirAll(cfg.SessionPath, 0o750); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	resultCache, err := cache.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer resultCache.Close()

	accounts, err := credentials.LoadAccounts(cfg.CredentialsPath)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("credential file contains no accounts")
	}

	blacklist, err := credentials.LoadBlacklist(cfg.BlacklistPath)
	if err != nil {
		return err
	}

	envelopes, err := bus.New()
	if err != nil {
		return err
	}
	defer envelopes.Close()

	// the game-client library is a collaborator behind transport.Factory;
	// the deterministic in-memory transport stands in until one is wired
	factory := transport.Factory(func() transport.GameTransport {
		return transport.NewFakeTransport()
	})

	fleet := manager.New(cfg, envelopes, factory, accounts)
	coord := coordinator.New(cfg, fleet, resultCache, db, blacklist)
	handler := httpapi.NewHandler(cfg, coord, fleet)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpapi.NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(slog.Default(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(supervisor.NewBusService(envelopes.Run))
	for _, s := range fleet.Shards() {
		tree.AddFleetService(s)
	}
	tree.AddFleetService(fleet)
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Gateway stopped")
	return err
}
