// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package main is the entry point for the Hanzo Analytics collection server.
//
// The collector receives tracker signals on /api/send and its satellite
// routes, server-side events on /api/event and friends, and pixel hits on
// /api/pixel.gif. Accepted events are written to the WAL, published on the
// event bus and confirmed. Bus consumers store them in DuckDB, forward them
// to Umami and PostHog, and stream them to realtime WebSocket clients.
//
// # Startup order
//
//  1. Configuration (koanf: defaults, CONFIG_PATH file, environment)
//  2. Logging (zerolog, optional lumberjack file)
//  3. Website registry and session manager
//  4. Embedded NATS server when NATS_EMBEDDED_SERVER is set
//  5. Event bus, WAL, store, forwarders and realtime hub
//  6. Supervisor tree; the HTTP server is added once every bus consumer
//     has subscribed, so no accepted event is published into the void
//
// # Example
//
//	export SESSION_SECRET=$(openssl rand -hex 32)
//	export ADMIN_TOKEN=$(openssl rand -hex 16)
//	export TRACKER_DIR=dist/tracker
//	export UMAMI_ENDPOINT=https://umami.example.com
//	./collector
//
// SIGINT and SIGTERM cancel the tree; services shut down in reverse
// dependency order and buffered store and forwarder batches are flushed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
)

func main() {
	cfg, err := config.LoadCollector()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(loggingConfig(cfg.Logging))
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Collector stopped with error")
		stop()
		_ = logging.Close()
		os.Exit(1)
	}
	logging.Info().Msg("Collector stopped")
}

// loggingConfig maps the configuration section onto the logger settings.
func loggingConfig(c config.LoggingConfig) logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Level
	lc.Format = c.Format
	lc.Caller = c.Caller
	lc.File = c.File
	if c.MaxSizeMB > 0 {
		lc.MaxSizeMB = c.MaxSizeMB
	}
	if c.MaxBackups > 0 {
		lc.MaxBackups = c.MaxBackups
	}
	if c.MaxAgeDays > 0 {
		lc.MaxAgeDays = c.MaxAgeDays
	}
	return lc
}

func run(ctx context.Context, cfg *config.Config) error {
	app, err := newCollector(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize collector: %w", err)
	}
	defer app.close()

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("nats", cfg.NATS.Enabled).
		Bool("wal", cfg.WAL.Enabled).
		Bool("store", cfg.Store.Enabled).
		Strs("consumers", app.router.Consumers()).
		Msg("Starting collector")

	return app.serve(ctx)
}
