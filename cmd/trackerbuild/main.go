// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Command trackerbuild produces the obfuscated tracker bundle served under
// /tracker/ and verifies existing bundles.
//
//	trackerbuild build --source tracker.js --out dist/tracker --key "$BUILD_KEY"
//	trackerbuild verify --source tracker.js --dir dist/tracker --key "$BUILD_KEY"
//
// Defaults come from the build section of the collector configuration
// (CONFIG_PATH, then BUILD_* environment variables); flags override them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanzoai/analytics/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("trackerbuild failed")
		os.Exit(1)
	}
}
