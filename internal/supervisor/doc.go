// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package supervisor runs the collector's long-lived services under a suture v4
supervisor tree.

	hanzo-analytics
	├── data-layer
	│   ├── nats-embedded (NATS_EMBEDDED_SERVER)
	│   ├── wal-retry     (WAL_ENABLED)
	│   ├── wal-gc        (WAL_ENABLED)
	│   └── store         (STORE_ENABLED)
	├── messaging-layer
	│   ├── eventbus-router
	│   ├── realtime-hub  (REALTIME_ENABLED)
	│   └── forward-umami, forward-posthog
	└── api-layer
	    └── http-server

Crashed services restart with suture's backoff. Each layer counts failures
on its own, so a forwarder stuck against an unreachable backend does not
push the api layer into backoff.

Supervisor events are logged through log/slog via sutureslog; the collector
bridges slog onto zerolog with logging.NewSlogLogger.

# Usage

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(wal.NewRetryLoop(w, bus))
	tree.AddMessagingService(router)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

Services that do not stop within ShutdownTimeout are reported by
UnstoppedServiceReport.
*/
package supervisor
