// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package services provides suture.Service wrappers for collector components
whose lifecycle is not already Serve(ctx) shaped.

HTTPServerService runs an *http.Server: it binds the listener synchronously so
address conflicts surface as a service failure, serves until the context is
canceled, then shuts down gracefully within a timeout.

TickerService runs a function on an interval, for housekeeping such as
BadgerDB value-log GC:

	svc := services.NewTickerService("wal-gc", 5*time.Minute, func(ctx context.Context) error {
	    return w.RunGC()
	})
	tree.AddDataService(svc)

Components that already implement Serve(ctx) error (the event bus router,
store appender, forwarders, realtime hub, WAL retry loop, embedded NATS
server) are added to the tree directly.
*/
package services
