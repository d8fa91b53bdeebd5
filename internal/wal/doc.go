// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package wal provides a durable write-ahead log for accepted events, backed
by BadgerDB.

The ingestion path writes every accepted event to the WAL before
publishing it on the event bus and confirms the entry once the publish
succeeded:

	id, err := w.Write(ctx, event)
	if err != nil { ... }
	if err := bus.Publish(ctx, event); err != nil {
	    return // RetryLoop publishes it later
	}
	_ = w.Confirm(ctx, id)

Entries that stay pending (bus down, process crash between write and
confirm) are republished by RetryLoop with exponential backoff. Entries
older than the entry TTL or past the retry limit are dropped and counted
in wal_retries_total{result="expired"}.

Configuration (see internal/config):

  - WAL_ENABLED: enable the WAL (default: true)
  - WAL_PATH: BadgerDB directory (default: /data/wal)
  - WAL_SYNC_WRITES: fsync every write (default: true)
  - WAL_RETRY_INTERVAL: retry loop period (default: 30s)
  - WAL_MAX_RETRIES: attempts before an entry is dropped (default: 100)
  - WAL_ENTRY_TTL: maximum age of a pending entry (default: 168h)
  - WAL_GC_INTERVAL: value log GC period (default: 10m)
*/
package wal
