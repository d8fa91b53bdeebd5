// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package config loads the configuration of the collection server and the
tracker build.

# Sources

Configuration is layered with koanf, later layers overriding earlier ones:

  - Built-in defaults (defaultConfig)
  - An optional YAML file: CONFIG_PATH, or config.yaml / config.yml in the
    working directory, or /etc/hanzo-analytics/config.yaml
  - Environment variables, mapped explicitly (unmapped variables are ignored)

Comma-separated environment values (CORS_ORIGINS, BUILD_RENAMES) are split
into slices before unmarshaling.

# Sections

  - server: listener, timeouts, CORS, rate limit, admin token, tracker assets
  - session: continuation token secret and lifetimes
  - registry: website registry storage and cache
  - wal: write-ahead log for accepted events
  - nats: event bus transport (in-process channels when disabled)
  - store: DuckDB event store
  - forward: Umami and PostHog forwarders
  - realtime: live event stream
  - build: tracker obfuscation build, shared with the trackerbuild CLI
  - logging: level, format, optional rotated file

# Environment Variables

Server: HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT,
HTTP_IDLE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT, HTTP_MAX_BODY_BYTES, CORS_ORIGINS,
RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, ADMIN_TOKEN,
TRACKER_DIR.

Session: SESSION_SECRET, SESSION_TOKEN_TTL, SESSION_VISIT_TIMEOUT.

Storage: REGISTRY_PATH, REGISTRY_IN_MEMORY, REGISTRY_CACHE_SIZE,
REGISTRY_ALLOW_UNKNOWN, WAL_ENABLED, WAL_PATH, WAL_SYNC_WRITES,
WAL_RETRY_INTERVAL, WAL_MAX_RETRIES, WAL_ENTRY_TTL, WAL_GC_INTERVAL,
STORE_ENABLED, STORE_PATH, STORE_MAX_MEMORY, STORE_THREADS, STORE_BATCH_SIZE,
STORE_FLUSH_INTERVAL.

Bus: NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR, NATS_MAX_MEMORY,
NATS_MAX_STORE, NATS_TOPIC, NATS_DURABLE_PREFIX, NATS_QUEUE_GROUP,
NATS_RETRY_COUNT, NATS_RETRY_INTERVAL, NATS_POISON_TOPIC, NATS_CLOSE_TIMEOUT.

Forwarders: UMAMI_ENDPOINT, UMAMI_WEBSITE_ID, POSTHOG_ENDPOINT,
POSTHOG_API_KEY, FORWARD_BATCH_SIZE, FORWARD_FLUSH_INTERVAL, FORWARD_TIMEOUT,
FORWARD_RATE, FORWARD_BURST.

Build: BUILD_SOURCE, BUILD_OUT_DIR, BUILD_KEY, BUILD_HOST, BUILD_ENDPOINT,
BUILD_PUBLIC_PATH, BUILD_EXPORT, BUILD_RENAMES.

Logging: LOG_LEVEL, LOG_FORMAT, LOG_CALLER, LOG_FILE, LOG_MAX_SIZE_MB,
LOG_MAX_BACKUPS, LOG_MAX_AGE_DAYS.

# Usage

	cfg, err := config.LoadCollector()
	if err != nil {
	    log.Fatal(err)
	}
	srv := &http.Server{Addr: cfg.Server.Addr()}
*/
package config
