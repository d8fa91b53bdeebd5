// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package eventbus carries accepted events from the ingestion handlers to the
consumers that persist, forward and broadcast them.

The bus is built on Watermill. Without NATS it runs over an in-process
gochannel pub/sub, which fans every message out to each subscribed consumer.
With NATS enabled, events are published to a JetStream stream and every
consumer gets its own durable subscription, so each one sees every event
exactly once per collector group:

	                     +--> store consumer    (DuckDB)
	WAL -> Bus.Publish --+--> forward consumers (Umami, PostHog)
	                     +--> realtime consumer (WebSocket hub)

The Router wraps each consumer with panic recovery, exponential retry and a
poison queue. Messages that still fail after the retries are published on
the poison topic with the failure reason in their metadata.

An embedded NATS server with JetStream can be started in-process for
single-node deployments (NATS_EMBEDDED=true).
*/
package eventbus
