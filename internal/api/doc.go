// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package api implements the collector's HTTP surface.

Routes (chi):

	POST /api/send            tracker endpoint, replies {cache, disabled}
	POST /api/event           single server-side event
	POST /api/events          batch of up to 500 events
	POST /api/pageview        server-side page view
	POST /api/identify        person properties
	POST /api/ast             page AST: one page view plus one event per section
	POST /api/element         element interaction
	POST /api/section         section viewed
	GET  /api/pixel.gif       1x1 tracking pixel
	POST /api/ai/message      AI message usage
	POST /api/ai/completion   AI completion usage
	GET  /api/realtime        WebSocket stream per website
	GET  /api/websites        registry maintenance (bearer admin token)
	GET  /health              liveness and dependency checks
	GET  /metrics             Prometheus
	GET  /tracker/*           built tracker artifacts

Every accepted event passes through the same steps: website registry check,
session resolution, enrichment, then the Sink (WAL write, bus publish, WAL
confirm). All responses except /api/send, the pixel and static files use the
JSON envelope:

	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "..."}, "meta": {...}}
*/
package api
