// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package middleware provides HTTP middleware for the collection server.

All middleware use the chi signature func(http.Handler) http.Handler and
are composed by the router in internal/api:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.Compression).Get("/tracker/*", assets)

Key Components:

  - RequestID: UUID request tracking, mirrored into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge keyed by
    chi route pattern
  - Compression: pooled gzip writers for tracker assets
*/
package middleware
