// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/middleware"
)

// Router wires the handlers into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	realtime      http.Handler
	adminToken    string
	trackerDir    string
}

// NewRouter creates a Router from deps.
func NewRouter(deps Dependencies) *Router {
	cfg := deps.Config
	return &Router{
		handler: NewHandler(deps),
		chiMiddleware: NewChiMiddleware(&ChiMiddlewareConfig{
			CORSAllowedOrigins: cfg.CORSOrigins,
			CORSMaxAge:         86400,
			RateLimitRequests:  cfg.RateLimitReqs,
			RateLimitWindow:    cfg.RateLimitWindow,
			RateLimitDisabled:  cfg.RateLimitDisabled,
		}),
		realtime:   deps.Realtime,
		adminToken: cfg.AdminToken,
		trackerDir: cfg.TrackerDir,
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Handle("/metrics", promhttp.Handler())

	if router.trackerDir != "" {
		r.With(middleware.Compression).Handle("/tracker/*", trackerFiles(router.trackerDir))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("ingest"))

			r.Post("/send", h.Send)
			r.Post("/event", h.Event)
			r.Post("/events", h.Events)
			r.Post("/pageview", h.PageView)
			r.Post("/identify", h.Identify)
			r.Post("/ast", h.AST)
			r.Post("/element", h.Element)
			r.Post("/section", h.Section)
			r.Get("/pixel.gif", h.Pixel)
			r.Post("/ai/message", h.AIMessage)
			r.Post("/ai/completion", h.AICompletion)
		})

		if router.realtime != nil {
			r.Get("/realtime", router.realtime.ServeHTTP)
		}

		if router.adminToken != "" && h.websites != nil {
			r.Route("/websites", func(r chi.Router) {
				r.Use(RequireAdminToken(router.adminToken))
				r.Use(middleware.Compression)
				r.Get("/", h.ListWebsites)
				r.Get("/{id}", h.GetWebsite)
				r.Put("/{id}", h.PutWebsite)
				r.Delete("/{id}", h.DeleteWebsite)
			})
		} else {
			logging.Info().Msg("Website registry routes disabled: no admin token configured")
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}
