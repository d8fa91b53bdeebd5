// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/registry"
	"github.com/hanzoai/analytics/internal/session"
)

// WebsiteRegistry is the website store the handlers consult.
type WebsiteRegistry interface {
	Check(ctx context.Context, websiteID, hostname string) registry.Decision
	Get(ctx context.Context, id string) (*models.Website, error)
	Put(ctx context.Context, w *models.Website) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Website, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Config   config.ServerConfig
	Sink     Sink
	Websites WebsiteRegistry
	Sessions *session.Manager

	// Realtime serves /api/realtime. Nil disables the route.
	Realtime http.Handler

	HealthChecks map[string]HealthCheck
}

// Handler holds the request handlers.
type Handler struct {
	sink         Sink
	websites     WebsiteRegistry
	sessions     *session.Manager
	enricher     *Enricher
	healthChecks map[string]HealthCheck
	maxBodyBytes int64
	startTime    time.Time
}

// NewHandler creates a Handler from deps.
func NewHandler(deps Dependencies) *Handler {
	maxBody := deps.Config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{
		sink:         deps.Sink,
		websites:     deps.Websites,
		sessions:     deps.Sessions,
		enricher:     NewEnricher(),
		healthChecks: deps.HealthChecks,
		maxBodyBytes: maxBody,
		startTime:    time.Now(),
	}
}

// admit checks ev against the registry. Events without a website id are
// partitioned by organization and skip the check.
func (h *Handler) admit(ctx context.Context, ev *models.RawEvent) registry.Decision {
	if ev.WebsiteID == "" {
		return registry.Accept
	}
	return h.check(ctx, ev.WebsiteID, ev.Hostname)
}

func (h *Handler) check(ctx context.Context, websiteID, hostname string) registry.Decision {
	if h.websites == nil {
		return registry.Accept
	}
	return h.websites.Check(ctx, websiteID, hostOnly(hostname))
}

// ingest enriches, admits and stores events, then writes the response.
// Events for disabled websites are dropped silently; a domain or unknown
// website rejection fails the whole request.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, events []*models.RawEvent) {
	rw := NewResponseWriter(w, r)

	accepted := make([]*models.RawEvent, 0, len(events))
	for _, ev := range events {
		if ev.Tenant() == "" {
			metrics.RecordEventRejected("validation")
			rw.BadRequest(ErrMissingTenant.Error())
			return
		}
		h.enricher.Apply(ev, r)

		switch d := h.admit(r.Context(), ev); d {
		case registry.Accept:
			accepted = append(accepted, ev)
		case registry.Disabled:
			metrics.RecordEventRejected(d.String())
		case registry.DomainRejected:
			metrics.RecordEventRejected(d.String())
			rw.Forbidden("hostname not allowed for website " + ev.WebsiteID)
			return
		default:
			metrics.RecordEventRejected(d.String())
			rw.NotFound("unknown website " + ev.WebsiteID)
			return
		}
	}

	if len(accepted) > 0 {
		if err := h.sink.Ingest(r.Context(), accepted); err != nil {
			rw.InternalError("failed to record events", err)
			return
		}
	}
	rw.Accepted(len(accepted))
}
