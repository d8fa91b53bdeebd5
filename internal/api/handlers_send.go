// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"net/http"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/registry"
	"github.com/hanzoai/analytics/internal/session"
)

// Send handles the tracker's POST /api/send.
//
// The reply is the bare {cache, disabled} object the tracker reads, not the
// API envelope. The continuation token is returned both in the body and in
// the x-hanzo-cache response header.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	p := &req.Payload
	ctx := r.Context()

	switch d := h.check(ctx, p.Website, p.Hostname); d {
	case registry.Accept:
	case registry.Disabled:
		metrics.RecordEventRejected(d.String())
		writeJSON(w, http.StatusOK, models.SendResponse{Disabled: true})
		return
	case registry.DomainRejected:
		metrics.RecordEventRejected(d.String())
		NewResponseWriter(w, r).Forbidden("hostname not allowed for website")
		return
	default:
		metrics.RecordEventRejected(d.String())
		NewResponseWriter(w, r).NotFound("unknown website")
		return
	}

	ua := r.UserAgent()
	if isBot(ua) {
		metrics.RecordEventRejected("bot")
		writeJSON(w, http.StatusOK, models.SendResponse{})
		return
	}

	ip := clientIP(r)
	id, err := h.sessions.Resolve(r.Header.Get(models.CacheHeader), session.Visitor{
		WebsiteID: p.Website,
		Hostname:  hostOnly(p.Hostname),
		IP:        ip,
		UserAgent: ua,
	})
	if err != nil {
		NewResponseWriter(w, r).InternalError("failed to issue session token", err)
		return
	}

	ev := eventFromPayload(req.Type, p)
	ev.SessionID = id.SessionID
	ev.VisitID = id.VisitID
	ev.IP = ip
	ev.UserAgent = ua
	h.enricher.Apply(ev, r)

	if err := h.sink.Ingest(ctx, []*models.RawEvent{ev}); err != nil {
		NewResponseWriter(w, r).InternalError("failed to record event", err)
		return
	}

	logging.Ctx(ctx).Debug().
		Str("website_id", ev.WebsiteID).
		Str("event", ev.Event).
		Str("session_id", ev.SessionID).
		Msg("Tracker event accepted")

	w.Header().Set(models.CacheHeader, id.Token)
	writeJSON(w, http.StatusOK, models.SendResponse{Cache: &id.Token})
}

// eventFromPayload maps a tracker payload onto an event row. A payload
// without a name is a page view; identify payloads carry person properties.
func eventFromPayload(kind string, p *models.Payload) *models.RawEvent {
	ev := &models.RawEvent{
		WebsiteID: p.Website,
		URL:       p.URL,
		Hostname:  hostOnly(p.Hostname),
		Referrer:  p.Referrer,
		Screen:    p.Screen,
		Language:  p.Language,
		PageTitle: p.Title,
		Tag:       p.Tag,
		Lib:       models.LibTracker,
	}
	if p.ID != "" {
		ev.DistinctID = p.ID
	}

	switch {
	case kind == models.SignalIdentify:
		ev.Event = models.StandardEvents.Identify
		ev.PersonProperties = p.Data
	case p.IsPageView():
		ev.Event = models.StandardEvents.PageView
	default:
		ev.Event = p.Name
		ev.Properties = p.Data
	}
	return ev
}
