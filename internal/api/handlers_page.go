// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/registry"
)

// transparentGIF is a 1x1 transparent GIF89a.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// AST handles POST /api/ast. It records one page view for the document and
// one section_viewed event per section, with the section content as JSON.
func (h *Handler) AST(w http.ResponseWriter, r *http.Request) {
	var req models.ASTRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	base := models.RawEvent{
		DistinctID:     req.DistinctID,
		WebsiteID:      req.Website,
		OrganizationID: req.OrganizationID,
		SessionID:      req.SessionID,
		URL:            req.URL,
		Lib:            models.LibAST,
	}

	page := base
	page.Event = models.StandardEvents.PageView
	page.ASTContext = req.Context
	page.ASTType = req.Type
	page.PageTitle = req.Head.Title
	page.PageDescription = req.Head.Description

	events := make([]*models.RawEvent, 0, len(req.Sections)+1)
	events = append(events, &page)

	for _, sec := range req.Sections {
		ev := base
		ev.Event = models.StandardEvents.SectionViewed
		ev.SectionName = sec.Name
		ev.SectionType = sec.Type
		ev.SectionID = sec.ID
		if len(sec.Content) > 0 {
			data, err := json.Marshal(sec.Content)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Str("section", sec.Name).Msg("Encode section content failed")
			} else {
				ev.ComponentData = string(data)
			}
		}
		events = append(events, &ev)
	}

	h.ingest(w, r, events)
}

// Element handles POST /api/element.
func (h *Handler) Element(w http.ResponseWriter, r *http.Request) {
	var req models.ElementSignal
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	name := req.Event
	if name == "" {
		name = models.ElementEventName(req.ElementType)
	}
	h.ingest(w, r, []*models.RawEvent{{
		Event:           name,
		WebsiteID:       req.Website,
		URL:             req.URL,
		ElementID:       req.ElementID,
		ElementType:     req.ElementType,
		ElementSelector: req.ElementSelector,
		ElementText:     req.ElementText,
		ElementHref:     req.ElementHref,
		Lib:             models.LibTracker,
	}})
}

// Section handles POST /api/section.
func (h *Handler) Section(w http.ResponseWriter, r *http.Request) {
	var req models.SectionSignal
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	h.ingest(w, r, []*models.RawEvent{{
		Event:       models.StandardEvents.SectionViewed,
		WebsiteID:   req.Website,
		URL:         req.URL,
		SectionName: req.SectionName,
		SectionType: req.SectionType,
		SectionID:   req.SectionID,
		Lib:         models.LibTracker,
	}})
}

// Pixel handles GET /api/pixel.gif. The GIF is always returned; the event
// is recorded only when the query names a website or organization and the
// registry admits it.
//
// Query parameters: wid (website), oid (organization), uid (distinct id),
// sid (session), src (source), cid (campaign), eid (email).
func (h *Handler) Pixel(w http.ResponseWriter, r *http.Request) {
	defer writePixel(w)

	q := r.URL.Query()
	ev := &models.RawEvent{
		Event:          models.StandardEvents.PixelView,
		WebsiteID:      q.Get("wid"),
		OrganizationID: q.Get("oid"),
		DistinctID:     q.Get("uid"),
		SessionID:      q.Get("sid"),
		Referrer:       r.Referer(),
		Properties: map[string]any{
			"source":      q.Get("src"),
			"campaign_id": q.Get("cid"),
			"email_id":    q.Get("eid"),
		},
		Lib: models.LibPixel,
	}

	if ev.Tenant() == "" {
		metrics.RecordEventRejected("validation")
		return
	}
	if isBot(r.UserAgent()) {
		metrics.RecordEventRejected("bot")
		return
	}

	h.enricher.Apply(ev, r)
	if d := h.admit(r.Context(), ev); d != registry.Accept {
		metrics.RecordEventRejected(d.String())
		return
	}
	if err := h.sink.Ingest(r.Context(), []*models.RawEvent{ev}); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Pixel event not recorded")
	}
}

func writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}
