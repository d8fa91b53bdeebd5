// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"net/http"
	"time"

	"github.com/hanzoai/analytics/internal/models"
)

// Event handles POST /api/event.
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	h.ingest(w, r, []*models.RawEvent{eventFromRequest(&req, models.LibTracker)})
}

// Events handles POST /api/events, a batch of up to 500 events. The batch is
// accepted or rejected as a whole.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	var req models.BatchRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	events := make([]*models.RawEvent, len(req.Events))
	for i := range req.Events {
		events[i] = eventFromRequest(&req.Events[i], models.LibTracker)
	}
	h.ingest(w, r, events)
}

// PageView handles POST /api/pageview. Any event name in the body is
// replaced.
func (h *Handler) PageView(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Event = models.StandardEvents.PageView
	if !h.validate(w, r, &req) {
		return
	}
	h.ingest(w, r, []*models.RawEvent{eventFromRequest(&req, models.LibTracker)})
}

// Identify handles POST /api/identify.
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	var req models.IdentifyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	h.ingest(w, r, []*models.RawEvent{{
		Event:            models.StandardEvents.Identify,
		DistinctID:       req.DistinctID,
		OrganizationID:   req.OrganizationID,
		PersonProperties: req.PersonProperties,
		Lib:              models.LibTracker,
	}})
}

// AIMessage handles POST /api/ai/message.
func (h *Handler) AIMessage(w http.ResponseWriter, r *http.Request) {
	var req models.AIMessageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	props := make(map[string]any, len(req.Properties)+2)
	for k, v := range req.Properties {
		props[k] = v
	}
	props["role"] = req.Role
	props["message_id"] = req.MessageID

	h.ingest(w, r, []*models.RawEvent{{
		Event:          models.StandardEvents.AIMessageCreated,
		DistinctID:     req.DistinctID,
		OrganizationID: req.OrganizationID,
		SessionID:      req.ChatID,
		Properties:     props,
		ModelProvider:  req.ModelProvider,
		ModelName:      req.ModelName,
		TokenCount:     req.TokenCount,
		PromptTokens:   req.PromptTokens,
		OutputTokens:   req.OutputTokens,
		TokenPrice:     req.TokenPrice,
		Lib:            models.LibCloud,
	}})
}

// AICompletion handles POST /api/ai/completion.
func (h *Handler) AICompletion(w http.ResponseWriter, r *http.Request) {
	var req models.AICompletionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.ingest(w, r, []*models.RawEvent{{
		Event:          models.StandardEvents.AICompletion,
		DistinctID:     req.DistinctID,
		OrganizationID: req.OrganizationID,
		SessionID:      req.ChatID,
		ModelProvider:  req.ModelProvider,
		ModelName:      req.ModelName,
		PromptTokens:   req.PromptTokens,
		OutputTokens:   req.OutputTokens,
		TokenCount:     req.TotalTokens,
		TokenPrice:     req.Price,
		Properties: map[string]any{
			"duration_ms":   req.DurationMs,
			"success":       req.Success,
			"error_message": req.ErrorMessage,
		},
		Lib: models.LibCloud,
	}})
}

// eventFromRequest copies a server-side event request onto an event row.
// Derived fields are filled later by the Enricher.
func eventFromRequest(req *models.EventRequest, lib string) *models.RawEvent {
	ev := &models.RawEvent{
		Event:           req.Event,
		DistinctID:      req.DistinctID,
		WebsiteID:       req.WebsiteID,
		OrganizationID:  req.OrganizationID,
		ProjectID:       req.ProjectID,
		SessionID:       req.SessionID,
		VisitID:         req.VisitID,
		Properties:      req.Properties,
		URL:             req.URL,
		Referrer:        req.Referrer,
		ASTContext:      req.Context,
		ASTType:         req.Type,
		PageTitle:       req.PageTitle,
		PageDescription: req.PageDescription,
		PageType:        req.PageType,
		ElementID:       req.ElementID,
		ElementType:     req.ElementType,
		ElementSelector: req.ElementSelector,
		ElementText:     req.ElementText,
		ElementHref:     req.ElementHref,
		SectionName:     req.SectionName,
		SectionType:     req.SectionType,
		SectionID:       req.SectionID,
		ComponentPath:   req.ComponentPath,
		ComponentData:   req.ComponentData,
		ModelProvider:   req.ModelProvider,
		ModelName:       req.ModelName,
		TokenCount:      req.TokenCount,
		TokenPrice:      req.TokenPrice,
		PromptTokens:    req.PromptTokens,
		OutputTokens:    req.OutputTokens,
		OrderID:         req.OrderID,
		ProductID:       req.ProductID,
		CartID:          req.CartID,
		Revenue:         req.Revenue,
		Quantity:        req.Quantity,
		Lib:             lib,
	}

	// Unparseable timestamps fall back to receive time.
	if req.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			ev.Timestamp = t.UTC()
		}
	}
	return ev
}
