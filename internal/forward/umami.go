// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package forward

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/models"
)

// UmamiBackend posts events to an Umami instance's /api/send, one request
// per event.
type UmamiBackend struct {
	endpoint  string
	websiteID string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewUmami creates the Umami backend. cfg.Umami.WebsiteID overrides the
// event's website id when set.
func NewUmami(cfg config.ForwardConfig, client *http.Client) *UmamiBackend {
	return &UmamiBackend{
		endpoint:  strings.TrimRight(cfg.Umami.Endpoint, "/"),
		websiteID: cfg.Umami.WebsiteID,
		client:    client,
		limiter:   newLimiter(cfg),
	}
}

func (u *UmamiBackend) Name() string { return "umami" }

type umamiEvent struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Send posts each event; the first failure aborts the batch.
func (u *UmamiBackend) Send(ctx context.Context, events []*models.RawEvent) error {
	for _, ev := range events {
		if err := wait(ctx, u.limiter); err != nil {
			return err
		}

		body, err := json.Marshal(u.convert(ev))
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint+"/api/send", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if ev.UserAgent != "" {
			req.Header.Set("User-Agent", ev.UserAgent)
		}

		if err := do(u.client, u.Name(), req); err != nil {
			return err
		}
	}
	return nil
}

func (u *UmamiBackend) convert(ev *models.RawEvent) umamiEvent {
	website := u.websiteID
	if website == "" {
		website = ev.WebsiteID
	}
	url := ev.URLPath
	if url == "" {
		url = ev.URL
	}

	payload := map[string]any{
		"website":  website,
		"url":      url,
		"hostname": ev.Hostname,
		"language": ev.Language,
		"screen":   ev.Screen,
	}

	switch ev.Event {
	case models.StandardEvents.PageView:
		payload["title"] = ev.PageTitle
		payload["referrer"] = ev.Referrer
		return umamiEvent{Type: "event", Payload: payload}
	case models.StandardEvents.Identify:
		payload["data"] = ev.PersonProperties
		return umamiEvent{Type: "identify", Payload: payload}
	default:
		payload["name"] = ev.Event
		if len(ev.Properties) > 0 {
			payload["data"] = ev.Properties
		}
		return umamiEvent{Type: "event", Payload: payload}
	}
}
