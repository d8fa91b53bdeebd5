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
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/models"
)

// PostHogBackend posts batches to PostHog's /batch/ endpoint.
type PostHogBackend struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewPostHog creates the PostHog backend.
func NewPostHog(cfg config.ForwardConfig, client *http.Client) *PostHogBackend {
	return &PostHogBackend{
		endpoint: strings.TrimRight(cfg.PostHog.Endpoint, "/"),
		apiKey:   cfg.PostHog.APIKey,
		client:   client,
		limiter:  newLimiter(cfg),
		now:      time.Now,
	}
}

func (p *PostHogBackend) Name() string { return "posthog" }

type posthogEvent struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp"`
	SentAt     string         `json:"sent_at"`
}

// Send posts the whole batch in one request.
func (p *PostHogBackend) Send(ctx context.Context, events []*models.RawEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := wait(ctx, p.limiter); err != nil {
		return err
	}

	sentAt := p.now().UTC().Format(time.RFC3339)
	batch := make([]posthogEvent, len(events))
	for i, ev := range events {
		batch[i] = p.convert(ev, sentAt)
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/batch/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(p.client, p.Name(), req)
}

func (p *PostHogBackend) convert(ev *models.RawEvent, sentAt string) posthogEvent {
	props := make(map[string]any, len(ev.Properties)+10)
	for k, v := range ev.Properties {
		props[k] = v
	}
	setIf := func(key, value string) {
		if value != "" {
			props[key] = value
		}
	}
	setIf("$current_url", ev.URL)
	setIf("$host", ev.Hostname)
	setIf("$pathname", ev.URLPath)
	setIf("$referrer", ev.Referrer)
	setIf("$referring_domain", ev.ReferrerDomain)
	setIf("$browser", ev.Browser)
	setIf("$os", ev.OS)
	setIf("$device_type", ev.DeviceType)
	setIf("$session_id", ev.SessionID)
	setIf("$ip", ev.IP)
	setIf("$lib", ev.Lib)
	setIf("utm_source", ev.UTMSource)
	setIf("utm_medium", ev.UTMMedium)
	setIf("utm_campaign", ev.UTMCampaign)
	if ev.Event == models.StandardEvents.Identify && len(ev.PersonProperties) > 0 {
		props["$set"] = ev.PersonProperties
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}
	return posthogEvent{
		APIKey:     p.apiKey,
		Event:      ev.Event,
		DistinctID: ev.DistinctID,
		Properties: props,
		Timestamp:  ts.UTC().Format(time.RFC3339),
		SentAt:     sentAt,
	}
}
