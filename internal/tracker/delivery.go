// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/models"
)

// send delivers one signal to the collection endpoint. It is at-most-once:
// failures are logged at debug level and dropped.
func (t *Tracker) send(ctx context.Context, p *models.Payload, kind string) {
	defer t.recoverPanic("send")

	if t.TrackingDisabled() {
		return
	}
	if p = t.beforeSend(kind, p); p == nil {
		return
	}
	if kind == models.SignalEvent {
		t.forward(p)
	}

	body, err := json.Marshal(models.SendRequest{Type: kind, Payload: *p})
	if err != nil {
		t.logger.Debug().Err(err).Msg("Encode payload failed")
		return
	}

	header := http.Header{"Content-Type": {"application/json"}}
	t.mu.Lock()
	if t.hasCache {
		header.Set(models.CacheHeader, t.cache)
	}
	t.mu.Unlock()

	resp, err := t.transport.Do(ctx, &Request{
		URL:         t.endpoints.Send,
		Header:      header,
		Body:        body,
		Credentials: t.cfg.Credentials,
		Origin:      t.win.Origin(),
		Keepalive:   true,
	})
	if err != nil {
		t.logger.Debug().Err(err).Str("kind", kind).Msg("Send failed")
		return
	}

	var reply *models.SendResponse
	if err := json.Unmarshal(resp.Body, &reply); err != nil || reply == nil {
		return
	}

	t.mu.Lock()
	// Replies can arrive out of order; once set the kill switch stays set.
	if reply.Disabled {
		t.disabled = true
	}
	if reply.Cache != nil {
		t.cache, t.hasCache = *reply.Cache, true
	} else {
		t.cache, t.hasCache = "", false
	}
	t.mu.Unlock()
}

// beforeSend applies the window's before-send hook. A hook that panics
// drops the signal.
func (t *Tracker) beforeSend(kind string, p *models.Payload) (out *models.Payload) {
	if t.cfg.BeforeSend == "" {
		return p
	}
	v, ok := t.win.Global(t.cfg.BeforeSend)
	if !ok {
		return p
	}

	var hook BeforeSendFunc
	switch fn := v.(type) {
	case BeforeSendFunc:
		hook = fn
	case func(string, *models.Payload) *models.Payload:
		hook = fn
	default:
		return p
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Debug().Interface("panic", r).Msg("Before-send hook failed")
			out = nil
		}
	}()
	return hook(kind, p)
}

// forward fans an event signal out to the third-party providers.
func (t *Tracker) forward(p *models.Payload) {
	if p.Name != "" {
		t.providers.Event(t.win, p.Name, p.Data)
		return
	}
	t.providers.PageView(t.win, PageView{URL: p.URL, Title: p.Title, Referrer: t.win.Referrer()})
}

// postSatellite posts body to a satellite endpoint, fire-and-forget.
func (t *Tracker) postSatellite(ctx context.Context, endpoint string, body any) {
	defer t.recoverPanic("satellite")

	if t.TrackingDisabled() {
		return
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("Encode satellite body failed")
		return
	}
	if _, err := t.transport.Do(ctx, &Request{
		URL:         endpoint,
		Header:      http.Header{"Content-Type": {"application/json"}},
		Body:        data,
		Credentials: t.cfg.Credentials,
		Origin:      t.win.Origin(),
		Keepalive:   true,
	}); err != nil {
		t.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("Satellite send failed")
	}
}
