// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/registry"
	"github.com/hanzoai/analytics/internal/session"
)

const (
	testSecret     = "0123456789abcdef0123456789abcdef"
	testAdminToken = "admin-token-0123456789"
	browserUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*models.RawEvent
	err    error
}

func (s *recordingSink) Ingest(_ context.Context, events []*models.RawEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) Events() []*models.RawEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.RawEvent(nil), s.events...)
}

type fakeRegistry struct {
	mu           sync.Mutex
	sites        map[string]*models.Website
	allowUnknown bool
}

func newFakeRegistry(sites ...*models.Website) *fakeRegistry {
	r := &fakeRegistry{sites: make(map[string]*models.Website)}
	for _, s := range sites {
		r.sites[s.ID] = s
	}
	return r
}

func (f *fakeRegistry) Check(_ context.Context, id, host string) registry.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.sites[id]
	switch {
	case !ok && f.allowUnknown:
		return registry.Accept
	case !ok:
		return registry.Unknown
	case w.Disabled:
		return registry.Disabled
	case !w.AllowsHost(host):
		return registry.DomainRejected
	}
	return registry.Accept
}

func (f *fakeRegistry) Get(_ context.Context, id string) (*models.Website, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.sites[id]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return w, nil
}

func (f *fakeRegistry) Put(_ context.Context, w *models.Website) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *w
	f.sites[w.ID] = &cp
	return nil
}

func (f *fakeRegistry) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sites[id]; !ok {
		return registry.ErrNotFound
	}
	delete(f.sites, id)
	return nil
}

func (f *fakeRegistry) List(context.Context) ([]*models.Website, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Website, 0, len(f.sites))
	for _, w := range f.sites {
		out = append(out, w)
	}
	return out, nil
}

type testServer struct {
	handler  http.Handler
	sink     *recordingSink
	websites *fakeRegistry
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) *testServer {
	t.Helper()

	sessions, err := session.NewManager(config.SessionConfig{
		Secret:       testSecret,
		TokenTTL:     time.Hour,
		VisitTimeout: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ts := &testServer{
		sink: &recordingSink{},
		websites: newFakeRegistry(
			&models.Website{ID: "site-1", Domains: []string{"example.com"}},
			&models.Website{ID: "site-off", Disabled: true},
		),
	}
	deps := Dependencies{
		Config: config.ServerConfig{
			MaxBodyBytes:      64 << 10,
			RateLimitDisabled: true,
			AdminToken:        testAdminToken,
		},
		Sink:     ts.sink,
		Websites: ts.websites,
		Sessions: sessions,
	}
	if mutate != nil {
		mutate(&deps)
	}
	ts.handler = NewRouter(deps).SetupChi()
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", browserUA)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", rec.Body.String(), err)
	}
	return resp
}

var errSinkDown = errors.New("sink down")
