// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestPayloadOmitsOptionalFields(t *testing.T) {
	t.Parallel()

	p := Payload{Website: "w1", Screen: "1920x1080", Language: "en-US", URL: "https://example.com/"}
	data, err := json.Marshal(SendRequest{Type: SignalEvent, Payload: p})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)

	for _, want := range []string{`"website":"w1"`, `"referrer":""`, `"title":""`, `"type":"event"`} {
		if !strings.Contains(out, want) {
			t.Errorf("body missing %s: %s", want, out)
		}
	}
	for _, absent := range []string{`"tag"`, `"id"`, `"name"`, `"data"`} {
		if strings.Contains(out, absent) {
			t.Errorf("body contains %s: %s", absent, out)
		}
	}
}

func TestSendResponseCachePresence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body      string
		wantCache *string
		disabled  bool
	}{
		{`{"cache":"tok"}`, ptr("tok"), false},
		{`{"cache":""}`, ptr(""), false},
		{`{"disabled":true}`, nil, true},
		{`{}`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			t.Parallel()
			var resp SendResponse
			if err := json.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			switch {
			case tt.wantCache == nil && resp.Cache != nil:
				t.Errorf("Cache = %q, want absent", *resp.Cache)
			case tt.wantCache != nil && (resp.Cache == nil || *resp.Cache != *tt.wantCache):
				t.Errorf("Cache = %v, want %q", resp.Cache, *tt.wantCache)
			}
			if resp.Disabled != tt.disabled {
				t.Errorf("Disabled = %v, want %v", resp.Disabled, tt.disabled)
			}
		})
	}
}

func TestPayloadClone(t *testing.T) {
	t.Parallel()

	p := Payload{Website: "w1", Name: "signup", Data: map[string]any{"plan": "pro"}}
	c := p.Clone()
	c.Data["plan"] = "free"

	if p.Data["plan"] != "pro" {
		t.Errorf("original Data mutated: %v", p.Data)
	}
	if p.IsPageView() {
		t.Error("named payload reported as page view")
	}
}

func TestElementEventName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"button": "button_clicked",
		"a":      "link_clicked",
		"link":   "link_clicked",
		"form":   "form_submitted",
		"input":  "input_changed",
		"div":    "element_interaction",
	}
	for in, want := range tests {
		if got := ElementEventName(in); got != want {
			t.Errorf("ElementEventName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebsiteAllowsHost(t *testing.T) {
	t.Parallel()

	open := Website{ID: "w1"}
	if !open.AllowsHost("any.example") {
		t.Error("empty domain list should allow every host")
	}

	scoped := Website{ID: "w2", Domains: []string{"example.com", "www.example.com"}}
	if !scoped.AllowsHost("www.example.com") {
		t.Error("listed host rejected")
	}
	if scoped.AllowsHost("evil.example") {
		t.Error("unlisted host allowed")
	}
}

func TestRawEventTenant(t *testing.T) {
	t.Parallel()

	e := RawEvent{OrganizationID: "org"}
	if got := e.Tenant(); got != "org" {
		t.Errorf("Tenant() = %q, want org", got)
	}
	e.WebsiteID = "site"
	if got := e.Tenant(); got != "site" {
		t.Errorf("Tenant() = %q, want site", got)
	}
}

func ptr(s string) *string { return &s }
