// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"testing"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/models"
)

const clickBody = `
<button id="buy" class="btn primary" data-hanzo-event="checkout" data-hanzo-event-plan="pro"><span>Buy now</span></button>
<a id="docs" href="/docs" data-hanzo-event="docs_click">Docs</a>
<a id="out" href="https://partner.example/" target="_blank" data-hanzo-event="partner">Partner</a>
<a id="top" href="/home" target="_top" data-hanzo-event="home">Home</a>
<a id="plain" href="/plain">Plain</a>
<div id="card" data-hanzo-event="card_view">Card</div>
`

func startClickHarness(t *testing.T) *harness {
	t.Helper()
	win := newTestWindow(t, `data-website-id="w1" data-ast="false"`, clickBody)
	h := newHarness(t, win)
	h.tracker.Start(context.Background())
	return h
}

func lastEvent(t *testing.T, h *harness) models.Payload {
	t.Helper()
	sends := h.transport.sends(t)
	if len(sends) < 2 {
		t.Fatalf("sends = %d, want an event after the page view", len(sends))
	}
	return sends[len(sends)-1].Payload
}

func TestClickOnButtonDescendant(t *testing.T) {
	t.Parallel()

	h := startClickHarness(t)
	ev := &ClickEvent{Target: h.find(t, `//button[@id="buy"]/span`)}
	h.win.DispatchClick(ev)
	h.tracker.Wait()

	p := lastEvent(t, h)
	if p.Name != "checkout" {
		t.Errorf("Name = %q, want checkout", p.Name)
	}
	if p.Data["plan"] != "pro" {
		t.Errorf("Data = %v, want plan=pro", p.Data)
	}
	if ev.DefaultPrevented() {
		t.Error("button click prevented default")
	}

	elements := h.transport.to("/api/element")
	if len(elements) != 1 {
		t.Fatalf("element signals = %d, want 1", len(elements))
	}
	var sig models.ElementSignal
	if err := json.Unmarshal(elements[0].Body, &sig); err != nil {
		t.Fatalf("decode element signal: %v", err)
	}
	want := models.ElementSignal{
		Website:         "w1",
		URL:             "https://example.com/",
		ElementID:       "buy",
		ElementType:     "button",
		ElementSelector: ".btn",
		ElementText:     "Buy now",
		Event:           "checkout",
	}
	if sig != want {
		t.Errorf("element signal = %+v, want %+v", sig, want)
	}
}

func TestClickOnInternalAnchor(t *testing.T) {
	t.Parallel()

	h := startClickHarness(t)
	ev := &ClickEvent{Target: h.find(t, `//a[@id="docs"]`)}
	h.win.DispatchClick(ev)
	h.tracker.Wait()

	if !ev.DefaultPrevented() {
		t.Error("internal anchor click did not prevent default")
	}
	if p := lastEvent(t, h); p.Name != "docs_click" {
		t.Errorf("Name = %q, want docs_click", p.Name)
	}
	nav := h.win.Navigations()
	if len(nav) != 1 || nav[0] != "https://example.com/docs" {
		t.Errorf("Navigations() = %v, want the anchor href after the event", nav)
	}
}

func TestClickOnExternalAnchor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		xpath string
		ev    ClickEvent
	}{
		{"target blank", `//a[@id="out"]`, ClickEvent{}},
		{"ctrl key", `//a[@id="docs"]`, ClickEvent{CtrlKey: true}},
		{"middle button", `//a[@id="docs"]`, ClickEvent{Button: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := startClickHarness(t)
			ev := tt.ev
			ev.Target = h.find(t, tt.xpath)
			h.win.DispatchClick(&ev)
			h.tracker.Wait()

			if ev.DefaultPrevented() {
				t.Error("external click prevented default")
			}
			if n := len(h.win.Opened()); n != 1 {
				t.Errorf("Opened() = %d entries, want 1", n)
			}
			if n := len(h.win.Navigations()); n != 0 {
				t.Errorf("Navigations() = %d entries, want 0", n)
			}
			if n := len(h.transport.to("/api/element")); n != 1 {
				t.Errorf("element signals = %d, want 1", n)
			}
		})
	}
}

func TestClickOnTopTargetAnchor(t *testing.T) {
	t.Parallel()

	top, err := ParseWindow("https://example.com/", "<html><head></head><body></body></html>")
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}
	win := newTestWindow(t, `data-website-id="w1" data-ast="false"`, clickBody, WithTop(top))
	h := newHarness(t, win)
	h.tracker.Start(context.Background())

	h.win.DispatchClick(&ClickEvent{Target: h.find(t, `//a[@id="top"]`)})
	h.tracker.Wait()

	if nav := top.Navigations(); len(nav) != 1 || nav[0] != "https://example.com/home" {
		t.Errorf("top Navigations() = %v", nav)
	}
	if n := len(win.Navigations()); n != 0 {
		t.Errorf("frame Navigations() = %d entries, want 0", n)
	}
}

func TestClickIgnored(t *testing.T) {
	t.Parallel()

	h := startClickHarness(t)
	ev := &ClickEvent{Target: h.find(t, `//a[@id="plain"]`)}
	h.win.DispatchClick(ev)
	h.tracker.Wait()

	if n := len(h.transport.sends(t)); n != 1 {
		t.Errorf("sends = %d, want only the page view", n)
	}
	if nav := h.win.Navigations(); len(nav) != 1 {
		t.Errorf("default action did not run: Navigations() = %v", nav)
	}
}

func TestClickOnMarkedNonInteractiveElement(t *testing.T) {
	t.Parallel()

	h := startClickHarness(t)
	h.win.DispatchClick(&ClickEvent{Target: h.find(t, `//div[@id="card"]`)})
	h.tracker.Wait()

	if p := lastEvent(t, h); p.Name != "card_view" {
		t.Errorf("Name = %q, want card_view", p.Name)
	}
}

func TestClickListenerRemovedOnClose(t *testing.T) {
	t.Parallel()

	h := startClickHarness(t)
	h.tracker.Close()
	h.win.DispatchClick(&ClickEvent{Target: h.find(t, `//div[@id="card"]`)})

	if n := h.transport.count(); n != 1 {
		t.Errorf("requests = %d, want only the page view", n)
	}
}
