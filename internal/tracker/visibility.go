// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"

	"golang.org/x/net/html"

	"github.com/hanzoai/analytics/internal/models"
)

// VisibilityThreshold is the visible fraction at which a section counts as
// viewed.
const VisibilityThreshold = 0.5

// isObservedSection matches section[data-section], [data-section] and
// section[aria-label].
func isObservedSection(n *html.Node) bool {
	return hasAttr(n, "data-section") || (isElement(n, "section") && hasAttr(n, "aria-label"))
}

func (t *Tracker) observeSections(ctx context.Context) {
	if !t.cfg.AST {
		return
	}

	var candidates []*html.Node
	t.win.ReadDocument(func(doc *html.Node) {
		walk(doc, func(n *html.Node) {
			if isObservedSection(n) {
				candidates = append(candidates, n)
			}
		})
	})

	for _, el := range candidates {
		unobserve := t.intersections.Observe(el, VisibilityThreshold, func(e IntersectionEntry) {
			t.onSectionVisible(ctx, e)
		})
		t.addCleanup(unobserve)
	}
}

// onSectionVisible reports a section the first time it becomes visible.
// Later crossings of the same element are ignored.
func (t *Tracker) onSectionVisible(ctx context.Context, e IntersectionEntry) {
	defer t.recoverPanic("visibility")

	if !e.IsIntersecting || e.Target == nil {
		return
	}

	t.mu.Lock()
	if t.tracked[e.Target] {
		t.mu.Unlock()
		return
	}
	t.tracked[e.Target] = true
	url := t.currentURL
	t.mu.Unlock()

	var signal models.SectionSignal
	t.win.ReadDocument(func(*html.Node) {
		el := e.Target
		name := attr(el, "data-section")
		if name == "" {
			name = attr(el, "aria-label")
		}
		if name == "" {
			name = attr(el, "id")
		}
		signal = models.SectionSignal{
			Website:     t.cfg.Website,
			URL:         url,
			SectionName: name,
			SectionType: el.Data,
			SectionID:   attr(el, "id"),
		}
	})
	if signal.SectionName == "" {
		return
	}

	t.goAsync("section", func() {
		t.postSatellite(ctx, t.endpoints.Section, signal)
	})
}
