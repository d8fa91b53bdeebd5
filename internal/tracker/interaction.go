// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"regexp"

	"golang.org/x/net/html"

	"github.com/hanzoai/analytics/internal/models"
)

// EventAttr marks an element whose clicks are tracked; its value is the
// event name.
const EventAttr = "data-hanzo-event"

var eventDataAttr = regexp.MustCompile(`^data-hanzo-event-([\w-]+)$`)

// elementTextLimit caps ElementSignal.ElementText.
const elementTextLimit = 200

func (t *Tracker) observeClicks(ctx context.Context) {
	remove := t.clicks.AddClickListener(func(ev *ClickEvent) {
		t.onClick(ctx, ev)
	}, true)
	t.addCleanup(remove)
}

// clickPlan is what a click resolves to, computed under the document lock.
type clickPlan struct {
	el       *html.Node
	anchor   bool
	href     string
	target   string
	external bool
}

func (t *Tracker) onClick(ctx context.Context, ev *ClickEvent) {
	defer t.recoverPanic("click")

	if ev == nil || ev.Target == nil {
		return
	}
	loc := t.win.Location()

	var plan *clickPlan
	t.win.ReadDocument(func(*html.Node) {
		target := ev.Target
		parent := closest(target, "a", "button")

		switch {
		case hasAttr(target, EventAttr) && parent != target:
			plan = &clickPlan{el: target}
		case parent == nil, !hasAttr(parent, EventAttr):
		case parent.Data == "button":
			plan = &clickPlan{el: parent}
		default:
			href := resolveHref(parent, loc)
			if href == "" {
				return
			}
			tgt := attr(parent, "target")
			plan = &clickPlan{
				el:       parent,
				anchor:   true,
				href:     href,
				target:   tgt,
				external: tgt == "_blank" || ev.CtrlKey || ev.ShiftKey || ev.MetaKey || ev.Button == 1,
			}
		}
	})
	if plan == nil {
		return
	}

	if plan.anchor && !plan.external {
		ev.PreventDefault()
	}
	t.goAsync("click", func() {
		t.trackElementEvent(ctx, plan.el)
		if !plan.anchor || plan.external {
			return
		}
		if plan.target == "_top" {
			t.win.Top().Navigate(plan.href)
		} else {
			t.win.Navigate(plan.href)
		}
	})
}

// trackElementEvent sends the named event of el together with its element
// signal. Event data comes from the data-hanzo-event-* attributes.
func (t *Tracker) trackElementEvent(ctx context.Context, el *html.Node) {
	loc := t.win.Location()

	var (
		name   string
		data   = map[string]any{}
		signal models.ElementSignal
	)
	t.win.ReadDocument(func(*html.Node) {
		name = attr(el, EventAttr)
		for _, a := range el.Attr {
			if m := eventDataAttr.FindStringSubmatch(a.Key); m != nil {
				data[m[1]] = a.Val
			}
		}
		signal = models.ElementSignal{
			ElementID:       attr(el, "id"),
			ElementType:     el.Data,
			ElementSelector: firstClass(el),
			ElementText:     textContent(el, elementTextLimit),
			ElementHref:     resolveHref(el, loc),
		}
	})
	if name == "" {
		return
	}

	signal.Website = t.cfg.Website
	signal.URL = t.CurrentURL()
	signal.Event = name
	t.goAsync("element", func() {
		t.postSatellite(ctx, t.endpoints.Element, signal)
	})

	t.TrackEvent(ctx, name, data)
}
