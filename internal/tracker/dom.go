// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ClickEvent is a click dispatched on the document.
type ClickEvent struct {
	Target   *html.Node
	Button   int
	CtrlKey  bool
	ShiftKey bool
	MetaKey  bool

	prevented bool
}

// PreventDefault cancels the default action.
func (e *ClickEvent) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *ClickEvent) DefaultPrevented() bool { return e.prevented }

// ClickSource delivers document clicks.
type ClickSource interface {
	AddClickListener(fn func(*ClickEvent), capture bool) (remove func())
}

type clickListener struct {
	fn      func(*ClickEvent)
	capture bool
}

// AddClickListener registers fn on the document. Capture listeners run
// before bubble listeners.
func (w *Window) AddClickListener(fn func(*ClickEvent), capture bool) (remove func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.clickFns[id] = clickListener{fn: fn, capture: capture}
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.clickFns, id)
	}
}

// DispatchClick runs the click listeners and then the default action: an
// enclosing anchor with an href navigates the window (the top window for
// target="_top") or opens a new context for target="_blank", modifier keys
// and the middle button.
func (w *Window) DispatchClick(ev *ClickEvent) {
	w.mu.Lock()
	var capture, bubble []func(*ClickEvent)
	for _, id := range sortedKeys(w.clickFns) {
		l := w.clickFns[id]
		if l.capture {
			capture = append(capture, l.fn)
		} else {
			bubble = append(bubble, l.fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range append(capture, bubble...) {
		fn(ev)
	}
	if ev.DefaultPrevented() {
		return
	}

	loc := w.Location()
	var href, target string
	w.ReadDocument(func(*html.Node) {
		if a := closest(ev.Target, "a"); a != nil {
			href = resolveHref(a, loc)
			target = attr(a, "target")
		}
	})
	switch {
	case href == "":
	case target == "_blank" || ev.CtrlKey || ev.ShiftKey || ev.MetaKey || ev.Button == 1:
		w.Open(href)
	case target == "_top":
		w.Top().Navigate(href)
	default:
		w.Navigate(href)
	}
}

// IntersectionEntry reports an observed element crossing the threshold.
type IntersectionEntry struct {
	Target         *html.Node
	Ratio          float64
	IsIntersecting bool
}

// IntersectionSource observes element visibility.
type IntersectionSource interface {
	Observe(el *html.Node, threshold float64, fn func(IntersectionEntry)) (unobserve func())
}

type observation struct {
	el        *html.Node
	threshold float64
	fn        func(IntersectionEntry)
	above     bool
}

// Observe registers fn for visibility changes of el.
func (w *Window) Observe(el *html.Node, threshold float64, fn func(IntersectionEntry)) (unobserve func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.observers[id] = &observation{el: el, threshold: threshold, fn: fn}
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.observers, id)
	}
}

// ReportIntersection records that ratio of el is visible. Observers are
// notified when el crosses their threshold in either direction.
func (w *Window) ReportIntersection(el *html.Node, ratio float64) {
	type call struct {
		fn    func(IntersectionEntry)
		entry IntersectionEntry
	}

	w.mu.Lock()
	var calls []call
	for _, id := range sortedKeys(w.observers) {
		o := w.observers[id]
		if o.el != el {
			continue
		}
		above := ratio > 0 && ratio >= o.threshold
		if above == o.above {
			continue
		}
		o.above = above
		calls = append(calls, call{fn: o.fn, entry: IntersectionEntry{Target: el, Ratio: ratio, IsIntersecting: above}})
	}
	w.mu.Unlock()

	for _, c := range calls {
		c.fn(c.entry)
	}
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	return htmlquery.SelectAttr(n, key)
}

func hasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func isElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// closest walks from n up through its ancestors and returns the first
// element with one of tags.
func closest(n *html.Node, tags ...string) *html.Node {
	for ; n != nil; n = n.Parent {
		if isElement(n, tags...) {
			return n
		}
	}
	return nil
}

// walk visits every element below root in document order.
func walk(root *html.Node, visit func(*html.Node)) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			visit(c)
		}
		walk(c, visit)
	}
}

// resolveHref returns the absolute href of an anchor or area element, or ""
// for other elements and anchors without one.
func resolveHref(n *html.Node, base *url.URL) string {
	if !isElement(n, "a", "area") || !hasAttr(n, "href") {
		return ""
	}
	raw := strings.TrimSpace(attr(n, "href"))
	u, err := base.Parse(raw)
	if err != nil {
		return raw
	}
	return u.String()
}

func textContent(n *html.Node, limit int) string {
	return truncate(strings.TrimSpace(htmlquery.InnerText(n)), limit)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func firstClass(n *html.Node) string {
	if f := strings.Fields(attr(n, "class")); len(f) > 0 {
		return "." + f[0]
	}
	return ""
}
