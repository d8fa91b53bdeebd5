// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Vendor script URLs.
const (
	gtagScript      = "https://www.googletagmanager.com/gtag/js?id="
	gtmScript       = "https://www.googletagmanager.com/gtm.js?id="
	metaScript      = "https://connect.facebook.net/en_US/fbevents.js"
	tiktokScript    = "https://analytics.tiktok.com/i18n/pixel/events.js?sdkid="
	linkedInScript  = "https://snap.licdn.com/li.lms-analytics/insight.min.js"
	pinterestScript = "https://s.pinimg.com/ct/core.js"
	snapScript      = "https://sc-static.net/scevent.min.js"

	// PlausibleEndpoint receives Plausible beacons.
	PlausibleEndpoint = "https://plausible.io/api/event"
)

// PageView is what providers receive for a page view.
type PageView struct {
	URL      string
	Title    string
	Referrer string
}

// Provider adapts one third-party analytics vendor.
type Provider interface {
	Name() string
	Enabled() bool
	Initialize(w *Window) error
	ForwardPageView(w *Window, pv PageView) error
	ForwardEvent(w *Window, name string, data map[string]any) error
}

// Registry invokes providers independently: an error or panic in one is
// logged and never reaches the others.
type Registry struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewRegistry returns a Registry over the enabled providers.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRegistry(logger zerolog.Logger, providers ...Provider) *Registry {
	r := &Registry{logger: logger}
	for _, p := range providers {
		if p != nil && p.Enabled() {
			r.providers = append(r.providers, p)
		}
	}
	return r
}

// Names lists the enabled providers.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Name())
	}
	return out
}

// Initialize sets up every provider.
func (r *Registry) Initialize(w *Window) {
	for _, p := range r.providers {
		r.invoke(p, "initialize", func() error { return p.Initialize(w) })
	}
}

// PageView forwards a page view to every provider.
func (r *Registry) PageView(w *Window, pv PageView) {
	for _, p := range r.providers {
		r.invoke(p, "page_view", func() error { return p.ForwardPageView(w, pv) })
	}
}

// Event forwards a named event to every provider.
func (r *Registry) Event(w *Window, name string, data map[string]any) {
	for _, p := range r.providers {
		r.invoke(p, "event", func() error { return p.ForwardEvent(w, name, data) })
	}
}

func (r *Registry) invoke(p Provider, op string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().Str("provider", p.Name()).Str("op", op).Interface("panic", rec).Msg("Provider panicked")
		}
	}()
	if err := fn(); err != nil {
		r.logger.Debug().Err(err).Str("provider", p.Name()).Str("op", op).Msg("Provider failed")
	}
}

// DefaultProviders returns every built-in provider; those without an id
// report themselves disabled.
func DefaultProviders(ids ProviderIDs) []Provider {
	return []Provider{
		GoogleAnalytics{ID: ids.GoogleAnalytics},
		TagManager{ID: ids.TagManager},
		MetaPixel{ID: ids.MetaPixel},
		TikTokPixel{ID: ids.TikTokPixel},
		LinkedInInsight{ID: ids.LinkedIn},
		PinterestTag{ID: ids.Pinterest},
		SnapPixel{ID: ids.SnapPixel},
		Plausible{Domain: ids.PlausibleDomain},
	}
}

func orEmpty(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

// GoogleAnalytics forwards to gtag.js.
type GoogleAnalytics struct{ ID string }

func (GoogleAnalytics) Name() string    { return "google-analytics" }
func (g GoogleAnalytics) Enabled() bool { return g.ID != "" }

func (g GoogleAnalytics) Initialize(w *Window) error {
	src := gtagScript + url.QueryEscape(g.ID)
	if w.HasScript(src) {
		return nil
	}
	if err := w.AppendScript(src); err != nil {
		return err
	}
	dataLayer := w.EnsureQueue("dataLayer")
	w.SetGlobal("gtag", Func(func(args ...any) { dataLayer.Push(Command(args)) }))
	w.CallGlobal("gtag", "js", time.Now())
	w.CallGlobal("gtag", "config", g.ID, map[string]any{"send_page_view": false})
	return nil
}

func (g GoogleAnalytics) ForwardPageView(w *Window, pv PageView) error {
	w.CallGlobal("gtag", "event", "page_view", map[string]any{"page_location": pv.URL, "page_title": pv.Title})
	return nil
}

func (g GoogleAnalytics) ForwardEvent(w *Window, name string, data map[string]any) error {
	w.CallGlobal("gtag", "event", name, orEmpty(data))
	return nil
}

// TagManager loads Google Tag Manager. It forwards nothing itself.
type TagManager struct{ ID string }

func (TagManager) Name() string    { return "google-tag-manager" }
func (m TagManager) Enabled() bool { return m.ID != "" }

func (m TagManager) Initialize(w *Window) error {
	src := gtmScript + url.QueryEscape(m.ID)
	if w.HasScript(src) {
		return nil
	}
	w.EnsureQueue("dataLayer").Push(map[string]any{"gtm.start": time.Now().UnixMilli(), "event": "gtm.js"})
	return w.AppendScript(src)
}

func (TagManager) ForwardPageView(*Window, PageView) error            { return nil }
func (TagManager) ForwardEvent(*Window, string, map[string]any) error { return nil }

// MetaPixel forwards to the Meta (Facebook) pixel.
type MetaPixel struct{ ID string }

func (MetaPixel) Name() string    { return "meta-pixel" }
func (m MetaPixel) Enabled() bool { return m.ID != "" }

func (m MetaPixel) Initialize(w *Window) error {
	if w.HasScript(metaScript) {
		return nil
	}
	if s, ok := w.EnsureStub("fbq").(*Stub); ok {
		s.Version = "2.0"
	}
	w.CallGlobal("fbq", "init", m.ID)
	return w.AppendScript(metaScript)
}

func (MetaPixel) ForwardPageView(w *Window, _ PageView) error {
	w.CallGlobal("fbq", "track", "PageView")
	return nil
}

func (MetaPixel) ForwardEvent(w *Window, name string, data map[string]any) error {
	w.CallGlobal("fbq", "trackCustom", name, orEmpty(data))
	return nil
}

// TikTokPixel forwards to the TikTok pixel. Its command queue records the
// method name as the first element of each Command.
type TikTokPixel struct{ ID string }

func (TikTokPixel) Name() string    { return "tiktok-pixel" }
func (p TikTokPixel) Enabled() bool { return p.ID != "" }

func (p TikTokPixel) Initialize(w *Window) error {
	src := tiktokScript + url.QueryEscape(p.ID)
	if w.HasScript(src) {
		return nil
	}
	w.EnsureStub("ttq")
	if err := w.AppendScript(src); err != nil {
		return err
	}
	w.CallGlobal("ttq", "page")
	return nil
}

func (TikTokPixel) ForwardPageView(*Window, PageView) error { return nil }

func (TikTokPixel) ForwardEvent(w *Window, name string, data map[string]any) error {
	w.CallGlobal("ttq", "track", name, orEmpty(data))
	return nil
}

// LinkedInInsight loads the LinkedIn Insight tag. It forwards nothing itself.
type LinkedInInsight struct{ ID string }

func (LinkedInInsight) Name() string    { return "linkedin-insight" }
func (l LinkedInInsight) Enabled() bool { return l.ID != "" }

func (l LinkedInInsight) Initialize(w *Window) error {
	if w.HasScript(linkedInScript) {
		return nil
	}
	w.EnsureQueue("_linkedin_data_partner_ids").Push(l.ID)
	return w.AppendScript(linkedInScript)
}

func (LinkedInInsight) ForwardPageView(*Window, PageView) error            { return nil }
func (LinkedInInsight) ForwardEvent(*Window, string, map[string]any) error { return nil }

// PinterestTag forwards to the Pinterest tag.
type PinterestTag struct{ ID string }

func (PinterestTag) Name() string    { return "pinterest-tag" }
func (p PinterestTag) Enabled() bool { return p.ID != "" }

func (p PinterestTag) Initialize(w *Window) error {
	if w.HasScript(pinterestScript) {
		return nil
	}
	w.EnsureStub("pintrk")
	if err := w.AppendScript(pinterestScript); err != nil {
		return err
	}
	w.CallGlobal("pintrk", "load", p.ID)
	w.CallGlobal("pintrk", "page")
	return nil
}

func (PinterestTag) ForwardPageView(*Window, PageView) error { return nil }

func (PinterestTag) ForwardEvent(w *Window, name string, data map[string]any) error {
	props := map[string]any{"event_name": name}
	maps.Copy(props, data)
	w.CallGlobal("pintrk", "track", "custom", props)
	return nil
}

// SnapPixel forwards to the Snapchat pixel.
type SnapPixel struct{ ID string }

func (SnapPixel) Name() string    { return "snap-pixel" }
func (p SnapPixel) Enabled() bool { return p.ID != "" }

func (p SnapPixel) Initialize(w *Window) error {
	if w.HasScript(snapScript) {
		return nil
	}
	w.EnsureStub("snaptr")
	if err := w.AppendScript(snapScript); err != nil {
		return err
	}
	w.CallGlobal("snaptr", "init", p.ID)
	w.CallGlobal("snaptr", "track", "PAGE_VIEW")
	return nil
}

func (SnapPixel) ForwardPageView(*Window, PageView) error { return nil }

func (SnapPixel) ForwardEvent(w *Window, name string, data map[string]any) error {
	w.CallGlobal("snaptr", "track", name, orEmpty(data))
	return nil
}

// Plausible sends beacons to plausible.io. It has no script to load.
type Plausible struct{ Domain string }

// plausibleEvent is the beacon body.
type plausibleEvent struct {
	Name     string `json:"n"`
	URL      string `json:"u"`
	Domain   string `json:"d"`
	Referrer string `json:"r,omitempty"`
	Props    string `json:"p,omitempty"`
}

func (Plausible) Name() string             { return "plausible" }
func (p Plausible) Enabled() bool          { return p.Domain != "" }
func (Plausible) Initialize(*Window) error { return nil }

func (p Plausible) ForwardPageView(w *Window, pv PageView) error {
	return p.beacon(w, plausibleEvent{Name: "pageview", URL: pv.URL, Domain: p.Domain, Referrer: pv.Referrer})
}

func (p Plausible) ForwardEvent(w *Window, name string, data map[string]any) error {
	ev := plausibleEvent{Name: name, URL: w.Href(), Domain: p.Domain}
	if data != nil {
		props, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode props: %w", err)
		}
		ev.Props = string(props)
	}
	return p.beacon(w, ev)
}

func (p Plausible) beacon(w *Window, ev plausibleEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode beacon: %w", err)
	}
	w.SendBeacon(PlausibleEndpoint, body)
	return nil
}
