// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import "context"

func (t *Tracker) observeNavigation(ctx context.Context) {
	unsubscribe := t.navigation.Subscribe(func(rawURL string) {
		t.onNavigate(ctx, rawURL)
	})
	t.addCleanup(unsubscribe)
}

// onNavigate records a client-side navigation. The page view is debounced:
// a navigation arriving while one is pending replaces it, so only the last
// URL of a burst is reported.
func (t *Tracker) onNavigate(ctx context.Context, rawURL string) {
	defer t.recoverPanic("navigation")

	if rawURL == "" {
		return
	}
	next := t.normalize(rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || next == t.currentURL {
		return
	}
	t.currentRef = t.currentURL
	t.currentURL = next

	if t.navTimer != nil {
		t.navTimer.Stop()
	}
	t.navTimer = t.clock.AfterFunc(NavigationDelay, func() {
		defer t.recoverPanic("navigation timer")
		t.Track(ctx)
		t.CollectAST(ctx)
	})
}

// normalize resolves raw against the current location and strips the query
// and fragment when configured. Unresolvable input is returned unchanged.
func (t *Tracker) normalize(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := t.win.Location().Parse(raw)
	if err != nil {
		return raw
	}
	if t.cfg.ExcludeSearch {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	if t.cfg.ExcludeHash {
		u.Fragment = ""
		u.RawFragment = ""
	}
	if u.Path == "" && u.Opaque == "" && (u.Scheme == "http" || u.Scheme == "https") {
		u.Path = "/"
	}
	return u.String()
}
