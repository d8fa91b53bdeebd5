// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import "slices"

// TrackingDisabled reports whether signals must be suppressed right now. It
// is evaluated before every transmission, never cached.
func (t *Tracker) TrackingDisabled() bool {
	if t.inert {
		return true
	}

	t.mu.Lock()
	disabled := t.disabled
	t.mu.Unlock()

	switch {
	case disabled, t.cfg.Website == "":
		return true
	case t.optedOut():
		return true
	case t.cfg.Domains != nil && !slices.Contains(t.cfg.Domains, t.win.Hostname()):
		return true
	case t.cfg.DoNotTrack && t.win.DoNotTrack().Enabled():
		return true
	}
	return false
}

func (t *Tracker) optedOut() bool {
	s := t.win.Storage()
	if s == nil {
		return false
	}
	v, ok := s.GetItem(OptOutKey)
	return ok && v != ""
}
