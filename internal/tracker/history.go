// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"sync"
	"sync/atomic"
)

// StateFunc is the signature of history.pushState and history.replaceState.
type StateFunc func(state any, title, rawURL string) error

// History is the window history with replaceable state functions. The
// defaults move the window location without navigating.
type History struct {
	mu           sync.Mutex
	pushState    StateFunc
	replaceState StateFunc
	state        any
	length       int
}

func newHistory(w *Window) *History {
	h := &History{length: 1}
	h.pushState = func(state any, _, rawURL string) error {
		if err := h.move(w, state, rawURL); err != nil {
			return err
		}
		h.mu.Lock()
		h.length++
		h.mu.Unlock()
		return nil
	}
	h.replaceState = func(state any, _, rawURL string) error {
		return h.move(w, state, rawURL)
	}
	return h
}

func (h *History) move(w *Window, state any, rawURL string) error {
	if rawURL != "" {
		loc := w.Location()
		next, err := loc.Parse(rawURL)
		if err != nil {
			return err
		}
		if origin(next) != origin(loc) {
			return ErrCrossOrigin
		}
		w.setLocation(next)
	}
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
	return nil
}

// PushState calls the current pushState function.
func (h *History) PushState(state any, title, rawURL string) error {
	h.mu.Lock()
	fn := h.pushState
	h.mu.Unlock()
	return fn(state, title, rawURL)
}

// ReplaceState calls the current replaceState function.
func (h *History) ReplaceState(state any, title, rawURL string) error {
	h.mu.Lock()
	fn := h.replaceState
	h.mu.Unlock()
	return fn(state, title, rawURL)
}

// WrapPushState replaces pushState with wrap(current).
func (h *History) WrapPushState(wrap func(StateFunc) StateFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushState = wrap(h.pushState)
}

// WrapReplaceState replaces replaceState with wrap(current).
func (h *History) WrapReplaceState(wrap func(StateFunc) StateFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replaceState = wrap(h.replaceState)
}

// State returns the last state object.
func (h *History) State() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.length
}

// NavigationSource notifies subscribers of client-side navigations.
type NavigationSource interface {
	Subscribe(fn func(rawURL string)) (unsubscribe func())
}

// HistorySource observes navigation by decorating History.PushState and
// History.ReplaceState. The decorator calls the subscriber with the new URL
// and then delegates to the original function, returning its error.
type HistorySource struct {
	history *History
}

// NewHistorySource returns a NavigationSource over h.
func NewHistorySource(h *History) *HistorySource {
	return &HistorySource{history: h}
}

// Subscribe installs the decorators. Unsubscribing leaves them in place but
// turns them into pass-throughs, so later wrappers stay intact.
func (s *HistorySource) Subscribe(fn func(rawURL string)) (unsubscribe func()) {
	var active atomic.Bool
	active.Store(true)

	decorate := func(orig StateFunc) StateFunc {
		return func(state any, title, rawURL string) error {
			if active.Load() {
				fn(rawURL)
			}
			return orig(state, title, rawURL)
		}
	}
	s.history.WrapPushState(decorate)
	s.history.WrapReplaceState(decorate)

	return func() { active.Store(false) }
}

// ManualNavigation is a NavigationSource driven by Navigate calls, for tests
// and hosts without a History.
type ManualNavigation struct {
	mu   sync.Mutex
	subs map[int]func(string)
	next int
}

// NewManualNavigation returns an empty ManualNavigation.
func NewManualNavigation() *ManualNavigation {
	return &ManualNavigation{subs: make(map[int]func(string))}
}

// Subscribe registers fn.
func (m *ManualNavigation) Subscribe(fn func(rawURL string)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Navigate notifies every subscriber of rawURL.
func (m *ManualNavigation) Navigate(rawURL string) {
	m.mu.Lock()
	fns := make([]func(string), 0, len(m.subs))
	for _, id := range sortedKeys(m.subs) {
		fns = append(fns, m.subs[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(rawURL)
	}
}
