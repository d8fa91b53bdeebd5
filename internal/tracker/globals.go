// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"maps"
	"slices"
	"sync"
)

// Command is one recorded call on a vendor command queue.
type Command []any

// Callable is a window global that can be invoked, such as gtag or fbq.
type Callable interface {
	Call(args ...any)
}

// Func adapts a Go function to Callable.
type Func func(args ...any)

// Call invokes f.
func (f Func) Call(args ...any) { f(args...) }

// Queue is an array-like window global such as dataLayer.
type Queue struct {
	mu    sync.Mutex
	items []any
}

// Push appends items.
func (q *Queue) Push(items ...any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Items returns a snapshot of the queue.
func (q *Queue) Items() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]any(nil), q.items...)
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stub is the placeholder command function vendors install before their
// script loads: every call is queued for the vendor script to replay.
type Stub struct {
	Queue
	Version string
}

// Call queues args as a Command.
func (s *Stub) Call(args ...any) {
	s.Push(Command(args))
}

// Commands returns the queued calls.
func (s *Stub) Commands() []Command {
	items := s.Items()
	out := make([]Command, 0, len(items))
	for _, it := range items {
		if c, ok := it.(Command); ok {
			out = append(out, c)
		}
	}
	return out
}

// Global returns the window global name.
func (w *Window) Global(name string) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.globals[name]
	return v, ok
}

// SetGlobal sets the window global name.
func (w *Window) SetGlobal(name string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.globals[name] = v
}

// SetGlobalIfAbsent sets name only when nothing is registered under it and
// reports whether it did.
func (w *Window) SetGlobalIfAbsent(name string, v any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.globals[name]; ok {
		return false
	}
	w.globals[name] = v
	return true
}

// CallGlobal invokes the global name when it is Callable. It reports whether
// a call happened.
func (w *Window) CallGlobal(name string, args ...any) bool {
	v, ok := w.Global(name)
	if !ok {
		return false
	}
	c, ok := v.(Callable)
	if !ok {
		return false
	}
	c.Call(args...)
	return true
}

// EnsureQueue returns the Queue registered under name, creating it when the
// global is absent or holds something else.
func (w *Window) EnsureQueue(name string) *Queue {
	w.mu.Lock()
	defer w.mu.Unlock()
	if q, ok := w.globals[name].(*Queue); ok {
		return q
	}
	q := &Queue{}
	w.globals[name] = q
	return q
}

// EnsureStub installs a Stub under name unless a Callable is already there.
func (w *Window) EnsureStub(name string) Callable {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.globals[name].(Callable); ok {
		return c
	}
	s := &Stub{}
	w.globals[name] = s
	return s
}

func sortedKeys[V any](m map[int]V) []int {
	return slices.Sorted(maps.Keys(m))
}
