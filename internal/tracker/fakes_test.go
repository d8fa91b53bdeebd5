// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/hanzoai/analytics/internal/models"
)

// manualClock fires timers only when Advance is called.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, running due timers in order on the
// calling goroutine.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

type recordedRequest struct {
	URL    string
	Header http.Header
	Body   []byte
	Req    *Request
}

// recordingTransport records requests and answers with reply, or "{}".
type recordingTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	reply    func(req *Request) (*Response, error)
}

func (r *recordingTransport) Do(_ context.Context, req *Request) (*Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{
		URL:    req.URL,
		Header: req.Header.Clone(),
		Body:   append([]byte(nil), req.Body...),
		Req:    req,
	})
	reply := r.reply
	r.mu.Unlock()

	if reply != nil {
		return reply(req)
	}
	return &Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
}

func (r *recordingTransport) setReply(fn func(req *Request) (*Response, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply = fn
}

func (r *recordingTransport) to(suffix string) []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedRequest
	for _, req := range r.requests {
		if strings.HasSuffix(req.URL, suffix) {
			out = append(out, req)
		}
	}
	return out
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recordingTransport) sends(t *testing.T) []models.SendRequest {
	t.Helper()
	var out []models.SendRequest
	for _, req := range r.to("/api/send") {
		var s models.SendRequest
		if err := json.Unmarshal(req.Body, &s); err != nil {
			t.Fatalf("decode send body: %v", err)
		}
		out = append(out, s)
	}
	return out
}

func jsonReply(body string) func(*Request) (*Response, error) {
	return func(*Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	}
}

const pageTemplate = `<!DOCTYPE html>
<html><head><title>Home</title>
<script src="https://cdn.example.com/t/script.js" %s></script>
</head><body>%s</body></html>`

// newTestWindow builds a window at https://example.com/ whose current script
// carries attrs.
func newTestWindow(t *testing.T, attrs, body string, opts ...WindowOption) *Window {
	t.Helper()
	page := fmt.Sprintf(pageTemplate, attrs, body)
	opts = append([]WindowOption{
		WithScreen(1440, 900),
		WithLanguage("en-GB"),
		WithCurrentScript(`//script[@src]`),
	}, opts...)
	w, err := ParseWindow("https://example.com/", page, opts...)
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}
	return w
}

type harness struct {
	win       *Window
	tracker   *Tracker
	transport *recordingTransport
	clock     *manualClock
}

// newHarness creates a tracker over win with a manual clock and a recording
// transport, without starting it.
func newHarness(t *testing.T, win *Window, opts ...Option) *harness {
	t.Helper()
	h := &harness{win: win, transport: &recordingTransport{}, clock: &manualClock{}}
	opts = append([]Option{
		WithClock(h.clock),
		WithTransport(h.transport),
		WithLogger(zerolog.Nop()),
	}, opts...)
	h.tracker = New(win, opts...)
	t.Cleanup(h.tracker.Close)
	return h
}

func (h *harness) find(t *testing.T, xpath string) *html.Node {
	t.Helper()
	n := htmlquery.FindOne(h.win.Document(), xpath)
	if n == nil {
		t.Fatalf("no element matches %s", xpath)
	}
	return n
}
