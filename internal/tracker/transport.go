// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetch credentials modes.
const (
	CredentialsOmit       = "omit"
	CredentialsSameOrigin = "same-origin"
	CredentialsInclude    = "include"
)

// maxResponseSize bounds how much of a collector reply is read.
const maxResponseSize = 1 << 20

// Request is an outbound POST from the tracker.
type Request struct {
	URL         string
	Header      http.Header
	Body        []byte
	Credentials string
	// Origin is the page origin, used for same-origin credentials.
	Origin string
	// Keepalive detaches the request from the caller's cancellation.
	Keepalive bool
}

// Response is the collector's reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs tracker requests.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is a Transport and Beacon over net/http. Jar holds the
// cookies sent when the credentials mode allows it.
type HTTPTransport struct {
	Client *http.Client
	Jar    http.CookieJar
}

// NewHTTPTransport returns an HTTPTransport with a 10 second timeout.
func NewHTTPTransport(jar http.CookieJar) *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{Timeout: 10 * time.Second},
		Jar:    jar,
	}
}

// Do posts req and returns the status and body.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Keepalive {
		ctx = context.WithoutCancel(ctx)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client(req).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// client returns a client whose cookie jar matches the credentials mode.
func (t *HTTPTransport) client(req *Request) *http.Client {
	base := t.Client
	if base == nil {
		base = http.DefaultClient
	}
	c := *base
	c.Jar = nil

	switch req.Credentials {
	case CredentialsInclude:
		c.Jar = t.Jar
	case CredentialsSameOrigin:
		if u, err := url.Parse(req.URL); err == nil && origin(u) == req.Origin {
			c.Jar = t.Jar
		}
	}
	return &c
}

// SendBeacon posts body as text/plain in the background and reports whether
// the request was queued.
func (t *HTTPTransport) SendBeacon(target string, body []byte) bool {
	if _, err := url.Parse(target); err != nil {
		return false
	}
	go func() {
		_, _ = t.Do(context.Background(), &Request{
			URL:       target,
			Header:    http.Header{"Content-Type": {"text/plain;charset=UTF-8"}},
			Body:      body,
			Keepalive: true,
		})
	}()
	return true
}
