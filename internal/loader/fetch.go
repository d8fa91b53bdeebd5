// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

// maxBlobSize bounds a fetched artifact or decoder module.
const maxBlobSize = 16 << 20

// Fetcher retrieves a binary blob by reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// HTTPFetcher fetches blobs over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with a bounded timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch issues a GET for url and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBlobSize {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, maxBlobSize)
	}
	return body, nil
}

// FSFetcher reads blobs from a file system, for verifying a build output
// directory without serving it.
type FSFetcher struct {
	FS fs.FS
}

// Fetch reads the named file. Leading slashes are ignored.
func (f FSFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(f.FS, strings.TrimLeft(name, "/"))
}
