// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"context"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string            `json:"status"`
	Uptime float64           `json:"uptime_seconds"`
	Checks map[string]string `json:"checks,omitempty"`
}

const healthCheckTimeout = 2 * time.Second

// Health runs every registered dependency check. Any failure reports
// "degraded" with status 503 so load balancers drain the instance.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(h.startTime).Seconds(),
	}

	names := make([]string, 0, len(h.healthChecks))
	for name := range h.healthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		status.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.healthChecks[name](ctx); err != nil {
			status.Checks[name] = "error: " + err.Error()
			status.Status = "degraded"
			continue
		}
		status.Checks[name] = "ok"
	}

	rw := NewResponseWriter(w, r)
	if status.Status != "healthy" {
		rw.write(http.StatusServiceUnavailable, APIResponse{Success: false, Data: status, Meta: rw.meta()})
		return
	}
	rw.Success(status)
}

// HealthLive reports that the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// trackerFiles serves the built tracker artifacts from dir.
func trackerFiles(dir string) http.Handler {
	fs := http.StripPrefix("/tracker/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "not found")
			return
		}
		switch filepath.Ext(r.URL.Path) {
		case ".wasm":
			w.Header().Set("Content-Type", "application/wasm")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		fs.ServeHTTP(w, r)
	})
}
