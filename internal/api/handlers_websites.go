// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/registry"
)

// RequireAdminToken rejects requests whose bearer token does not match
// token.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logging.Ctx(r.Context()).Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("Access denied: admin token required")
				NewResponseWriter(w, r).Unauthorized("admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ListWebsites handles GET /api/websites.
func (h *Handler) ListWebsites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.websites.List(r.Context())
	if err != nil {
		NewResponseWriter(w, r).InternalError("failed to list websites", err)
		return
	}
	NewResponseWriter(w, r).Success(sites)
}

// GetWebsite handles GET /api/websites/{id}.
func (h *Handler) GetWebsite(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	site, err := h.websites.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, registry.ErrNotFound):
		rw.NotFound("website not found")
	case err != nil:
		rw.InternalError("failed to load website", err)
	default:
		rw.Success(site)
	}
}

// PutWebsite handles PUT /api/websites/{id}, creating or replacing the
// website. The id in the path wins over any id in the body.
func (h *Handler) PutWebsite(w http.ResponseWriter, r *http.Request) {
	var site models.Website
	if !h.decode(w, r, &site) {
		return
	}
	site.ID = chi.URLParam(r, "id")
	if !h.validate(w, r, &site) {
		return
	}

	ctx := r.Context()
	if err := h.websites.Put(ctx, &site); err != nil {
		NewResponseWriter(w, r).InternalError("failed to save website", err)
		return
	}
	stored, err := h.websites.Get(ctx, site.ID)
	if err != nil {
		NewResponseWriter(w, r).InternalError("failed to load website", err)
		return
	}
	NewResponseWriter(w, r).Success(stored)
}

// DeleteWebsite handles DELETE /api/websites/{id}.
func (h *Handler) DeleteWebsite(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	err := h.websites.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, registry.ErrNotFound):
		rw.NotFound("website not found")
	case err != nil:
		rw.InternalError("failed to delete website", err)
	default:
		rw.NoContent()
	}
}
