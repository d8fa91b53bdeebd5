// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/validation"
)

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// it has already written the error response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return h.decode(w, r, dst) && h.validate(w, r, dst)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := decodeJSON(w, r, h.maxBodyBytes, dst)
	if err == nil {
		return true
	}

	metrics.RecordEventRejected("validation")
	rw := NewResponseWriter(w, r)
	if errors.Is(err, ErrBodyTooLarge) {
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodeTooLarge, err.Error())
	} else {
		rw.BadRequest(err.Error())
	}
	return false
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if verr := validation.ValidateStruct(dst); verr != nil {
		metrics.RecordEventRejected("validation")
		NewResponseWriter(w, r).ValidationError(verr)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return err
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return ErrInvalidJSON
	}
	return nil
}
