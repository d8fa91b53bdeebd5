// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import "errors"

// Request decoding errors.
var (
	ErrEmptyBody     = errors.New("request body is empty")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrInvalidJSON   = errors.New("request body is not valid JSON")
	ErrMissingTenant = errors.New("website_id or organization_id is required")
)
