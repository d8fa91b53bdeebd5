// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package services

import (
	"context"
	"time"

	"github.com/hanzoai/analytics/internal/logging"
)

// TickerService runs fn every interval until the context is canceled.
// Errors from fn are logged and do not stop the service.
type TickerService struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
}

// NewTickerService creates a TickerService. A non-positive interval
// defaults to one minute.
func NewTickerService(name string, interval time.Duration, fn func(ctx context.Context) error) *TickerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TickerService{name: name, interval: interval, fn: fn}
}

// Serve implements suture.Service.
func (s *TickerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.fn(ctx); err != nil {
				logging.Debug().Err(err).Str("service", s.name).Msg("Periodic task failed")
			}
		}
	}
}

func (s *TickerService) String() string {
	return s.name
}
