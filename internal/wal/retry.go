// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package wal

import (
	"context"
	"math"
	"time"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

// Publisher republishes a pending event.
type Publisher interface {
	Publish(ctx context.Context, event *models.RawEvent) error
}

const (
	retryBackoffBase = 5 * time.Second
	retryBackoffMax  = 5 * time.Minute
	publishTimeout   = 10 * time.Second
)

// RetryLoop republishes pending entries and runs value log GC. It is a
// suture service: Serve blocks until ctx is canceled.
type RetryLoop struct {
	wal       *BadgerWAL
	publisher Publisher
}

// NewRetryLoop creates a retry loop over w.
func NewRetryLoop(w *BadgerWAL, publisher Publisher) *RetryLoop {
	return &RetryLoop{wal: w, publisher: publisher}
}

// Serve replays pending entries once immediately (startup recovery) and
// then every retry interval until ctx is canceled.
func (r *RetryLoop) Serve(ctx context.Context) error {
	interval := r.wal.cfg.RetryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	gcInterval := r.wal.cfg.GCInterval
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}

	logging.Info().
		Dur("interval", interval).
		Int("max_retries", r.wal.cfg.MaxRetries).
		Msg("WAL retry loop started")

	r.RetryPending(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	gcTicker := time.NewTicker(gcInterval)
	defer gcTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("WAL retry loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.RetryPending(ctx)
		case <-gcTicker.C:
			if err := r.wal.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("WAL GC failed")
			}
		}
	}
}

func (r *RetryLoop) String() string { return "wal-retry" }

// RetryPending makes one pass over the pending entries.
func (r *RetryLoop) RetryPending(ctx context.Context) {
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("WAL retry: failed to get pending entries")
		return
	}

	var success, failed, expired int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		switch r.processEntry(ctx, entry) {
		case "success":
			success++
		case "failure":
			failed++
		case "expired":
			expired++
		}
	}

	if success > 0 || failed > 0 || expired > 0 {
		logging.Info().
			Int("succeeded", success).
			Int("failed", failed).
			Int("expired", expired).
			Msg("WAL retry complete")
	}
}

func (r *RetryLoop) processEntry(ctx context.Context, entry *Entry) string {
	now := r.wal.now()
	cfg := r.wal.cfg

	if (cfg.EntryTTL > 0 && now.Sub(entry.CreatedAt) > cfg.EntryTTL) ||
		(cfg.MaxRetries > 0 && entry.Attempts >= cfg.MaxRetries) {
		logging.Warn().
			Str("entry_id", entry.ID).
			Int("attempts", entry.Attempts).
			Msg("WAL retry: dropping entry")
		if err := r.wal.Drop(ctx, entry.ID); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: failed to drop entry")
		}
		metrics.WALRetries.WithLabelValues("expired").Inc()
		return "expired"
	}

	if !entry.LastAttemptAt.IsZero() && now.Sub(entry.LastAttemptAt) < backoff(entry.Attempts) {
		return "skipped"
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	err := r.publisher.Publish(pubCtx, entry.Event)
	cancel()
	if err != nil {
		logging.Warn().Err(err).Str("entry_id", entry.ID).Int("attempt", entry.Attempts+1).Msg("WAL retry: publish failed")
		if uerr := r.wal.UpdateAttempt(ctx, entry.ID, err.Error()); uerr != nil {
			logging.Error().Err(uerr).Str("entry_id", entry.ID).Msg("WAL retry: failed to update attempt")
		}
		metrics.WALRetries.WithLabelValues("failure").Inc()
		return "failure"
	}

	if err := r.wal.Confirm(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: failed to confirm entry")
		return "failure"
	}
	metrics.WALRetries.WithLabelValues("success").Inc()
	return "success"
}

// backoff is base * 2^attempts, capped at retryBackoffMax.
func backoff(attempts int) time.Duration {
	if attempts > 30 {
		return retryBackoffMax
	}
	d := time.Duration(float64(retryBackoffBase) * math.Pow(2, float64(attempts)))
	if d <= 0 || d > retryBackoffMax {
		return retryBackoffMax
	}
	return d
}
