// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"context"
	"fmt"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/wal"
)

// Sink takes ownership of accepted events.
type Sink interface {
	Ingest(ctx context.Context, events []*models.RawEvent) error
}

// WAL is the subset of wal.BadgerWAL the pipeline needs.
type WAL interface {
	Write(ctx context.Context, event *models.RawEvent) (string, error)
	Confirm(ctx context.Context, entryID string) error
}

// Pipeline writes each event to the WAL, publishes it on the bus and then
// confirms the WAL entry. A failed publish leaves the entry pending for the
// WAL retry loop, so the request still succeeds. Without a WAL a failed
// publish fails the request.
type Pipeline struct {
	wal       WAL
	publisher wal.Publisher
}

// NewPipeline creates a Pipeline. w may be nil.
func NewPipeline(w WAL, publisher wal.Publisher) *Pipeline {
	return &Pipeline{wal: w, publisher: publisher}
}

// Ingest implements Sink.
func (p *Pipeline) Ingest(ctx context.Context, events []*models.RawEvent) error {
	for _, ev := range events {
		if err := p.ingestOne(ctx, ev); err != nil {
			return err
		}
		metrics.RecordEventAccepted(ev.Lib, eventLabel(ev.Event))
	}
	return nil
}

func (p *Pipeline) ingestOne(ctx context.Context, ev *models.RawEvent) error {
	if p.wal == nil {
		if err := p.publisher.Publish(ctx, ev); err != nil {
			metrics.RecordEventRejected("publish")
			return fmt.Errorf("publish event %s: %w", ev.EventID, err)
		}
		return nil
	}

	entryID, err := p.wal.Write(ctx, ev)
	if err != nil {
		metrics.RecordEventRejected("wal")
		return fmt.Errorf("wal write: %w", err)
	}

	if err := p.publisher.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_id", ev.EventID.String()).
			Str("wal_entry", entryID).
			Msg("Publish failed; event left in WAL for retry")
		return nil
	}

	if err := p.wal.Confirm(ctx, entryID); err != nil {
		// The retry loop will publish it again; store dedup absorbs the copy.
		logging.Ctx(ctx).Warn().Err(err).Str("wal_entry", entryID).Msg("WAL confirm failed")
	}
	return nil
}

// eventLabel bounds the metric label to the built-in event names.
func eventLabel(name string) string {
	if _, ok := knownEvents[name]; ok {
		return name
	}
	return "custom"
}

var knownEvents = map[string]struct{}{
	models.StandardEvents.PageView:           {},
	models.StandardEvents.Identify:           {},
	models.StandardEvents.SectionViewed:      {},
	models.StandardEvents.ElementInteraction: {},
	models.StandardEvents.ButtonClick:        {},
	models.StandardEvents.LinkClicked:        {},
	models.StandardEvents.FormSubmit:         {},
	models.StandardEvents.InputChanged:       {},
	models.StandardEvents.PixelView:          {},
	models.StandardEvents.AIMessageCreated:   {},
	models.StandardEvents.AICompletion:       {},
}
