// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanzoai/analytics/internal/cache"
	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

var ErrAppenderClosed = errors.New("store: appender closed")

// EventInserter writes a batch of events atomically.
type EventInserter interface {
	InsertEvents(ctx context.Context, events []*models.RawEvent) (inserted, duplicates int, err error)
}

// AppenderStats holds runtime statistics.
type AppenderStats struct {
	EventsReceived  int64
	EventsFlushed   int64
	DuplicatesFound int64
	FlushCount      int64
	ErrorCount      int64
	BufferSize      int
	LastFlushTime   time.Time
	LastError       string
}

// Appender buffers events and writes them to the store in batches, when the
// batch size is reached or the flush interval elapses. It is the store's bus
// consumer and a suture service.
//
// Flushes are serialized so rows are inserted in arrival order. A failed
// flush keeps its events at the head of the buffer for the next attempt.
type Appender struct {
	store  EventInserter
	cfg    config.StoreConfig
	recent *cache.LRU[struct{}]

	mu     sync.Mutex
	buffer []*models.RawEvent

	flushMu sync.Mutex
	flushWg sync.WaitGroup
	closed  atomic.Bool

	eventsReceived atomic.Int64
	eventsFlushed  atomic.Int64
	duplicates     atomic.Int64
	flushCount     atomic.Int64
	errorCount     atomic.Int64
	lastFlushTime  atomic.Value // time.Time
	lastError      atomic.Value // string
}

// NewAppender creates an appender writing to store.
func NewAppender(store EventInserter, cfg config.StoreConfig) (*Appender, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("batch size must be positive")
	}
	if cfg.FlushInterval <= 0 {
		return nil, errors.New("flush interval must be positive")
	}

	a := &Appender{
		store:  store,
		cfg:    cfg,
		recent: cache.NewLRU[struct{}](cfg.BatchSize*10, 10*time.Minute),
		buffer: make([]*models.RawEvent, 0, cfg.BatchSize),
	}
	a.lastFlushTime.Store(time.Time{})
	a.lastError.Store("")
	return a, nil
}

func (a *Appender) Name() string { return "store" }

// Consume implements eventbus.Consumer.
func (a *Appender) Consume(ctx context.Context, ev *models.RawEvent) error {
	return a.Append(ctx, ev)
}

// Append buffers ev. Events seen recently (WAL replays, bus redeliveries)
// are dropped. Reaching the batch size triggers an asynchronous flush.
func (a *Appender) Append(_ context.Context, ev *models.RawEvent) error {
	if a.closed.Load() {
		return ErrAppenderClosed
	}
	if a.recent.IsDuplicate(ev.EventID.String()) {
		a.duplicates.Add(1)
		l := logging.Logger()
		l.Trace().Str("event_id", ev.EventID.String()).Msg("Duplicate event skipped")
		return nil
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, ev)
	needsFlush := len(a.buffer) >= a.cfg.BatchSize
	a.mu.Unlock()
	a.eventsReceived.Add(1)

	if needsFlush {
		a.flushWg.Add(1)
		go func() {
			defer a.flushWg.Done()
			// The message context ends when the handler returns.
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			a.flushLogged(ctx)
		}()
	}
	return nil
}

// Flush writes every buffered event, waiting for in-flight flushes first.
func (a *Appender) Flush(ctx context.Context) error {
	a.flushWg.Wait()
	return a.flush(ctx)
}

// Serve flushes on the interval until ctx is canceled, then flushes what is
// left.
func (a *Appender) Serve(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flushWg.Wait()
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := a.flush(flushCtx); err != nil {
				logging.Error().Err(err).Msg("Final store flush failed")
			}
			cancel()
			return ctx.Err()
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			a.flushLogged(flushCtx)
			cancel()
		}
	}
}

func (a *Appender) String() string { return "store-appender" }

// Close rejects further appends and flushes what is buffered.
func (a *Appender) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.flushWg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.flush(ctx)
}

// Stats returns runtime statistics.
func (a *Appender) Stats() AppenderStats {
	a.mu.Lock()
	size := len(a.buffer)
	a.mu.Unlock()

	lastFlush, _ := a.lastFlushTime.Load().(time.Time)
	lastErr, _ := a.lastError.Load().(string)
	return AppenderStats{
		EventsReceived:  a.eventsReceived.Load(),
		EventsFlushed:   a.eventsFlushed.Load(),
		DuplicatesFound: a.duplicates.Load(),
		FlushCount:      a.flushCount.Load(),
		ErrorCount:      a.errorCount.Load(),
		BufferSize:      size,
		LastFlushTime:   lastFlush,
		LastError:       lastErr,
	}
}

func (a *Appender) flushLogged(ctx context.Context) {
	if err := a.flush(ctx); err != nil {
		logging.Warn().Err(err).Msg("Store flush failed, events kept for retry")
	}
}

func (a *Appender) flush(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return nil
	}
	events := a.buffer
	a.buffer = make([]*models.RawEvent, 0, a.cfg.BatchSize)
	a.mu.Unlock()

	for start := 0; start < len(events); start += a.cfg.BatchSize {
		end := min(start+a.cfg.BatchSize, len(events))
		chunk := events[start:end]

		began := time.Now()
		inserted, dups, err := a.store.InsertEvents(ctx, chunk)
		metrics.RecordStoreFlush(len(chunk), time.Since(began), err)
		if err != nil {
			a.mu.Lock()
			a.buffer = append(events[start:], a.buffer...)
			a.mu.Unlock()
			a.errorCount.Add(1)
			a.lastError.Store(err.Error())
			return fmt.Errorf("flush events %d-%d: %w", start, end, err)
		}

		a.eventsFlushed.Add(int64(inserted))
		a.duplicates.Add(int64(dups))
		a.flushCount.Add(1)
		logging.Debug().Int("inserted", inserted).Int("duplicates", dups).Dur("elapsed", time.Since(began)).Msg("Events flushed to store")
	}

	a.lastFlushTime.Store(time.Now())
	a.lastError.Store("")
	return nil
}
