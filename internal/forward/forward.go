// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package forward relays accepted events to downstream analytics backends
// (Umami and PostHog). Each backend gets a Forwarder that queues events from
// the bus, sends them in batches on a ticker, paces requests with a token
// bucket and stops calling a failing backend through a circuit breaker.
//
// Forwarding is best effort: the event store is the system of record, so a
// batch that fails is logged and dropped rather than retried.
package forward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

// Backend sends a batch of events to one downstream system.
type Backend interface {
	Name() string
	Send(ctx context.Context, events []*models.RawEvent) error
}

// StatusError is returned when a backend answers with a non-success status.
type StatusError struct {
	Backend string
	Status  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d", e.Backend, e.Status)
}

// Forwarder queues events for a Backend and flushes them in batches.
type Forwarder struct {
	backend  Backend
	cfg      config.ForwardConfig
	breaker  *gobreaker.CircuitBreaker[any]
	maxQueue int

	mu    sync.Mutex
	queue []*models.RawEvent
	kick  chan struct{}
}

// New creates a forwarder for backend.
func New(backend Backend, cfg config.ForwardConfig) *Forwarder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Forwarder{
		backend:  backend,
		cfg:      cfg,
		breaker:  newBreaker("forward-" + backend.Name()),
		maxQueue: cfg.BatchSize * 10,
		kick:     make(chan struct{}, 1),
	}
}

// Name implements eventbus.Consumer.
func (f *Forwarder) Name() string { return "forward-" + f.backend.Name() }

// Consume queues ev. When the queue is full the event is dropped, since
// the backend is already not keeping up.
func (f *Forwarder) Consume(_ context.Context, ev *models.RawEvent) error {
	f.mu.Lock()
	if len(f.queue) >= f.maxQueue {
		f.mu.Unlock()
		metrics.RecordForward(f.backend.Name(), "dropped", 1)
		return nil
	}
	f.queue = append(f.queue, ev)
	full := len(f.queue) >= f.cfg.BatchSize
	f.mu.Unlock()

	if full {
		select {
		case f.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Serve sends queued batches on the flush interval, or as soon as a batch
// fills, until ctx is canceled. Queued events are flushed on the way out.
func (f *Forwarder) Serve(ctx context.Context) error {
	ticker := time.NewTicker(f.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), f.timeout())
			f.Flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			f.Flush(ctx)
		case <-f.kick:
			f.Flush(ctx)
		}
	}
}

func (f *Forwarder) String() string { return f.Name() }

// Flush sends everything queued, one batch at a time.
func (f *Forwarder) Flush(ctx context.Context) {
	for {
		f.mu.Lock()
		n := min(len(f.queue), f.cfg.BatchSize)
		if n == 0 {
			f.mu.Unlock()
			return
		}
		batch := f.queue[:n:n]
		if rest := f.queue[n:]; len(rest) > 0 {
			f.queue = append([]*models.RawEvent(nil), rest...)
		} else {
			f.queue = nil
		}
		f.mu.Unlock()

		f.send(ctx, batch)
	}
}

// Pending returns the number of queued events.
func (f *Forwarder) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *Forwarder) send(ctx context.Context, batch []*models.RawEvent) {
	name := f.backend.Name()
	sendCtx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	_, err := f.breaker.Execute(func() (any, error) {
		return nil, f.backend.Send(sendCtx, batch)
	})
	switch {
	case err == nil:
		metrics.RecordForward(name, "success", len(batch))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordForward(name, "circuit_open", len(batch))
		logging.Debug().Str("backend", name).Int("events", len(batch)).Msg("Circuit open, batch dropped")
	default:
		metrics.RecordForward(name, "error", len(batch))
		logging.Warn().Err(err).Str("backend", name).Int("events", len(batch)).Msg("Forwarding failed, batch dropped")
	}
}

func (f *Forwarder) timeout() time.Duration {
	if f.cfg.Timeout > 0 {
		return f.cfg.Timeout
	}
	return 10 * time.Second
}

func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// newLimiter returns nil when pacing is disabled.
func newLimiter(cfg config.ForwardConfig) *rate.Limiter {
	if cfg.RatePerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

// do sends req and treats anything but 200 and 204 as a failure.
func do(client *http.Client, backend string, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &StatusError{Backend: backend, Status: resp.StatusCode}
	}
	return nil
}
