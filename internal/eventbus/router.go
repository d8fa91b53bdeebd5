// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

// Consumer processes events delivered by the bus. Returning an error makes
// the router retry the message and, after the retries, move it to the poison
// topic.
type Consumer interface {
	Name() string
	Consume(ctx context.Context, ev *models.RawEvent) error
}

// RouterConfig holds the middleware settings.
type RouterConfig struct {
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
	}
}

type registration struct {
	consumer   Consumer
	subscriber message.Subscriber
}

// Router runs the registered consumers on a Watermill router. It implements
// suture.Service; every Serve call builds a fresh Watermill router, since a
// closed one cannot be run again.
type Router struct {
	bus           *Bus
	cfg           RouterConfig
	logger        watermill.LoggerAdapter
	registrations []registration
	running       atomic.Bool
	ready         chan struct{}
	readyOnce     sync.Once
}

// NewRouter creates a router for bus.
func NewRouter(bus *Bus, cfg RouterConfig) *Router {
	return &Router{
		bus:    bus,
		cfg:    cfg,
		logger: logging.NewWatermillLogger("eventbus-router"),
		ready:  make(chan struct{}),
	}
}

// AddConsumer registers c with its own subscriber.
func (r *Router) AddConsumer(c Consumer) error {
	sub, err := r.bus.Subscriber(c.Name())
	if err != nil {
		return err
	}
	r.registrations = append(r.registrations, registration{consumer: c, subscriber: sub})
	return nil
}

// Consumers returns the names of the registered consumers.
func (r *Router) Consumers() []string {
	names := make([]string, len(r.registrations))
	for i, reg := range r.registrations {
		names[i] = reg.consumer.Name()
	}
	return names
}

// Running reports whether Serve is processing messages.
func (r *Router) Running() bool {
	return r.running.Load()
}

// Ready is closed once every consumer has subscribed for the first time.
func (r *Router) Ready() <-chan struct{} {
	return r.ready
}

// Serve runs the router until ctx is canceled.
func (r *Router) Serve(ctx context.Context) error {
	router, err := r.build()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			r.running.Store(true)
			r.readyOnce.Do(func() { close(r.ready) })
		case <-ctx.Done():
		}
	}()
	defer r.running.Store(false)

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

func (r *Router) String() string { return "eventbus-router" }

func (r *Router) build() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.cfg.CloseTimeout}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Outer to inner: poison queue, recoverer, retry. Retries run first and
	// only the final failure reaches the poison queue.
	if topic := r.bus.PoisonTopic(); topic != "" {
		poison, err := middleware.PoisonQueue(r.bus.Publisher(), topic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poison)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      r.cfg.RetryMaxRetries,
		InitialInterval: r.cfg.RetryInitialInterval,
		MaxInterval:     r.cfg.RetryMaxInterval,
		Multiplier:      r.cfg.RetryMultiplier,
		Logger:          r.logger,
	}.Middleware)

	for _, reg := range r.registrations {
		router.AddConsumerHandler(reg.consumer.Name(), r.bus.Topic(), reg.subscriber, consumeFunc(reg.consumer))
	}
	return router, nil
}

func consumeFunc(c Consumer) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ev, err := DecodeEvent(msg)
		if err == nil {
			err = c.Consume(msg.Context(), ev)
		}
		metrics.RecordConsume(c.Name(), err)
		return err
	}
}
