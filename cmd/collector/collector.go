// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hanzoai/analytics/internal/api"
	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/eventbus"
	"github.com/hanzoai/analytics/internal/forward"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/realtime"
	"github.com/hanzoai/analytics/internal/registry"
	"github.com/hanzoai/analytics/internal/session"
	"github.com/hanzoai/analytics/internal/store"
	"github.com/hanzoai/analytics/internal/supervisor"
	"github.com/hanzoai/analytics/internal/supervisor/services"
	"github.com/hanzoai/analytics/internal/wal"
)

var errRouterStopped = errors.New("event router is not running")

// collector owns the components of one server process.
type collector struct {
	cfg    *config.Config
	tree   *supervisor.Tree
	router *eventbus.Router
	http   *services.HTTPServerService

	// closers run in reverse order after the tree has stopped.
	closers []func() error
}

// newCollector opens every component and registers its services. On
// failure whatever was opened is closed again.
func newCollector(ctx context.Context, cfg *config.Config) (c *collector, err error) {
	c = &collector{
		cfg: cfg,
		tree: supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}),
	}
	defer func() {
		if err != nil {
			c.close()
		}
	}()

	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return nil, err
	}
	c.onClose(reg.Close)

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		return nil, err
	}

	var natsURL string
	if cfg.NATS.Enabled && cfg.NATS.EmbeddedServer {
		ns, err := eventbus.StartEmbeddedServer(cfg.NATS)
		if err != nil {
			return nil, err
		}
		c.onClose(func() error { ns.Shutdown(); return nil })
		c.tree.AddDataService(ns)
		natsURL = ns.ClientURL()
	}

	bus, err := eventbus.New(ctx, cfg.NATS, natsURL)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	c.onClose(bus.Close)
	c.router = eventbus.NewRouter(bus, routerConfig(cfg.NATS))

	checks := map[string]api.HealthCheck{
		"registry": reg.Ping,
		"eventbus": func(context.Context) error {
			if !c.router.Running() {
				return errRouterStopped
			}
			return nil
		},
	}

	var walLog api.WAL
	if cfg.WAL.Enabled {
		w, err := wal.Open(cfg.WAL)
		if err != nil {
			return nil, err
		}
		c.onClose(w.Close)
		c.tree.AddDataService(wal.NewRetryLoop(w, bus))
		c.tree.AddDataService(services.NewTickerService("wal-gc", cfg.WAL.GCInterval, func(context.Context) error {
			return w.RunGC()
		}))
		walLog = w
	}

	if cfg.Store.Enabled {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		c.onClose(st.Close)

		appender, err := store.NewAppender(st, cfg.Store)
		if err != nil {
			return nil, err
		}
		// Registered after the store so the final flush runs before it closes.
		c.onClose(appender.Close)
		if err := c.router.AddConsumer(appender); err != nil {
			return nil, err
		}
		c.tree.AddDataService(appender)
		checks["store"] = st.Ping
	}

	if err := c.addForwarders(cfg.Forward); err != nil {
		return nil, err
	}

	var live http.Handler
	if cfg.Realtime.Enabled {
		hub := realtime.NewHub(cfg.Realtime.BufferSize)
		if err := c.router.AddConsumer(hub); err != nil {
			return nil, err
		}
		c.tree.AddMessagingService(hub)
		live = realtime.Handler(hub, cfg.Server.CORSOrigins)
	}

	c.tree.AddMessagingService(c.router)

	handler := api.NewRouter(api.Dependencies{
		Config:       cfg.Server,
		Sink:         api.NewPipeline(walLog, bus),
		Websites:     reg,
		Sessions:     sessions,
		Realtime:     live,
		HealthChecks: checks,
	}).SetupChi()

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	c.http = services.NewHTTPServerService(srv, cfg.Server.Addr(), cfg.Server.ShutdownTimeout)
	return c, nil
}

// addForwarders registers a consumer and service per configured backend.
func (c *collector) addForwarders(cfg config.ForwardConfig) error {
	client := &http.Client{Timeout: cfg.Timeout}

	var backends []forward.Backend
	if cfg.Umami.Enabled() {
		backends = append(backends, forward.NewUmami(cfg, client))
	}
	if cfg.PostHog.Enabled() {
		backends = append(backends, forward.NewPostHog(cfg, client))
	}

	for _, b := range backends {
		fw := forward.New(b, cfg)
		if err := c.router.AddConsumer(fw); err != nil {
			return err
		}
		c.tree.AddMessagingService(fw)
		logging.Info().Str("backend", b.Name()).Msg("Forwarding enabled")
	}
	return nil
}

// serve runs the tree until ctx is canceled. The HTTP server joins the
// tree only after the router has subscribed every consumer.
func (c *collector) serve(ctx context.Context) error {
	errCh := c.tree.ServeBackground(ctx)

	select {
	case <-c.router.Ready():
		c.tree.AddAPIService(c.http)
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	err := <-errCh
	if report, reportErr := c.tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (c *collector) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

func (c *collector) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logging.Warn().Err(err).Msg("Close failed")
		}
	}
	c.closers = nil
}

// routerConfig derives the consumer retry policy from the NATS section.
func routerConfig(cfg config.NATSConfig) eventbus.RouterConfig {
	rc := eventbus.DefaultRouterConfig()
	if cfg.RetryCount > 0 {
		rc.RetryMaxRetries = cfg.RetryCount
	}
	if cfg.RetryInterval > 0 {
		rc.RetryInitialInterval = cfg.RetryInterval
	}
	if cfg.CloseTimeout > 0 {
		rc.CloseTimeout = cfg.CloseTimeout
	}
	return rc
}
