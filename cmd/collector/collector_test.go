// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hanzoai/analytics/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: 2 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Session:  config.SessionConfig{Secret: "test-secret"},
		Registry: config.RegistryConfig{InMemory: true, AllowUnknown: true},
		WAL: config.WALConfig{
			Enabled:       true,
			Path:          filepath.Join(dir, "wal"),
			RetryInterval: time.Second,
			MaxRetries:    3,
			EntryTTL:      time.Hour,
			GCInterval:    time.Minute,
		},
		NATS: config.NATSConfig{Topic: "analytics.events", PoisonTopic: "analytics.poison"},
		Store: config.StoreConfig{
			Enabled:       true,
			Path:          filepath.Join(dir, "events.duckdb"),
			BatchSize:     10,
			FlushInterval: 100 * time.Millisecond,
		},
		Forward: config.ForwardConfig{
			Umami:         config.UmamiConfig{Endpoint: "http://127.0.0.1:1"},
			BatchSize:     10,
			FlushInterval: time.Second,
			Timeout:       time.Second,
		},
		Realtime: config.RealtimeConfig{Enabled: true, BufferSize: 16},
	}
}

func TestCollectorLifecycle(t *testing.T) {
	cfg := testConfig(t)

	app, err := newCollector(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newCollector() error = %v", err)
	}
	defer app.close()

	want := map[string]bool{"store": true, "forward-umami": true, "realtime": true}
	for _, name := range app.router.Consumers() {
		delete(want, name)
	}
	if len(want) != 0 {
		t.Errorf("consumers missing: %v (have %v)", want, app.router.Consumers())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx) }()

	select {
	case <-app.router.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("event router never became ready")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v, want nil on cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestCollectorInitFailureReleasesResources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.BatchSize = -1

	if _, err := newCollector(context.Background(), cfg); err == nil {
		t.Fatal("newCollector() error = nil, want failure")
	}

	// The WAL directory is locked while open; reopening proves it was closed.
	cfg.Store.BatchSize = 10
	app, err := newCollector(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newCollector() after failure error = %v", err)
	}
	app.close()
}

func TestRouterConfig(t *testing.T) {
	t.Parallel()

	rc := routerConfig(config.NATSConfig{RetryCount: 7, RetryInterval: time.Second})
	if rc.RetryMaxRetries != 7 {
		t.Errorf("RetryMaxRetries = %d, want 7", rc.RetryMaxRetries)
	}
	if rc.RetryInitialInterval != time.Second {
		t.Errorf("RetryInitialInterval = %v, want 1s", rc.RetryInitialInterval)
	}
	if rc.CloseTimeout == 0 {
		t.Error("CloseTimeout = 0, want default")
	}
}

func TestLoggingConfig(t *testing.T) {
	t.Parallel()

	lc := loggingConfig(config.LoggingConfig{Level: "debug", Format: "console", File: "/tmp/x.log"})
	if lc.Level != "debug" || lc.Format != "console" || lc.File != "/tmp/x.log" {
		t.Errorf("loggingConfig() = %+v", lc)
	}
	if lc.MaxSizeMB != 100 {
		t.Errorf("MaxSizeMB = %d, want default 100", lc.MaxSizeMB)
	}
}
