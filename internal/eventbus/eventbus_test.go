// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/models"
)

type recordingConsumer struct {
	name string
	err  error

	mu     sync.Mutex
	events []*models.RawEvent
}

func (c *recordingConsumer) Name() string { return c.name }

func (c *recordingConsumer) Consume(_ context.Context, ev *models.RawEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *recordingConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testNATSConfig() config.NATSConfig {
	return config.NATSConfig{
		Topic:        "analytics.events",
		PoisonTopic:  "analytics.poison",
		CloseTimeout: time.Second,
	}
}

func testRouterConfig() RouterConfig {
	return RouterConfig{CloseTimeout: time.Second, RetryMaxRetries: 1, RetryInitialInterval: time.Millisecond, RetryMaxInterval: time.Millisecond, RetryMultiplier: 1}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func TestEncodeDecodeEvent(t *testing.T) {
	t.Parallel()

	ev := &models.RawEvent{EventID: uuid.New(), WebsiteID: "site-1", Event: "$pageview", Lib: models.LibTracker}
	msg, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	if msg.UUID != ev.EventID.String() {
		t.Errorf("UUID = %s, want event id %s", msg.UUID, ev.EventID)
	}
	if got := msg.Metadata.Get(MetadataWebsite); got != "site-1" {
		t.Errorf("website metadata = %q, want site-1", got)
	}

	got, err := DecodeEvent(msg)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if got.EventID != ev.EventID || got.Event != "$pageview" {
		t.Errorf("DecodeEvent() = %+v, want %+v", got, ev)
	}

	msg.Payload = []byte("not json")
	if _, err := DecodeEvent(msg); err == nil {
		t.Error("DecodeEvent(garbage) error = nil, want error")
	}
}

func TestRouterFansOutInProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := New(ctx, testNATSConfig(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer bus.Close()

	store := &recordingConsumer{name: "store"}
	live := &recordingConsumer{name: "realtime"}
	router := NewRouter(bus, testRouterConfig())
	for _, c := range []Consumer{store, live} {
		if err := router.AddConsumer(c); err != nil {
			t.Fatalf("AddConsumer() error = %v", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- router.Serve(ctx) }()
	<-router.Ready()

	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, &models.RawEvent{EventID: uuid.New(), Event: "$pageview"}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	waitFor(t, func() bool { return store.count() == 3 && live.count() == 3 })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRouterPoisonsFailingMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := New(ctx, testNATSConfig(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer bus.Close()

	sub, err := bus.Subscriber("poison-watcher")
	if err != nil {
		t.Fatal(err)
	}
	poisoned, err := sub.Subscribe(ctx, bus.PoisonTopic())
	if err != nil {
		t.Fatal(err)
	}

	failing := &recordingConsumer{name: "forward", err: errors.New("backend down")}
	router := NewRouter(bus, testRouterConfig())
	if err := router.AddConsumer(failing); err != nil {
		t.Fatal(err)
	}
	go func() { _ = router.Serve(ctx) }()
	<-router.Ready()

	ev := &models.RawEvent{EventID: uuid.New(), Event: "$pageview"}
	if err := bus.Publish(ctx, ev); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-poisoned:
		msg.Ack()
		if msg.UUID != ev.EventID.String() {
			t.Errorf("poisoned UUID = %s, want %s", msg.UUID, ev.EventID)
		}
		if reason := msg.Metadata.Get(middleware.ReasonForPoisonedKey); reason == "" {
			t.Error("poisoned message has no reason")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message was not poisoned")
	}

	// One attempt plus one retry.
	if got := failing.count(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus, err := New(context.Background(), testNATSConfig(), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Publish(context.Background(), &models.RawEvent{EventID: uuid.New()}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrBusClosed", err)
	}
	if _, err := bus.Subscriber("store"); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Subscriber() after Close error = %v, want ErrBusClosed", err)
	}
}

type fakeJetStream struct {
	exists  bool
	lookErr error
	created []jetstream.StreamConfig
	updated []jetstream.StreamConfig
}

func (f *fakeJetStream) Stream(context.Context, string) (jetstream.Stream, error) {
	if f.lookErr != nil {
		return nil, f.lookErr
	}
	if !f.exists {
		return nil, jetstream.ErrStreamNotFound
	}
	return nil, nil
}

func (f *fakeJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}

func (f *fakeJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.updated = append(f.updated, cfg)
	return nil, nil
}

func TestEnsureStream(t *testing.T) {
	t.Parallel()

	cfg := StreamConfig("analytics.events", "analytics.poison")
	if len(cfg.Subjects) != 2 {
		t.Fatalf("Subjects = %v, want event and poison topics", cfg.Subjects)
	}

	tests := []struct {
		name        string
		js          *fakeJetStream
		wantErr     bool
		wantCreated int
		wantUpdated int
	}{
		{"creates missing stream", &fakeJetStream{}, false, 1, 0},
		{"updates existing stream", &fakeJetStream{exists: true}, false, 0, 1},
		{"lookup failure", &fakeJetStream{lookErr: errors.New("timeout")}, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := EnsureStream(context.Background(), tt.js, cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("EnsureStream() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.js.created) != tt.wantCreated || len(tt.js.updated) != tt.wantUpdated {
				t.Errorf("created/updated = %d/%d, want %d/%d", len(tt.js.created), len(tt.js.updated), tt.wantCreated, tt.wantUpdated)
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url      string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"nats://127.0.0.1:4222", "127.0.0.1", 4222, false},
		{"nats://0.0.0.0:5222", "0.0.0.0", 5222, false},
		{"nats://localhost", "localhost", 4222, false},
		{"nats://host:port", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			host, port, err := listenAddr(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("listenAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (host != tt.wantHost || port != tt.wantPort) {
				t.Errorf("listenAddr() = %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}
