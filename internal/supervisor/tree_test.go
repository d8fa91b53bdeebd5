// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// fakeService counts starts and optionally fails its first runs.
type fakeService struct {
	name     string
	starts   atomic.Int32
	failFor  int32
	started  chan struct{}
	stopping atomic.Bool
}

func newFakeService(name string, failFor int32) *fakeService {
	return &fakeService{name: name, failFor: failFor, started: make(chan struct{}, 16)}
}

func (f *fakeService) Serve(ctx context.Context) error {
	n := f.starts.Add(1)
	f.started <- struct{}{}
	if n <= f.failFor {
		return errors.New("transient failure")
	}
	<-ctx.Done()
	f.stopping.Store(true)
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitStarted(t *testing.T, f *fakeService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s started %d times, want %d", f.name, f.starts.Load(), n)
		}
	}
}

func TestTreeRunsServicesInEveryLayer(t *testing.T) {
	t.Parallel()

	tree := NewTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	data := newFakeService("data", 0)
	messaging := newFakeService("messaging", 0)
	api := newFakeService("api", 0)
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, f := range []*fakeService{data, messaging, api} {
		waitStarted(t, f, 1)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}

	for _, f := range []*fakeService{data, messaging, api} {
		if !f.stopping.Load() {
			t.Errorf("%s did not observe cancellation", f.name)
		}
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("UnstoppedServiceReport() = %v, %v, want empty", report, err)
	}
}

func TestTreeRestartsFailedService(t *testing.T) {
	t.Parallel()

	tree := NewTree(nil, TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := newFakeService("flaky", 2)
	steady := newFakeService("steady", 0)
	tree.AddMessagingService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitStarted(t, flaky, 3)
	waitStarted(t, steady, 1)

	if got := steady.starts.Load(); got != 1 {
		t.Errorf("steady starts = %d, want 1", got)
	}

	cancel()
	<-errCh
}

func TestTreeConfigDefaults(t *testing.T) {
	t.Parallel()

	got := TreeConfig{FailureBackoff: time.Second}.withDefaults()
	want := DefaultTreeConfig()
	want.FailureBackoff = time.Second
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}
}
