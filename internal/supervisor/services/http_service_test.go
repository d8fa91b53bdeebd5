// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPServerServiceServesAndShutsDown(t *testing.T) {
	t.Parallel()

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(srv, "127.0.0.1:0", time.Second)

	addrCh := make(chan string, 1)
	svc.listen = func(network, addr string) (net.Listener, error) {
		ln, err := net.Listen(network, addr)
		if err == nil {
			addrCh <- ln.Addr().String()
		}
		return ln, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start listening")
	}

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	t.Parallel()

	errBusy := errors.New("address in use")
	svc := NewHTTPServerService(&http.Server{ReadHeaderTimeout: time.Second}, "127.0.0.1:1", time.Second)
	svc.listen = func(string, string) (net.Listener, error) { return nil, errBusy }

	if err := svc.Serve(context.Background()); !errors.Is(err, errBusy) {
		t.Errorf("Serve() error = %v, want %v", err, errBusy)
	}
}

type stoppingServer struct{ err error }

func (s stoppingServer) Serve(l net.Listener) error {
	_ = l.Close()
	return s.err
}

func (stoppingServer) Shutdown(context.Context) error { return nil }

func TestHTTPServerServiceUnexpectedStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"closed", http.ErrServerClosed},
		{"crashed", errors.New("accept failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewHTTPServerService(stoppingServer{err: tt.err}, "127.0.0.1:0", time.Second)
			if err := svc.Serve(context.Background()); err == nil {
				t.Error("Serve() error = nil, want failure so suture restarts")
			}
		})
	}
}

func TestTickerService(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	svc := NewTickerService("test-ticker", 10*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	})
	if svc.String() != "test-ticker" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want DeadlineExceeded", err)
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want the service to keep running after an error", calls.Load())
	}
}
