// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/models"
)

func openTestRegistry(t *testing.T, allowUnknown bool) *Registry {
	t.Helper()
	r, err := Open(config.RegistryConfig{InMemory: true, CacheSize: 100, AllowUnknown: allowUnknown})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPutGetDelete(t *testing.T) {
	r := openTestRegistry(t, true)
	ctx := context.Background()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return created }

	if _, err := r.Get(ctx, "site-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	w := &models.Website{ID: "site-1", Name: "Shop", Domains: []string{" Example.com ", ""}}
	if err := r.Put(ctx, w); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// The negative cache entry must not hide the new website.
	got, err := r.Get(ctx, "site-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Shop" || len(got.Domains) != 1 || got.Domains[0] != "example.com" {
		t.Errorf("Get() = %+v, want normalized domains", got)
	}

	r.now = func() time.Time { return created.Add(time.Hour) }
	if err := r.Put(ctx, &models.Website{ID: "site-1", Disabled: true}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, _ = r.Get(ctx, "site-1")
	if !got.Disabled {
		t.Error("Disabled = false after update, want true")
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Errorf("CreatedAt/UpdatedAt = %v/%v, want %v/%v", got.CreatedAt, got.UpdatedAt, created, created.Add(time.Hour))
	}

	if err := r.Delete(ctx, "site-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := r.Delete(ctx, "site-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := r.Get(ctx, "site-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	r := openTestRegistry(t, true)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := r.Put(ctx, &models.Website{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids string
	for _, w := range list {
		ids += w.ID
	}
	if ids != "abc" {
		t.Errorf("List() ids = %q, want abc", ids)
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	open := openTestRegistry(t, true)
	closed := openTestRegistry(t, false)
	for _, r := range []*Registry{open, closed} {
		_ = r.Put(ctx, &models.Website{ID: "live", Domains: []string{"example.com"}})
		_ = r.Put(ctx, &models.Website{ID: "off", Disabled: true})
		_ = r.Put(ctx, &models.Website{ID: "any"})
	}

	tests := []struct {
		name     string
		reg      *Registry
		website  string
		hostname string
		want     Decision
	}{
		{"allowed domain", open, "live", "example.com", Accept},
		{"domain case", open, "live", "EXAMPLE.com", Accept},
		{"other domain", open, "live", "evil.test", DomainRejected},
		{"kill switch", open, "off", "example.com", Disabled},
		{"no domains", open, "any", "anything.test", Accept},
		{"unknown allowed", open, "ghost", "x.test", Accept},
		{"unknown refused", closed, "ghost", "x.test", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reg.Check(ctx, tt.website, tt.hostname); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPing(t *testing.T) {
	r, err := Open(config.RegistryConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := r.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v, want nil", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want %v", err, ErrClosed)
	}
}
