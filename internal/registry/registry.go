// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package registry stores registered websites and their kill switch in
// BadgerDB, with an LRU in front so that the ingestion path does not hit
// disk on every beacon.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/cache"
	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/models"
)

var (
	ErrNotFound = errors.New("registry: website not found")
	ErrClosed   = errors.New("registry: closed")
)

const (
	prefixWebsite = "website:"
	cacheTTL      = time.Minute
)

// Decision is the outcome of checking an incoming event against the registry.
type Decision int

const (
	// Accept means the event should be recorded.
	Accept Decision = iota
	// Disabled means the website's kill switch is on.
	Disabled
	// DomainRejected means the hostname is not one of the website's domains.
	DomainRejected
	// Unknown means the website is not registered and unknown websites are refused.
	Unknown
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Disabled:
		return "disabled"
	case DomainRejected:
		return "domain"
	default:
		return "unknown_website"
	}
}

// Registry is the website registry.
type Registry struct {
	db           *badger.DB
	cache        *cache.LRU[*models.Website]
	allowUnknown bool
	now          func() time.Time
}

// Open opens the registry described by cfg.
func Open(cfg config.RegistryConfig) (*Registry, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = logging.NewBadgerLogger("registry")

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	return &Registry{
		db:           db,
		cache:        cache.NewLRU[*models.Website](cfg.CacheSize, cacheTTL),
		allowUnknown: cfg.AllowUnknown,
		now:          time.Now,
	}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Ping reports whether the registry database is usable.
func (r *Registry) Ping(context.Context) error {
	if r.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Get returns the website with id.
func (r *Registry) Get(ctx context.Context, id string) (*models.Website, error) {
	if w, ok := r.cache.Get(id); ok {
		if w == nil {
			return nil, ErrNotFound
		}
		return w, nil
	}

	var w models.Website
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixWebsite + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &w)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		// Negative entries keep unknown ids from reaching disk on every beacon.
		r.cache.Add(id, nil)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get website %s: %w", id, err)
	}

	r.cache.Add(id, &w)
	return &w, nil
}

// Put creates or replaces a website. CreatedAt is kept from an existing
// record.
func (r *Registry) Put(ctx context.Context, w *models.Website) error {
	now := r.now().UTC()
	w.UpdatedAt = now
	w.Domains = normalizeDomains(w.Domains)

	err := r.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixWebsite + w.ID)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			w.CreatedAt = now
		case err != nil:
			return err
		default:
			var existing models.Website
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &existing) }); err != nil {
				return err
			}
			w.CreatedAt = existing.CreatedAt
		}

		data, err := json.Marshal(w)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("put website %s: %w", w.ID, err)
	}

	r.cache.Remove(w.ID)
	logging.Info().Str("website_id", w.ID).Bool("disabled", w.Disabled).Msg("Website saved")
	return nil
}

// Delete removes a website.
func (r *Registry) Delete(ctx context.Context, id string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixWebsite + id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete website %s: %w", id, err)
	}

	r.cache.Remove(id)
	return nil
}

// List returns every website ordered by id.
func (r *Registry) List(ctx context.Context) ([]*models.Website, error) {
	var out []*models.Website
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixWebsite)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var w models.Website
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &w) }); err != nil {
				return err
			}
			out = append(out, &w)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Check decides whether an event for websiteID sent from hostname is
// recorded. Storage errors fail open so a registry problem never stops
// collection.
func (r *Registry) Check(ctx context.Context, websiteID, hostname string) Decision {
	w, err := r.Get(ctx, websiteID)
	switch {
	case errors.Is(err, ErrNotFound):
		if r.allowUnknown {
			return Accept
		}
		return Unknown
	case err != nil:
		logging.Warn().Err(err).Str("website_id", websiteID).Msg("Registry lookup failed, accepting event")
		return Accept
	case w.Disabled:
		return Disabled
	case !w.AllowsHost(strings.ToLower(hostname)):
		return DomainRejected
	}
	return Accept
}

func normalizeDomains(domains []string) []string {
	out := domains[:0]
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
