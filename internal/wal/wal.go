// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

// Errors
var (
	ErrWALClosed     = errors.New("WAL is closed")
	ErrNilEvent      = errors.New("event cannot be nil")
	ErrEmptyEntryID  = errors.New("entry ID cannot be empty")
	ErrEntryNotFound = errors.New("entry not found")
)

const prefixPending = "pending:"

// Entry is one pending event and its publish history.
type Entry struct {
	ID            string           `json:"id"`
	Event         *models.RawEvent `json:"event"`
	CreatedAt     time.Time        `json:"created_at"`
	Attempts      int              `json:"attempts"`
	LastAttemptAt time.Time        `json:"last_attempt_at,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
}

// Stats contains WAL counters for the health endpoint.
type Stats struct {
	PendingCount  int64
	TotalWrites   int64
	TotalConfirms int64
	DBSizeBytes   int64
}

// BadgerWAL implements the write-ahead log on BadgerDB.
type BadgerWAL struct {
	db  *badger.DB
	cfg config.WALConfig

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64
	pending       atomic.Int64

	mu     sync.RWMutex
	closed bool

	now func() time.Time
}

// Open opens (or creates) the WAL at cfg.Path.
func Open(cfg config.WALConfig) (*BadgerWAL, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("open WAL: path is required")
	}
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	return open(cfg, opts)
}

// OpenInMemory opens a WAL that lives only in memory. Used by tests and
// by deployments that accept losing pending events on restart.
func OpenInMemory(cfg config.WALConfig) (*BadgerWAL, error) {
	return open(cfg, badger.DefaultOptions("").WithInMemory(true))
}

func open(cfg config.WALConfig, opts badger.Options) (*BadgerWAL, error) {
	opts.Compression = options.Snappy
	opts.Logger = logging.NewBadgerLogger("wal")

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	w := &BadgerWAL{db: db, cfg: cfg, now: time.Now}
	if err := w.countPending(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Int64("pending", w.pending.Load()).
		Msg("WAL opened")
	return w, nil
}

// Write persists event and returns the entry id used to confirm it.
func (w *BadgerWAL) Write(ctx context.Context, event *models.RawEvent) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if event == nil {
		return "", ErrNilEvent
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Event:     event,
		CreatedAt: w.now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
		if w.cfg.EntryTTL > 0 {
			e = e.WithTTL(w.cfg.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	w.totalWrites.Add(1)
	metrics.WALWrites.Inc()
	metrics.WALPending.Set(float64(w.pending.Add(1)))
	return entry.ID, nil
}

// Confirm removes a published entry.
func (w *BadgerWAL) Confirm(ctx context.Context, entryID string) error {
	if err := w.deleteEntry(entryID); err != nil {
		return err
	}
	w.totalConfirms.Add(1)
	return nil
}

// Drop removes an entry that will never be published.
func (w *BadgerWAL) Drop(ctx context.Context, entryID string) error {
	return w.deleteEntry(entryID)
}

func (w *BadgerWAL) deleteEntry(entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}

	key := []byte(prefixPending + entryID)
	err := w.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("get pending entry: %w", err)
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	metrics.WALPending.Set(float64(w.pending.Add(-1)))
	return nil
}

// GetPending returns every unconfirmed entry from a consistent snapshot.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("WAL failed to unmarshal entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// UpdateAttempt records a failed publish attempt.
func (w *BadgerWAL) UpdateAttempt(ctx context.Context, entryID, lastError string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	key := []byte(prefixPending + entryID)
	return w.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.Attempts++
		entry.LastAttemptAt = w.now().UTC()
		entry.LastError = lastError

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		// Keep the original expiry so retries never extend an entry's life.
		e := badger.NewEntry(key, data)
		if exp := item.ExpiresAt(); exp > 0 {
			e.ExpiresAt = exp
		}
		return txn.SetEntry(e)
	})
}

// Stats returns current counters.
func (w *BadgerWAL) Stats() Stats {
	if w.checkOpen() != nil {
		return Stats{}
	}
	lsm, vlog := w.db.Size()
	return Stats{
		PendingCount:  w.pending.Load(),
		TotalWrites:   w.totalWrites.Load(),
		TotalConfirms: w.totalConfirms.Load(),
		DBSizeBytes:   lsm + vlog,
	}
}

// RunGC reclaims value log space until BadgerDB reports nothing to rewrite.
func (w *BadgerWAL) RunGC() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	for {
		err := w.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close flushes and closes the database.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("WAL closed")
	return nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

func (w *BadgerWAL) countPending() error {
	var n int64
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("count pending entries: %w", err)
	}
	w.pending.Store(n)
	metrics.WALPending.Set(float64(n))
	return nil
}
