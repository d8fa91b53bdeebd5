// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package store persists events in DuckDB. The events table mirrors
// models.RawEvent one column per field; map fields are stored as JSON text.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/models"
)

type column struct {
	name  string
	typ   string
	value func(e *models.RawEvent) any
}

var columns = []column{
	{"event_id", "UUID PRIMARY KEY", func(e *models.RawEvent) any { return e.EventID.String() }},
	{"timestamp", "TIMESTAMP NOT NULL", func(e *models.RawEvent) any { return e.Timestamp.UTC() }},
	{"sent_at", "TIMESTAMP", func(e *models.RawEvent) any { return nullTime(e.SentAt) }},
	{"event", "VARCHAR NOT NULL", func(e *models.RawEvent) any { return e.Event }},
	{"distinct_id", "VARCHAR", func(e *models.RawEvent) any { return e.DistinctID }},
	{"website_id", "VARCHAR", func(e *models.RawEvent) any { return e.WebsiteID }},
	{"organization_id", "VARCHAR", func(e *models.RawEvent) any { return e.OrganizationID }},
	{"project_id", "VARCHAR", func(e *models.RawEvent) any { return e.ProjectID }},
	{"session_id", "VARCHAR", func(e *models.RawEvent) any { return e.SessionID }},
	{"visit_id", "VARCHAR", func(e *models.RawEvent) any { return e.VisitID }},
	{"properties", "VARCHAR", func(e *models.RawEvent) any { return jsonText(e.Properties) }},
	{"person_properties", "VARCHAR", func(e *models.RawEvent) any { return jsonText(e.PersonProperties) }},
	{"group_type", "VARCHAR", func(e *models.RawEvent) any { return e.GroupType }},
	{"group_key", "VARCHAR", func(e *models.RawEvent) any { return e.GroupKey }},
	{"group_properties", "VARCHAR", func(e *models.RawEvent) any { return jsonText(e.GroupProperties) }},
	{"url", "VARCHAR", func(e *models.RawEvent) any { return e.URL }},
	{"url_path", "VARCHAR", func(e *models.RawEvent) any { return e.URLPath }},
	{"referrer", "VARCHAR", func(e *models.RawEvent) any { return e.Referrer }},
	{"referrer_domain", "VARCHAR", func(e *models.RawEvent) any { return e.ReferrerDomain }},
	{"hostname", "VARCHAR", func(e *models.RawEvent) any { return e.Hostname }},
	{"tag", "VARCHAR", func(e *models.RawEvent) any { return e.Tag }},
	{"browser", "VARCHAR", func(e *models.RawEvent) any { return e.Browser }},
	{"browser_version", "VARCHAR", func(e *models.RawEvent) any { return e.BrowserVersion }},
	{"os", "VARCHAR", func(e *models.RawEvent) any { return e.OS }},
	{"os_version", "VARCHAR", func(e *models.RawEvent) any { return e.OSVersion }},
	{"device", "VARCHAR", func(e *models.RawEvent) any { return e.Device }},
	{"device_type", "VARCHAR", func(e *models.RawEvent) any { return e.DeviceType }},
	{"screen", "VARCHAR", func(e *models.RawEvent) any { return e.Screen }},
	{"language", "VARCHAR", func(e *models.RawEvent) any { return e.Language }},
	{"country", "VARCHAR", func(e *models.RawEvent) any { return e.Country }},
	{"region", "VARCHAR", func(e *models.RawEvent) any { return e.Region }},
	{"city", "VARCHAR", func(e *models.RawEvent) any { return e.City }},
	{"utm_source", "VARCHAR", func(e *models.RawEvent) any { return e.UTMSource }},
	{"utm_medium", "VARCHAR", func(e *models.RawEvent) any { return e.UTMMedium }},
	{"utm_campaign", "VARCHAR", func(e *models.RawEvent) any { return e.UTMCampaign }},
	{"utm_content", "VARCHAR", func(e *models.RawEvent) any { return e.UTMContent }},
	{"utm_term", "VARCHAR", func(e *models.RawEvent) any { return e.UTMTerm }},
	{"gclid", "VARCHAR", func(e *models.RawEvent) any { return e.GCLID }},
	{"fbclid", "VARCHAR", func(e *models.RawEvent) any { return e.FBCLID }},
	{"msclid", "VARCHAR", func(e *models.RawEvent) any { return e.MSCLID }},
	{"ip", "VARCHAR", func(e *models.RawEvent) any { return e.IP }},
	{"user_agent", "VARCHAR", func(e *models.RawEvent) any { return e.UserAgent }},
	{"order_id", "VARCHAR", func(e *models.RawEvent) any { return e.OrderID }},
	{"product_id", "VARCHAR", func(e *models.RawEvent) any { return e.ProductID }},
	{"cart_id", "VARCHAR", func(e *models.RawEvent) any { return e.CartID }},
	{"revenue", "DOUBLE", func(e *models.RawEvent) any { return e.Revenue }},
	{"quantity", "INTEGER", func(e *models.RawEvent) any { return e.Quantity }},
	{"ast_context", "VARCHAR", func(e *models.RawEvent) any { return e.ASTContext }},
	{"ast_type", "VARCHAR", func(e *models.RawEvent) any { return e.ASTType }},
	{"page_title", "VARCHAR", func(e *models.RawEvent) any { return e.PageTitle }},
	{"page_description", "VARCHAR", func(e *models.RawEvent) any { return e.PageDescription }},
	{"page_type", "VARCHAR", func(e *models.RawEvent) any { return e.PageType }},
	{"element_id", "VARCHAR", func(e *models.RawEvent) any { return e.ElementID }},
	{"element_type", "VARCHAR", func(e *models.RawEvent) any { return e.ElementType }},
	{"element_selector", "VARCHAR", func(e *models.RawEvent) any { return e.ElementSelector }},
	{"element_text", "VARCHAR", func(e *models.RawEvent) any { return e.ElementText }},
	{"element_href", "VARCHAR", func(e *models.RawEvent) any { return e.ElementHref }},
	{"section_name", "VARCHAR", func(e *models.RawEvent) any { return e.SectionName }},
	{"section_type", "VARCHAR", func(e *models.RawEvent) any { return e.SectionType }},
	{"section_id", "VARCHAR", func(e *models.RawEvent) any { return e.SectionID }},
	{"component_path", "VARCHAR", func(e *models.RawEvent) any { return e.ComponentPath }},
	{"component_data", "VARCHAR", func(e *models.RawEvent) any { return e.ComponentData }},
	{"model_provider", "VARCHAR", func(e *models.RawEvent) any { return e.ModelProvider }},
	{"model_name", "VARCHAR", func(e *models.RawEvent) any { return e.ModelName }},
	{"token_count", "INTEGER", func(e *models.RawEvent) any { return e.TokenCount }},
	{"token_price", "DOUBLE", func(e *models.RawEvent) any { return e.TokenPrice }},
	{"prompt_tokens", "INTEGER", func(e *models.RawEvent) any { return e.PromptTokens }},
	{"output_tokens", "INTEGER", func(e *models.RawEvent) any { return e.OutputTokens }},
	{"lib", "VARCHAR", func(e *models.RawEvent) any { return e.Lib }},
	{"lib_version", "VARCHAR", func(e *models.RawEvent) any { return e.LibVersion }},
	{"inserted_at", "TIMESTAMP DEFAULT current_timestamp", nil},
}

// Store is the DuckDB event store.
type Store struct {
	db         *sql.DB
	insertStmt string
}

// Open opens or creates the database at cfg.Path and ensures the schema.
// An empty path opens an in-memory database.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads, maxMemory)
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db, insertStmt: insertStatement()}
	if _, err := db.ExecContext(ctx, createStatement()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_events_website_ts ON events (website_id, timestamp)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events index: %w", err)
	}

	logging.Info().Str("path", path).Int("threads", threads).Str("max_memory", maxMemory).Msg("Event store opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertEvents inserts events in one transaction. Events whose id already
// exists are skipped and counted as duplicates. Either every row is
// committed or none is.
func (s *Store) InsertEvents(ctx context.Context, events []*models.RawEvent) (inserted, duplicates int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.insertStmt)
	if err != nil {
		return 0, 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, 0, len(columns))
	for _, ev := range events {
		args = args[:0]
		for _, c := range columns {
			if c.value != nil {
				args = append(args, c.value(ev))
			}
		}

		res, execErr := stmt.ExecContext(ctx, args...)
		if execErr != nil {
			return 0, 0, fmt.Errorf("insert event %s: %w", ev.EventID, execErr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, duplicates, nil
}

// CountEvents returns the number of stored events for websiteID, or for
// every website when websiteID is empty.
func (s *Store) CountEvents(ctx context.Context, websiteID string) (int64, error) {
	var n int64
	var err error
	if websiteID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM events`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM events WHERE website_id = ?`, websiteID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func createStatement() string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf("%q %s", c.name, c.typ)
	}
	return "CREATE TABLE IF NOT EXISTS events (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

func insertStatement() string {
	var names, params []string
	for _, c := range columns {
		if c.value == nil {
			continue
		}
		names = append(names, fmt.Sprintf("%q", c.name))
		params = append(params, "?")
	}
	return fmt.Sprintf("INSERT INTO events (%s) VALUES (%s) ON CONFLICT (event_id) DO NOTHING",
		strings.Join(names, ", "), strings.Join(params, ", "))
}

func jsonText(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(data)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
