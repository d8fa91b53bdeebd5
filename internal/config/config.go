// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the collector and the tracker build.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Session  SessionConfig  `koanf:"session"`
	Registry RegistryConfig `koanf:"registry"`
	WAL      WALConfig      `koanf:"wal"`
	NATS     NATSConfig     `koanf:"nats"`
	Store    StoreConfig    `koanf:"store"`
	Forward  ForwardConfig  `koanf:"forward"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Build    BuildConfig    `koanf:"build"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener and the collection routes.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies on the ingestion routes.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// AdminToken guards the website registry routes. Empty disables them.
	AdminToken string `koanf:"admin_token"`

	// TrackerDir is served under /tracker/. Empty disables the route.
	TrackerDir string `koanf:"tracker_dir"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SessionConfig configures the continuation token and visit windows.
type SessionConfig struct {
	// Secret signs continuation tokens. When empty a random secret is
	// generated at startup and tokens do not survive restarts.
	Secret string `koanf:"secret"`

	// TokenTTL is the lifetime of an issued token.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// VisitTimeout starts a new visit after this much inactivity.
	VisitTimeout time.Duration `koanf:"visit_timeout"`
}

// RegistryConfig configures the website registry.
type RegistryConfig struct {
	Path      string `koanf:"path"`
	InMemory  bool   `koanf:"in_memory"`
	CacheSize int    `koanf:"cache_size"`

	// AllowUnknown accepts events for websites that are not registered.
	AllowUnknown bool `koanf:"allow_unknown"`
}

// WALConfig configures the write-ahead log for accepted events.
type WALConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	SyncWrites    bool          `koanf:"sync_writes"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"`
	EntryTTL      time.Duration `koanf:"entry_ttl"`
	GCInterval    time.Duration `koanf:"gc_interval"`
}

// NATSConfig selects and configures the event bus transport. With NATS
// disabled the bus runs on in-process channels.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	MaxMemory      int64         `koanf:"max_memory"`
	MaxStore       int64         `koanf:"max_store"`
	Topic          string        `koanf:"topic"`
	DurablePrefix  string        `koanf:"durable_prefix"`
	QueueGroup     string        `koanf:"queue_group"`
	RetryCount     int           `koanf:"retry_count"`
	RetryInterval  time.Duration `koanf:"retry_interval"`
	PoisonTopic    string        `koanf:"poison_topic"`
	CloseTimeout   time.Duration `koanf:"close_timeout"`
}

// StoreConfig configures the DuckDB event store.
type StoreConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	MaxMemory     string        `koanf:"max_memory"`
	Threads       int           `koanf:"threads"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// ForwardConfig configures the downstream analytics forwarders.
type ForwardConfig struct {
	Umami   UmamiConfig   `koanf:"umami"`
	PostHog PostHogConfig `koanf:"posthog"`

	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	Timeout       time.Duration `koanf:"timeout"`

	// RatePerSecond paces requests to each backend; 0 means unlimited.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// UmamiConfig configures forwarding to an Umami instance.
type UmamiConfig struct {
	Endpoint  string `koanf:"endpoint"`
	WebsiteID string `koanf:"website_id"`
}

// Enabled reports whether the forwarder is configured.
func (u UmamiConfig) Enabled() bool { return u.Endpoint != "" }

// PostHogConfig configures forwarding to PostHog.
type PostHogConfig struct {
	Endpoint string `koanf:"endpoint"`
	APIKey   string `koanf:"api_key"`
}

// Enabled reports whether the forwarder is configured.
func (p PostHogConfig) Enabled() bool { return p.Endpoint != "" && p.APIKey != "" }

// RealtimeConfig configures the live event stream.
type RealtimeConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
}

// BuildConfig configures the tracker obfuscation build. The trackerbuild
// flags override it.
type BuildConfig struct {
	Source     string   `koanf:"source"`
	OutDir     string   `koanf:"out_dir"`
	Key        string   `koanf:"key"`
	Host       string   `koanf:"host"`
	Endpoint   string   `koanf:"endpoint"`
	PublicPath string   `koanf:"public_path"`
	Export     string   `koanf:"export"`
	Renames    []string `koanf:"renames"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}
