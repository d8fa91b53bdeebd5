// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/hanzo-analytics/config.yaml",
	"/etc/hanzo-analytics/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3000,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			MaxBodyBytes:      1 << 20,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     600,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			TrackerDir:        "",
		},
		Session: SessionConfig{
			TokenTTL:     24 * time.Hour,
			VisitTimeout: 30 * time.Minute,
		},
		Registry: RegistryConfig{
			Path:         "/data/registry",
			CacheSize:    10000,
			AllowUnknown: true,
		},
		WAL: WALConfig{
			Enabled:       true,
			Path:          "/data/wal",
			SyncWrites:    true,
			RetryInterval: 30 * time.Second,
			MaxRetries:    100,
			EntryTTL:      7 * 24 * time.Hour,
			GCInterval:    10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:        false, // in-process channels unless configured
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      256 << 20,
			MaxStore:       4 << 30,
			Topic:          "analytics.events",
			DurablePrefix:  "hanzo-analytics",
			QueueGroup:     "collectors",
			RetryCount:     3,
			RetryInterval:  100 * time.Millisecond,
			PoisonTopic:    "analytics.poison",
			CloseTimeout:   30 * time.Second,
		},
		Store: StoreConfig{
			Enabled:       true,
			Path:          "/data/analytics.duckdb",
			MaxMemory:     "1GB",
			Threads:       0,
			BatchSize:     1000,
			FlushInterval: 5 * time.Second,
		},
		Forward: ForwardConfig{
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
			Timeout:       10 * time.Second,
			RatePerSecond: 20,
			Burst:         40,
		},
		Realtime: RealtimeConfig{
			Enabled:    true,
			BufferSize: 256,
		},
		Build: BuildConfig{
			OutDir:     "dist/tracker",
			Key:        "secret",
			PublicPath: "/tracker/",
			Export:     "transform",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Caller:     false,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration with layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables: override any mapped setting
//
// The result is not validated; callers validate the sections they use.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadCollector loads the configuration and validates the sections the
// collection server needs.
func LoadCollector() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when they come
// from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"build.renames",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower case) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"admin_token":           "server.admin_token",
	"tracker_dir":           "server.tracker_dir",

	// Session
	"session_secret":        "session.secret",
	"session_token_ttl":     "session.token_ttl",
	"session_visit_timeout": "session.visit_timeout",

	// Registry
	"registry_path":          "registry.path",
	"registry_in_memory":     "registry.in_memory",
	"registry_cache_size":    "registry.cache_size",
	"registry_allow_unknown": "registry.allow_unknown",

	// WAL
	"wal_enabled":        "wal.enabled",
	"wal_path":           "wal.path",
	"wal_sync_writes":    "wal.sync_writes",
	"wal_retry_interval": "wal.retry_interval",
	"wal_max_retries":    "wal.max_retries",
	"wal_entry_ttl":      "wal.entry_ttl",
	"wal_gc_interval":    "wal.gc_interval",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_topic":          "nats.topic",
	"nats_durable_prefix": "nats.durable_prefix",
	"nats_queue_group":    "nats.queue_group",
	"nats_retry_count":    "nats.retry_count",
	"nats_retry_interval": "nats.retry_interval",
	"nats_poison_topic":   "nats.poison_topic",
	"nats_close_timeout":  "nats.close_timeout",

	// Store
	"store_enabled":        "store.enabled",
	"store_path":           "store.path",
	"store_max_memory":     "store.max_memory",
	"store_threads":        "store.threads",
	"store_batch_size":     "store.batch_size",
	"store_flush_interval": "store.flush_interval",

	// Forwarders
	"umami_endpoint":         "forward.umami.endpoint",
	"umami_website_id":       "forward.umami.website_id",
	"posthog_endpoint":       "forward.posthog.endpoint",
	"posthog_api_key":        "forward.posthog.api_key",
	"forward_batch_size":     "forward.batch_size",
	"forward_flush_interval": "forward.flush_interval",
	"forward_timeout":        "forward.timeout",
	"forward_rate":           "forward.rate_per_second",
	"forward_burst":          "forward.burst",

	// Realtime
	"realtime_enabled":     "realtime.enabled",
	"realtime_buffer_size": "realtime.buffer_size",

	// Build
	"build_source":      "build.source",
	"build_out_dir":     "build.out_dir",
	"build_key":         "build.key",
	"build_host":        "build.host",
	"build_endpoint":    "build.endpoint",
	"build_public_path": "build.public_path",
	"build_export":      "build.export",
	"build_renames":     "build.renames",

	// Logging
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
}

// envTransformFunc maps an environment variable to its koanf path. Unmapped
// variables return "" and are skipped, so unrelated environment never
// reaches the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
