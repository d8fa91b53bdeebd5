// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"rate limit window", func(c *Config) { c.Server.RateLimitWindow = 0 }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled", func(c *Config) { c.Server.RateLimitDisabled = true; c.Server.RateLimitReqs = 0 }, ""},
		{"short admin token", func(c *Config) { c.Server.AdminToken = "abc" }, "ADMIN_TOKEN"},
		{"short secret", func(c *Config) { c.Session.Secret = "abc" }, "SESSION_SECRET"},
		{"registry path", func(c *Config) { c.Registry.Path = "" }, "REGISTRY_PATH"},
		{"registry in memory", func(c *Config) { c.Registry.Path = ""; c.Registry.InMemory = true }, ""},
		{"wal path", func(c *Config) { c.WAL.Path = "" }, "WAL_PATH"},
		{"wal disabled", func(c *Config) { c.WAL.Enabled = false; c.WAL.Path = "" }, ""},
		{"nats scheme", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "http://x:4222" }, "NATS_URL"},
		{"store batch", func(c *Config) { c.Store.BatchSize = 0 }, "STORE_BATCH_SIZE"},
		{"umami url", func(c *Config) { c.Forward.Umami.Endpoint = "ftp://x" }, "UMAMI_ENDPOINT"},
		{"posthog key", func(c *Config) { c.Forward.PostHog.Endpoint = "https://ph.example" }, "POSTHOG_API_KEY"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Validate() error = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestBuildConfigValidate(t *testing.T) {
	t.Parallel()

	valid := BuildConfig{Source: "tracker.js", OutDir: "dist", Key: "k"}
	tests := []struct {
		name    string
		mutate  func(*BuildConfig)
		wantErr bool
	}{
		{"valid", func(*BuildConfig) {}, false},
		{"no source", func(b *BuildConfig) { b.Source = "" }, true},
		{"no key", func(b *BuildConfig) { b.Key = "" }, true},
		{"host", func(b *BuildConfig) { b.Host = "https://collect.example" }, false},
		{"bad host", func(b *BuildConfig) { b.Host = "collect.example" }, true},
		{"relative endpoint", func(b *BuildConfig) { b.Endpoint = "api/send" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := valid
			tt.mutate(&b)
			if err := b.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
