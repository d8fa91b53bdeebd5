// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minSecretLength is the minimum accepted SESSION_SECRET length.
const minSecretLength = 32

// Validate checks the sections used by the collection server.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateWAL(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateForward(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive when rate limiting is enabled")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
		}
	}
	if c.Server.AdminToken != "" && len(c.Server.AdminToken) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.Secret != "" && len(c.Session.Secret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength)
	}
	if c.Session.TokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be positive")
	}
	if c.Session.VisitTimeout <= 0 {
		return fmt.Errorf("SESSION_VISIT_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateRegistry() error {
	if !c.Registry.InMemory && c.Registry.Path == "" {
		return fmt.Errorf("REGISTRY_PATH is required unless REGISTRY_IN_MEMORY=true")
	}
	if c.Registry.CacheSize <= 0 {
		return fmt.Errorf("REGISTRY_CACHE_SIZE must be positive")
	}
	return nil
}

func (c *Config) validateWAL() error {
	if !c.WAL.Enabled {
		return nil
	}
	if c.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true")
	}
	if c.WAL.RetryInterval <= 0 {
		return fmt.Errorf("WAL_RETRY_INTERVAL must be positive")
	}
	if c.WAL.MaxRetries < 1 {
		return fmt.Errorf("WAL_MAX_RETRIES must be at least 1")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.Topic == "" {
		return fmt.Errorf("NATS_TOPIC is required when NATS_ENABLED=true")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.Enabled {
		return nil
	}
	if c.Store.BatchSize < 1 {
		return fmt.Errorf("STORE_BATCH_SIZE must be at least 1")
	}
	if c.Store.FlushInterval <= 0 {
		return fmt.Errorf("STORE_FLUSH_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateForward() error {
	if c.Forward.Umami.Endpoint != "" {
		if err := validateHTTPURL(c.Forward.Umami.Endpoint); err != nil {
			return fmt.Errorf("UMAMI_ENDPOINT is invalid: %w", err)
		}
	}
	if c.Forward.PostHog.Endpoint != "" {
		if err := validateHTTPURL(c.Forward.PostHog.Endpoint); err != nil {
			return fmt.Errorf("POSTHOG_ENDPOINT is invalid: %w", err)
		}
		if c.Forward.PostHog.APIKey == "" {
			return fmt.Errorf("POSTHOG_API_KEY is required when POSTHOG_ENDPOINT is set")
		}
	}
	if c.Forward.BatchSize < 1 {
		return fmt.Errorf("FORWARD_BATCH_SIZE must be at least 1")
	}
	if c.Forward.RatePerSecond < 0 {
		return fmt.Errorf("FORWARD_RATE must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Validate checks the tracker build section.
func (b BuildConfig) Validate() error {
	if b.Source == "" {
		return fmt.Errorf("build source is required")
	}
	if b.OutDir == "" {
		return fmt.Errorf("build output directory is required")
	}
	if b.Key == "" {
		return fmt.Errorf("build key must not be empty")
	}
	if b.Host != "" {
		if err := validateHTTPURL(b.Host); err != nil {
			return fmt.Errorf("build host is invalid: %w", err)
		}
	}
	if b.Endpoint != "" && !strings.HasPrefix(b.Endpoint, "/") {
		return fmt.Errorf("build endpoint must start with /, got %q", b.Endpoint)
	}
	return nil
}

// validateHTTPURL checks for an absolute http or https URL.
func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// validateNATSURL accepts nats, tls, ws and wss URLs with a host.
func validateNATSURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}
