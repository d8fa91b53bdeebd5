// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
)

// EmbeddedServer runs a NATS server with JetStream inside the collector.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedServer starts a NATS server listening on the host and port
// of cfg.URL, with JetStream stored under cfg.StoreDir.
func StartEmbeddedServer(cfg config.NATSConfig) (*EmbeddedServer, error) {
	host, port, err := listenAddr(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts := &server.Options{
		ServerName:         "hanzo-analytics",
		Host:               host,
		Port:               port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		MaxPayload:         8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}

	logging.Info().Str("url", ns.ClientURL()).Str("store_dir", cfg.StoreDir).Msg("Embedded NATS server started")
	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Serve keeps the server up until ctx is done, then shuts it down.
func (s *EmbeddedServer) Serve(ctx context.Context) error {
	<-ctx.Done()
	s.Shutdown()
	return ctx.Err()
}

func (s *EmbeddedServer) String() string { return "nats-embedded" }

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	if s.server.Running() {
		s.server.Shutdown()
		s.server.WaitForShutdown()
	}
}

func listenAddr(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("parse NATS url %q: %w", raw, err)
	}
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := 4222
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("parse NATS port %q: %w", p, err)
		}
	}
	return host, port, nil
}
