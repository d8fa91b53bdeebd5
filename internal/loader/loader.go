// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hanzoai/analytics/internal/cipher"
	"github.com/hanzoai/analytics/internal/decoder"
	"github.com/hanzoai/analytics/internal/logging"
)

// ErrEmptyArtifact is returned when the fetched artifact has no bytes.
var ErrEmptyArtifact = errors.New("loader: empty artifact")

// ScriptSink receives the decoded tracker source. In a page this appends a
// script element to the document head.
type ScriptSink interface {
	InjectScript(source string) error
}

// Config identifies the artifacts and the key for one page load.
type Config struct {
	ArtifactURL string
	DecoderURL  string
	Key         cipher.Key
}

// Loader runs the decode protocol once per page load.
type Loader struct {
	cfg     Config
	fetcher Fetcher
	runtime decoder.Runtime
	sink    ScriptSink
	logger  zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for failure reports.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// New creates a Loader.
func New(cfg Config, fetcher Fetcher, rt decoder.Runtime, sink ScriptSink, opts ...Option) *Loader {
	l := &Loader{
		cfg:     cfg,
		fetcher: fetcher,
		runtime: rt,
		sink:    sink,
		logger:  logging.WithComponent("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches both blobs and decodes the artifact, returning the plaintext
// tracker source.
func (l *Loader) Load(ctx context.Context) (string, error) {
	var artifact, module []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := l.fetcher.Fetch(gctx, l.cfg.ArtifactURL)
		if err != nil {
			return fmt.Errorf("fetch artifact: %w", err)
		}
		artifact = b
		return nil
	})
	g.Go(func() error {
		b, err := l.fetcher.Fetch(gctx, l.cfg.DecoderURL)
		if err != nil {
			return fmt.Errorf("fetch decoder: %w", err)
		}
		module = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	return Decode(ctx, l.runtime, module, artifact, l.cfg.Key)
}

// Run performs the full protocol including injection. It reports whether the
// tracker was injected; failures are logged and never propagated.
func (l *Loader) Run(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("Tracker failed to load")
			ok = false
		}
	}()

	source, err := l.Load(ctx)
	if err != nil {
		l.logger.Error().Err(err).Msg("Tracker failed to load")
		return false
	}
	if err := l.sink.InjectScript(source); err != nil {
		l.logger.Error().Err(err).Msg("Tracker failed to load")
		return false
	}
	l.logger.Debug().Int("bytes", len(source)).Msg("Tracker injected")
	return true
}

// Decode runs steps 2 to 6 of the protocol against an already fetched
// decoder module and artifact.
func Decode(ctx context.Context, rt decoder.Runtime, module, artifact []byte, key cipher.Key) (string, error) {
	if len(artifact) == 0 {
		return "", ErrEmptyArtifact
	}
	if len(key) == 0 {
		return "", cipher.ErrEmptyKey
	}

	mod, err := rt.LoadFromBytes(ctx, module)
	if err != nil {
		return "", fmt.Errorf("instantiate decoder: %w", err)
	}
	defer func() { _ = mod.Close(ctx) }()

	aLen, kLen := uint32(len(artifact)), uint32(len(key))

	if grow := cipher.Growth(mod.MemoryPages(), len(artifact), len(key)); grow > 0 {
		if err := mod.GrowMemory(grow); err != nil {
			return "", fmt.Errorf("grow decoder memory: %w", err)
		}
	}

	if err := mod.WriteMemory(0, artifact); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := mod.WriteMemory(aLen, key); err != nil {
		return "", fmt.Errorf("write key: %w", err)
	}
	if err := mod.Transform(ctx, 0, aLen, aLen, kLen); err != nil {
		return "", fmt.Errorf("transform: %w", err)
	}

	plain, err := mod.ReadMemory(0, aLen)
	if err != nil {
		return "", fmt.Errorf("read plaintext: %w", err)
	}
	return strings.ToValidUTF8(string(plain), "\uFFFD"), nil
}
