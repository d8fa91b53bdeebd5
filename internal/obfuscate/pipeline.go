// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package obfuscate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hanzoai/analytics/internal/cipher"
	"github.com/hanzoai/analytics/internal/decoder"
	"github.com/hanzoai/analytics/internal/loader"
	"github.com/hanzoai/analytics/internal/logging"
)

// Default output file names.
const (
	DefaultArtifactName = "data.bin"
	DefaultDecoderName  = "loader.wasm"
	DefaultLoaderName   = "script.js"
	ManifestName        = "manifest.json"
)

var (
	// ErrEmptySource is returned when the tracker source is empty.
	ErrEmptySource = errors.New("obfuscate: empty tracker source")

	// ErrVerify is returned when the emitted decoder does not reproduce the
	// renamed source.
	ErrVerify = errors.New("obfuscate: decoder self-verification failed")
)

// Options configures one build.
type Options struct {
	// Source is the plaintext tracker script.
	Source []byte

	// Key is the obfuscation key shared by artifact and loader.
	Key cipher.Key

	// Renames are applied in order after token substitution.
	Renames []Rename

	// Host and Endpoint replace the build-time collection tokens.
	Host     string
	Endpoint string

	// PublicPath is prefixed to the artifact and decoder names in the loader,
	// e.g. "/tracker/". Empty means relative to the page.
	PublicPath string

	ArtifactName string
	DecoderName  string
	LoaderName   string

	// Export is the decoder's transform export name.
	Export string

	// SkipSyntaxCheck disables the goja compile checks.
	SkipSyntaxCheck bool

	// Runtime verifies the emitted decoder. Defaults to decoder.NewWazero().
	Runtime decoder.Runtime
}

func (o *Options) applyDefaults() {
	if o.ArtifactName == "" {
		o.ArtifactName = DefaultArtifactName
	}
	if o.DecoderName == "" {
		o.DecoderName = DefaultDecoderName
	}
	if o.LoaderName == "" {
		o.LoaderName = DefaultLoaderName
	}
	if o.Export == "" {
		o.Export = decoder.DefaultExport
	}
	if o.Runtime == nil {
		o.Runtime = decoder.NewWazero(decoder.WithExport(o.Export))
	}
}

// Result holds the in-memory build products.
type Result struct {
	Renamed  []byte
	Artifact []byte
	Decoder  []byte
	Loader   []byte
	Manifest Manifest

	names [3]string
}

// Manifest describes a build output directory.
type Manifest struct {
	BuiltAt   time.Time      `json:"built_at"`
	KeyLength int            `json:"key_length"`
	Export    string         `json:"export"`
	Renames   []RenameReport `json:"renames"`
	Files     []FileReport   `json:"files"`
}

// RenameReport records how many occurrences a rename replaced.
type RenameReport struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Replacements int    `json:"replacements"`
}

// FileReport records one emitted file.
type FileReport struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// files returns the emitted files in write order.
func (r *Result) files() []namedFile {
	return []namedFile{
		{r.names[0], r.Artifact},
		{r.names[1], r.Decoder},
		{r.names[2], r.Loader},
	}
}

type namedFile struct {
	name string
	data []byte
}

// Build runs the pipeline in memory.
func Build(ctx context.Context, opts Options) (*Result, error) {
	opts.applyDefaults()
	logger := logging.WithComponent("obfuscate")

	if len(opts.Source) == 0 {
		return nil, ErrEmptySource
	}
	if len(opts.Key) == 0 {
		return nil, cipher.ErrEmptyKey
	}

	src := substituteTokens(string(opts.Source), opts.Host, opts.Endpoint)
	src, counts := applyRenames(src, opts.Renames)

	if !opts.SkipSyntaxCheck {
		if err := CheckSyntax("tracker.js", src); err != nil {
			return nil, err
		}
	}

	artifact, err := cipher.Apply([]byte(src), opts.Key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	module, err := decoder.Build(decoder.BuildOptions{Export: opts.Export})
	if err != nil {
		return nil, fmt.Errorf("emit decoder: %w", err)
	}

	base := opts.PublicPath
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	script, err := renderLoader(opts.Key, base+opts.ArtifactName, base+opts.DecoderName, opts.Export)
	if err != nil {
		return nil, err
	}
	if !opts.SkipSyntaxCheck {
		if err := CheckSyntax(opts.LoaderName, string(script)); err != nil {
			return nil, err
		}
	}

	decoded, err := loader.Decode(ctx, opts.Runtime, module, artifact, opts.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerify, err)
	}
	if decoded != src {
		return nil, ErrVerify
	}

	res := &Result{
		Renamed:  []byte(src),
		Artifact: artifact,
		Decoder:  module,
		Loader:   script,
		names:    [3]string{opts.ArtifactName, opts.DecoderName, opts.LoaderName},
	}
	res.Manifest = Manifest{
		BuiltAt:   time.Now().UTC(),
		KeyLength: len(opts.Key),
		Export:    opts.Export,
	}
	for i, r := range opts.Renames {
		res.Manifest.Renames = append(res.Manifest.Renames, RenameReport{From: r.From, To: r.To, Replacements: counts[i]})
	}
	for _, f := range res.files() {
		sum := sha256.Sum256(f.data)
		res.Manifest.Files = append(res.Manifest.Files, FileReport{Name: f.name, Size: len(f.data), SHA256: hex.EncodeToString(sum[:])})
	}

	logger.Info().
		Int("source_bytes", len(opts.Source)).
		Int("artifact_bytes", len(artifact)).
		Int("decoder_bytes", len(module)).
		Msg("Tracker build complete")
	return res, nil
}
