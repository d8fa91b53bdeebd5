// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hanzoai/analytics/internal/decoder"
	"github.com/hanzoai/analytics/internal/loader"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/obfuscate"
)

var errMismatch = errors.New("decoded tracker does not match source")

func newVerifyCmd() *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Decode a built bundle with the Go loader and compare it with the source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := resolveBuildConfig(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			opts, err := buildOptions(b, true)
			if err != nil {
				return err
			}
			if err := verifyBundle(cmd.Context(), os.DirFS(b.OutDir), opts); err != nil {
				return err
			}
			logging.Info().Str("dir", b.OutDir).Msg("Tracker bundle verified")
			return nil
		},
	}

	bindBuildFlags(cmd.Flags(), &f)
	cmd.Flags().StringVar(&f.outDir, "dir", "", "bundle directory to verify")
	return cmd
}

// verifyBundle checks the manifest digests in dir, then decodes the
// artifact with the emitted decoder and compares it with the source after
// token substitution and renames.
func verifyBundle(ctx context.Context, dir fs.FS, opts obfuscate.Options) error {
	expected, err := obfuscate.Build(ctx, opts)
	if err != nil {
		return fmt.Errorf("rebuild source: %w", err)
	}

	raw, err := fs.ReadFile(dir, obfuscate.ManifestName)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var manifest obfuscate.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	for _, file := range manifest.Files {
		data, err := fs.ReadFile(dir, file.Name)
		if err != nil {
			return fmt.Errorf("read %s: %w", file.Name, err)
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != file.SHA256 {
			return fmt.Errorf("%s: checksum does not match manifest", file.Name)
		}
	}

	export := manifest.Export
	if export == "" {
		export = decoder.DefaultExport
	}
	ld := loader.New(loader.Config{
		ArtifactURL: obfuscate.DefaultArtifactName,
		DecoderURL:  obfuscate.DefaultDecoderName,
		Key:         opts.Key,
	}, loader.FSFetcher{FS: dir}, decoder.NewWazero(decoder.WithExport(export)), nil)

	decoded, err := ld.Load(ctx)
	if err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	if decoded != string(expected.Renamed) {
		return errMismatch
	}
	return nil
}
