// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package obfuscate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/logging"
)

// Write publishes the build products and manifest into dir. Files are staged
// in a temporary directory inside dir first; if moving any of them into place
// fails, files already moved are reverted to their previous content.
func Write(dir string, res *Result) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	stage, err := os.MkdirTemp(dir, ".build-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	manifest, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	files := append(res.files(), namedFile{ManifestName, manifest})
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(stage, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", f.name, err)
		}
	}

	backup := filepath.Join(stage, "previous")
	if err := os.Mkdir(backup, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	var moved []string
	defer func() {
		if err == nil {
			return
		}
		for _, name := range moved {
			dst := filepath.Join(dir, name)
			prev := filepath.Join(backup, name)
			if _, statErr := os.Stat(prev); statErr == nil {
				_ = os.Rename(prev, dst)
			} else {
				_ = os.Remove(dst)
			}
		}
	}()

	for _, f := range files {
		dst := filepath.Join(dir, f.name)
		if _, statErr := os.Stat(dst); statErr == nil {
			if err := os.Rename(dst, filepath.Join(backup, f.name)); err != nil {
				return fmt.Errorf("back up %s: %w", f.name, err)
			}
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", f.name, statErr)
		}
		moved = append(moved, f.name)
		if err := os.Rename(filepath.Join(stage, f.name), dst); err != nil {
			return fmt.Errorf("publish %s: %w", f.name, err)
		}
	}

	logging.Info().Str("dir", dir).Int("files", len(files)).Msg("Tracker artifacts written")
	return nil
}
