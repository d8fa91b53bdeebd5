// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hanzoai/analytics/internal/obfuscate"
)

const testSource = `(function (window) {
  var endpoint = "__COLLECT_API_HOST__" + "__COLLECT_API_ENDPOINT__";
  window.umami = { track: function (name) { return endpoint + name; } };
})(window);
`

func writeSource(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "tracker.js")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--log-level", "disabled"))
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	return cmd.ExecuteContext(context.Background())
}

func TestBuildThenVerify(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, testSource)
	out := filepath.Join(dir, "dist")

	common := []string{
		"--source", src,
		"--key", "k3y",
		"--host", "https://a.example.com",
		"--endpoint", "/api/send",
		"--rename", "window.umami=window.app",
		"--rename", "track=send",
	}

	if err := run(t, append([]string{"build", "--out", out}, common...)...); err != nil {
		t.Fatalf("build error = %v", err)
	}
	for _, name := range []string{obfuscate.DefaultArtifactName, obfuscate.DefaultDecoderName, obfuscate.DefaultLoaderName, obfuscate.ManifestName} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	if err := run(t, append([]string{"verify", "--dir", out}, common...)...); err != nil {
		t.Fatalf("verify error = %v", err)
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, testSource)
	out := filepath.Join(dir, "dist")

	if err := run(t, "build", "--out", out, "--source", src, "--key", "k3y"); err != nil {
		t.Fatalf("build error = %v", err)
	}

	t.Run("different key", func(t *testing.T) {
		if err := run(t, "verify", "--dir", out, "--source", src, "--key", "other"); err == nil {
			t.Error("verify with a different key succeeded, want failure")
		}
	})

	t.Run("changed source", func(t *testing.T) {
		changed := writeSource(t, t.TempDir(), strings.Replace(testSource, "track", "count", 1))
		err := run(t, "verify", "--dir", out, "--source", changed, "--key", "k3y")
		if !errors.Is(err, errMismatch) {
			t.Errorf("verify error = %v, want %v", err, errMismatch)
		}
	})

	t.Run("tampered artifact", func(t *testing.T) {
		path := filepath.Join(out, obfuscate.DefaultArtifactName)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		data[0] ^= 0xff
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		err = run(t, "verify", "--dir", out, "--source", src, "--key", "k3y")
		if err == nil || !strings.Contains(err.Error(), "checksum") {
			t.Errorf("verify error = %v, want checksum failure", err)
		}
	})
}

func TestBuildRejectsMissingSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	if err := run(t, "build", "--out", out, "--key", "k3y", "--source", ""); err == nil {
		t.Error("build without source succeeded, want error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output directory created on failure: %v", err)
	}
}
