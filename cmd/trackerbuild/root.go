// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hanzoai/analytics/internal/cipher"
	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/obfuscate"
)

// buildFlags are shared by build and verify; verify has to reproduce the
// build inputs to know what the bundle should decode to.
type buildFlags struct {
	source          string
	outDir          string
	key             string
	host            string
	endpoint        string
	publicPath      string
	export          string
	renames         []string
	skipSyntaxCheck bool
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "trackerbuild",
		Short:         "Build and verify the obfuscated Hanzo Analytics tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := logging.DefaultConfig()
			cfg.Level = logLevel
			cfg.Format = logFormat
			logging.Init(cfg)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: json or console")

	root.AddCommand(newBuildCmd(), newVerifyCmd())
	return root
}

// bindBuildFlags registers the shared flags on fs.
func bindBuildFlags(fs *pflag.FlagSet, f *buildFlags) {
	fs.StringVar(&f.source, "source", "", "plaintext tracker script")
	fs.StringVar(&f.key, "key", "", "obfuscation key")
	fs.StringVar(&f.host, "host", "", "default collection host baked into the tracker")
	fs.StringVar(&f.endpoint, "endpoint", "", "default collection path baked into the tracker")
	fs.StringVar(&f.publicPath, "public-path", "", "URL prefix of the artifact and decoder in the loader")
	fs.StringVar(&f.export, "export", "", "decoder transform export name")
	fs.StringSliceVar(&f.renames, "rename", nil, "identifier rename FROM=TO, repeatable and applied in order")
	fs.BoolVar(&f.skipSyntaxCheck, "skip-syntax-check", false, "skip the JavaScript compile checks")
}

// resolveBuildConfig layers the flags the user set over the configured
// build section.
func resolveBuildConfig(fs *pflag.FlagSet, f *buildFlags) (config.BuildConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.BuildConfig{}, err
	}
	b := cfg.Build

	override := func(name string, dst *string, val string) {
		if fs.Changed(name) {
			*dst = val
		}
	}
	override("source", &b.Source, f.source)
	override("out", &b.OutDir, f.outDir)
	override("dir", &b.OutDir, f.outDir)
	override("key", &b.Key, f.key)
	override("host", &b.Host, f.host)
	override("endpoint", &b.Endpoint, f.endpoint)
	override("public-path", &b.PublicPath, f.publicPath)
	override("export", &b.Export, f.export)
	if fs.Changed("rename") {
		b.Renames = f.renames
	}

	if err := b.Validate(); err != nil {
		return config.BuildConfig{}, err
	}
	return b, nil
}

// buildOptions turns a build section into pipeline options, reading the
// source file.
func buildOptions(b config.BuildConfig, skipSyntaxCheck bool) (obfuscate.Options, error) {
	src, err := os.ReadFile(b.Source)
	if err != nil {
		return obfuscate.Options{}, fmt.Errorf("read source: %w", err)
	}
	key, err := cipher.ParseKey(b.Key)
	if err != nil {
		return obfuscate.Options{}, err
	}

	opts := obfuscate.Options{
		Source:          src,
		Key:             key,
		Host:            b.Host,
		Endpoint:        b.Endpoint,
		PublicPath:      b.PublicPath,
		Export:          b.Export,
		SkipSyntaxCheck: skipSyntaxCheck,
	}
	for _, s := range b.Renames {
		r, err := obfuscate.ParseRename(s)
		if err != nil {
			return obfuscate.Options{}, err
		}
		opts.Renames = append(opts.Renames, r)
	}
	return opts, nil
}
