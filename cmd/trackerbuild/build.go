// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package main

import (
	"github.com/spf13/cobra"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/obfuscate"
)

func newBuildCmd() *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Obfuscate the tracker and write artifact, decoder, loader and manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := resolveBuildConfig(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			opts, err := buildOptions(b, f.skipSyntaxCheck)
			if err != nil {
				return err
			}

			res, err := obfuscate.Build(cmd.Context(), opts)
			if err != nil {
				logging.Error().Err(err).Msg("Tracker build failed")
				return err
			}
			for _, r := range res.Manifest.Renames {
				if r.Replacements == 0 {
					logging.Warn().Str("from", r.From).Msg("Rename matched nothing")
				}
			}
			return obfuscate.Write(b.OutDir, res)
		},
	}

	bindBuildFlags(cmd.Flags(), &f)
	cmd.Flags().StringVar(&f.outDir, "out", "", "output directory")
	return cmd
}
