// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package logging provides the zerolog-based structured logger shared by the
// collector, the tracker build tool and the client-side runtime packages.
//
// A single global logger is configured once at startup and accessed through
// package-level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("website", id).Msg("event accepted")
//	logging.Err(err).Msg("store flush failed")
//
// Components that must stay independent of global state (the tracker runtime
// and the loader) receive a zerolog.Logger value instead; WithComponent
// returns one derived from the global logger.
//
// # Output
//
// JSON is the default format. "console" switches to zerolog.ConsoleWriter for
// local development. When Config.File is set, output goes to a size-rotated
// file managed by lumberjack instead of stderr.
//
// # Request context
//
// ContextWithRequestID and Ctx propagate HTTP request IDs into log lines:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("invalid payload")
//
// # slog bridge
//
// NewSlogLogger returns a *slog.Logger backed by zerolog for libraries that
// only accept slog, such as sutureslog.
package logging
