// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// BadgerLogger adapts zerolog to badger.Logger. Badger is chatty at info
// level, so its info messages are logged at debug.
type BadgerLogger struct {
	logger zerolog.Logger
}

// NewBadgerLogger returns a badger.Logger tagged with component.
func NewBadgerLogger(component string) *BadgerLogger {
	return &BadgerLogger{logger: WithComponent(component)}
}

func (b *BadgerLogger) Errorf(format string, args ...interface{}) {
	b.logger.Error().Msgf(trimNewline(format), args...)
}

func (b *BadgerLogger) Warningf(format string, args ...interface{}) {
	b.logger.Warn().Msgf(trimNewline(format), args...)
}

func (b *BadgerLogger) Infof(format string, args ...interface{}) {
	b.logger.Debug().Msgf(trimNewline(format), args...)
}

func (b *BadgerLogger) Debugf(format string, args ...interface{}) {
	b.logger.Trace().Msgf(trimNewline(format), args...)
}

func trimNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
