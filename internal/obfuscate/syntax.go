// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package obfuscate

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrSyntax is returned when a script does not compile.
var ErrSyntax = errors.New("obfuscate: script does not compile")

// CheckSyntax parses and compiles src without running it.
func CheckSyntax(name, src string) error {
	if _, err := goja.Compile(name, src, false); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSyntax, name, err)
	}
	return nil
}
