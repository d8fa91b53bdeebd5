// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package obfuscate

import (
	"fmt"
	"strings"
)

// Build-time tokens replaced in the tracker source before renaming.
const (
	TokenHost     = "__COLLECT_API_HOST__"
	TokenEndpoint = "__COLLECT_API_ENDPOINT__"
)

// Rename substitutes every occurrence of From with To.
type Rename struct {
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

// DefaultRenames are the public global object and tracking method renames.
var DefaultRenames = []Rename{
	{From: "window.umami", To: "window.app"},
	{From: "track", To: "send"},
}

// ParseRename parses "from=to".
func ParseRename(s string) (Rename, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok || from == "" {
		return Rename{}, fmt.Errorf("invalid rename %q: want from=to", s)
	}
	return Rename{From: from, To: to}, nil
}

// substituteTokens replaces the build-time host and endpoint tokens.
func substituteTokens(src, host, endpoint string) string {
	return strings.NewReplacer(TokenHost, host, TokenEndpoint, endpoint).Replace(src)
}

// applyRenames applies renames in order and reports how many occurrences
// each one replaced.
func applyRenames(src string, renames []Rename) (string, []int) {
	counts := make([]int, len(renames))
	for i, r := range renames {
		if r.From == "" {
			continue
		}
		counts[i] = strings.Count(src, r.From)
		src = strings.ReplaceAll(src, r.From, r.To)
	}
	return src, counts
}
