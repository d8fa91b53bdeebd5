// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package cipher implements the repeating-key XOR transform used to obfuscate
// the tracker artifact, and the linear-memory arithmetic the decoder needs.
//
// The transform is involutive: applying it twice with the same key restores
// the input. It deters casual inspection of the shipped tracker and is not
// a security boundary.
package cipher

import (
	"errors"
)

// PageSize is the size of one WebAssembly linear-memory page.
const PageSize = 64 * 1024

// ErrEmptyKey is returned when a transform is requested with a zero-length key.
var ErrEmptyKey = errors.New("cipher: key must not be empty")

// Key is the shared obfuscation key embedded in both the artifact build and
// the loader.
type Key []byte

// ParseKey converts a configured key string into a Key.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return nil, ErrEmptyKey
	}
	return Key(s), nil
}

// Apply returns a new slice holding in XORed with the repeating key.
func Apply(in []byte, key Key) ([]byte, error) {
	out := make([]byte, len(in))
	copy(out, in)
	if err := ApplyInPlace(out, key); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyInPlace XORs data[i] with key[i % len(key)] for every byte of data.
func ApplyInPlace(data []byte, key Key) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
	return nil
}

// PagesFor returns the number of pages needed to hold n bytes.
func PagesFor(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + PageSize - 1) / PageSize)
}

// Growth returns how many pages must be added to a memory of current pages
// so that artifactLen+keyLen bytes fit. It is zero when capacity suffices.
func Growth(current uint32, artifactLen, keyLen int) uint32 {
	need := PagesFor(artifactLen + keyLen)
	if need <= current {
		return 0
	}
	return need - current
}
