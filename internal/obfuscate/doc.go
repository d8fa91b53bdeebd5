// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package obfuscate is the build-time pipeline that turns the plaintext
// tracker script into the three files a deployment ships:
//
//	data.bin     the renamed tracker, XOR-encrypted with the deployment key
//	loader.wasm  the decoder module (see package decoder)
//	script.js    the loader that fetches both, decodes and injects the tracker
//
// Steps run in a fixed order: build-time token substitution, identifier
// renames, syntax check, encryption, decoder emission, loader emission,
// loader syntax check, and a self-verification that decodes the artifact
// through the emitted module. Any failure aborts the build.
//
// # Renames
//
// Renames are plain textual substitutions applied in the configured order.
// Every occurrence of From is replaced, including occurrences inside longer
// identifiers and string literals: renaming "track" to "send" also turns
// "trackingDisabled" into "sendingDisabled". This is a known limitation of
// the pipeline and is kept as is; pick rename sources that are safe for the
// script being built.
//
// # Output
//
// Write stages every file in a temporary directory next to the destination
// and moves them into place only after all of them were written, restoring
// the previous files if a move fails. A failed build never leaves partial
// artifacts behind.
//
// The obfuscation deters casual inspection only. It is not a security
// boundary: the key ships inside the loader.
package obfuscate
