// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package decoder defines the sandboxed decoder capability used by the
// tracker loader, and emits the WebAssembly module that implements it.
//
// A decoder module owns a growable linear memory (64 KiB pages) and exports
// one pure function:
//
//	transform(dataPtr, dataLen, keyPtr, keyLen i32)
//
// which XORs memory[dataPtr+i] with memory[keyPtr + i%keyLen] in place for
// every i in [0, dataLen). The module does no bounds checking beyond the loop
// bound; callers make sure both regions are resident before invoking it.
//
// Two Runtime implementations are provided:
//
//   - Wazero instantiates the emitted module in a fresh wazero sandbox.
//   - Native performs the same transform in Go over a plain byte slice,
//     for hosts without a WebAssembly engine.
//
// Build emits the module binary directly; no external assembler is needed.
package decoder
