// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package decoder

import (
	"context"
	"errors"
)

const (
	// DefaultExport is the name of the exported transform function.
	DefaultExport = "transform"

	// MemoryExport is the name of the exported linear memory.
	MemoryExport = "memory"
)

var (
	// ErrInvalidModule is returned when the bytes are not a usable decoder module.
	ErrInvalidModule = errors.New("decoder: invalid module")

	// ErrMissingExport is returned when the module lacks the transform or memory export.
	ErrMissingExport = errors.New("decoder: missing export")

	// ErrOutOfBounds is returned when a memory access falls outside linear memory.
	ErrOutOfBounds = errors.New("decoder: memory access out of bounds")

	// ErrGrow is returned when linear memory cannot be grown.
	ErrGrow = errors.New("decoder: memory grow failed")

	// ErrTrap is returned when the transform aborts (for example a zero key length).
	ErrTrap = errors.New("decoder: transform trapped")
)

// Runtime instantiates decoder modules. Every call to LoadFromBytes yields a
// fresh, independent sandbox.
type Runtime interface {
	LoadFromBytes(ctx context.Context, module []byte) (Module, error)
}

// Module is one instantiated decoder. It is not safe for concurrent use; a
// module is owned by a single decode call.
type Module interface {
	// Transform invokes the exported transform function.
	Transform(ctx context.Context, dataPtr, dataLen, keyPtr, keyLen uint32) error

	// ReadMemory returns a copy of length bytes starting at offset.
	ReadMemory(offset, length uint32) ([]byte, error)

	// WriteMemory copies data into linear memory at offset.
	WriteMemory(offset uint32, data []byte) error

	// MemoryPages reports the current size of linear memory in pages.
	MemoryPages() uint32

	// GrowMemory adds delta pages to linear memory.
	GrowMemory(delta uint32) error

	// Close releases the sandbox.
	Close(ctx context.Context) error
}
