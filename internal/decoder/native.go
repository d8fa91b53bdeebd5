// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package decoder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hanzoai/analytics/internal/cipher"
)

const pageSize = cipher.PageSize

// Native is a Runtime that reproduces the decoder module in Go. It accepts
// any module whose header is valid and sizes its memory from the module's
// memory section; the transform itself is executed natively.
type Native struct {
	limitPages uint32
}

// NewNative creates a Native runtime with the default memory limit.
func NewNative() *Native {
	return &Native{limitPages: DefaultMemoryLimitPages}
}

// LoadFromBytes validates module and allocates its initial memory.
func (n *Native) LoadFromBytes(_ context.Context, module []byte) (Module, error) {
	pages, err := initialPages(module)
	if err != nil {
		return nil, err
	}
	if pages > n.limitPages {
		return nil, fmt.Errorf("%w: initial memory %d pages exceeds limit", ErrInvalidModule, pages)
	}
	return &nativeModule{mem: make([]byte, int(pages)*pageSize), limit: n.limitPages}, nil
}

// initialPages walks the section headers of a WebAssembly binary and returns
// the minimum size of its first memory.
func initialPages(module []byte) (uint32, error) {
	if len(module) < len(wasmHeader) || !bytes.Equal(module[:len(wasmHeader)], wasmHeader) {
		return 0, fmt.Errorf("%w: bad header", ErrInvalidModule)
	}
	p := module[len(wasmHeader):]
	for len(p) > 0 {
		id := p[0]
		size, n, err := readULEB(p[1:])
		if err != nil {
			return 0, err
		}
		start := 1 + n
		end := start + int(size)
		if end > len(p) {
			return 0, fmt.Errorf("%w: truncated section %d", ErrInvalidModule, id)
		}
		if id == secMemory {
			return memoryMin(p[start:end])
		}
		p = p[end:]
	}
	return 0, fmt.Errorf("%w: memory %q", ErrMissingExport, MemoryExport)
}

func memoryMin(sec []byte) (uint32, error) {
	count, n, err := readULEB(sec)
	if err != nil {
		return 0, err
	}
	if count == 0 || len(sec) < n+2 {
		return 0, fmt.Errorf("%w: empty memory section", ErrInvalidModule)
	}
	minPages, _, err := readULEB(sec[n+1:])
	return minPages, err
}

type nativeModule struct {
	mem   []byte
	limit uint32
}

func (m *nativeModule) inBounds(offset, length uint32) bool {
	return uint64(offset)+uint64(length) <= uint64(len(m.mem))
}

func (m *nativeModule) Transform(_ context.Context, dataPtr, dataLen, keyPtr, keyLen uint32) error {
	if dataLen == 0 {
		return nil
	}
	if keyLen == 0 {
		return fmt.Errorf("%w: integer divide by zero", ErrTrap)
	}
	if !m.inBounds(dataPtr, dataLen) || !m.inBounds(keyPtr, keyLen) {
		return fmt.Errorf("%w: %v", ErrTrap, ErrOutOfBounds)
	}
	data := m.mem[dataPtr : dataPtr+dataLen]
	key := m.mem[keyPtr : keyPtr+keyLen]
	for i := range data {
		data[i] ^= key[uint32(i)%keyLen]
	}
	return nil
}

func (m *nativeModule) ReadMemory(offset, length uint32) ([]byte, error) {
	if !m.inBounds(offset, length) {
		return nil, fmt.Errorf("%w: read %d bytes at %d", ErrOutOfBounds, length, offset)
	}
	out := make([]byte, length)
	copy(out, m.mem[offset:])
	return out, nil
}

func (m *nativeModule) WriteMemory(offset uint32, data []byte) error {
	if !m.inBounds(offset, uint32(len(data))) {
		return fmt.Errorf("%w: write %d bytes at %d", ErrOutOfBounds, len(data), offset)
	}
	copy(m.mem[offset:], data)
	return nil
}

func (m *nativeModule) MemoryPages() uint32 {
	return uint32(len(m.mem) / pageSize)
}

func (m *nativeModule) GrowMemory(delta uint32) error {
	if m.MemoryPages()+delta > m.limit {
		return fmt.Errorf("%w: by %d pages", ErrGrow, delta)
	}
	m.mem = append(m.mem, make([]byte, int(delta)*pageSize)...)
	return nil
}

func (m *nativeModule) Close(context.Context) error {
	m.mem = nil
	return nil
}
