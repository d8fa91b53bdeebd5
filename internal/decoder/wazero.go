// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package decoder

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultMemoryLimitPages bounds a sandbox's linear memory (64 MiB).
const DefaultMemoryLimitPages = 1024

// Wazero is a Runtime that instantiates decoder modules with wazero.
type Wazero struct {
	export     string
	limitPages uint32
}

// WazeroOption configures a Wazero runtime.
type WazeroOption func(*Wazero)

// WithExport sets the transform export name to look up.
func WithExport(name string) WazeroOption {
	return func(w *Wazero) { w.export = name }
}

// WithMemoryLimitPages caps linear memory growth.
func WithMemoryLimitPages(pages uint32) WazeroOption {
	return func(w *Wazero) { w.limitPages = pages }
}

// NewWazero creates a wazero-backed Runtime.
func NewWazero(opts ...WazeroOption) *Wazero {
	w := &Wazero{export: DefaultExport, limitPages: DefaultMemoryLimitPages}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LoadFromBytes instantiates module in a new wazero runtime. The runtime is
// closed together with the returned Module.
func (w *Wazero) LoadFromBytes(ctx context.Context, module []byte) (Module, error) {
	cfg := wazero.NewRuntimeConfigInterpreter().WithMemoryLimitPages(w.limitPages)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	mod, err := rt.Instantiate(ctx, module)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}

	fn := mod.ExportedFunction(w.export)
	if fn == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: function %q", ErrMissingExport, w.export)
	}
	if !isTransformSignature(fn.Definition()) {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: %q has the wrong signature", ErrInvalidModule, w.export)
	}

	mem := mod.ExportedMemory(MemoryExport)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: memory %q", ErrMissingExport, MemoryExport)
	}

	return &wazeroModule{rt: rt, fn: fn, mem: mem}, nil
}

func isTransformSignature(def api.FunctionDefinition) bool {
	params := def.ParamTypes()
	if len(params) != 4 || len(def.ResultTypes()) != 0 {
		return false
	}
	for _, p := range params {
		if p != api.ValueTypeI32 {
			return false
		}
	}
	return true
}

type wazeroModule struct {
	rt  wazero.Runtime
	fn  api.Function
	mem api.Memory
}

func (m *wazeroModule) Transform(ctx context.Context, dataPtr, dataLen, keyPtr, keyLen uint32) error {
	_, err := m.fn.Call(ctx,
		api.EncodeU32(dataPtr), api.EncodeU32(dataLen),
		api.EncodeU32(keyPtr), api.EncodeU32(keyLen))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTrap, err)
	}
	return nil
}

func (m *wazeroModule) ReadMemory(offset, length uint32) ([]byte, error) {
	view, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("%w: read %d bytes at %d", ErrOutOfBounds, length, offset)
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

func (m *wazeroModule) WriteMemory(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("%w: write %d bytes at %d", ErrOutOfBounds, len(data), offset)
	}
	return nil
}

func (m *wazeroModule) MemoryPages() uint32 {
	return m.mem.Size() / pageSize
}

func (m *wazeroModule) GrowMemory(delta uint32) error {
	if _, ok := m.mem.Grow(delta); !ok {
		return fmt.Errorf("%w: by %d pages", ErrGrow, delta)
	}
	return nil
}

func (m *wazeroModule) Close(ctx context.Context) error {
	return m.rt.Close(ctx)
}
