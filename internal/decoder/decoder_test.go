// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package decoder

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hanzoai/analytics/internal/cipher"
)

func runtimes() map[string]Runtime {
	return map[string]Runtime{
		"wazero": NewWazero(),
		"native": NewNative(),
	}
}

func mustBuild(t *testing.T, opts BuildOptions) []byte {
	t.Helper()
	module, err := Build(opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return module
}

func TestBuildHeader(t *testing.T) {
	t.Parallel()

	module := mustBuild(t, BuildOptions{})
	if !bytes.HasPrefix(module, wasmHeader) {
		t.Fatalf("module header = % x", module[:8])
	}
	if !bytes.Contains(module, []byte(DefaultExport)) || !bytes.Contains(module, []byte(MemoryExport)) {
		t.Error("module does not name its exports")
	}

	pages, err := initialPages(mustBuild(t, BuildOptions{InitialPages: 3}))
	if err != nil || pages != 3 {
		t.Errorf("initialPages() = %d, %v; want 3", pages, err)
	}
}

func TestBuildRejectsMemoryExportName(t *testing.T) {
	t.Parallel()

	if _, err := Build(BuildOptions{Export: MemoryExport}); !errors.Is(err, ErrInvalidModule) {
		t.Errorf("Build(export=memory) error = %v, want ErrInvalidModule", err)
	}
}

func TestTransformMatchesCipher(t *testing.T) {
	t.Parallel()

	plain := []byte("(function(){window.app={send:function(){}}})();")
	key := cipher.Key("secret")
	encrypted, _ := cipher.Apply(plain, key)

	for name, rt := range runtimes() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mod, err := rt.LoadFromBytes(ctx, mustBuild(t, BuildOptions{}))
			if err != nil {
				t.Fatalf("LoadFromBytes() error = %v", err)
			}
			defer mod.Close(ctx)

			if got := mod.MemoryPages(); got != 1 {
				t.Errorf("MemoryPages() = %d, want 1", got)
			}

			aLen, kLen := uint32(len(encrypted)), uint32(len(key))
			if err := mod.WriteMemory(0, encrypted); err != nil {
				t.Fatal(err)
			}
			if err := mod.WriteMemory(aLen, key); err != nil {
				t.Fatal(err)
			}
			if err := mod.Transform(ctx, 0, aLen, aLen, kLen); err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			got, err := mod.ReadMemory(0, aLen)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("decoded = %q, want %q", got, plain)
			}

			// key region is left untouched
			k, _ := mod.ReadMemory(aLen, kLen)
			if !bytes.Equal(k, key) {
				t.Errorf("key region = %q, want %q", k, key)
			}
		})
	}
}

func TestGrowAndBounds(t *testing.T) {
	t.Parallel()

	for name, rt := range runtimes() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mod, err := rt.LoadFromBytes(ctx, mustBuild(t, BuildOptions{}))
			if err != nil {
				t.Fatal(err)
			}
			defer mod.Close(ctx)

			if err := mod.WriteMemory(pageSize-1, []byte{1, 2}); !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("WriteMemory past end error = %v, want ErrOutOfBounds", err)
			}
			if err := mod.GrowMemory(2); err != nil {
				t.Fatalf("GrowMemory() error = %v", err)
			}
			if got := mod.MemoryPages(); got != 3 {
				t.Errorf("MemoryPages() = %d, want 3", got)
			}
			if err := mod.WriteMemory(pageSize-1, []byte{1, 2}); err != nil {
				t.Errorf("WriteMemory after grow error = %v", err)
			}
			if err := mod.GrowMemory(DefaultMemoryLimitPages); !errors.Is(err, ErrGrow) {
				t.Errorf("GrowMemory(limit) error = %v, want ErrGrow", err)
			}
		})
	}
}

func TestTransformZeroKeyTraps(t *testing.T) {
	t.Parallel()

	for name, rt := range runtimes() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mod, err := rt.LoadFromBytes(ctx, mustBuild(t, BuildOptions{}))
			if err != nil {
				t.Fatal(err)
			}
			defer mod.Close(ctx)

			if err := mod.Transform(ctx, 0, 4, 4, 0); !errors.Is(err, ErrTrap) {
				t.Errorf("Transform(keyLen=0) error = %v, want ErrTrap", err)
			}
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	for name, rt := range runtimes() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := rt.LoadFromBytes(context.Background(), []byte("not wasm"))
			if !errors.Is(err, ErrInvalidModule) {
				t.Errorf("LoadFromBytes(garbage) error = %v, want ErrInvalidModule", err)
			}
		})
	}
}

func TestWazeroMissingExport(t *testing.T) {
	t.Parallel()

	module := mustBuild(t, BuildOptions{Export: "deobfuscate"})
	_, err := NewWazero().LoadFromBytes(context.Background(), module)
	if !errors.Is(err, ErrMissingExport) {
		t.Errorf("LoadFromBytes() error = %v, want ErrMissingExport", err)
	}

	mod, err := NewWazero(WithExport("deobfuscate")).LoadFromBytes(context.Background(), module)
	if err != nil {
		t.Fatalf("LoadFromBytes(WithExport) error = %v", err)
	}
	_ = mod.Close(context.Background())
}

func TestULEBRoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []uint32{0, 1, 127, 128, 300, 65536, 1<<32 - 1} {
		got, n, err := readULEB(uleb(v))
		if err != nil || got != v || n != len(uleb(v)) {
			t.Errorf("readULEB(uleb(%d)) = %d, %d, %v", v, got, n, err)
		}
	}
}
