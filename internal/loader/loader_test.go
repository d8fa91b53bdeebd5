// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package loader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/hanzoai/analytics/internal/cipher"
	"github.com/hanzoai/analytics/internal/decoder"
	"github.com/hanzoai/analytics/internal/logging"
)

var testKey = cipher.Key("secret")

type mapFetcher struct {
	blobs map[string][]byte
	err   error
}

func (f *mapFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.blobs[ref]
	if !ok {
		return nil, errors.New("not found: " + ref)
	}
	return b, nil
}

type recordingSink struct {
	mu      sync.Mutex
	scripts []string
	panicOn bool
}

func (s *recordingSink) InjectScript(source string) error {
	if s.panicOn {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, source)
	return nil
}

// growRecorder wraps a Runtime and records memory growth requests.
type growRecorder struct {
	decoder.Runtime
	grown []uint32
}

func (g *growRecorder) LoadFromBytes(ctx context.Context, module []byte) (decoder.Module, error) {
	m, err := g.Runtime.LoadFromBytes(ctx, module)
	if err != nil {
		return nil, err
	}
	return &growModule{Module: m, rec: g}, nil
}

type growModule struct {
	decoder.Module
	rec *growRecorder
}

func (m *growModule) GrowMemory(delta uint32) error {
	m.rec.grown = append(m.rec.grown, delta)
	return m.Module.GrowMemory(delta)
}

func artifacts(t *testing.T, source string) map[string][]byte {
	t.Helper()
	module, err := decoder.Build(decoder.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := cipher.Apply([]byte(source), testKey)
	if err != nil {
		t.Fatal(err)
	}
	return map[string][]byte{"data.bin": enc, "loader.wasm": module}
}

func newTestLoader(f Fetcher, rt decoder.Runtime, sink ScriptSink) *Loader {
	var buf bytes.Buffer
	return New(Config{ArtifactURL: "data.bin", DecoderURL: "loader.wasm", Key: testKey},
		f, rt, sink, WithLogger(logging.NewTestLogger(&buf)))
}

func TestRunInjectsPlaintext(t *testing.T) {
	t.Parallel()

	source := "window.app = { send: function () {} }; // ünïcode"
	sink := &recordingSink{}
	l := newTestLoader(&mapFetcher{blobs: artifacts(t, source)}, decoder.NewWazero(), sink)

	if !l.Run(context.Background()) {
		t.Fatal("Run() = false, want true")
	}
	if len(sink.scripts) != 1 || sink.scripts[0] != source {
		t.Errorf("injected = %q, want %q", sink.scripts, source)
	}
}

func TestLoadGrowsMemoryForLargeArtifacts(t *testing.T) {
	t.Parallel()

	source := strings.Repeat("x", 3*cipher.PageSize+17)
	rec := &growRecorder{Runtime: decoder.NewNative()}
	l := newTestLoader(&mapFetcher{blobs: artifacts(t, source)}, rec, &recordingSink{})

	got, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != source {
		t.Error("decoded source differs from original")
	}
	want := cipher.PagesFor(len(source)+len(testKey)) - 1
	if len(rec.grown) != 1 || rec.grown[0] != want {
		t.Errorf("grow calls = %v, want [%d]", rec.grown, want)
	}
}

func TestLoadSkipsGrowWhenMemorySuffices(t *testing.T) {
	t.Parallel()

	rec := &growRecorder{Runtime: decoder.NewNative()}
	l := newTestLoader(&mapFetcher{blobs: artifacts(t, "small")}, rec, &recordingSink{})

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.grown) != 0 {
		t.Errorf("grow calls = %v, want none", rec.grown)
	}
}

func TestDecodeReplacesInvalidUTF8(t *testing.T) {
	t.Parallel()

	module, err := decoder.Build(decoder.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := cipher.Apply([]byte{'a', 0xff, 'b'}, testKey)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		rt   decoder.Runtime
	}{
		{"native", decoder.NewNative()},
		{"wazero", decoder.NewWazero()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(context.Background(), tt.rt, module, enc, testKey)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != "a\uFFFDb" {
				t.Errorf("Decode() = %q, want %q", got, "a\uFFFDb")
			}
		})
	}
}

func TestRunFailuresAreNonFatal(t *testing.T) {
	t.Parallel()

	good := artifacts(t, "ok")
	corrupt := map[string][]byte{"data.bin": good["data.bin"], "loader.wasm": []byte("garbage")}
	empty := map[string][]byte{"data.bin": {}, "loader.wasm": good["loader.wasm"]}

	tests := []struct {
		name    string
		fetcher Fetcher
		sink    *recordingSink
	}{
		{"fetch error", &mapFetcher{err: errors.New("offline")}, &recordingSink{}},
		{"missing decoder", &mapFetcher{blobs: map[string][]byte{"data.bin": good["data.bin"]}}, &recordingSink{}},
		{"corrupt decoder", &mapFetcher{blobs: corrupt}, &recordingSink{}},
		{"empty artifact", &mapFetcher{blobs: empty}, &recordingSink{}},
		{"sink panics", &mapFetcher{blobs: good}, &recordingSink{panicOn: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := newTestLoader(tt.fetcher, decoder.NewWazero(), tt.sink)
			if l.Run(context.Background()) {
				t.Error("Run() = true, want false")
			}
			if len(tt.sink.scripts) != 0 {
				t.Errorf("injected %d scripts after failure", len(tt.sink.scripts))
			}
		})
	}
}

// barrierFetcher only returns once both blobs have been requested.
type barrierFetcher struct {
	inner   Fetcher
	started sync.WaitGroup
}

func (b *barrierFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	b.started.Done()
	done := make(chan struct{})
	go func() { b.started.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		return nil, errors.New("fetches were not concurrent")
	}
	return b.inner.Fetch(ctx, ref)
}

func TestLoadFetchesConcurrently(t *testing.T) {
	t.Parallel()

	bf := &barrierFetcher{inner: &mapFetcher{blobs: artifacts(t, "concurrent")}}
	bf.started.Add(2)
	l := newTestLoader(bf, decoder.NewNative(), &recordingSink{})

	got, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "concurrent" {
		t.Errorf("Load() = %q", got)
	}
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	blobs := artifacts(t, "over http")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := blobs[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	var buf bytes.Buffer
	l := New(Config{ArtifactURL: srv.URL + "/data.bin", DecoderURL: srv.URL + "/loader.wasm", Key: testKey},
		NewHTTPFetcher(), decoder.NewWazero(), sink, WithLogger(logging.NewTestLogger(&buf)))
	if !l.Run(context.Background()) {
		t.Fatalf("Run() = false; log: %s", buf.String())
	}
	if sink.scripts[0] != "over http" {
		t.Errorf("injected %q", sink.scripts[0])
	}

	if _, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Fetch(missing) error = nil, want status error")
	}
}

func TestFSFetcher(t *testing.T) {
	t.Parallel()

	f := FSFetcher{FS: fstest.MapFS{"out/data.bin": {Data: []byte{1, 2, 3}}}}
	got, err := f.Fetch(context.Background(), "/out/data.bin")
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Fetch() = %v, %v", got, err)
	}
}
