// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/antchfx/htmlquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/hanzoai/analytics/internal/cipher"
	"github.com/hanzoai/analytics/internal/decoder"
	"github.com/hanzoai/analytics/internal/loader"
)

func TestInjectScriptCopiesConfiguration(t *testing.T) {
	t.Parallel()

	page := `<html><head><script src="/t/loader.js" data-website-id="w1" data-tag="beta" class="x"></script></head></html>`
	win, err := ParseWindow("https://example.com/", page, WithCurrentScript(`//script`))
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}

	var injected *html.Node
	remove := win.OnScriptInjected(func(el *html.Node) { injected = el })
	defer remove()

	if err := win.InjectScript("console.log(1)"); err != nil {
		t.Fatalf("InjectScript() error = %v", err)
	}
	if injected == nil {
		t.Fatal("OnScriptInjected handler not called")
	}

	tests := []struct {
		key, want string
	}{
		{"data-website-id", "w1"},
		{"data-tag", "beta"},
		{LoaderSrcAttr, "https://example.com/t/loader.js"},
		{"class", ""},
		{"src", ""},
	}
	for _, tt := range tests {
		if got := htmlquery.SelectAttr(injected, tt.key); got != tt.want {
			t.Errorf("attr %s = %q, want %q", tt.key, got, tt.want)
		}
	}
	if got := htmlquery.InnerText(injected); got != "console.log(1)" {
		t.Errorf("script text = %q", got)
	}
	if injected.Parent == nil || injected.Parent.Data != "head" {
		t.Error("injected script not appended to head")
	}
}

func TestInjectScriptWithoutHead(t *testing.T) {
	t.Parallel()

	doc := &html.Node{Type: html.DocumentNode}
	win, err := NewWindow("https://example.com/", doc)
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	if err := win.InjectScript("x"); !errors.Is(err, ErrNoHead) {
		t.Errorf("InjectScript() error = %v, want ErrNoHead", err)
	}
	if err := win.AppendScript("https://x.example/a.js"); !errors.Is(err, ErrNoHead) {
		t.Errorf("AppendScript() error = %v, want ErrNoHead", err)
	}
}

func TestNewWindowRejectsRelativeLocation(t *testing.T) {
	t.Parallel()

	if _, err := NewWindow("/relative", nil); err == nil {
		t.Error("NewWindow() error = nil, want an error for a relative location")
	}
}

func TestGlobals(t *testing.T) {
	t.Parallel()

	win, err := NewWindow("https://example.com/", nil)
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}

	if !win.SetGlobalIfAbsent("a", 1) || win.SetGlobalIfAbsent("a", 2) {
		t.Error("SetGlobalIfAbsent() did not set exactly once")
	}
	if v, _ := win.Global("a"); v != 1 {
		t.Errorf("Global(a) = %v, want 1", v)
	}
	if win.CallGlobal("a") {
		t.Error("CallGlobal() called a non-callable global")
	}

	q := win.EnsureQueue("q")
	q.Push("x")
	if win.EnsureQueue("q").Len() != 1 {
		t.Error("EnsureQueue() replaced an existing queue")
	}

	var got []any
	win.SetGlobal("fn", Func(func(args ...any) { got = args }))
	if c := win.EnsureStub("fn"); c == nil || !win.CallGlobal("fn", "go") {
		t.Fatal("EnsureStub() replaced an existing callable")
	}
	if len(got) != 1 || got[0] != "go" {
		t.Errorf("callable args = %v", got)
	}
}

// TestLoaderHandsOverToTracker runs the decode protocol against a page and
// checks that the injected script starts a configured tracker.
func TestLoaderHandsOverToTracker(t *testing.T) {
	t.Parallel()

	const source = "(function(){/* tracker */})()"
	key := cipher.Key("k3y")
	module, err := decoder.Build(decoder.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	artifact, err := cipher.Apply([]byte(source), key)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	fsys := fstest.MapFS{
		"t/data.bin":    {Data: artifact},
		"t/loader.wasm": {Data: module},
	}

	page := `<html><head><title>Home</title>
<script src="https://cdn.example.com/t/loader.js" data-website-id="w1" data-ast="false"></script>
</head><body></body></html>`
	win, err := ParseWindow("https://example.com/", page, WithCurrentScript(`//script[@src]`))
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}

	rt := &recordingTransport{}
	var trackers []*Tracker
	detach := Attach(context.Background(), win, func(tr *Tracker) { trackers = append(trackers, tr) },
		WithTransport(rt), WithClock(&manualClock{}), WithLogger(zerolog.Nop()))
	defer detach()

	ld := loader.New(loader.Config{ArtifactURL: "/t/data.bin", DecoderURL: "/t/loader.wasm", Key: key},
		loader.FSFetcher{FS: fsys}, decoder.NewNative(), win, loader.WithLogger(zerolog.Nop()))
	if !ld.Run(context.Background()) {
		t.Fatal("Run() = false, want the artifact decoded and injected")
	}

	if len(trackers) != 1 {
		t.Fatalf("trackers started = %d, want 1", len(trackers))
	}
	tr := trackers[0]
	t.Cleanup(tr.Close)

	if tr.Inert() {
		t.Fatal("tracker started without a script")
	}
	if got := tr.Config().ScriptSrc; got != "https://cdn.example.com/t/loader.js" {
		t.Errorf("ScriptSrc = %q, want the loader src", got)
	}
	if got := tr.Endpoints().Send; got != "https://cdn.example.com/t/api/send" {
		t.Errorf("Send endpoint = %q", got)
	}
	if got := win.CurrentScript(); htmlquery.SelectAttr(got, "src") != "https://cdn.example.com/t/loader.js" {
		t.Error("current script not restored after start")
	}

	sends := rt.sends(t)
	if len(sends) != 1 || sends[0].Payload.Website != "w1" || sends[0].Payload.Title != "Home" {
		t.Errorf("sends = %+v, want one page view for w1", sends)
	}

	injected := htmlquery.FindOne(win.Document(), "//script[@"+LoaderSrcAttr+"]")
	if injected == nil || htmlquery.InnerText(injected) != source {
		t.Error("decoded source not injected")
	}
}
