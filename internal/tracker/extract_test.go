// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/models"
)

const extractPage = `<!DOCTYPE html>
<html><head>
<title>  Pricing
 plans </title>
<meta name="description" content="Plans for every team">
<script type="application/ld+json">{"@type":"Product","name":"Hanzo"}</script>
<script type="application/ld+json">{not json</script>
</head><body>
<header><a href="/">Logo</a></header>
<main id="content">
  <section data-section="Tiers">
    <a href="/signup">Sign up</a>
    <button>Compare</button>
    <input type="email">
    <span data-hanzo-event="tooltip">?</span>
    <p>Not sampled</p>
  </section>
</main>
<div class="wrapper"><p>No section</p></div>
<aside></aside>
</body></html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	w, err := ParseWindow("https://example.com/pricing", extractPage)
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}
	ast := Extract(w, "https://example.com/pricing")

	if ast.Context != models.SchemaContext || ast.Type != models.SchemaWebPage {
		t.Errorf("schema = %q %q", ast.Context, ast.Type)
	}
	if ast.Head.Title != "Pricing plans" {
		t.Errorf("Head.Title = %q, want whitespace collapsed", ast.Head.Title)
	}
	if ast.Head.Description != "Plans for every team" {
		t.Errorf("Head.Description = %q", ast.Head.Description)
	}
	if len(ast.Structured) != 1 {
		t.Fatalf("Structured = %v, want the one valid block", ast.Structured)
	}
	if m, ok := ast.Structured[0].(map[string]any); !ok || m["name"] != "Hanzo" {
		t.Errorf("Structured[0] = %v", ast.Structured[0])
	}

	var names []string
	for _, s := range ast.Sections {
		names = append(names, s.Type+":"+s.Name+"#"+s.ID)
	}
	if got, want := strings.Join(names, ","), "header:#,main:#content,section:Tiers#"; got != want {
		t.Errorf("sections = %s, want %s", got, want)
	}

	tiers := ast.Sections[2]
	wantContent := []models.ASTElement{
		{Type: "a", Text: "Sign up", Href: "https://example.com/signup"},
		{Type: "button", Text: "Compare"},
		{Type: "input"},
		{Type: "span", Text: "?"},
	}
	if len(tiers.Content) != len(wantContent) {
		t.Fatalf("content = %+v, want %+v", tiers.Content, wantContent)
	}
	for i := range wantContent {
		if tiers.Content[i] != wantContent[i] {
			t.Errorf("content[%d] = %+v, want %+v", i, tiers.Content[i], wantContent[i])
		}
	}
}

func TestExtractLimits(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 30 {
		fmt.Fprintf(&b, `<a href="/p/%d">%s</a>`, i, strings.Repeat("x", 150))
	}
	page := `<html><head><title>T</title></head><body><nav>` + b.String() + `</nav></body></html>`
	w, err := ParseWindow("https://example.com/", page)
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}

	ast := Extract(w, w.Href())
	if len(ast.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(ast.Sections))
	}
	content := ast.Sections[0].Content
	if len(content) != sectionContentLimit {
		t.Errorf("content = %d elements, want %d", len(content), sectionContentLimit)
	}
	if n := len(content[0].Text); n != contentTextLimit {
		t.Errorf("text length = %d, want %d", n, contentTextLimit)
	}
}

func TestCollectASTSkipsEmptyPages(t *testing.T) {
	t.Parallel()

	win := newTestWindow(t, `data-website-id="w1"`, `<div><p>plain</p></div>`)
	h := newHarness(t, win)
	h.tracker.CollectAST(context.Background())

	if n := h.transport.count(); n != 0 {
		t.Errorf("requests = %d, want 0 for a page without sections", n)
	}
}

func TestCollectASTPostsPage(t *testing.T) {
	t.Parallel()

	win := newTestWindow(t, `data-website-id="w1"`, `<article id="post"><a href="/next">Next</a></article>`)
	h := newHarness(t, win)
	h.tracker.Start(context.Background())
	h.clock.Advance(ExtractDelay)

	posts := h.transport.to("/api/ast")
	if len(posts) != 1 {
		t.Fatalf("AST posts = %d, want 1", len(posts))
	}
	if got := posts[0].URL; got != "https://cdn.example.com/t/api/ast" {
		t.Errorf("URL = %q", got)
	}
	var ast models.PageAST
	if err := json.Unmarshal(posts[0].Body, &ast); err != nil {
		t.Fatalf("decode AST: %v", err)
	}
	if ast.Website != "w1" || ast.URL != "https://example.com/" || ast.Head.Title != "Home" {
		t.Errorf("ast = %+v", ast)
	}
	if len(ast.Sections) != 1 || ast.Sections[0].ID != "post" {
		t.Errorf("sections = %+v", ast.Sections)
	}
}
