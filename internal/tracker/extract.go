// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"net/url"

	"github.com/antchfx/htmlquery"
	"github.com/goccy/go-json"
	"golang.org/x/net/html"

	"github.com/hanzoai/analytics/internal/models"
)

// Extraction limits.
const (
	sectionContentLimit = 20
	contentTextLimit    = 100
)

var sectionTags = []string{"section", "main", "article", "aside", "nav", "header", "footer"}

// CollectAST extracts the structured description of the page and posts it
// when it holds at least one section or structured data block.
func (t *Tracker) CollectAST(ctx context.Context) {
	if t.inert || !t.cfg.AST {
		return
	}
	ast := Extract(t.win, t.CurrentURL())
	if len(ast.Sections) == 0 && len(ast.Structured) == 0 {
		return
	}
	ast.Website = t.cfg.Website
	t.postSatellite(ctx, t.endpoints.AST, ast)
}

// Extract builds the PageAST of the window's document. pageURL is reported
// as the page URL.
func Extract(w *Window, pageURL string) models.PageAST {
	loc := w.Location()
	ast := models.PageAST{
		Context:  models.SchemaContext,
		Type:     models.SchemaWebPage,
		Head:     models.PageHead{Title: w.Title()},
		Sections: []models.ASTSection{},
		URL:      pageURL,
	}

	w.ReadDocument(func(doc *html.Node) {
		if meta := htmlquery.FindOne(doc, `//meta[@name="description"]`); meta != nil {
			ast.Head.Description = htmlquery.SelectAttr(meta, "content")
		}

		for _, s := range htmlquery.Find(doc, `//script[@type="application/ld+json"]`) {
			var v any
			if err := json.Unmarshal([]byte(htmlquery.InnerText(s)), &v); err != nil {
				continue
			}
			ast.Structured = append(ast.Structured, v)
		}

		walk(doc, func(n *html.Node) {
			if !isElement(n, sectionTags...) && !hasAttr(n, "data-section") {
				return
			}
			if s := extractSection(n, loc); s.Name != "" || s.ID != "" || len(s.Content) > 0 {
				ast.Sections = append(ast.Sections, s)
			}
		})
	})
	return ast
}

func extractSection(n *html.Node, loc *url.URL) models.ASTSection {
	name := attr(n, "data-section")
	if name == "" {
		name = attr(n, "aria-label")
	}
	s := models.ASTSection{
		Name:    name,
		Type:    n.Data,
		ID:      attr(n, "id"),
		Content: []models.ASTElement{},
	}
	walk(n, func(el *html.Node) {
		if len(s.Content) >= sectionContentLimit || !isContentElement(el) {
			return
		}
		s.Content = append(s.Content, models.ASTElement{
			Type: el.Data,
			Text: textContent(el, contentTextLimit),
			Href: resolveHref(el, loc),
		})
	})
	return s
}

// isContentElement matches a[href], button, input and [data-hanzo-event].
func isContentElement(n *html.Node) bool {
	switch {
	case isElement(n, "a") && hasAttr(n, "href"):
		return true
	case isElement(n, "button", "input"):
		return true
	default:
		return hasAttr(n, EventAttr)
	}
}
