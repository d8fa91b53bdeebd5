// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package models

// Signal types carried in SendRequest.Type.
const (
	SignalEvent    = "event"
	SignalIdentify = "identify"
)

// CacheHeader carries the continuation token between tracker and collector.
const CacheHeader = "x-hanzo-cache"

// Payload is what the tracker reports for page views, custom events and
// identify calls. The first seven fields are always present on the wire.
type Payload struct {
	Website  string         `json:"website" validate:"required,max=64"`
	Screen   string         `json:"screen" validate:"omitempty,screen"`
	Language string         `json:"language" validate:"max=35"`
	Title    string         `json:"title" validate:"max=500"`
	Hostname string         `json:"hostname" validate:"max=253"`
	URL      string         `json:"url" validate:"max=2048"`
	Referrer string         `json:"referrer" validate:"max=2048"`
	Tag      string         `json:"tag,omitempty" validate:"max=100"`
	ID       string         `json:"id,omitempty" validate:"max=200"`
	Name     string         `json:"name,omitempty" validate:"max=200"`
	Data     map[string]any `json:"data,omitempty"`
}

// IsPageView reports whether p describes a page view rather than a named event.
func (p *Payload) IsPageView() bool {
	return p.Name == ""
}

// Clone returns a copy of p whose Data map is not shared.
func (p *Payload) Clone() Payload {
	out := *p
	if p.Data != nil {
		out.Data = make(map[string]any, len(p.Data))
		for k, v := range p.Data {
			out.Data[k] = v
		}
	}
	return out
}

// SendRequest is the body posted to /api/send.
type SendRequest struct {
	Type    string  `json:"type" validate:"required,oneof=event identify"`
	Payload Payload `json:"payload" validate:"required"`
}

// SendResponse is the reply from /api/send. A nil Cache means the field was
// absent and the tracker drops its token.
type SendResponse struct {
	Cache    *string `json:"cache,omitempty"`
	Disabled bool    `json:"disabled,omitempty"`
}

// ElementSignal is posted to /api/element for every tracked interaction.
type ElementSignal struct {
	Website         string `json:"website" validate:"required,max=64"`
	URL             string `json:"url" validate:"max=2048"`
	ElementID       string `json:"elementId" validate:"max=200"`
	ElementType     string `json:"elementType" validate:"max=50"`
	ElementSelector string `json:"elementSelector" validate:"max=200"`
	ElementText     string `json:"elementText" validate:"max=200"`
	ElementHref     string `json:"elementHref" validate:"max=2048"`
	Event           string `json:"event" validate:"max=200"`
}

// SectionSignal is posted to /api/section the first time a section becomes
// visible.
type SectionSignal struct {
	Website     string `json:"website" validate:"required,max=64"`
	URL         string `json:"url" validate:"max=2048"`
	SectionName string `json:"sectionName" validate:"required,max=200"`
	SectionType string `json:"sectionType" validate:"max=50"`
	SectionID   string `json:"sectionId" validate:"max=200"`
}

// PageAST is the structured description of a page posted to /api/ast.
type PageAST struct {
	Context    string       `json:"@context"`
	Type       string       `json:"@type"`
	Website    string       `json:"website,omitempty" validate:"max=64"`
	Head       PageHead     `json:"head"`
	Sections   []ASTSection `json:"sections" validate:"max=500,dive"`
	Structured []any        `json:"structured,omitempty"`
	URL        string       `json:"url" validate:"max=2048"`
}

// PageHead holds the document title and meta description.
type PageHead struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ASTSection is one semantic region of the page.
type ASTSection struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	ID      string       `json:"id"`
	Content []ASTElement `json:"content"`
}

// ASTElement is an interactive element sampled from a section.
type ASTElement struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Href string `json:"href"`
}

// Schema.org identifiers used in PageAST.
const (
	SchemaContext = "https://schema.org"
	SchemaWebPage = "WebPage"
)
