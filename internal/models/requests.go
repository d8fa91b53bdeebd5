// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package models

import "time"

// EventRequest is the server-side event ingestion format used by /api/event,
// /api/events and /api/pageview.
type EventRequest struct {
	Event           string         `json:"event" validate:"required,max=200"`
	DistinctID      string         `json:"distinct_id" validate:"max=200"`
	Timestamp       string         `json:"timestamp"`
	WebsiteID       string         `json:"website_id" validate:"max=64"`
	OrganizationID  string         `json:"organization_id" validate:"max=64"`
	ProjectID       string         `json:"project_id" validate:"max=64"`
	SessionID       string         `json:"session_id" validate:"max=64"`
	VisitID         string         `json:"visit_id" validate:"max=64"`
	Properties      map[string]any `json:"properties"`
	URL             string         `json:"url" validate:"max=2048"`
	Referrer        string         `json:"referrer" validate:"max=2048"`
	Context         string         `json:"@context"`
	Type            string         `json:"@type"`
	ElementID       string         `json:"element_id"`
	ElementType     string         `json:"element_type"`
	ElementSelector string         `json:"element_selector"`
	ElementText     string         `json:"element_text"`
	ElementHref     string         `json:"element_href"`
	SectionName     string         `json:"section_name"`
	SectionType     string         `json:"section_type"`
	SectionID       string         `json:"section_id"`
	PageTitle       string         `json:"page_title"`
	PageDescription string         `json:"page_description"`
	PageType        string         `json:"page_type"`
	ComponentPath   string         `json:"component_path"`
	ComponentData   string         `json:"component_data"`
	ModelProvider   string         `json:"model_provider"`
	ModelName       string         `json:"model_name"`
	TokenCount      int            `json:"token_count" validate:"gte=0"`
	TokenPrice      float64        `json:"token_price" validate:"gte=0"`
	PromptTokens    int            `json:"prompt_tokens" validate:"gte=0"`
	OutputTokens    int            `json:"output_tokens" validate:"gte=0"`
	OrderID         string         `json:"order_id"`
	ProductID       string         `json:"product_id"`
	CartID          string         `json:"cart_id"`
	Revenue         float64        `json:"revenue"`
	Quantity        int            `json:"quantity" validate:"gte=0"`
}

// BatchRequest wraps several events for /api/events.
type BatchRequest struct {
	Events []EventRequest `json:"events" validate:"required,min=1,max=500,dive"`
}

// IdentifyRequest is the body of /api/identify.
type IdentifyRequest struct {
	DistinctID       string         `json:"distinct_id" validate:"required,max=200"`
	OrganizationID   string         `json:"organization_id" validate:"max=64"`
	PersonProperties map[string]any `json:"person_properties"`
}

// AIMessageRequest is the body of /api/ai/message.
type AIMessageRequest struct {
	DistinctID     string         `json:"distinct_id" validate:"required,max=200"`
	OrganizationID string         `json:"organization_id" validate:"max=64"`
	ChatID         string         `json:"chat_id" validate:"max=200"`
	MessageID      string         `json:"message_id" validate:"max=200"`
	Role           string         `json:"role" validate:"max=50"`
	ModelProvider  string         `json:"model_provider" validate:"max=100"`
	ModelName      string         `json:"model_name" validate:"max=200"`
	TokenCount     int            `json:"token_count" validate:"gte=0"`
	PromptTokens   int            `json:"prompt_tokens" validate:"gte=0"`
	OutputTokens   int            `json:"output_tokens" validate:"gte=0"`
	TokenPrice     float64        `json:"token_price" validate:"gte=0"`
	Properties     map[string]any `json:"properties"`
}

// AICompletionRequest is the body of /api/ai/completion.
type AICompletionRequest struct {
	DistinctID     string  `json:"distinct_id" validate:"required,max=200"`
	OrganizationID string  `json:"organization_id" validate:"max=64"`
	ChatID         string  `json:"chat_id" validate:"max=200"`
	ModelProvider  string  `json:"model_provider" validate:"max=100"`
	ModelName      string  `json:"model_name" validate:"max=200"`
	PromptTokens   int     `json:"prompt_tokens" validate:"gte=0"`
	OutputTokens   int     `json:"output_tokens" validate:"gte=0"`
	TotalTokens    int     `json:"total_tokens" validate:"gte=0"`
	Price          float64 `json:"price" validate:"gte=0"`
	DurationMs     int64   `json:"duration_ms" validate:"gte=0"`
	Success        bool    `json:"success"`
	ErrorMessage   string  `json:"error_message,omitempty" validate:"max=2000"`
}

// ASTRequest is the body of /api/ast: a page AST plus the caller's ids.
type ASTRequest struct {
	PageAST
	DistinctID     string `json:"distinct_id" validate:"max=200"`
	OrganizationID string `json:"organization_id" validate:"max=64"`
	SessionID      string `json:"session_id" validate:"max=64"`
}

// Website is a registered website. Disabled is the kill switch the collector
// reports back to trackers.
type Website struct {
	ID        string    `json:"id" validate:"required,max=64"`
	Name      string    `json:"name" validate:"max=200"`
	Domains   []string  `json:"domains,omitempty" validate:"max=50,dive,max=253"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllowsHost reports whether host may send events for w. An empty domain
// list allows every host.
func (w *Website) AllowsHost(host string) bool {
	if len(w.Domains) == 0 || host == "" {
		return true
	}
	for _, d := range w.Domains {
		if d == host {
			return true
		}
	}
	return false
}
