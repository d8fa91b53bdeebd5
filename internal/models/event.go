// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package models

import (
	"time"

	"github.com/google/uuid"
)

// RawEvent is the unified event row. Every ingestion route produces one or
// more RawEvents; they flow through the WAL, the event bus, the store and the
// downstream forwarders unchanged.
type RawEvent struct {
	// EventID is assigned by the collector and is the deduplication key in
	// the store.
	EventID uuid.UUID `json:"event_id"`

	DistinctID string `json:"distinct_id"`
	Event      string `json:"event"`

	// WebsiteID is the tracker website id; server-side routes may leave it
	// empty and set OrganizationID instead.
	WebsiteID      string `json:"website_id,omitempty"`
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	VisitID   string `json:"visit_id,omitempty"`

	Properties       map[string]any `json:"properties,omitempty"`
	PersonProperties map[string]any `json:"person_properties,omitempty"`

	GroupType       string         `json:"group_type,omitempty"`
	GroupKey        string         `json:"group_key,omitempty"`
	GroupProperties map[string]any `json:"group_properties,omitempty"`

	// Web analytics
	URL            string `json:"url,omitempty"`
	URLPath        string `json:"url_path,omitempty"`
	Referrer       string `json:"referrer,omitempty"`
	ReferrerDomain string `json:"referrer_domain,omitempty"`
	Hostname       string `json:"hostname,omitempty"`
	Tag            string `json:"tag,omitempty"`

	// Device
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	OSVersion      string `json:"os_version,omitempty"`
	Device         string `json:"device,omitempty"`
	DeviceType     string `json:"device_type,omitempty"`
	Screen         string `json:"screen,omitempty"`
	Language       string `json:"language,omitempty"`

	// Geo
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`

	// UTM
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`

	// Click ids
	GCLID  string `json:"gclid,omitempty"`
	FBCLID string `json:"fbclid,omitempty"`
	MSCLID string `json:"msclid,omitempty"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// Commerce
	OrderID   string  `json:"order_id,omitempty"`
	ProductID string  `json:"product_id,omitempty"`
	CartID    string  `json:"cart_id,omitempty"`
	Revenue   float64 `json:"revenue,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`

	// Structured page data
	ASTContext      string `json:"@context,omitempty"`
	ASTType         string `json:"@type,omitempty"`
	PageTitle       string `json:"page_title,omitempty"`
	PageDescription string `json:"page_description,omitempty"`
	PageType        string `json:"page_type,omitempty"`

	// Element interactions
	ElementID       string `json:"element_id,omitempty"`
	ElementType     string `json:"element_type,omitempty"`
	ElementSelector string `json:"element_selector,omitempty"`
	ElementText     string `json:"element_text,omitempty"`
	ElementHref     string `json:"element_href,omitempty"`

	// Sections
	SectionName string `json:"section_name,omitempty"`
	SectionType string `json:"section_type,omitempty"`
	SectionID   string `json:"section_id,omitempty"`

	ComponentPath string `json:"component_path,omitempty"`
	ComponentData string `json:"component_data,omitempty"`

	// AI usage
	ModelProvider string  `json:"model_provider,omitempty"`
	ModelName     string  `json:"model_name,omitempty"`
	TokenCount    int     `json:"token_count,omitempty"`
	TokenPrice    float64 `json:"token_price,omitempty"`
	PromptTokens  int     `json:"prompt_tokens,omitempty"`
	OutputTokens  int     `json:"output_tokens,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	SentAt    time.Time `json:"sent_at,omitempty"`

	Lib        string `json:"lib,omitempty"`
	LibVersion string `json:"lib_version,omitempty"`
}

// Tenant returns the key events are partitioned by: the website id when
// present, otherwise the organization id.
func (e *RawEvent) Tenant() string {
	if e.WebsiteID != "" {
		return e.WebsiteID
	}
	return e.OrganizationID
}

// Library names recorded in RawEvent.Lib.
const (
	LibTracker = "hanzo-analytics"
	LibAST     = "astley.js"
	LibPixel   = "hanzo-pixel"
	LibCloud   = "hanzo-cloud"
)

// StandardEvents defines event names used across the platform.
var StandardEvents = struct {
	PageView           string
	ScreenView         string
	Identify           string
	GroupIdentify      string
	Alias              string
	ProductViewed      string
	ProductAdded       string
	ProductRemoved     string
	CartViewed         string
	CheckoutStarted    string
	CheckoutStep       string
	OrderCompleted     string
	OrderRefunded      string
	SignedUp           string
	SignedIn           string
	SignedOut          string
	FeatureUsed        string
	ButtonClick        string
	FormSubmit         string
	SearchQuery        string
	SectionViewed      string
	ElementInteraction string
	LinkClicked        string
	InputChanged       string
	ScrollDepth        string
	VisibilityChange   string
	AIMessageCreated   string
	AIChatStarted      string
	AICompletion       string
	AITokensConsumed   string
	AIModelInvoked     string
	AIError            string
	PixelView          string
	APIRequest         string
	Exception          string
}{
	PageView:           "$pageview",
	ScreenView:         "$screen",
	Identify:           "$identify",
	GroupIdentify:      "$groupidentify",
	Alias:              "$create_alias",
	ProductViewed:      "product_viewed",
	ProductAdded:       "product_added",
	ProductRemoved:     "product_removed",
	CartViewed:         "cart_viewed",
	CheckoutStarted:    "checkout_started",
	CheckoutStep:       "checkout_step",
	OrderCompleted:     "order_completed",
	OrderRefunded:      "order_refunded",
	SignedUp:           "signed_up",
	SignedIn:           "signed_in",
	SignedOut:          "signed_out",
	FeatureUsed:        "feature_used",
	ButtonClick:        "button_clicked",
	FormSubmit:         "form_submitted",
	SearchQuery:        "search_query",
	SectionViewed:      "section_viewed",
	ElementInteraction: "element_interaction",
	LinkClicked:        "link_clicked",
	InputChanged:       "input_changed",
	ScrollDepth:        "scroll_depth",
	VisibilityChange:   "visibility_change",
	AIMessageCreated:   "ai.message.created",
	AIChatStarted:      "ai.chat.started",
	AICompletion:       "ai.completion",
	AITokensConsumed:   "ai.tokens.consumed",
	AIModelInvoked:     "ai.model.invoked",
	AIError:            "ai.error",
	PixelView:          "pixel_view",
	APIRequest:         "$api_request",
	Exception:          "$exception",
}

// ElementEventName picks the default event name for an element interaction
// that arrived without one.
func ElementEventName(elementType string) string {
	switch elementType {
	case "button":
		return StandardEvents.ButtonClick
	case "a", "link":
		return StandardEvents.LinkClicked
	case "form":
		return StandardEvents.FormSubmit
	case "input":
		return StandardEvents.InputChanged
	default:
		return StandardEvents.ElementInteraction
	}
}
