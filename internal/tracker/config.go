// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Default build-time values. The obfuscation pipeline substitutes the same
// values into the script through its host and endpoint tokens.
const (
	DefaultEndpointPath = "/api/send"
	DefaultGlobalName   = "hanzo"
)

// Satellite paths, relative to the resolved host.
const (
	ASTPath     = "/api/ast"
	ElementPath = "/api/element"
	SectionPath = "/api/section"
)

// OptOutKey is the local storage key that disables tracking when set.
const OptOutKey = "hanzo.analytics.disabled"

// Config is read once from the hosting script element.
type Config struct {
	Website       string
	HostURL       string
	BeforeSend    string
	Tag           string
	AutoTrack     bool
	DoNotTrack    bool
	ExcludeSearch bool
	ExcludeHash   bool
	// Domains is nil when no allowlist is configured.
	Domains     []string
	Credentials string
	AST         bool
	Providers   ProviderIDs
	// ScriptSrc is the absolute src of the script, or of the loader that
	// injected it.
	ScriptSrc string
}

// ProviderIDs are the third-party provider keys.
type ProviderIDs struct {
	GoogleAnalytics string
	TagManager      string
	MetaPixel       string
	TikTokPixel     string
	LinkedIn        string
	Pinterest       string
	SnapPixel       string
	PlausibleDomain string
}

// ParseConfig reads the data-* attributes of el. base resolves a relative
// script src.
func ParseConfig(el *html.Node, base *url.URL) Config {
	get := func(name string) string { return attr(el, "data-"+name) }

	cfg := Config{
		Website:       get("website-id"),
		HostURL:       get("host-url"),
		BeforeSend:    get("before-send"),
		Tag:           get("tag"),
		AutoTrack:     get("auto-track") != "false",
		DoNotTrack:    get("do-not-track") == "true",
		ExcludeSearch: get("exclude-search") == "true",
		ExcludeHash:   get("exclude-hash") == "true",
		Credentials:   get("fetch-credentials"),
		AST:           get("ast") != "false",
		Providers: ProviderIDs{
			GoogleAnalytics: get("ga-id"),
			TagManager:      get("gtm-id"),
			MetaPixel:       get("fb-pixel-id"),
			TikTokPixel:     get("tt-pixel-id"),
			LinkedIn:        get("linkedin-id"),
			Pinterest:       get("pinterest-id"),
			SnapPixel:       get("snap-pixel-id"),
			PlausibleDomain: get("plausible-domain"),
		},
	}
	if cfg.Credentials == "" {
		cfg.Credentials = CredentialsOmit
	}
	if raw := get("domains"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			cfg.Domains = append(cfg.Domains, strings.TrimSpace(d))
		}
	}

	src := attr(el, "src")
	if src == "" {
		src = attr(el, LoaderSrcAttr)
	}
	if src != "" && base != nil {
		if u, err := base.Parse(src); err == nil {
			src = u.String()
		}
	}
	cfg.ScriptSrc = src
	return cfg
}

// BuildDefaults are the host and path baked in at build time.
type BuildDefaults struct {
	Host string
	Path string
}

// Endpoints are the resolved delivery URLs.
type Endpoints struct {
	Host    string
	Send    string
	AST     string
	Element string
	Section string
}

// ResolveEndpoints picks the host from the host-url attribute, then the
// build default, then the directory of the script src.
func ResolveEndpoints(cfg Config, defaults BuildDefaults) Endpoints {
	host := cfg.HostURL
	if host == "" {
		host = defaults.Host
	}
	if host == "" {
		host = scriptDir(cfg.ScriptSrc)
	}
	host = strings.TrimSuffix(host, "/")

	path := defaults.Path
	if path == "" {
		path = DefaultEndpointPath
	}
	return Endpoints{
		Host:    host,
		Send:    host + path,
		AST:     host + ASTPath,
		Element: host + ElementPath,
		Section: host + SectionPath,
	}
}

func scriptDir(src string) string {
	if i := strings.LastIndex(src, "/"); i >= 0 {
		return src[:i]
	}
	return ""
}
