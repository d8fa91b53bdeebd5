// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package api

import (
	"html"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hanzoai/analytics/internal/models"
	"github.com/hanzoai/analytics/internal/session"
)

// Enricher fills the derived fields of an event from the request and the
// event's own URL, referrer and user agent.
type Enricher struct {
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewEnricher returns an Enricher that strips all markup from text fields.
func NewEnricher() *Enricher {
	return &Enricher{
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

// Apply completes ev in place. Fields already set by the caller win.
func (e *Enricher) Apply(ev *models.RawEvent, r *http.Request) {
	now := e.now().UTC()

	if ev.EventID == uuid.Nil {
		ev.EventID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	ev.SentAt = now
	if ev.IP == "" {
		ev.IP = clientIP(r)
	}
	if ev.UserAgent == "" {
		ev.UserAgent = r.UserAgent()
	}
	if ev.Lib == "" {
		ev.Lib = models.LibTracker
	}

	applyURL(ev)
	if ev.ReferrerDomain == "" {
		ev.ReferrerDomain = referrerDomain(ev.Referrer)
	}
	applyUserAgent(ev)

	if ev.SessionID == "" {
		ev.SessionID = session.SessionID(session.Visitor{
			WebsiteID: ev.Tenant(),
			Hostname:  ev.Hostname,
			IP:        ev.IP,
			UserAgent: ev.UserAgent,
		}, now)
	}
	if ev.DistinctID == "" {
		ev.DistinctID = ev.SessionID
	}

	e.sanitize(ev)
}

func (e *Enricher) sanitize(ev *models.RawEvent) {
	for _, f := range []*string{
		&ev.PageTitle,
		&ev.PageDescription,
		&ev.ElementText,
		&ev.SectionName,
		&ev.Tag,
	} {
		*f = e.clean(*f)
	}
}

// clean strips markup and undoes the entity escaping bluemonday applies, so
// "A & B" is stored as written.
func (e *Enricher) clean(s string) string {
	if s == "" || !strings.ContainsAny(s, "<>&") {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(e.policy.Sanitize(s)))
}

// applyURL derives path, host, campaign and click-id fields from ev.URL.
// Tracker URLs are usually path plus query, so the host stays whatever the
// payload reported.
func applyURL(ev *models.RawEvent) {
	if ev.URL == "" {
		return
	}
	u, err := url.Parse(ev.URL)
	if err != nil {
		return
	}
	if ev.URLPath == "" {
		ev.URLPath = u.Path
	}
	if ev.Hostname == "" {
		ev.Hostname = u.Hostname()
	}

	q := u.Query()
	setIfEmpty(&ev.UTMSource, q.Get("utm_source"))
	setIfEmpty(&ev.UTMMedium, q.Get("utm_medium"))
	setIfEmpty(&ev.UTMCampaign, q.Get("utm_campaign"))
	setIfEmpty(&ev.UTMContent, q.Get("utm_content"))
	setIfEmpty(&ev.UTMTerm, q.Get("utm_term"))
	setIfEmpty(&ev.GCLID, q.Get("gclid"))
	setIfEmpty(&ev.FBCLID, q.Get("fbclid"))
	setIfEmpty(&ev.MSCLID, q.Get("msclid"))
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func referrerDomain(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// applyUserAgent classifies the browser, OS and device class. Order
// matters: Edge and Opera carry "Chrome" in their tokens, Chrome carries
// "Safari", and Android carries "Linux".
func applyUserAgent(ev *models.RawEvent) {
	ua := strings.ToLower(ev.UserAgent)
	if ua == "" {
		return
	}

	if ev.Browser == "" {
		switch {
		case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge/"):
			ev.Browser = "Edge"
		case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
			ev.Browser = "Opera"
		case strings.Contains(ua, "firefox/"), strings.Contains(ua, "fxios/"):
			ev.Browser = "Firefox"
		case strings.Contains(ua, "chrome/"), strings.Contains(ua, "crios/"):
			ev.Browser = "Chrome"
		case strings.Contains(ua, "safari/"):
			ev.Browser = "Safari"
		default:
			ev.Browser = "Other"
		}
	}

	if ev.OS == "" {
		switch {
		case strings.Contains(ua, "windows"):
			ev.OS = "Windows"
		case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
			ev.OS = "iOS"
		case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
			ev.OS = "macOS"
		case strings.Contains(ua, "android"):
			ev.OS = "Android"
		case strings.Contains(ua, "cros"):
			ev.OS = "Chrome OS"
		case strings.Contains(ua, "linux"):
			ev.OS = "Linux"
		default:
			ev.OS = "Other"
		}
	}

	if ev.DeviceType == "" {
		switch {
		case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
			ev.DeviceType = "tablet"
		case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
			ev.DeviceType = "tablet"
		case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"):
			ev.DeviceType = "mobile"
		default:
			ev.DeviceType = "desktop"
		}
	}
}

var botMarkers = []string{
	"bot", "crawler", "spider", "slurp", "headless", "lighthouse",
	"pingdom", "uptime", "monitor", "preview", "curl/", "wget/",
	"python-requests", "go-http-client", "httpclient",
}

// isBot reports whether ua looks automated. An empty user agent counts.
func isBot(ua string) bool {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return true
	}
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// clientIP returns the remote host. chi's RealIP middleware has already
// replaced RemoteAddr with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// hostOnly lowercases h and drops any port.
func hostOnly(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}
