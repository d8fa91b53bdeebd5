// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package tracker is the client-side tracker runtime, expressed over a host
page model.

A Window stands in for the browser page: location, referrer, screen,
language, do-not-track signals, local storage, an HTML document
(golang.org/x/net/html, queried with github.com/antchfx/htmlquery), a History
with replaceable pushState/replaceState, click dispatch, intersection
reports, vendor globals and a beacon. Window implements loader.ScriptSink, so
the decode protocol can inject the tracker into it.

A Tracker is created from the window's current script element:

	win, _ := tracker.ParseWindow("https://example.com/", page,
		tracker.WithCurrentScript(`//script[@data-website-id]`))
	t := tracker.New(win, tracker.WithTransport(tracker.NewHTTPTransport(nil)))
	t.Start(ctx)

	t.TrackEvent(ctx, "signup", map[string]any{"plan": "pro"})

When no script element is resolvable the tracker is inert and every call is
a no-op.

# Capabilities

The runtime never reaches for globals. Navigation, clicks, intersections,
timers and the network are capabilities supplied as options:

  - NavigationSource: HistorySource decorates the window's History;
    ManualNavigation synthesizes navigations in tests.
  - ClickSource and IntersectionSource: implemented by Window.
  - Clock: SystemClock wraps time.AfterFunc.
  - Transport and Beacon: HTTPTransport over net/http.

# Behaviour

On start the tracker exposes itself under the window global name (default
"hanzo") unless something already lives there, initializes third-party
providers, emits a page view, observes navigation (300 ms debounce, last
navigation wins) and clicks on elements carrying data-hanzo-event, extracts
structured page content after 100 ms and observes section visibility after
500 ms.

Every outbound signal checks TrackingDisabled first. Delivery failures are
swallowed; errors and panics never reach the host.
*/
package tracker
