// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/models"
)

// Delays after initialization.
const (
	NavigationDelay = 300 * time.Millisecond
	ExtractDelay    = 100 * time.Millisecond
	SectionDelay    = 500 * time.Millisecond
)

// BeforeSendFunc may rewrite a payload before it is sent, or return nil to
// drop it. Register one on the window under the name given in the
// data-before-send attribute.
type BeforeSendFunc func(kind string, p *models.Payload) *models.Payload

// Tracker is one tracker instance bound to a Window.
type Tracker struct {
	win        *Window
	cfg        Config
	endpoints  Endpoints
	inert      bool
	defaults   BuildDefaults
	globalName string

	clock         Clock
	transport     Transport
	navigation    NavigationSource
	clicks        ClickSource
	intersections IntersectionSource
	providers     *Registry
	providerList  []Provider
	logger        zerolog.Logger

	mu          sync.Mutex
	initialized bool
	disabled    bool
	cache       string
	hasCache    bool
	identity    string
	currentURL  string
	currentRef  string
	navTimer    Timer
	timers      []Timer
	cleanup     []func()
	tracked     map[*html.Node]bool
	closed      bool

	wg sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDefaults sets the build-time host and endpoint path.
func WithDefaults(d BuildDefaults) Option {
	return func(t *Tracker) { t.defaults = d }
}

// WithGlobalName sets the window global the tracker is exposed under.
func WithGlobalName(name string) Option {
	return func(t *Tracker) { t.globalName = name }
}

// WithClock sets the timer source.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithTransport sets the network transport.
func WithTransport(tr Transport) Option {
	return func(t *Tracker) { t.transport = tr }
}

// WithNavigation replaces the default HistorySource.
func WithNavigation(n NavigationSource) Option {
	return func(t *Tracker) { t.navigation = n }
}

// WithClicks replaces the window as click source.
func WithClicks(c ClickSource) Option {
	return func(t *Tracker) { t.clicks = c }
}

// WithIntersections replaces the window as intersection source.
func WithIntersections(s IntersectionSource) Option {
	return func(t *Tracker) { t.intersections = s }
}

// WithProviders replaces the providers built from the script attributes.
func WithProviders(p ...Provider) Option {
	return func(t *Tracker) { t.providerList = p }
}

// WithLogger sets the logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a tracker from the window's current script. Without one the
// tracker is inert.
func New(win *Window, opts ...Option) *Tracker {
	t := &Tracker{
		win:        win,
		globalName: DefaultGlobalName,
		clock:      SystemClock(),
		clicks:     win,
		logger:     logging.WithComponent("tracker"),
		tracked:    make(map[*html.Node]bool),
	}
	for _, opt := range opts {
		opt(t)
	}

	script := win.CurrentScript()
	if script == nil {
		t.inert = true
		return t
	}

	if t.transport == nil {
		t.transport = NewHTTPTransport(nil)
	}
	if t.navigation == nil {
		t.navigation = NewHistorySource(win.History())
	}
	if t.intersections == nil {
		t.intersections = win
	}

	loc := win.Location()
	t.cfg = ParseConfig(script, loc)
	t.endpoints = ResolveEndpoints(t.cfg, t.defaults)
	if t.providerList == nil {
		t.providerList = DefaultProviders(t.cfg.Providers)
	}
	t.providers = NewRegistry(t.logger, t.providerList...)

	t.currentURL = t.normalize(loc.String())
	ref := win.Referrer()
	if strings.HasPrefix(ref, origin(loc)) {
		ref = ""
	}
	t.currentRef = t.normalize(ref)
	return t
}

// Attach starts a tracker for every script injected into w, which is how the
// loader hands over to the runtime. started, when non-nil, receives each
// tracker.
func Attach(ctx context.Context, w *Window, started func(*Tracker), opts ...Option) (detach func()) {
	return w.OnScriptInjected(func(el *html.Node) {
		prev := w.CurrentScript()
		w.SetCurrentScript(el)
		t := New(w, opts...)
		w.SetCurrentScript(prev)

		t.Start(ctx)
		if started != nil {
			started(t)
		}
	})
}

// Start exposes the tracker on the window and, when auto-tracking is on and
// tracking is allowed, initializes it now or at the next ready state change.
func (t *Tracker) Start(ctx context.Context) {
	if t.inert {
		return
	}
	t.win.SetGlobalIfAbsent(t.globalName, t)

	if !t.cfg.AutoTrack || t.TrackingDisabled() {
		return
	}
	if t.win.ReadyState() == ReadyComplete {
		t.init(ctx)
		return
	}
	remove := t.win.OnReadyStateChange(func(string) { t.init(ctx) })
	t.addCleanup(remove)
}

// init runs once per tracker.
func (t *Tracker) init(ctx context.Context) {
	defer t.recoverPanic("init")

	t.mu.Lock()
	if t.initialized || t.closed {
		t.mu.Unlock()
		return
	}
	t.initialized = true
	t.mu.Unlock()

	t.providers.Initialize(t.win)
	t.Track(ctx)
	t.observeNavigation(ctx)
	t.observeClicks(ctx)
	t.schedule(ExtractDelay, func() { t.CollectAST(ctx) })
	t.schedule(SectionDelay, func() { t.observeSections(ctx) })
}

// Close stops timers, removes listeners and waits for in-flight signals.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	timers := t.timers
	if t.navTimer != nil {
		timers = append(timers, t.navTimer)
	}
	cleanup := t.cleanup
	t.timers, t.cleanup, t.navTimer = nil, nil, nil
	t.mu.Unlock()

	for _, tm := range timers {
		tm.Stop()
	}
	for _, fn := range cleanup {
		fn()
	}
	t.wg.Wait()
}

// Wait blocks until signals started in the background have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Config returns the parsed configuration.
func (t *Tracker) Config() Config { return t.cfg }

// Endpoints returns the resolved delivery URLs.
func (t *Tracker) Endpoints() Endpoints { return t.endpoints }

// Inert reports whether the tracker found no script to configure from.
func (t *Tracker) Inert() bool { return t.inert }

// CurrentURL returns the normalized URL reported in payloads.
func (t *Tracker) CurrentURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentURL
}

// CurrentReferrer returns the referrer reported in payloads.
func (t *Tracker) CurrentReferrer() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRef
}

// Track sends a page view.
func (t *Tracker) Track(ctx context.Context) {
	if t.inert {
		return
	}
	p := t.payload()
	t.send(ctx, &p, models.SignalEvent)
}

// TrackEvent sends a named event with optional data.
func (t *Tracker) TrackEvent(ctx context.Context, name string, data map[string]any) {
	if t.inert {
		return
	}
	p := t.payload()
	p.Name = name
	p.Data = data
	t.send(ctx, &p, models.SignalEvent)
}

// TrackPayload sends p as given.
func (t *Tracker) TrackPayload(ctx context.Context, p models.Payload) {
	if t.inert {
		return
	}
	c := p.Clone()
	t.send(ctx, &c, models.SignalEvent)
}

// TrackFunc sends whatever fn returns for the current page payload; nil
// drops the signal.
func (t *Tracker) TrackFunc(ctx context.Context, fn func(models.Payload) *models.Payload) {
	if t.inert {
		return
	}
	var p *models.Payload
	func() {
		defer t.recoverPanic("track callback")
		p = fn(t.payload())
	}()
	if p == nil {
		return
	}
	t.send(ctx, p, models.SignalEvent)
}

// Identify records id as the visitor identity, resets the continuation token
// and sends an identify signal carrying data. An empty id keeps the current
// identity.
func (t *Tracker) Identify(ctx context.Context, id string, data map[string]any) {
	if t.inert {
		return
	}
	t.mu.Lock()
	if id != "" {
		t.identity = id
	}
	t.cache, t.hasCache = "", true
	t.mu.Unlock()

	p := t.payload()
	p.Data = data
	t.send(ctx, &p, models.SignalIdentify)
}

// IdentifyData sends an identify signal without changing the identity.
func (t *Tracker) IdentifyData(ctx context.Context, data map[string]any) {
	t.Identify(ctx, "", data)
}

// payload builds the page payload from the current state.
func (t *Tracker) payload() models.Payload {
	t.mu.Lock()
	url, ref, id := t.currentURL, t.currentRef, t.identity
	t.mu.Unlock()

	return models.Payload{
		Website:  t.cfg.Website,
		Screen:   t.win.Screen().String(),
		Language: t.win.Language(),
		Title:    t.win.Title(),
		Hostname: t.win.Hostname(),
		URL:      url,
		Referrer: ref,
		Tag:      t.cfg.Tag,
		ID:       id,
	}
}

// schedule runs fn after d unless the tracker is closed.
func (t *Tracker) schedule(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.timers = append(t.timers, t.clock.AfterFunc(d, func() {
		defer t.recoverPanic("timer")
		fn()
	}))
}

func (t *Tracker) addCleanup(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup = append(t.cleanup, fn)
}

// goAsync runs fn in the background, tracked by Wait.
func (t *Tracker) goAsync(name string, fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.recoverPanic(name)
		fn()
	}()
}

func (t *Tracker) recoverPanic(where string) {
	if r := recover(); r != nil {
		t.logger.Warn().Str("where", where).Interface("panic", r).Msg("Tracker recovered from panic")
	}
}
