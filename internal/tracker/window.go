// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package tracker

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hanzoai/analytics/internal/loader"
)

// Document ready states.
const (
	ReadyLoading     = "loading"
	ReadyInteractive = "interactive"
	ReadyComplete    = "complete"
)

// LoaderSrcAttr is set by InjectScript on the injected element so the tracker
// can resolve its host when the element has no src of its own.
const LoaderSrcAttr = "data-loader-src"

var (
	// ErrNoHead is returned when the document has no head to append to.
	ErrNoHead = errors.New("tracker: document has no head element")

	// ErrCrossOrigin is returned by the default history functions when the
	// new URL is on another origin.
	ErrCrossOrigin = errors.New("tracker: history state URL is cross-origin")
)

var _ loader.ScriptSink = (*Window)(nil)

// Screen is the reported screen size.
type Screen struct {
	Width  int
	Height int
}

func (s Screen) String() string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// DoNotTrack holds the legacy do-not-track signals of a browser.
type DoNotTrack struct {
	Window      string
	Navigator   string
	MSNavigator string
}

// Enabled reports whether any signal asks not to be tracked.
func (d DoNotTrack) Enabled() bool {
	for _, v := range []string{d.Window, d.Navigator, d.MSNavigator} {
		if v == "1" || v == "yes" {
			return true
		}
	}
	return false
}

// Storage is the page's local storage.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

// MemoryStorage is an in-memory Storage.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (s *MemoryStorage) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *MemoryStorage) SetItem(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

func (s *MemoryStorage) RemoveItem(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Beacon sends small fire-and-forget requests, like navigator.sendBeacon.
type Beacon interface {
	SendBeacon(url string, body []byte) bool
}

// Window models the page a tracker runs in.
type Window struct {
	mu          sync.Mutex
	location    *url.URL
	referrer    string
	screen      Screen
	language    string
	dnt         DoNotTrack
	storage     Storage
	beacon      Beacon
	top         *Window
	readyState  string
	readyFns    map[int]func(state string)
	clickFns    map[int]clickListener
	observers   map[int]*observation
	injectFns   map[int]func(el *html.Node)
	nextID      int
	globals     map[string]any
	navigations []string
	opened      []string

	docMu         sync.RWMutex
	doc           *html.Node
	currentScript *html.Node

	history *History
}

// WindowOption configures a Window.
type WindowOption func(*Window) error

// WithReferrer sets document.referrer.
func WithReferrer(ref string) WindowOption {
	return func(w *Window) error { w.referrer = ref; return nil }
}

// WithScreen sets the screen size.
func WithScreen(width, height int) WindowOption {
	return func(w *Window) error { w.screen = Screen{Width: width, Height: height}; return nil }
}

// WithLanguage sets navigator.language.
func WithLanguage(lang string) WindowOption {
	return func(w *Window) error { w.language = lang; return nil }
}

// WithDoNotTrack sets the do-not-track signals.
func WithDoNotTrack(d DoNotTrack) WindowOption {
	return func(w *Window) error { w.dnt = d; return nil }
}

// WithStorage replaces the local storage.
func WithStorage(s Storage) WindowOption {
	return func(w *Window) error { w.storage = s; return nil }
}

// WithBeacon sets the beacon used by providers.
func WithBeacon(b Beacon) WindowOption {
	return func(w *Window) error { w.beacon = b; return nil }
}

// WithTop sets the top-level window for framed pages.
func WithTop(top *Window) WindowOption {
	return func(w *Window) error { w.top = top; return nil }
}

// WithReadyState sets the initial document ready state.
func WithReadyState(state string) WindowOption {
	return func(w *Window) error { w.readyState = state; return nil }
}

// WithCurrentScript selects the executing script element with an XPath
// query, for example `//script[@data-website-id]`.
func WithCurrentScript(xpath string) WindowOption {
	return func(w *Window) error {
		n, err := htmlquery.Query(w.doc, xpath)
		if err != nil {
			return fmt.Errorf("current script query: %w", err)
		}
		w.currentScript = n
		return nil
	}
}

// NewWindow creates a Window at rawURL over doc. A nil doc is replaced with
// an empty document.
func NewWindow(rawURL string, doc *html.Node, opts ...WindowOption) (*Window, error) {
	loc, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}
	if !loc.IsAbs() {
		return nil, fmt.Errorf("location %q is not absolute", rawURL)
	}
	if doc == nil {
		doc, err = html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
		if err != nil {
			return nil, fmt.Errorf("parse empty document: %w", err)
		}
	}

	w := &Window{
		location:   loc,
		screen:     Screen{Width: 1920, Height: 1080},
		language:   "en-US",
		storage:    NewMemoryStorage(),
		readyState: ReadyComplete,
		readyFns:   make(map[int]func(string)),
		clickFns:   make(map[int]clickListener),
		observers:  make(map[int]*observation),
		injectFns:  make(map[int]func(*html.Node)),
		globals:    make(map[string]any),
		doc:        doc,
	}
	w.history = newHistory(w)

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ParseWindow parses page as HTML and creates a Window over it.
func ParseWindow(rawURL, page string, opts ...WindowOption) (*Window, error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return NewWindow(rawURL, doc, opts...)
}

// Location returns a copy of the current location.
func (w *Window) Location() *url.URL {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := *w.location
	return &u
}

// Href returns the current location as a string.
func (w *Window) Href() string {
	return w.Location().String()
}

// Hostname returns the location hostname without port.
func (w *Window) Hostname() string {
	return w.Location().Hostname()
}

// Origin returns scheme://host of the current location.
func (w *Window) Origin() string {
	return origin(w.Location())
}

func origin(u *url.URL) string {
	if u.Host == "" {
		return "null"
	}
	return u.Scheme + "://" + u.Host
}

// Referrer returns document.referrer.
func (w *Window) Referrer() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.referrer
}

// Screen returns the screen size.
func (w *Window) Screen() Screen {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.screen
}

// Language returns navigator.language.
func (w *Window) Language() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.language
}

// DoNotTrack returns the do-not-track signals.
func (w *Window) DoNotTrack() DoNotTrack {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dnt
}

// Storage returns local storage, or nil when the page is a data: URL.
func (w *Window) Storage() Storage {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.location.Scheme == "data" {
		return nil
	}
	return w.storage
}

// History returns the window history.
func (w *Window) History() *History {
	return w.history
}

// Top returns the top-level window; a window without a parent is its own top.
func (w *Window) Top() *Window {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.top == nil {
		return w
	}
	return w.top
}

// Navigate performs a full navigation to href, resolved against the current
// location.
func (w *Window) Navigate(href string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u, err := w.location.Parse(href); err == nil {
		w.location = u
		href = u.String()
	}
	w.navigations = append(w.navigations, href)
}

// Navigations lists the full navigations performed so far.
func (w *Window) Navigations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.navigations...)
}

// Open records href being opened in a new browsing context.
func (w *Window) Open(href string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = append(w.opened, href)
}

// Opened lists the URLs opened in new browsing contexts.
func (w *Window) Opened() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.opened...)
}

// setLocation is used by history state changes, which do not navigate.
func (w *Window) setLocation(u *url.URL) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.location = u
}

// ReadyState returns document.readyState.
func (w *Window) ReadyState() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readyState
}

// SetReadyState changes document.readyState and notifies listeners.
func (w *Window) SetReadyState(state string) {
	w.mu.Lock()
	if w.readyState == state {
		w.mu.Unlock()
		return
	}
	w.readyState = state
	fns := make([]func(string), 0, len(w.readyFns))
	for _, id := range sortedKeys(w.readyFns) {
		fns = append(fns, w.readyFns[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// OnReadyStateChange registers fn for readystatechange events.
func (w *Window) OnReadyStateChange(fn func(state string)) (remove func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.readyFns[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.readyFns, id)
	}
}

// Document returns the root document node. Callers reading the tree while
// other goroutines may mutate it should use ReadDocument.
func (w *Window) Document() *html.Node {
	return w.doc
}

// ReadDocument runs fn with the document under a read lock.
func (w *Window) ReadDocument(fn func(doc *html.Node)) {
	w.docMu.RLock()
	defer w.docMu.RUnlock()
	fn(w.doc)
}

// CurrentScript returns the executing script element, or nil.
func (w *Window) CurrentScript() *html.Node {
	w.docMu.RLock()
	defer w.docMu.RUnlock()
	return w.currentScript
}

// SetCurrentScript sets the executing script element.
func (w *Window) SetCurrentScript(el *html.Node) {
	w.docMu.Lock()
	defer w.docMu.Unlock()
	w.currentScript = el
}

// Title returns document.title with whitespace collapsed.
func (w *Window) Title() string {
	w.docMu.RLock()
	defer w.docMu.RUnlock()
	n := htmlquery.FindOne(w.doc, "//title")
	if n == nil {
		return ""
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
}

func (w *Window) head() *html.Node {
	return htmlquery.FindOne(w.doc, "//head")
}

// HasScript reports whether a script with the given src is in the document.
func (w *Window) HasScript(src string) bool {
	w.docMu.RLock()
	defer w.docMu.RUnlock()
	for _, n := range htmlquery.Find(w.doc, "//script[@src]") {
		if htmlquery.SelectAttr(n, "src") == src {
			return true
		}
	}
	return false
}

// AppendScript appends an async script element with src to the head.
func (w *Window) AppendScript(src string) error {
	w.docMu.Lock()
	defer w.docMu.Unlock()
	head := w.head()
	if head == nil {
		return ErrNoHead
	}
	head.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "async", Val: ""},
			{Key: "src", Val: src},
		},
	})
	return nil
}

// InjectScript appends an inline script holding source to the head. The new
// element copies every data-* attribute of the current script and records
// the current script's resolved src in data-loader-src. Handlers registered
// with OnScriptInjected run afterwards.
func (w *Window) InjectScript(source string) error {
	loc := w.Location()

	w.docMu.Lock()
	head := w.head()
	if head == nil {
		w.docMu.Unlock()
		return ErrNoHead
	}
	el := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	if cur := w.currentScript; cur != nil {
		for _, a := range cur.Attr {
			if strings.HasPrefix(a.Key, "data-") && a.Key != LoaderSrcAttr {
				el.Attr = append(el.Attr, html.Attribute{Key: a.Key, Val: a.Val})
			}
		}
		if src := htmlquery.SelectAttr(cur, "src"); src != "" {
			if u, err := loc.Parse(src); err == nil {
				src = u.String()
			}
			el.Attr = append(el.Attr, html.Attribute{Key: LoaderSrcAttr, Val: src})
		}
	}
	el.AppendChild(&html.Node{Type: html.TextNode, Data: source})
	head.AppendChild(el)
	w.docMu.Unlock()

	w.mu.Lock()
	fns := make([]func(*html.Node), 0, len(w.injectFns))
	for _, id := range sortedKeys(w.injectFns) {
		fns = append(fns, w.injectFns[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(el)
	}
	return nil
}

// OnScriptInjected registers fn to run for every script added by
// InjectScript.
func (w *Window) OnScriptInjected(fn func(el *html.Node)) (remove func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.injectFns[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.injectFns, id)
	}
}

// SendBeacon forwards to the configured Beacon. It reports false when the
// window has none.
func (w *Window) SendBeacon(target string, body []byte) bool {
	w.mu.Lock()
	b := w.beacon
	w.mu.Unlock()
	if b == nil {
		return false
	}
	return b.SendBeacon(target, body)
}
