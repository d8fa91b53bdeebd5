// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package realtime streams accepted events to dashboard clients over
// WebSocket. Clients subscribe to one website; the hub is a bus consumer and
// fans each event out to that website's clients.
package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

// Message types sent to clients.
const (
	MessageTypeEvent = "event"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// Message is the envelope written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LiveEvent is the public view of an event. Visitor IP and user agent are
// never streamed.
type LiveEvent struct {
	EventID    string    `json:"event_id"`
	Event      string    `json:"event"`
	WebsiteID  string    `json:"website_id"`
	SessionID  string    `json:"session_id,omitempty"`
	URLPath    string    `json:"url_path,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
	Referrer   string    `json:"referrer_domain,omitempty"`
	Title      string    `json:"page_title,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	OS         string    `json:"os,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Country    string    `json:"country,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func newLiveEvent(ev *models.RawEvent) LiveEvent {
	return LiveEvent{
		EventID:    ev.EventID.String(),
		Event:      ev.Event,
		WebsiteID:  ev.Tenant(),
		SessionID:  ev.SessionID,
		URLPath:    ev.URLPath,
		Hostname:   ev.Hostname,
		Referrer:   ev.ReferrerDomain,
		Title:      ev.PageTitle,
		Browser:    ev.Browser,
		OS:         ev.OS,
		DeviceType: ev.DeviceType,
		Country:    ev.Country,
		Timestamp:  ev.Timestamp,
	}
}

type broadcast struct {
	website string
	msg     Message
}

// Hub tracks connected clients per website.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	broadcast  chan broadcast
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	quitOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub whose broadcast queue holds bufferSize events.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan broadcast, bufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Name implements eventbus.Consumer.
func (h *Hub) Name() string { return "realtime" }

// Consume queues ev for its website's clients. Events are dropped when the
// queue is full; the stream is a live view, not a delivery guarantee.
func (h *Hub) Consume(_ context.Context, ev *models.RawEvent) error {
	h.Broadcast(ev.Tenant(), Message{Type: MessageTypeEvent, Data: newLiveEvent(ev)})
	return nil
}

// Broadcast queues msg for the clients of website.
func (h *Hub) Broadcast(website string, msg Message) {
	if h.ClientCount(website) == 0 {
		return
	}
	select {
	case h.broadcast <- broadcast{website: website, msg: msg}:
	default:
		metrics.RealtimeDropped.Inc()
	}
}

// Serve runs the hub until ctx is canceled, then closes every client.
// Registration is handled before broadcasts so a client never misses
// messages queued after it connected.
func (h *Hub) Serve(ctx context.Context) error {
	defer h.quitOnce.Do(func() { close(h.quit) })

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case b := <-h.broadcast:
			h.deliver(b)
		}
	}
}

func (h *Hub) String() string { return "realtime-hub" }

// ClientCount returns the number of clients for website, or for every
// website when website is empty.
func (h *Hub) ClientCount(website string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if website != "" {
		return len(h.clients[website])
	}
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.website]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.website] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeClients.Inc()
	logging.Debug().Str("website_id", c.website).Uint64("client", c.id).Msg("Realtime client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set := h.clients[c.website]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.website)
	}
	close(c.send)
	metrics.RealtimeClients.Dec()
}

// deliver sends to clients in id order. A client whose buffer is full is
// disconnected.
func (h *Hub) deliver(b broadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients[b.website]))
	for c := range h.clients[b.website] {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- b.msg:
		default:
			metrics.RealtimeDropped.Inc()
			h.removeLocked(c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
			n++
		}
	}
	logging.Info().Int("clients_closed", n).Msg("Realtime hub stopped")
}
