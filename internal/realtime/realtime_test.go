// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hanzoai/analytics/internal/models"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	srv := httptest.NewServer(Handler(hub, nil))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, website string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?website=" + website
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, website string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(website) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount(%q) = %d, want %d", website, hub.ClientCount(website), want)
}

func TestHubDeliversToWebsiteClients(t *testing.T) {
	hub, srv := startHub(t)

	a := dial(t, srv, "site-a")
	b := dial(t, srv, "site-b")
	waitForClients(t, hub, "site-a", 1)
	waitForClients(t, hub, "site-b", 1)

	ev := &models.RawEvent{
		EventID:   uuid.New(),
		Event:     models.StandardEvents.PageView,
		WebsiteID: "site-a",
		URLPath:   "/pricing",
		IP:        "203.0.113.9",
		UserAgent: "Mozilla/5.0",
		Timestamp: time.Now().UTC(),
	}
	if err := hub.Consume(context.Background(), ev); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := a.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"url_path":"/pricing"`) {
		t.Errorf("message = %s, want url_path", body)
	}
	if strings.Contains(body, "203.0.113.9") || strings.Contains(body, "Mozilla") {
		t.Errorf("message = %s, leaked visitor ip or user agent", body)
	}

	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Error("site-b client received an event for site-a")
	}
}

func TestHubPingPong(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "site-a")
	waitForClients(t, hub, "site-a", 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var msg Message
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypePong)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "site-a")
	waitForClients(t, hub, "site-a", 1)

	conn.Close()
	waitForClients(t, hub, "site-a", 0)
}

func TestBroadcastWithoutClientsIsNoop(t *testing.T) {
	t.Parallel()
	hub := NewHub(1)
	for i := 0; i < 10; i++ {
		hub.Broadcast("nobody", Message{Type: MessageTypeEvent})
	}
	if got := len(hub.broadcast); got != 0 {
		t.Errorf("queued = %d, want 0", got)
	}
}

func TestHandlerRequiresWebsite(t *testing.T) {
	t.Parallel()
	hub := NewHub(1)
	rec := httptest.NewRecorder()
	Handler(hub, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/realtime", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list", nil, "https://evil.example", true},
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"listed", []string{"https://app.hanzo.ai/"}, "https://app.hanzo.ai", true},
		{"case", []string{"https://App.Hanzo.ai"}, "https://app.hanzo.ai", true},
		{"not listed", []string{"https://app.hanzo.ai"}, "https://evil.example", false},
		{"no origin header", []string{"https://app.hanzo.ai"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Errorf("check(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
