// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package session derives visitor session and visit identifiers and issues
// the continuation token the tracker echoes in the x-hanzo-cache header.
//
// A session id is a stable hash of the website, hostname, client IP and user
// agent salted with the current month, so it never stores the raw inputs.
// A visit id groups activity within one session; a new visit starts after
// the configured inactivity timeout. The token carries both ids so that a
// returning tracker keeps them without the server holding any state.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
)

var (
	ErrInvalidToken    = errors.New("session: invalid token")
	ErrExpiredToken    = errors.New("session: token expired")
	ErrWebsiteMismatch = errors.New("session: token issued for another website")
)

// Claims are the continuation token contents.
type Claims struct {
	WebsiteID string `json:"websiteId"`
	SessionID string `json:"sessionId"`
	VisitID   string `json:"visitId"`
	jwt.RegisteredClaims
}

// Visitor is what the collector knows about the sender of a request.
type Visitor struct {
	WebsiteID string
	Hostname  string
	IP        string
	UserAgent string
}

// Identity is the resolved session and visit for one request.
type Identity struct {
	SessionID string
	VisitID   string
	// Token is the continuation token to hand back to the tracker.
	Token string
}

// Manager issues and verifies continuation tokens.
type Manager struct {
	secret       []byte
	ttl          time.Duration
	visitTimeout time.Duration
	now          func() time.Time
}

// NewManager creates a Manager from the session configuration. An empty
// secret is replaced by a random one, which makes tokens unverifiable
// after a restart.
func NewManager(cfg config.SessionConfig) (*Manager, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logging.Warn().Msg("SESSION_SECRET not set; continuation tokens will not survive a restart")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	visitTimeout := cfg.VisitTimeout
	if visitTimeout <= 0 {
		visitTimeout = 30 * time.Minute
	}

	return &Manager{
		secret:       secret,
		ttl:          ttl,
		visitTimeout: visitTimeout,
		now:          time.Now,
	}, nil
}

// Resolve returns the identity for v. A valid token for the same website
// keeps its session id; its visit id survives only while the previous
// activity is within the visit timeout. Anything else derives fresh ids.
// A fresh token is always issued.
func (m *Manager) Resolve(token string, v Visitor) (Identity, error) {
	now := m.now()

	var id Identity
	claims, err := m.Verify(token, v.WebsiteID)
	switch {
	case token == "":
		metrics.SessionTokens.WithLabelValues("issued").Inc()
	case err != nil:
		if errors.Is(err, ErrExpiredToken) {
			metrics.SessionTokens.WithLabelValues("expired").Inc()
		} else {
			metrics.SessionTokens.WithLabelValues("invalid").Inc()
		}
	default:
		metrics.SessionTokens.WithLabelValues("reused").Inc()
		id.SessionID = claims.SessionID
		if claims.IssuedAt != nil && now.Sub(claims.IssuedAt.Time) < m.visitTimeout {
			id.VisitID = claims.VisitID
		}
	}

	if id.SessionID == "" {
		id.SessionID = SessionID(v, now)
	}
	if id.VisitID == "" {
		id.VisitID = VisitID(id.SessionID, now)
	}

	signed, signErr := m.Issue(v.WebsiteID, id.SessionID, id.VisitID)
	if signErr != nil {
		return id, signErr
	}
	id.Token = signed

	// A rejected token is not an error for the caller; the visitor simply
	// starts over.
	return id, nil
}

// Issue signs a continuation token.
func (m *Manager) Issue(websiteID, sessionID, visitID string) (string, error) {
	now := m.now()
	claims := &Claims{
		WebsiteID: websiteID,
		SessionID: sessionID,
		VisitID:   visitID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and checks it was issued for websiteID.
func (m *Manager) Verify(tokenString, websiteID string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuedAt())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if claims.WebsiteID != websiteID {
		return nil, ErrWebsiteMismatch
	}
	return claims, nil
}

// SessionID derives the session id for v. It changes when any input
// changes or the calendar month rolls over.
func SessionID(v Visitor, now time.Time) string {
	return hashID(now.UTC().Format("2006-01"), v.WebsiteID, v.Hostname, v.IP, v.UserAgent)
}

// VisitID derives a visit id for a session starting at now.
func VisitID(sessionID string, now time.Time) string {
	return hashID(now.UTC().Format("2006-01-02T15"), sessionID)
}

// hashID turns parts into a name-based UUID (version 5 layout) using a
// BLAKE2b digest.
func hashID(parts ...string) string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum(nil)

	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0f) | 0x50
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String()
}
