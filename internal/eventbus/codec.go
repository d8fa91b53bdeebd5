// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package eventbus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/models"
)

// Metadata keys set on every event message.
const (
	MetadataWebsite = "website_id"
	MetadataEvent   = "event"
	MetadataLib     = "lib"
)

// EncodeEvent builds a message for ev. The message UUID is the event id, so
// JetStream deduplicates WAL replays of an event that was already published.
func EncodeEvent(ev *models.RawEvent) (*message.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(ev.EventID.String(), data)
	msg.Metadata.Set(MetadataWebsite, ev.Tenant())
	msg.Metadata.Set(MetadataEvent, ev.Event)
	msg.Metadata.Set(MetadataLib, ev.Lib)
	return msg, nil
}

// DecodeEvent parses a message produced by EncodeEvent.
func DecodeEvent(msg *message.Message) (*models.RawEvent, error) {
	var ev models.RawEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}
