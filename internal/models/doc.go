// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package models defines the wire and storage types shared by the tracker
runtime and the collection server.

Tracker wire types:

  - SendRequest / SendResponse: body and reply of the /api/send endpoint.
    SendResponse.Cache is a pointer so that an absent "cache" field can be
    told apart from an empty one.
  - Payload: the page-view, custom-event and identify payload.
  - ElementSignal, SectionSignal, PageAST: satellite bodies posted to
    /api/element, /api/section and /api/ast.

Server-side ingestion types:

  - EventRequest, BatchRequest, IdentifyRequest, AIMessageRequest: bodies of
    the /api/event, /api/events, /api/identify and /api/ai/* routes.
  - RawEvent: the unified event row written to the WAL, published on the bus,
    stored in DuckDB and forwarded downstream.
  - StandardEvents: event names used across the platform.

Registry types:

  - Website: a registered website and its kill switch.

All types use github.com/goccy/go-json compatible struct tags and
go-playground/validator tags where they arrive from untrusted clients.
*/
package models
