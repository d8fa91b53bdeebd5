// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

// Package loader reconstructs the plaintext tracker from its encrypted
// artifact and hands it to the page.
//
// The decode protocol is:
//
//  1. fetch the artifact and the decoder module concurrently
//  2. instantiate a fresh decoder sandbox
//  3. grow linear memory by the page-rounded deficit when
//     artifactLen+keyLen does not fit
//  4. write the artifact at offset 0 and the key at offset artifactLen
//  5. call transform(0, artifactLen, artifactLen, keyLen)
//  6. read artifactLen bytes back from offset 0 and decode them as UTF-8
//  7. inject the text as a script appended to the document head
//
// Run never fails the host: every error is logged and the page simply goes
// without a tracker. There is no retry.
package loader
