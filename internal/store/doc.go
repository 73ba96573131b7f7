// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists named conversations for ragdesk.
//
// The entire durable state is one JSON record: the current-conversation
// pointer plus a list of sessions capped at the 50 most recently touched.
// Every persist rewrites the record atomically. Loading tolerates missing
// or corrupt data by degrading to an empty store.
//
// Manager layers the conversation lifecycle on top: dirty-gated persists,
// switching, creation, deletion, renaming. Watcher adds debounced change
// notifications when another process rewrites the record.
package store
