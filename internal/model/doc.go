// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and messages.
//
// A Transcript is the live message sequence for the current conversation;
// the session store serializes complete messages and nothing else. Dirty
// tracking lives here because it is a property of the transcript, not of
// the store: the store only consults it to avoid no-op writes.
package model
