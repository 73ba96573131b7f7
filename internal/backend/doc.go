// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the JSON client for the retrieval-augmented
// chat backend.
//
// The backend is an opaque collaborator exposing four endpoints: status,
// rebuild trigger, rebuild-progress poll, and chat completion. Every call
// carries its own timeout, and a timeout surfaces as ErrTimeout so callers
// can word it differently from a transport failure. Non-success responses
// carry an {error} payload whose text becomes the user-visible failure
// message, wrapped in APIError.
package backend
