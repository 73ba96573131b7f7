// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ragdesk.
//
// The helpers here are deliberately dependency-light: atomic file
// writes used by the session store, and width-aware string truncation
// used anywhere text meets a terminal column budget.
package util
