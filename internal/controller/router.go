// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import "sync"

// =============================================================================
// MODE ROUTER
// =============================================================================

// TurnMode selects which generation endpoint a turn is routed to.
type TurnMode int

const (
	// ModeChat routes to plain chat generation.
	ModeChat TurnMode = iota

	// ModeAnalysis routes to dataset analysis generation.
	ModeAnalysis
)

// String returns the mode name for logging and tests.
func (m TurnMode) String() string {
	switch m {
	case ModeChat:
		return "chat"
	case ModeAnalysis:
		return "analysis"
	default:
		return "unknown"
	}
}

// modeRouter tracks the active dataset reference and decides per turn
// whether it goes to chat or analysis generation. At most one dataset is
// active at a time: attaching a new one replaces the old, it never stacks.
type modeRouter struct {
	mu       sync.Mutex
	csvPath  string
	csvLabel string
}

// setDataset installs a dataset reference, replacing any previous one.
func (r *modeRouter) setDataset(path, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.csvPath = path
	r.csvLabel = label
}

// reset drops the dataset reference.
func (r *modeRouter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.csvPath = ""
	r.csvLabel = ""
}

// dataset returns the active dataset reference, or empty strings.
func (r *modeRouter) dataset() (path, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.csvPath, r.csvLabel
}

// route decides the mode for a turn. An image attachment always wins over
// the dataset: vision turns go to plain chat even while analysis is active.
func (r *modeRouter) route(imageURL string) (TurnMode, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.csvPath != "" && imageURL == "" {
		return ModeAnalysis, r.csvPath
	}
	return ModeChat, ""
}
