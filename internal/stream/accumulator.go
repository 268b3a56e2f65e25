// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator tracks one stream's side channel: the ordered artifact list and
// the terminal outcome. Text deltas are delivered to the caller as they arrive
// and are not retained here.
type Accumulator struct {
	artifacts []string
	done      bool
	faulted   bool
	faultMsg  string
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add processes one event. Events after a terminal or fault are ignored.
func (a *Accumulator) Add(ev Event) {
	if a.done {
		return
	}

	switch ev.Kind {
	case EventArtifact:
		a.artifacts = append(a.artifacts, ev.Data)
	case EventTerminal:
		a.done = true
	case EventFault:
		a.done = true
		a.faulted = true
		a.faultMsg = ev.Message
	}
}

// Artifacts returns the artifacts in arrival order.
func (a *Accumulator) Artifacts() []string {
	return a.artifacts
}

// Done reports whether the stream reached a terminal or fault event.
func (a *Accumulator) Done() bool {
	return a.done
}

// Faulted reports whether the stream ended with a fault, and its message.
func (a *Accumulator) Faulted() (bool, string) {
	return a.faulted, a.faultMsg
}
