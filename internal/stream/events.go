// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the chat service's server-sent event stream into
// typed events.
package stream

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventKind discriminates the decoded stream event variants.
type EventKind int

const (
	// EventContentDelta carries a text fragment to append to the open
	// assistant message.
	EventContentDelta EventKind = iota

	// EventArtifact carries an encoded image payload (a plot) produced
	// during an analysis turn.
	EventArtifact

	// EventTerminal signals that the stream finished normally.
	EventTerminal

	// EventFault signals that the stream finished abnormally. The Message
	// field carries the server's error text.
	EventFault
)

// String returns the event kind name for logging and tests.
func (k EventKind) String() string {
	switch k {
	case EventContentDelta:
		return "content-delta"
	case EventArtifact:
		return "artifact"
	case EventTerminal:
		return "terminal"
	case EventFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Event is one decoded stream event. Events are transient: the controller
// consumes them during a single dispatch cycle and never retains them.
type Event struct {
	Kind EventKind

	// Content is the text fragment for EventContentDelta.
	Content string

	// Data is the opaque encoded image payload for EventArtifact.
	Data string

	// Message is the error text for EventFault.
	Message string
}

// Terminal reports whether the event ends the stream (terminal or fault).
func (e Event) Terminal() bool {
	return e.Kind == EventTerminal || e.Kind == EventFault
}
