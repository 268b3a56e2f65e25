// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"errors"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrMessageNotFound is returned for mutations addressing an unknown id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrStreamOpen is returned when opening an assistant entry while
	// another one is still open.
	ErrStreamOpen = errors.New("another assistant message is still open")

	// ErrNotOpen is returned for streaming mutations on a closed message.
	ErrNotOpen = errors.New("message is not open for streaming")
)

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// Store is the ordered message log for one active conversation. Mutations
// address messages by id, never by position; at most one assistant entry is
// open at any time. Only the session controller and reconciliation reloads
// write to the store.
//
// Thread-safety: streaming happens in a goroutine while the UI reads from
// the main loop, so all operations are mutex-protected.
type Store struct {
	mu       sync.Mutex
	messages []*Message
	index    map[string]*Message
	openID   string
}

// NewStore creates an empty transcript store.
func NewStore() *Store {
	return &Store{index: make(map[string]*Message)}
}

// =============================================================================
// APPEND OPERATIONS
// =============================================================================

// Append adds a closed message to the end of the log.
func (s *Store) Append(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

// AppendUser creates and appends an optimistic user message, returning its id.
func (s *Store) AppendUser(content, imageURL string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := NewUserMessage(content, imageURL)
	s.appendLocked(msg)
	return msg.ID
}

// OpenAssistant appends an empty assistant message and marks it as the open
// streaming entry. Fails if another entry is already open.
func (s *Store) OpenAssistant() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openID != "" {
		return "", ErrStreamOpen
	}

	msg := NewAssistantMessage()
	s.appendLocked(msg)
	s.openID = msg.ID
	return msg.ID, nil
}

func (s *Store) appendLocked(msg *Message) {
	s.messages = append(s.messages, msg)
	s.index[msg.ID] = msg
}

// =============================================================================
// STREAMING MUTATIONS
// =============================================================================

// AppendDelta appends a text fragment to the open message with the given id.
func (s *Store) AppendDelta(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.openMessageLocked(id)
	if err != nil {
		return err
	}
	msg.appendContent(text)
	return nil
}

// AppendArtifact appends an encoded image payload to the open message's plot
// list. Plots are visible immediately to support progressive rendering.
func (s *Store) AppendArtifact(id, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.openMessageLocked(id)
	if err != nil {
		return err
	}
	msg.Plots = append(msg.Plots, data)
	return nil
}

// AppendFaultNote appends a visible error annotation to the open message and
// closes it, leaving the partial content in place.
func (s *Store) AppendFaultNote(id, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.openMessageLocked(id)
	if err != nil {
		return err
	}
	msg.appendContent("\n\nError: " + errText)
	msg.close()
	s.openID = ""
	return nil
}

// Close seals the open message with the given id.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.openMessageLocked(id)
	if err != nil {
		return err
	}
	msg.close()
	s.openID = ""
	return nil
}

func (s *Store) openMessageLocked(id string) (*Message, error) {
	msg, ok := s.index[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	if !msg.open || s.openID != id {
		return nil, ErrNotOpen
	}
	return msg, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReplaceAll discards the local log and installs the authoritative message
// list. Any open entry is dropped with the rest; the caller re-attaches
// client-side artifacts afterwards via AttachPlots.
func (s *Store) ReplaceAll(msgs []*Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]*Message, 0, len(msgs))
	s.index = make(map[string]*Message, len(msgs))
	s.openID = ""
	for _, m := range msgs {
		m.close()
		s.appendLocked(m)
	}
}

// AttachPlots sets the plot list on the last assistant message. Used after
// reconciliation to merge artifacts that were captured during streaming but
// are not echoed back by the storage service. No-op when the reloaded record
// already carries plots of its own.
func (s *Store) AttachPlots(plots []string) {
	if len(plots) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			if len(s.messages[i].Plots) == 0 {
				s.messages[i].Plots = append([]string(nil), plots...)
			}
			return
		}
	}
}

// Clear empties the transcript.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.index = make(map[string]*Message)
	s.openID = ""
}

// =============================================================================
// FEEDBACK
// =============================================================================

// ToggleFeedback applies toggle semantics to a message's sentiment: the same
// value clears it, a different value overwrites it. Only assistant messages
// accept feedback. Returns the resulting value and whether a change applied.
func (s *Store) ToggleFeedback(id string, fb Feedback) (Feedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.index[id]
	if !ok || msg.Role != RoleAssistant {
		return FeedbackNone, false
	}
	if fb != FeedbackLike && fb != FeedbackDislike {
		return msg.Feedback, false
	}

	if msg.Feedback == fb {
		msg.Feedback = FeedbackNone
	} else {
		msg.Feedback = fb
	}
	return msg.Feedback, true
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Messages returns a snapshot of the log in order.
func (s *Store) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Message(nil), s.messages...)
}

// Get returns a message by id, or nil.
func (s *Store) Get(id string) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[id]
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// OpenID returns the id of the open streaming entry, or "".
func (s *Store) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// PlotsByID returns the per-message artifact mapping for every message that
// has at least one plot.
func (s *Store) PlotsByID() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	plots := make(map[string][]string)
	for _, m := range s.messages {
		if len(m.Plots) > 0 {
			plots[m.ID] = append([]string(nil), m.Plots...)
		}
	}
	return plots
}
