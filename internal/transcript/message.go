// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the in-memory conversation transcript: an
// append-only log of messages with stable identity and a single "open"
// assistant entry while a stream is in flight.
package transcript

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/datachat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// FEEDBACK TYPE
// =============================================================================

// Feedback is the per-message user sentiment. Like and dislike are mutually
// exclusive; toggling the active value clears it.
type Feedback string

const (
	FeedbackNone    Feedback = ""
	FeedbackLike    Feedback = "like"
	FeedbackDislike Feedback = "dislike"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry. Identity is unique within a
// conversation: optimistic entries get a client-assigned id, authoritative
// entries carry the storage service's integer id. A message's content is
// mutable only while it is the open streaming entry; every other message is
// immutable once created.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	ServerID  int64     `json:"server_id,omitempty"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`

	// Plots are encoded image artifacts captured during an analysis turn,
	// in arrival order.
	Plots []string `json:"plots,omitempty"`

	// Feedback is the user's sentiment annotation (assistant messages only).
	Feedback Feedback `json:"feedback,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic appends while streaming
	open          bool
	streamContent strings.Builder
}

// NewUserMessage creates an optimistic user message with a client-assigned id.
func NewUserMessage(content, imageURL string) *Message {
	return &Message{
		ID:        newClientID(),
		Role:      RoleUser,
		Content:   content,
		ImageURL:  imageURL,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantMessage creates an empty open assistant message ready to
// receive streamed content.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        newClientID(),
		Role:      RoleAssistant,
		Timestamp: time.Now().UTC(),
		open:      true,
	}
}

// NewLocalAssistantMessage creates a closed assistant message that exists
// only client-side, such as mode announcements.
func NewLocalAssistantMessage(content string) *Message {
	return &Message{
		ID:        newClientID(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewServerMessage creates an immutable message from an authoritative record.
func NewServerMessage(serverID int64, role Role, content, imageURL string, plots []string, feedback Feedback, ts time.Time) *Message {
	return &Message{
		ID:        serverMessageID(serverID),
		ServerID:  serverID,
		Role:      role,
		Content:   content,
		ImageURL:  imageURL,
		Plots:     plots,
		Feedback:  feedback,
		Timestamp: ts,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Open reports whether the message is still receiving streamed content.
func (m *Message) Open() bool {
	return m.open
}

// appendContent appends streamed text. No-op on closed messages.
func (m *Message) appendContent(text string) {
	if m.open {
		m.streamContent.WriteString(text)
	}
}

// close seals the message, merging streamed content into Content.
func (m *Message) close() {
	if !m.open {
		return
	}
	m.Content += m.streamContent.String()
	m.streamContent.Reset()
	m.open = false
}

// DisplayContent returns the content to render: accumulated stream content
// while open, the final content once closed.
func (m *Message) DisplayContent() string {
	if m.open {
		return m.Content + m.streamContent.String()
	}
	return m.Content
}

// IsEmpty reports whether the message has no content yet.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a single-line rune-truncated preview of the content.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.DisplayContent(), "\n", " ")
	return util.TruncateRunes(content, maxRunes)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newClientID creates a client-assigned message id for optimistic entries.
func newClientID() string {
	return "msg_" + uuid.NewString()
}

// serverMessageID derives a transcript id from a storage service record id.
func serverMessageID(id int64) string {
	return "srv_" + strconv.FormatInt(id, 10)
}
