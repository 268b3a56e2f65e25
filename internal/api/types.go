// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// =============================================================================
// STORAGE SERVICE TYPES
// =============================================================================

// Conversation is the storage service's conversation record.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is the storage service's message record. Plots are present only
// when the chat service persisted artifacts for an analysis turn.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"image_url,omitempty"`
	Plots          []string  `json:"plots,omitempty"`
	Feedback       string    `json:"feedback,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// createConversationRequest is the POST /api/conversations body.
type createConversationRequest struct {
	Title string `json:"title"`
}

// updateConversationRequest is the PATCH /api/conversations/{id} body.
type updateConversationRequest struct {
	Title string `json:"title"`
}

// saveMessageRequest is the POST /api/conversations/{id}/messages body.
type saveMessageRequest struct {
	Role     string   `json:"role"`
	Content  string   `json:"content"`
	ImageURL string   `json:"image_url,omitempty"`
	Plots    []string `json:"plots,omitempty"`
}

// feedbackRequest is the PATCH /api/messages/{id}/feedback body. A null
// feedback value clears the annotation server-side.
type feedbackRequest struct {
	Feedback *string `json:"feedback"`
}

// UploadImageResponse is the POST /api/upload-image result.
type UploadImageResponse struct {
	ImageURL string `json:"image_url"`
}

// UploadCSVResponse is the POST /api/upload-csv result. CSVPath is an opaque
// token the chat service resolves; the client never interprets it.
type UploadCSVResponse struct {
	CSVPath  string `json:"csv_path"`
	Filename string `json:"filename"`
}

// registerCSVURLRequest is the POST /api/upload-csv body for URL ingestion.
type registerCSVURLRequest struct {
	URL string `json:"url"`
}

// =============================================================================
// CHAT SERVICE TYPES
// =============================================================================

// ChatStreamRequest is the POST /api/chat/stream body.
type ChatStreamRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
	ImageURL       string `json:"image_url,omitempty"`
}

// AnalysisStreamRequest is the POST /api/csv-analysis/stream body.
type AnalysisStreamRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
	CSVPath        string `json:"csv_path"`
}
