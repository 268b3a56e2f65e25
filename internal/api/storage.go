// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// STORAGE CLIENT CONFIGURATION
// =============================================================================

// StorageConfig holds configuration options for the storage service client.
type StorageConfig struct {
	// BaseURL is the storage service base URL (default: http://127.0.0.1:8002)
	BaseURL string

	// Timeout for requests (default: 30s)
	Timeout time.Duration

	// SideEffectRate limits best-effort mutations (title updates, feedback
	// pushes) so UI toggling cannot hammer the service (default: 5/s).
	SideEffectRate rate.Limit
}

// DefaultStorageConfig returns the default storage client configuration.
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		BaseURL:        "http://127.0.0.1:8002",
		Timeout:        defaultTimeout,
		SideEffectRate: 5,
	}
}

// =============================================================================
// STORAGE CLIENT
// =============================================================================

// StorageClient handles communication with the storage service: conversation
// and message persistence plus image/CSV uploads.
//
// The client is safe for concurrent use.
type StorageClient struct {
	config     *StorageConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewStorageClient creates a storage client with default configuration.
func NewStorageClient() *StorageClient {
	return NewStorageClientWithConfig(DefaultStorageConfig())
}

// NewStorageClientWithConfig creates a storage client with custom configuration.
func NewStorageClientWithConfig(config *StorageConfig) *StorageClient {
	if config == nil {
		config = DefaultStorageConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8002"
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.SideEffectRate == 0 {
		config.SideEffectRate = 5
	}

	return &StorageClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(config.SideEffectRate, int(config.SideEffectRate)),
	}
}

// BaseURL returns the configured service base URL.
func (c *StorageClient) BaseURL() string {
	return c.config.BaseURL
}

// CheckRunning verifies that the storage service is reachable and healthy.
func (c *StorageClient) CheckRunning(ctx context.Context) error {
	return checkHealth(ctx, c.httpClient, c.config.BaseURL)
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// CreateConversation creates a conversation with the given title.
func (c *StorageClient) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	var conv Conversation
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations",
		createConversationRequest{Title: title}, &conv, "create conversation")
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns all conversations, most recently updated first.
func (c *StorageClient) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &convs, "list conversations"); err != nil {
		return nil, err
	}
	return convs, nil
}

// UpdateConversationTitle sets a conversation's title.
func (c *StorageClient) UpdateConversationTitle(ctx context.Context, id int64, title string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return requestError(err)
	}
	return c.doJSON(ctx, http.MethodPatch, "/api/conversations/"+formatID(id),
		updateConversationRequest{Title: title}, nil, "update conversation")
}

// DeleteConversation removes a conversation and its messages.
func (c *StorageClient) DeleteConversation(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/conversations/"+formatID(id), nil, nil, "delete conversation")
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// ListMessages returns a conversation's messages in chronological order,
// including any server-known image and plot references.
func (c *StorageClient) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	var msgs []Message
	path := "/api/conversations/" + formatID(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs, "list messages"); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveMessage persists a message to a conversation.
func (c *StorageClient) SaveMessage(ctx context.Context, conversationID int64, role, content, imageURL string, plots []string) (*Message, error) {
	var msg Message
	path := "/api/conversations/" + formatID(conversationID) + "/messages"
	err := c.doJSON(ctx, http.MethodPost, path,
		saveMessageRequest{Role: role, Content: content, ImageURL: imageURL, Plots: plots}, &msg, "save message")
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetMessageFeedback sets or clears a message's sentiment annotation.
// An empty feedback string clears it.
func (c *StorageClient) SetMessageFeedback(ctx context.Context, messageID int64, feedback string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return requestError(err)
	}

	var fb *string
	if feedback != "" {
		fb = &feedback
	}
	return c.doJSON(ctx, http.MethodPatch, "/api/messages/"+formatID(messageID)+"/feedback",
		feedbackRequest{Feedback: fb}, nil, "set feedback")
}

// =============================================================================
// UPLOAD OPERATIONS
// =============================================================================

// UploadImage uploads an image file and returns its served URL.
func (c *StorageClient) UploadImage(ctx context.Context, path string) (*UploadImageResponse, error) {
	var result UploadImageResponse
	if err := c.uploadFile(ctx, "/api/upload-image", path, &result, "upload image"); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadCSV uploads a CSV file for dataset analysis and returns the opaque
// path token the chat service resolves.
func (c *StorageClient) UploadCSV(ctx context.Context, path string) (*UploadCSVResponse, error) {
	var result UploadCSVResponse
	if err := c.uploadFile(ctx, "/api/upload-csv", path, &result, "upload csv"); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterCSVURL registers a remote CSV by URL instead of uploading a file.
func (c *StorageClient) RegisterCSVURL(ctx context.Context, url string) (*UploadCSVResponse, error) {
	var result UploadCSVResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/upload-csv",
		registerCSVURLRequest{URL: url}, &result, "register csv url")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// uploadFile posts a local file as multipart form data.
func (c *StorageClient) uploadFile(ctx context.Context, apiPath, filePath string, out interface{}, op string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to open file", Cause: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to read file", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to finalize form", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+apiPath, &buf)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, op)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// doJSON performs a JSON request. body and out may be nil.
func (c *StorageClient) doJSON(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp, op)
	}
	if out == nil {
		drainAndClose(io.NopCloser(resp.Body))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// formatID renders an integer record id for a URL path.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
