// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// CHAT CLIENT CONFIGURATION
// =============================================================================

// ChatConfig holds configuration options for the chat service client.
type ChatConfig struct {
	// BaseURL is the chat service base URL (default: http://127.0.0.1:8001)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration
}

// DefaultChatConfig returns the default chat client configuration.
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		BaseURL: "http://127.0.0.1:8001",
		Timeout: defaultTimeout,
	}
}

// =============================================================================
// CHAT CLIENT
// =============================================================================

// ChatClient handles communication with the chat service: streamed generation
// for plain chat and dataset analysis turns.
type ChatClient struct {
	config     *ChatConfig
	httpClient *http.Client

	// streamClient has no Timeout: a generation can legitimately run for
	// minutes, so lifetime is governed by the request context instead.
	streamClient *http.Client
}

// NewChatClient creates a chat client with default configuration.
func NewChatClient() *ChatClient {
	return NewChatClientWithConfig(DefaultChatConfig())
}

// NewChatClientWithConfig creates a chat client with custom configuration.
func NewChatClientWithConfig(config *ChatConfig) *ChatClient {
	if config == nil {
		config = DefaultChatConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8001"
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &ChatClient{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the configured service base URL.
func (c *ChatClient) BaseURL() string {
	return c.config.BaseURL
}

// CheckRunning verifies that the chat service is reachable and healthy.
func (c *ChatClient) CheckRunning(ctx context.Context) error {
	return checkHealth(ctx, c.httpClient, c.config.BaseURL)
}

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// OpenChatStream starts a plain chat generation and returns the event stream
// body. The caller owns the body and must close it; cancelling ctx aborts
// the stream mid-flight.
func (c *ChatClient) OpenChatStream(ctx context.Context, req ChatStreamRequest) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/chat/stream", req, "chat stream")
}

// OpenAnalysisStream starts a dataset analysis generation and returns the
// event stream body. Same ownership rules as OpenChatStream.
func (c *ChatClient) OpenAnalysisStream(ctx context.Context, req AnalysisStreamRequest) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/csv-analysis/stream", req, "analysis stream")
}

func (c *ChatClient) openStream(ctx context.Context, path string, body interface{}, op string) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, requestError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp, op)
	}
	return resp.Body, nil
}

// =============================================================================
// ANALYSIS SESSION MANAGEMENT
// =============================================================================

// ClearAnalysis drops the chat service's cached analysis session for a
// conversation. Safe to call when no session exists.
func (c *ChatClient) ClearAnalysis(ctx context.Context, conversationID int64) error {
	url := c.config.BaseURL + "/api/csv-analysis/clear/" + formatID(conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return statusError(resp, "clear analysis")
	}
	drainAndClose(resp.Body)
	return nil
}
