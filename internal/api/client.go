// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP clients for the two backend collaborators:
// the storage service (conversation/message persistence, uploads) and the
// chat service (streamed generation).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from a backend service client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeInvalidResponse
	ErrTypeConnection
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "service is unreachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "resource not found"}
)

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsUnreachable checks if an error indicates the service is down.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnreachable
	}
	return errors.Is(err, ErrUnreachable)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// serviceError is the error payload shape both services emit on failure.
type serviceError struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// requestError maps a transport failure to a ClientError.
func requestError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return ErrUnreachable
}

// statusError builds a ClientError from a non-success response, preferring
// the body's error text when it decodes.
func statusError(resp *http.Response, op string) error {
	var svcErr serviceError
	if err := json.NewDecoder(resp.Body).Decode(&svcErr); err == nil {
		if svcErr.Detail != "" {
			return &ClientError{Type: typeForStatus(resp.StatusCode), Message: svcErr.Detail}
		}
		if svcErr.Error != "" {
			return &ClientError{Type: typeForStatus(resp.StatusCode), Message: svcErr.Error}
		}
	}
	return &ClientError{
		Type:    typeForStatus(resp.StatusCode),
		Message: op + " failed: " + resp.Status,
	}
}

func typeForStatus(code int) ErrorType {
	if code == http.StatusNotFound {
		return ErrTypeNotFound
	}
	return ErrTypeInvalidResponse
}

// drainAndClose discards the remainder of a response body so the connection
// can be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// healthStatus is the /health payload both services expose.
type healthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// checkHealth performs a GET /health against a service base URL.
func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return requestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{Type: ErrTypeConnection, Message: "unexpected health status: " + resp.Status}
	}

	var status healthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode health response", Cause: err}
	}
	if status.Status != "healthy" {
		return &ClientError{Type: ErrTypeConnection, Message: "service reports status " + status.Status}
	}
	return nil
}

// defaultTimeout is the request timeout for non-streaming calls.
const defaultTimeout = 30 * time.Second
