// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/controller"
)

// =============================================================================
// STUB COLLABORATORS
// =============================================================================

type stubStorage struct{}

func (stubStorage) CreateConversation(context.Context, string) (*api.Conversation, error) {
	return &api.Conversation{ID: 1, Title: controller.DefaultTitle}, nil
}
func (stubStorage) ListConversations(context.Context) ([]api.Conversation, error) {
	return nil, nil
}
func (stubStorage) UpdateConversationTitle(context.Context, int64, string) error { return nil }
func (stubStorage) DeleteConversation(context.Context, int64) error              { return nil }
func (stubStorage) ListMessages(context.Context, int64) ([]api.Message, error)   { return nil, nil }
func (stubStorage) SaveMessage(context.Context, int64, string, string, string, []string) (*api.Message, error) {
	return &api.Message{}, nil
}
func (stubStorage) UploadImage(context.Context, string) (*api.UploadImageResponse, error) {
	return &api.UploadImageResponse{}, nil
}
func (stubStorage) UploadCSV(context.Context, string) (*api.UploadCSVResponse, error) {
	return &api.UploadCSVResponse{}, nil
}
func (stubStorage) RegisterCSVURL(context.Context, string) (*api.UploadCSVResponse, error) {
	return &api.UploadCSVResponse{}, nil
}
func (stubStorage) SetMessageFeedback(context.Context, int64, string) error { return nil }

type stubStreamer struct{}

func (stubStreamer) OpenChatStream(context.Context, api.ChatStreamRequest) (io.ReadCloser, error) {
	return nil, io.EOF
}
func (stubStreamer) OpenAnalysisStream(context.Context, api.AnalysisStreamRequest) (io.ReadCloser, error) {
	return nil, io.EOF
}
func (stubStreamer) ClearAnalysis(context.Context, int64) error { return nil }

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T) Model {
	t.Helper()
	ctrl := controller.New(stubStorage{}, stubStreamer{})
	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	cfg := config.Default()
	cfg.UI.Markdown = false
	return New(ctrl, cfg)
}

func keyMsg(typ tea.KeyType) tea.Msg {
	return tea.KeyMsg(tea.Key{Type: typ})
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestUpdate_ArrowKeysScrollTranscript(t *testing.T) {
	m := newTestModel(t)
	store := m.ctrl.Transcript()
	for i := 0; i < 40; i++ {
		store.AppendUser(fmt.Sprintf("message %d", i), "")
	}

	// Small window so the transcript overflows the viewport.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	m = updated.(Model)
	m.viewport.GotoBottom()
	if m.viewport.AtTop() {
		t.Fatal("transcript should overflow the viewport")
	}

	before := m.viewport.YOffset
	updated, _ = m.Update(keyMsg(tea.KeyUp))
	m = updated.(Model)
	if m.viewport.YOffset != before-1 {
		t.Errorf("YOffset after up = %d, want %d", m.viewport.YOffset, before-1)
	}

	updated, _ = m.Update(keyMsg(tea.KeyDown))
	m = updated.(Model)
	if m.viewport.YOffset != before {
		t.Errorf("YOffset after down = %d, want %d", m.viewport.YOffset, before)
	}
}

func TestUpdate_ArrowKeysDoNotReachTextarea(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	m = updated.(Model)

	m.textarea.SetValue("line one\nline two")
	row := m.textarea.Line()
	updated, _ = m.Update(keyMsg(tea.KeyUp))
	m = updated.(Model)
	if m.textarea.Line() != row {
		t.Error("arrow keys are transcript scrolling, not input navigation")
	}
}
