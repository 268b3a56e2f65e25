// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/datachat-tui/internal/api"
)

func openTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMirror_ConversationsRoundTrip(t *testing.T) {
	m := openTestMirror(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	convs := []api.Conversation{
		{ID: 2, Title: "newer", CreatedAt: now, UpdatedAt: now.Add(time.Hour)},
		{ID: 1, Title: "older", CreatedAt: now, UpdatedAt: now},
	}
	if err := m.PutConversations(ctx, convs); err != nil {
		t.Fatalf("PutConversations failed: %v", err)
	}

	got, err := m.Conversations(ctx)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("most recently updated should come first, got id %d", got[0].ID)
	}
	if !got[1].UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got[1].UpdatedAt, now)
	}
}

func TestMirror_PutConversationsReplaces(t *testing.T) {
	m := openTestMirror(t)
	ctx := context.Background()
	now := time.Now().UTC()

	m.PutConversations(ctx, []api.Conversation{{ID: 1, Title: "old", CreatedAt: now, UpdatedAt: now}})
	m.PutConversations(ctx, []api.Conversation{{ID: 2, Title: "new", CreatedAt: now, UpdatedAt: now}})

	got, err := m.Conversations(ctx)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("mirror should hold only the latest snapshot, got %v", got)
	}
}

func TestMirror_MessagesRoundTrip(t *testing.T) {
	m := openTestMirror(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	m.PutConversations(ctx, []api.Conversation{{ID: 1, Title: "t", CreatedAt: now, UpdatedAt: now}})

	msgs := []api.Message{
		{ID: 1, Role: "user", Content: "question", Timestamp: now},
		{ID: 2, Role: "assistant", Content: "answer", Plots: []string{"p1", "p2"}, Feedback: "like", Timestamp: now},
	}
	if err := m.PutMessages(ctx, 1, msgs); err != nil {
		t.Fatalf("PutMessages failed: %v", err)
	}

	got, err := m.Messages(ctx, 1)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "question" || got[1].Content != "answer" {
		t.Errorf("order or content wrong: %v", got)
	}
	if len(got[1].Plots) != 2 || got[1].Plots[0] != "p1" {
		t.Errorf("plots = %v", got[1].Plots)
	}
	if got[1].Feedback != "like" {
		t.Errorf("feedback = %q", got[1].Feedback)
	}
	if got[0].ConversationID != 1 {
		t.Errorf("conversation id = %d", got[0].ConversationID)
	}
}

func TestMirror_EmptyReadsReportNotMirrored(t *testing.T) {
	m := openTestMirror(t)
	ctx := context.Background()

	if _, err := m.Conversations(ctx); !errors.Is(err, ErrNotMirrored) {
		t.Errorf("Conversations err = %v, want ErrNotMirrored", err)
	}
	if _, err := m.Messages(ctx, 99); !errors.Is(err, ErrNotMirrored) {
		t.Errorf("Messages err = %v, want ErrNotMirrored", err)
	}
}

func TestMirror_DeleteConversation(t *testing.T) {
	m := openTestMirror(t)
	ctx := context.Background()
	now := time.Now().UTC()

	m.PutConversations(ctx, []api.Conversation{{ID: 1, Title: "t", CreatedAt: now, UpdatedAt: now}})
	m.PutMessages(ctx, 1, []api.Message{{ID: 1, Role: "user", Content: "x", Timestamp: now}})

	if err := m.DeleteConversation(ctx, 1); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if _, err := m.Messages(ctx, 1); !errors.Is(err, ErrNotMirrored) {
		t.Errorf("messages should be gone with the conversation, err = %v", err)
	}
}
