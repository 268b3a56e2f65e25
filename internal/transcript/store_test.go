// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"errors"
	"testing"
	"time"
)

func TestStore_AppendUserAndOpenAssistant(t *testing.T) {
	s := NewStore()

	userID := s.AppendUser("Hello", "")
	if userID == "" {
		t.Fatal("expected non-empty user message id")
	}

	asstID, err := s.OpenAssistant()
	if err != nil {
		t.Fatalf("OpenAssistant failed: %v", err)
	}
	if s.OpenID() != asstID {
		t.Errorf("OpenID = %q, want %q", s.OpenID(), asstID)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	// A second open while one is in flight is rejected.
	if _, err := s.OpenAssistant(); !errors.Is(err, ErrStreamOpen) {
		t.Errorf("second OpenAssistant err = %v, want ErrStreamOpen", err)
	}
}

func TestStore_DeltaConcatenationOrder(t *testing.T) {
	s := NewStore()
	id, _ := s.OpenAssistant()

	deltas := []string{"The", " quick", " brown", " fox"}
	for _, d := range deltas {
		if err := s.AppendDelta(id, d); err != nil {
			t.Fatalf("AppendDelta failed: %v", err)
		}
	}

	if got := s.Get(id).DisplayContent(); got != "The quick brown fox" {
		t.Errorf("DisplayContent = %q, want %q", got, "The quick brown fox")
	}

	if err := s.Close(id); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := s.Get(id).Content; got != "The quick brown fox" {
		t.Errorf("Content after close = %q, want %q", got, "The quick brown fox")
	}
	if s.OpenID() != "" {
		t.Error("OpenID should be cleared after Close")
	}
}

func TestStore_MutationsRejectedAfterClose(t *testing.T) {
	s := NewStore()
	id, _ := s.OpenAssistant()
	s.Close(id)

	if err := s.AppendDelta(id, "late"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("AppendDelta err = %v, want ErrNotOpen", err)
	}
	if err := s.AppendArtifact(id, "data"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("AppendArtifact err = %v, want ErrNotOpen", err)
	}
}

func TestStore_AppendDeltaUnknownID(t *testing.T) {
	s := NewStore()
	if err := s.AppendDelta("nope", "x"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound", err)
	}
}

func TestStore_FaultNoteClosesWithPartialContent(t *testing.T) {
	s := NewStore()
	id, _ := s.OpenAssistant()
	s.AppendDelta(id, "partial answer")

	if err := s.AppendFaultNote(id, "model unavailable"); err != nil {
		t.Fatalf("AppendFaultNote failed: %v", err)
	}

	msg := s.Get(id)
	want := "partial answer\n\nError: model unavailable"
	if msg.Content != want {
		t.Errorf("Content = %q, want %q", msg.Content, want)
	}
	if msg.Open() {
		t.Error("message should be closed after a fault")
	}

	// Exactly one annotation: a second fault on the same id is rejected.
	if err := s.AppendFaultNote(id, "again"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("second AppendFaultNote err = %v, want ErrNotOpen", err)
	}
}

func TestStore_ArtifactsVisibleProgressively(t *testing.T) {
	s := NewStore()
	id, _ := s.OpenAssistant()

	s.AppendArtifact(id, "plot-one")
	if got := s.Get(id).Plots; len(got) != 1 || got[0] != "plot-one" {
		t.Fatalf("Plots after first artifact = %v", got)
	}

	s.AppendArtifact(id, "plot-two")
	plots := s.PlotsByID()
	if len(plots[id]) != 2 {
		t.Errorf("PlotsByID[%q] = %v, want 2 entries", id, plots[id])
	}
}

func TestStore_ReplaceAllInstallsAuthoritativeLog(t *testing.T) {
	s := NewStore()
	s.AppendUser("optimistic user", "")
	id, _ := s.OpenAssistant()
	s.AppendDelta(id, "optimistic assistant")

	now := time.Now().UTC()
	authoritative := []*Message{
		NewServerMessage(1, RoleUser, "server user", "", nil, FeedbackNone, now),
		NewServerMessage(2, RoleAssistant, "server assistant", "", nil, FeedbackNone, now),
	}
	s.ReplaceAll(authoritative)

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Len after ReplaceAll = %d, want 2", len(msgs))
	}
	if msgs[1].Content != "server assistant" {
		t.Errorf("content = %q, want authoritative value", msgs[1].Content)
	}
	if s.OpenID() != "" {
		t.Error("no message should be open after ReplaceAll")
	}
	if s.Get(id) != nil {
		t.Error("optimistic entry should be gone after ReplaceAll")
	}
}

func TestStore_AttachPlotsToLastAssistant(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()
	s.ReplaceAll([]*Message{
		NewServerMessage(1, RoleUser, "q", "", nil, FeedbackNone, now),
		NewServerMessage(2, RoleAssistant, "a", "", nil, FeedbackNone, now),
		NewServerMessage(3, RoleUser, "q2", "", nil, FeedbackNone, now),
		NewServerMessage(4, RoleAssistant, "a2", "", nil, FeedbackNone, now),
	})

	s.AttachPlots([]string{"p1", "p2"})

	msgs := s.Messages()
	if len(msgs[3].Plots) != 2 {
		t.Errorf("last assistant plots = %v, want 2 entries", msgs[3].Plots)
	}
	if len(msgs[1].Plots) != 0 {
		t.Errorf("earlier assistant should have no plots, got %v", msgs[1].Plots)
	}
}

func TestStore_AttachPlotsKeepsServerPlots(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()
	s.ReplaceAll([]*Message{
		NewServerMessage(1, RoleAssistant, "a", "", []string{"server-plot"}, FeedbackNone, now),
	})

	s.AttachPlots([]string{"client-plot"})

	got := s.Messages()[0].Plots
	if len(got) != 1 || got[0] != "server-plot" {
		t.Errorf("Plots = %v, server record should win", got)
	}
}

func TestStore_ToggleFeedback(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()
	s.ReplaceAll([]*Message{
		NewServerMessage(1, RoleUser, "q", "", nil, FeedbackNone, now),
		NewServerMessage(2, RoleAssistant, "a", "", nil, FeedbackNone, now),
	})
	asstID := s.Messages()[1].ID
	userID := s.Messages()[0].ID

	// Set like
	fb, ok := s.ToggleFeedback(asstID, FeedbackLike)
	if !ok || fb != FeedbackLike {
		t.Fatalf("ToggleFeedback = (%v, %v), want (like, true)", fb, ok)
	}

	// Same value clears
	fb, ok = s.ToggleFeedback(asstID, FeedbackLike)
	if !ok || fb != FeedbackNone {
		t.Errorf("second like = (%v, %v), want (none, true)", fb, ok)
	}

	// Alternating values never leave both set
	s.ToggleFeedback(asstID, FeedbackLike)
	fb, _ = s.ToggleFeedback(asstID, FeedbackDislike)
	if fb != FeedbackDislike {
		t.Errorf("after like then dislike = %v, want dislike", fb)
	}

	// User messages never accept feedback
	if _, ok := s.ToggleFeedback(userID, FeedbackLike); ok {
		t.Error("feedback on a user message should be rejected")
	}
}

func TestMessage_Preview(t *testing.T) {
	m := NewUserMessage("first line\nsecond line that is quite long indeed", "")
	got := m.Preview(20)
	if len([]rune(got)) > 20 {
		t.Errorf("preview too long: %q", got)
	}
	if got != "first line second..." {
		t.Errorf("Preview = %q", got)
	}
}
