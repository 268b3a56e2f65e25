// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkedReader delivers its payload in fixed-size chunks to simulate a
// network transport splitting logical lines across reads.
type chunkedReader struct {
	data  string
	pos   int
	chunk int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.chunk
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func collect(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var events []Event
	if err := d.Process(context.Background(), func(ev Event) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return events
}

func TestDecoder_ContentDeltas(t *testing.T) {
	input := "data: {\"content\":\"Hi\"}\n" +
		"data: {\"content\":\" there\"}\n" +
		"data: {\"content\":\"\",\"done\":true}\n"

	events := collect(t, NewDecoder(strings.NewReader(input)))

	if len(events) != 3 {
		t.Fatalf("event count = %d, want 3", len(events))
	}
	if events[0].Kind != EventContentDelta || events[0].Content != "Hi" {
		t.Errorf("events[0] = %+v, want content-delta %q", events[0], "Hi")
	}
	if events[1].Kind != EventContentDelta || events[1].Content != " there" {
		t.Errorf("events[1] = %+v, want content-delta %q", events[1], " there")
	}
	if events[2].Kind != EventTerminal {
		t.Errorf("events[2].Kind = %v, want terminal", events[2].Kind)
	}
}

func TestDecoder_LineSplitAcrossReads(t *testing.T) {
	// 3-byte chunks guarantee every line is split across multiple reads.
	input := "data: {\"content\":\"Hello\"}\n" +
		"data: {\"content\":\" world\"}\n" +
		"data: {\"done\":true}\n"
	d := NewDecoder(&chunkedReader{data: input, chunk: 3})

	acc := NewAccumulator()
	var content strings.Builder
	for _, ev := range collect(t, d) {
		acc.Add(ev)
		if ev.Kind == EventContentDelta {
			content.WriteString(ev.Content)
		}
	}

	if got := content.String(); got != "Hello world" {
		t.Errorf("reassembled content = %q, want %q", got, "Hello world")
	}
	if !acc.Done() {
		t.Error("accumulator should be done")
	}
}

func TestDecoder_SkipsKeepAliveAndMalformed(t *testing.T) {
	input := ": keep-alive\n" +
		"\n" +
		"data: {not json}\n" +
		"event: noise\n" +
		"data: {\"content\":\"ok\"}\n" +
		"data: {\"done\":true}\n"

	events := collect(t, NewDecoder(strings.NewReader(input)))

	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	if events[0].Content != "ok" {
		t.Errorf("events[0].Content = %q, want %q", events[0].Content, "ok")
	}
}

func TestDecoder_ClassificationPriority(t *testing.T) {
	tests := []struct {
		name string
		line string
		want EventKind
	}{
		{"error beats done", `data: {"error":"boom","done":true}`, EventFault},
		{"error beats content", `data: {"error":"boom","content":"x"}`, EventFault},
		{"done beats image", `data: {"done":true,"type":"image","data":"zz"}`, EventTerminal},
		{"image beats content", `data: {"type":"image","data":"zz","content":"x"}`, EventArtifact},
		{"plain content", `data: {"content":"x"}`, EventContentDelta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := classify(tt.line + "\n")
			if !ok {
				t.Fatalf("classify(%q) skipped", tt.line)
			}
			if ev.Kind != tt.want {
				t.Errorf("classify(%q).Kind = %v, want %v", tt.line, ev.Kind, tt.want)
			}
		})
	}
}

func TestDecoder_FaultCarriesMessage(t *testing.T) {
	input := "data: {\"content\":\"partial\"}\n" +
		"data: {\"error\":\"model unavailable\",\"done\":true}\n" +
		"data: {\"content\":\"never seen\"}\n"

	events := collect(t, NewDecoder(strings.NewReader(input)))

	// Decoding stops at the fault; the trailing delta is never delivered.
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	last := events[len(events)-1]
	if last.Kind != EventFault {
		t.Fatalf("last.Kind = %v, want fault", last.Kind)
	}
	if last.Message != "model unavailable" {
		t.Errorf("fault message = %q, want %q", last.Message, "model unavailable")
	}
}

func TestDecoder_ArtifactThenDone(t *testing.T) {
	input := "data: {\"type\":\"image\",\"data\":\"aGVsbG8=\"}\n" +
		"data: {\"done\":true}\n"

	acc := NewAccumulator()
	for _, ev := range collect(t, NewDecoder(strings.NewReader(input))) {
		acc.Add(ev)
	}

	if len(acc.Artifacts()) != 1 {
		t.Fatalf("artifact count = %d, want 1", len(acc.Artifacts()))
	}
	if acc.Artifacts()[0] != "aGVsbG8=" {
		t.Errorf("artifact = %q, want %q", acc.Artifacts()[0], "aGVsbG8=")
	}
}

func TestDecoder_FinalLineWithoutNewline(t *testing.T) {
	// EOF mid-line: the trailing record is still classified.
	input := "data: {\"content\":\"tail\"}"

	events := collect(t, NewDecoder(strings.NewReader(input)))

	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	if events[0].Content != "tail" {
		t.Errorf("events[0].Content = %q, want %q", events[0].Content, "tail")
	}
}

func TestDecoder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(strings.NewReader("data: {\"content\":\"x\"}\n"))
	err := d.Process(ctx, func(Event) {})
	if err != context.Canceled {
		t.Errorf("Process err = %v, want context.Canceled", err)
	}
}

func TestAccumulator_IgnoresEventsAfterTerminal(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Event{Kind: EventArtifact, Data: "a"})
	acc.Add(Event{Kind: EventTerminal})
	acc.Add(Event{Kind: EventArtifact, Data: "b"})

	if got := acc.Artifacts(); len(got) != 1 || got[0] != "a" {
		t.Errorf("artifacts = %v, want [a]", got)
	}
}
