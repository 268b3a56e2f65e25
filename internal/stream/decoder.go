// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// dataPrefix marks payload-carrying lines. Every other line is a keep-alive
// or comment and is skipped.
const dataPrefix = "data: "

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns the raw response body into a sequence of typed events.
//
// Framing: the transport delivers newline-delimited records. The reader is
// buffered, so a logical line split across two delivered chunks is
// reassembled before parsing; a trailing unterminated line at EOF is still
// decoded.
type Decoder struct {
	reader *bufio.Reader
	done   bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the next decoded event. It returns io.EOF when the transport
// is exhausted or after a terminal/fault event has been delivered.
// Malformed JSON payloads are skipped: a single corrupted frame must not
// abort the session.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}

	for {
		line, err := d.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return Event{}, err
			}
			if len(line) == 0 {
				d.done = true
				return Event{}, io.EOF
			}
			// Final line without a trailing newline: classify it, then stop.
			d.done = true
		}

		ev, ok := classify(line)
		if !ok {
			if d.done {
				return Event{}, io.EOF
			}
			continue
		}
		if ev.Terminal() {
			d.done = true
		}
		return ev, nil
	}
}

// Process reads the stream to completion, invoking callback for every event
// in delivery order. It returns nil at end of stream (including after a
// terminal or fault event) and the context error if ctx is cancelled.
func (d *Decoder) Process(ctx context.Context, callback func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		callback(ev)
		if ev.Terminal() {
			return nil
		}
	}
}

// =============================================================================
// FRAME CLASSIFICATION
// =============================================================================

// frame is the wire shape of one data payload. The server never sends more
// than one meaningful field combination, but classification follows a fixed
// priority order as the tie-break contract: error > done > image > content.
type frame struct {
	Error   string          `json:"error"`
	Done    bool            `json:"done"`
	Type    string          `json:"type"`
	Data    string          `json:"data"`
	Content json.RawMessage `json:"content"`
}

// classify parses one raw line into an event. The second return is false for
// lines to skip: keep-alives, comments, and malformed payloads.
func classify(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	var f frame
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &f); err != nil {
		return Event{}, false
	}

	switch {
	case f.Error != "":
		return Event{Kind: EventFault, Message: f.Error}, true
	case f.Done:
		return Event{Kind: EventTerminal}, true
	case f.Type == "image":
		return Event{Kind: EventArtifact, Data: f.Data}, true
	case len(f.Content) > 0:
		var content string
		if err := json.Unmarshal(f.Content, &content); err != nil {
			return Event{}, false
		}
		if content == "" {
			return Event{}, false
		}
		return Event{Kind: EventContentDelta, Content: content}, true
	default:
		return Event{}, false
	}
}
