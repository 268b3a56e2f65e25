// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UNICODE: Rune-aware truncation preserves multi-byte characters.

// TruncateRunes truncates a string to a maximum number of runes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateRunesNoEllipsis truncates a string to a maximum number of runes
// without appending an ellipsis.
func TruncateRunesNoEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// TitleMaxRunes is the maximum length of an auto-derived conversation title.
const TitleMaxRunes = 50

// DeriveTitle builds a conversation title from the first user message.
// The text is trimmed, NFC-normalized, flattened to a single line, and
// truncated to TitleMaxRunes runes with an ellipsis marker when longer.
func DeriveTitle(text string) string {
	t := norm.NFC.String(strings.TrimSpace(text))
	t = strings.ReplaceAll(t, "\r", "")
	t = strings.ReplaceAll(t, "\n", " ")
	if len([]rune(t)) <= TitleMaxRunes {
		return t
	}
	return TruncateRunesNoEllipsis(t, TitleMaxRunes) + "..."
}
