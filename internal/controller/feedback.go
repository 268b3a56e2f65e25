// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"

	"github.com/jeranaias/datachat-tui/internal/transcript"
)

// =============================================================================
// FEEDBACK TRACKING
// =============================================================================

// ToggleFeedback applies like/dislike toggle semantics to an assistant
// message: the same value clears it, a different value overwrites it. The
// local transcript updates optimistically; the storage push is best-effort
// and never rolls the local state back.
//
// Returns the resulting feedback value and whether a change applied. User
// messages and unknown ids are rejected with (none, false).
func (c *Controller) ToggleFeedback(ctx context.Context, messageID string, fb transcript.Feedback) (transcript.Feedback, bool) {
	result, ok := c.store.ToggleFeedback(messageID, fb)
	if !ok {
		return result, false
	}
	c.notifyChanged()

	msg := c.store.Get(messageID)
	if msg == nil || msg.ServerID == 0 {
		// Optimistic-only entry: nothing to push until reconciliation
		// assigns a server id.
		return result, true
	}

	if err := c.storage.SetMessageFeedback(ctx, msg.ServerID, string(result)); err != nil {
		c.logger.Printf("push feedback: %v", err)
	}
	return result, true
}
