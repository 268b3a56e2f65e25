// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller orchestrates a chat turn end to end: optimistic
// transcript inserts, one-shot title derivation, endpoint routing, stream
// consumption, and reconciliation against the storage service.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/cache"
	"github.com/jeranaias/datachat-tui/internal/stream"
	"github.com/jeranaias/datachat-tui/internal/transcript"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTitle is the placeholder title for a fresh conversation.
	// Title derivation only ever replaces this value.
	DefaultTitle = "New Conversation"

	// DefaultImagePrompt substitutes for an empty message on an image-only
	// turn so the backend always receives a question.
	DefaultImagePrompt = "What is in this image?"

	// FallbackApology is the assistant message shown when a turn fails
	// before any content arrived.
	FallbackApology = "Sorry, I encountered an error. Please try again."
)

// ErrTurnInFlight is returned by SubmitTurn while another turn is active.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Storage is the slice of the storage service the controller uses.
type Storage interface {
	CreateConversation(ctx context.Context, title string) (*api.Conversation, error)
	ListConversations(ctx context.Context) ([]api.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id int64, title string) error
	DeleteConversation(ctx context.Context, id int64) error
	ListMessages(ctx context.Context, conversationID int64) ([]api.Message, error)
	SaveMessage(ctx context.Context, conversationID int64, role, content, imageURL string, plots []string) (*api.Message, error)
	UploadImage(ctx context.Context, path string) (*api.UploadImageResponse, error)
	UploadCSV(ctx context.Context, path string) (*api.UploadCSVResponse, error)
	RegisterCSVURL(ctx context.Context, url string) (*api.UploadCSVResponse, error)
	SetMessageFeedback(ctx context.Context, messageID int64, feedback string) error
}

// Streamer is the slice of the chat service the controller uses.
type Streamer interface {
	OpenChatStream(ctx context.Context, req api.ChatStreamRequest) (io.ReadCloser, error)
	OpenAnalysisStream(ctx context.Context, req api.AnalysisStreamRequest) (io.ReadCloser, error)
	ClearAnalysis(ctx context.Context, conversationID int64) error
}

// Logger receives best-effort failure notices. Matches log.Printf.
type Logger interface {
	Printf(format string, v ...interface{})
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the streaming session state for one active conversation.
// All methods are safe for concurrent use; SubmitTurn is non-reentrant and
// rejects overlapping turns with ErrTurnInFlight.
type Controller struct {
	storage Storage
	chat    Streamer
	store   *transcript.Store
	router  *modeRouter
	cancels *cancelManager
	logger  Logger
	mirror  *cache.Mirror

	mu             sync.Mutex
	conversationID int64
	title          string
	titleDerived   bool
	inFlight       bool
	loading        bool
	streaming      bool
	notify         func()
}

// New creates a controller bound to the given service clients.
func New(storage Storage, chat Streamer) *Controller {
	return &Controller{
		storage: storage,
		chat:    chat,
		store:   transcript.NewStore(),
		router:  &modeRouter{},
		cancels: newCancelManager(),
		logger:  log.Default(),
	}
}

// SetLogger replaces the best-effort failure logger.
func (c *Controller) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetMirror attaches a local cache used as a read fallback while the
// storage service is unreachable. The mirror is refreshed after every
// successful reconciliation.
func (c *Controller) SetMirror(m *cache.Mirror) {
	c.mirror = m
}

// SetNotify registers a callback invoked after every visible state change.
// The TUI uses it to wake its render loop while a stream is in flight.
func (c *Controller) SetNotify(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

func (c *Controller) notifyChanged() {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// CancelTurn aborts the stream in flight, if any. The aborted turn settles
// through its fault path; completed content stays in the transcript.
func (c *Controller) CancelTurn() {
	c.cancels.cancel()
}

// Transcript returns the controller's message log for rendering.
func (c *Controller) Transcript() *transcript.Store {
	return c.store
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// IsLoading reports whether a turn is active, from submission until
// reconciliation or fallback completes.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// IsStreaming reports whether stream frames are currently being consumed.
func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// ActiveConversation returns the active conversation's id and title.
func (c *Controller) ActiveConversation() (int64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID, c.title
}

// AnalysisActive reports whether a dataset is attached to the session.
func (c *Controller) AnalysisActive() bool {
	path, _ := c.router.dataset()
	return path != ""
}

// DatasetLabel returns the display label of the attached dataset, or "".
func (c *Controller) DatasetLabel() string {
	_, label := c.router.dataset()
	return label
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// Bootstrap establishes the initial conversation: the most recently updated
// one when any exist, a fresh one otherwise.
func (c *Controller) Bootstrap(ctx context.Context) error {
	convs, err := c.storage.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	if len(convs) == 0 {
		return c.NewConversation(ctx)
	}
	return c.LoadConversation(ctx, convs[0].ID)
}

// NewConversation creates a fresh conversation and makes it active.
func (c *Controller) NewConversation(ctx context.Context) error {
	conv, err := c.storage.CreateConversation(ctx, DefaultTitle)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	c.cancels.cancel()
	c.clearAnalysis(ctx)
	c.store.Clear()

	c.mu.Lock()
	c.conversationID = conv.ID
	c.title = conv.Title
	c.titleDerived = false
	c.mu.Unlock()

	c.notifyChanged()
	return nil
}

// LoadConversation switches the active conversation, cancelling any stream
// in flight and replacing the transcript with the authoritative log.
func (c *Controller) LoadConversation(ctx context.Context, id int64) error {
	c.cancels.cancel()
	c.clearAnalysis(ctx)

	conv, msgs, err := c.fetchConversation(ctx, id)
	if err != nil {
		return err
	}

	c.store.ReplaceAll(msgs)

	c.mu.Lock()
	c.conversationID = conv.ID
	c.title = conv.Title
	// A non-placeholder title means derivation already ran for this
	// conversation in some earlier session.
	c.titleDerived = conv.Title != DefaultTitle
	c.mu.Unlock()

	c.notifyChanged()
	return nil
}

// DeleteConversation removes a conversation. Deleting the active one
// switches to the most recent remaining conversation, or a fresh one.
func (c *Controller) DeleteConversation(ctx context.Context, id int64) error {
	if err := c.storage.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if c.mirror != nil {
		if err := c.mirror.DeleteConversation(ctx, id); err != nil {
			c.logger.Printf("mirror delete: %v", err)
		}
	}

	c.mu.Lock()
	active := c.conversationID == id
	c.mu.Unlock()

	if !active {
		return nil
	}
	return c.Bootstrap(ctx)
}

// Conversations lists all conversations, most recently updated first. Falls
// back to the local mirror when the storage service is unreachable.
func (c *Controller) Conversations(ctx context.Context) ([]api.Conversation, error) {
	convs, err := c.storage.ListConversations(ctx)
	if err != nil && c.mirror != nil && api.IsUnreachable(err) {
		if cached, cacheErr := c.mirror.Conversations(ctx); cacheErr == nil {
			return cached, nil
		}
	}
	if err != nil {
		return nil, err
	}

	if c.mirror != nil {
		if err := c.mirror.PutConversations(ctx, convs); err != nil {
			c.logger.Printf("mirror conversations: %v", err)
		}
	}
	return convs, nil
}

func (c *Controller) fetchConversation(ctx context.Context, id int64) (*api.Conversation, []*transcript.Message, error) {
	convs, err := c.Conversations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list conversations: %w", err)
	}
	var conv *api.Conversation
	for i := range convs {
		if convs[i].ID == id {
			conv = &convs[i]
			break
		}
	}
	if conv == nil {
		return nil, nil, api.ErrNotFound
	}

	records, err := c.storage.ListMessages(ctx, id)
	if err != nil {
		if c.mirror != nil && api.IsUnreachable(err) {
			if cached, cacheErr := c.mirror.Messages(ctx, id); cacheErr == nil {
				return conv, serverMessages(cached), nil
			}
		}
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	return conv, serverMessages(records), nil
}

// =============================================================================
// TURN SUBMISSION
// =============================================================================

// TurnOptions carries optional attachments for a turn.
type TurnOptions struct {
	// ImagePath is a local image file to upload and attach.
	ImagePath string

	// ImageURL is an already-uploaded image reference. Takes precedence
	// over ImagePath.
	ImageURL string
}

// SubmitTurn runs one full turn: optimistic inserts, title derivation,
// stream consumption, and reconciliation. It blocks until the turn settles,
// so callers drive it from a goroutine and render via the notify callback.
//
// Empty input with no attachment is a no-op. A second call while a turn is
// active returns ErrTurnInFlight.
func (c *Controller) SubmitTurn(ctx context.Context, text string, opts TurnOptions) error {
	text = strings.TrimSpace(text)
	if text == "" && opts.ImagePath == "" && opts.ImageURL == "" {
		return nil
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.inFlight = true
	c.loading = true
	convID := c.conversationID
	c.mu.Unlock()
	c.notifyChanged()

	defer func() {
		c.cancels.clear()
		c.mu.Lock()
		c.inFlight = false
		c.loading = false
		c.streaming = false
		c.mu.Unlock()
		c.notifyChanged()
	}()

	imageURL := opts.ImageURL
	if imageURL == "" && opts.ImagePath != "" {
		uploaded, err := c.storage.UploadImage(ctx, opts.ImagePath)
		if err != nil {
			return fmt.Errorf("upload image: %w", err)
		}
		imageURL = uploaded.ImageURL
	}

	prompt := text
	if prompt == "" && imageURL != "" {
		prompt = DefaultImagePrompt
	}

	c.store.AppendUser(prompt, imageURL)
	c.notifyChanged()

	c.deriveTitleOnce(ctx, convID, prompt)

	// The chat service persists both sides of the turn while it streams;
	// reconciliation picks the rows up afterwards. Saving here too would
	// store every message twice.

	asstID, err := c.store.OpenAssistant()
	if err != nil {
		return err
	}
	c.notifyChanged()

	return c.runStream(ctx, convID, asstID, prompt, imageURL)
}

// deriveTitleOnce derives and pushes the conversation title from the first
// user prompt. It runs at most once per conversation; a failed push does
// not retry on later turns.
func (c *Controller) deriveTitleOnce(ctx context.Context, convID int64, prompt string) {
	c.mu.Lock()
	if c.titleDerived || convID != c.conversationID {
		c.mu.Unlock()
		return
	}
	c.titleDerived = true
	c.mu.Unlock()

	title := util.DeriveTitle(prompt)
	if title == "" {
		return
	}

	c.mu.Lock()
	c.title = title
	c.mu.Unlock()
	c.notifyChanged()

	if err := c.storage.UpdateConversationTitle(ctx, convID, title); err != nil {
		c.logger.Printf("update conversation title: %v", err)
	}
}

// runStream opens the routed endpoint, dispatches events into the
// transcript, and settles the turn.
func (c *Controller) runStream(ctx context.Context, convID int64, asstID, prompt, imageURL string) error {
	sctx, cancel := context.WithCancel(ctx)
	c.cancels.set(cancel)

	body, err := c.openStream(sctx, convID, prompt, imageURL)
	if err != nil {
		c.logger.Printf("open stream: %v", err)
		c.failTurn(asstID)
		return nil
	}
	defer body.Close()

	c.mu.Lock()
	c.streaming = true
	c.mu.Unlock()
	c.notifyChanged()

	acc := stream.NewAccumulator()
	procErr := stream.NewDecoder(body).Process(sctx, func(ev stream.Event) {
		acc.Add(ev)
		switch ev.Kind {
		case stream.EventContentDelta:
			if err := c.store.AppendDelta(asstID, ev.Content); err != nil {
				return
			}
			c.notifyChanged()
		case stream.EventArtifact:
			if err := c.store.AppendArtifact(asstID, ev.Data); err != nil {
				return
			}
			c.notifyChanged()
		}
	})

	c.mu.Lock()
	c.streaming = false
	c.mu.Unlock()

	if procErr != nil {
		// Cancelled mid-stream: the conversation switched away, its
		// transcript is gone or being replaced. Discard silently.
		if errors.Is(procErr, context.Canceled) {
			c.store.Close(asstID)
			return nil
		}
		c.logger.Printf("stream read: %v", procErr)
	}

	// Once a stream opened, a fault annotates the open message in place,
	// whatever had accumulated so far. The apology is only for turns that
	// never produced a readable stream.
	if faulted, faultMsg := acc.Faulted(); faulted || procErr != nil {
		msg := faultMsg
		if msg == "" && procErr != nil {
			msg = procErr.Error()
		}
		if err := c.store.AppendFaultNote(asstID, msg); err != nil {
			c.logger.Printf("append fault note: %v", err)
		}
		c.notifyChanged()
		return nil
	}

	// EOF before a terminal frame still settles normally, but it usually
	// means the service died mid-generation. Worth a trace.
	if !acc.Done() {
		c.logger.Printf("stream ended without a terminal frame")
	}

	if err := c.store.Close(asstID); err != nil {
		return nil // conversation switched away between frames
	}
	c.notifyChanged()

	c.settleTurn(ctx, convID, acc)
	return nil
}

// openStream routes the turn to the chat or analysis endpoint.
func (c *Controller) openStream(ctx context.Context, convID int64, prompt, imageURL string) (io.ReadCloser, error) {
	mode, csvPath := c.router.route(imageURL)
	if mode == ModeAnalysis {
		return c.chat.OpenAnalysisStream(ctx, api.AnalysisStreamRequest{
			ConversationID: convID,
			Message:        prompt,
			CSVPath:        csvPath,
		})
	}
	return c.chat.OpenChatStream(ctx, api.ChatStreamRequest{
		ConversationID: convID,
		Message:        prompt,
		ImageURL:       imageURL,
	})
}

// failTurn replaces the open placeholder with the fallback apology.
func (c *Controller) failTurn(asstID string) {
	if err := c.store.AppendDelta(asstID, FallbackApology); err != nil {
		c.logger.Printf("apply fallback: %v", err)
		return
	}
	c.store.Close(asstID)
	c.notifyChanged()
}

// settleTurn reconciles the transcript against the authoritative log,
// re-attaching captured artifacts the storage service does not echo back.
// The chat service wrote both turn messages during the stream.
func (c *Controller) settleTurn(ctx context.Context, convID int64, acc *stream.Accumulator) {
	if !c.isActiveConversation(convID) {
		return
	}

	records, err := c.storage.ListMessages(ctx, convID)
	if err != nil {
		// Keep the locally streamed transcript; it is already correct.
		c.logger.Printf("reconcile messages: %v", err)
		return
	}

	// The reload blocks; the user may have switched conversations while it
	// ran. Installing stale rows would stomp the fresh transcript.
	if !c.isActiveConversation(convID) {
		return
	}

	c.store.ReplaceAll(serverMessages(records))
	c.store.AttachPlots(acc.Artifacts())
	c.notifyChanged()

	if c.mirror != nil {
		if err := c.mirror.PutMessages(ctx, convID, records); err != nil {
			c.logger.Printf("mirror messages: %v", err)
		}
	}
}

func (c *Controller) isActiveConversation(convID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return convID == c.conversationID
}

// serverMessages converts storage records into transcript messages.
func serverMessages(records []api.Message) []*transcript.Message {
	msgs := make([]*transcript.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, transcript.NewServerMessage(
			r.ID,
			transcript.Role(r.Role),
			r.Content,
			r.ImageURL,
			r.Plots,
			transcript.Feedback(r.Feedback),
			r.Timestamp,
		))
	}
	return msgs
}
