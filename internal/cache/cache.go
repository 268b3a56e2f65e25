// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache maintains a local SQLite mirror of conversations and
// messages so the client can show history while the storage service is
// unreachable. The mirror is written after every successful reconciliation
// and read only as a fallback.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/datachat-tui/internal/api"
)

// ErrNotMirrored is returned when the mirror has no data for a request.
var ErrNotMirrored = errors.New("not in local mirror")

// =============================================================================
// MIRROR
// =============================================================================

// Mirror is the local conversation mirror. Safe for concurrent use; SQLite
// serializes writers, so the pool is capped at a single connection.
type Mirror struct {
	db *sql.DB
}

// Open opens (or creates) the mirror database at path.
func Open(path string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	m := &Mirror{db: db}
	if err := m.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the mirror database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

func (m *Mirror) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY,
		conversation_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		plots TEXT NOT NULL DEFAULT '[]',
		feedback TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, id);
	`
	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// PutConversations replaces the mirrored conversation list.
func (m *Mirror) PutConversations(ctx context.Context, convs []api.Conversation) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, conv := range convs {
		_, err := stmt.ExecContext(ctx, conv.ID, conv.Title,
			conv.CreatedAt.UTC().Format(time.RFC3339), conv.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert conversation %d: %w", conv.ID, err)
		}
	}
	return tx.Commit()
}

// PutMessages replaces a conversation's mirrored message log.
func (m *Mirror) PutMessages(ctx context.Context, conversationID int64, msgs []api.Message) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, image_url, plots, feedback, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, msg := range msgs {
		plots, err := json.Marshal(msg.Plots)
		if err != nil {
			return fmt.Errorf("encode plots: %w", err)
		}
		_, err = stmt.ExecContext(ctx, msg.ID, conversationID, msg.Role, msg.Content,
			msg.ImageURL, string(plots), msg.Feedback, msg.Timestamp.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert message %d: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteConversation removes a conversation and its messages from the mirror.
func (m *Mirror) DeleteConversation(ctx context.Context, id int64) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	// The foreign key cascade is belt-and-braces; delete explicitly in case
	// the database predates the schema with cascade enabled.
	if _, err := m.db.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Conversations returns the mirrored conversation list, most recently
// updated first.
func (m *Mirror) Conversations(ctx context.Context) ([]api.Conversation, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []api.Conversation
	for rows.Next() {
		var conv api.Conversation
		var created, updated string
		if err := rows.Scan(&conv.ID, &conv.Title, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.CreatedAt, _ = time.Parse(time.RFC3339, created)
		conv.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, ErrNotMirrored
	}
	return convs, nil
}

// Messages returns a conversation's mirrored messages in insertion order.
func (m *Mirror) Messages(ctx context.Context, conversationID int64) ([]api.Message, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, role, content, image_url, plots, feedback, timestamp
		FROM messages WHERE conversation_id = ? ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []api.Message
	for rows.Next() {
		var msg api.Message
		var plots, ts string
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.ImageURL, &plots, &msg.Feedback, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ConversationID = conversationID
		if err := json.Unmarshal([]byte(plots), &msg.Plots); err != nil {
			msg.Plots = nil
		}
		msg.Timestamp, _ = time.Parse(time.RFC3339, ts)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNotMirrored
	}
	return msgs, nil
}
