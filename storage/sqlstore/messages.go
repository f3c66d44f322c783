package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// MessageRepository implements storage.MessageRepository over the
// messages table. Ties on created_at are ordered by id.
type MessageRepository struct {
	db *DB
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// Save upserts a message.
func (r *MessageRepository) Save(ctx context.Context, message *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(message); err != nil {
		return nil, err
	}
	saved := message.WithDefaults(core.Now())
	err := r.db.exec(ctx, r.db.conn,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			sender_id = excluded.sender_id,
			content = excluded.content,
			created_at = excluded.created_at,
			edited_at = excluded.edited_at`,
		saved.Id,
		saved.ConversationId,
		saved.SenderId,
		saved.Content,
		saved.CreatedAt,
		timePtrToNull(saved.EditedAt),
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a message by ID.
func (r *MessageRepository) FindByID(ctx context.Context, id core.ID) (*core.Message, error) {
	return findOne(ctx, r.db, scanMessage, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
}

// FindByConversationIDOrderByCreatedAtAsc returns a conversation's
// messages, oldest first.
func (r *MessageRepository) FindByConversationIDOrderByCreatedAtAsc(ctx context.Context, conversationID core.ID) ([]*core.Message, error) {
	return findMany(ctx, r.db, scanMessage,
		`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`,
		conversationID)
}

// FindByConversationIDOrderByCreatedAtDesc returns the newest pageSize
// messages.
func (r *MessageRepository) FindByConversationIDOrderByCreatedAtDesc(ctx context.Context, conversationID core.ID, pageSize int) ([]*core.Message, error) {
	return r.FindByConversationIDPage(ctx, conversationID, 0, pageSize)
}

// FindByConversationIDPage returns page number page (from 0) of a
// conversation, newest first. Offsets are only available on this backend.
func (r *MessageRepository) FindByConversationIDPage(ctx context.Context, conversationID core.ID, page, pageSize int) ([]*core.Message, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: negative page %d", storage.ErrInvalidQuery, page)
	}
	pageSize = storage.NormalizePageSize(pageSize)
	return findMany(ctx, r.db, scanMessage,
		`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		conversationID, pageSize, page*pageSize)
}

// FindByConversationIDAndCreatedAtBefore returns up to limit messages
// created strictly before cursor, newest first.
func (r *MessageRepository) FindByConversationIDAndCreatedAtBefore(ctx context.Context, conversationID core.ID, cursor time.Time, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	return findMany(ctx, r.db, scanMessage,
		`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? AND created_at < ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		conversationID, core.CeilTime(cursor), limit)
}

// DeleteByID removes a message.
func (r *MessageRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.db.exec(ctx, r.db.conn, `DELETE FROM messages WHERE id = ?`, id)
}
