package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// ConversationRepository implements storage.ConversationRepository over
// the conversations table.
type ConversationRepository struct {
	db *DB
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

const upsertConversation = `INSERT INTO conversations (` + conversationColumns + `) VALUES (?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		is_direct = excluded.is_direct,
		created_at = excluded.created_at`

// Save upserts a conversation.
func (r *ConversationRepository) Save(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error) {
	if err := core.ValidateConversation(conversation); err != nil {
		return nil, err
	}
	saved := conversation.WithDefaults(core.Now())
	if err := r.db.exec(ctx, r.db.conn, upsertConversation, saved.Id, saved.IsDirect, saved.CreatedAt); err != nil {
		return nil, err
	}
	return &saved, nil
}

// CreateWithMembers inserts the conversation and its members in one
// transaction. Either every row commits or none does.
func (r *ConversationRepository) CreateWithMembers(ctx context.Context, conversation *core.Conversation, memberIDs []core.ID) (*core.Conversation, []*core.ConversationMember, error) {
	if err := core.ValidateConversation(conversation); err != nil {
		return nil, nil, err
	}
	now := core.Now()
	saved := conversation.WithDefaults(now)
	members := make([]*core.ConversationMember, 0, len(memberIDs))

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.db.exec(ctx, tx, upsertConversation, saved.Id, saved.IsDirect, saved.CreatedAt); err != nil {
			return err
		}
		for i, userID := range memberIDs {
			member := core.ConversationMember{ConversationId: saved.Id, UserId: userID, JoinedAt: now}.WithDefaults(now)
			if err := core.ValidateMember(&member); err != nil {
				return fmt.Errorf("adding member %d of %d: %w", i+1, len(memberIDs), err)
			}
			if err := insertMember(ctx, r.db, tx, &member); err != nil {
				return fmt.Errorf("adding member %d of %d: %w", i+1, len(memberIDs), err)
			}
			members = append(members, &member)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &saved, members, nil
}

// FindByID retrieves a conversation by ID.
func (r *ConversationRepository) FindByID(ctx context.Context, id core.ID) (*core.Conversation, error) {
	return findOne(ctx, r.db, scanConversation, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
}

// FindAll returns every conversation.
func (r *ConversationRepository) FindAll(ctx context.Context) ([]*core.Conversation, error) {
	return findMany(ctx, r.db, scanConversation, `SELECT `+conversationColumns+` FROM conversations`)
}

// DeleteByID removes a conversation. Its members, messages and call
// sessions go with it through ON DELETE CASCADE.
func (r *ConversationRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.db.exec(ctx, r.db.conn, `DELETE FROM conversations WHERE id = ?`, id)
}
