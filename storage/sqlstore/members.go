package sqlstore

import (
	"context"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// MemberRepository implements storage.ConversationMemberRepository over
// the conversation_members table.
type MemberRepository struct {
	db *DB
}

var _ storage.ConversationMemberRepository = (*MemberRepository)(nil)

func insertMember(ctx context.Context, db *DB, q querier, m *core.ConversationMember) error {
	return db.exec(ctx, q,
		`INSERT INTO conversation_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			user_id = excluded.user_id,
			joined_at = excluded.joined_at,
			last_read_message_id = excluded.last_read_message_id`,
		m.Id,
		m.ConversationId,
		m.UserId,
		m.JoinedAt,
		idPtrToNull(m.LastReadMessageId),
	)
}

// Save upserts a membership.
func (r *MemberRepository) Save(ctx context.Context, member *core.ConversationMember) (*core.ConversationMember, error) {
	if err := core.ValidateMember(member); err != nil {
		return nil, err
	}
	saved := member.WithDefaults(core.Now())
	if err := insertMember(ctx, r.db, r.db.conn, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a membership by ID.
func (r *MemberRepository) FindByID(ctx context.Context, id core.ID) (*core.ConversationMember, error) {
	return findOne(ctx, r.db, scanMember, `SELECT `+memberColumns+` FROM conversation_members WHERE id = ?`, id)
}

// FindByConversationID returns the memberships of a conversation.
func (r *MemberRepository) FindByConversationID(ctx context.Context, conversationID core.ID) ([]*core.ConversationMember, error) {
	return findMany(ctx, r.db, scanMember,
		`SELECT `+memberColumns+` FROM conversation_members WHERE conversation_id = ? ORDER BY id`,
		conversationID)
}

// FindByUserID returns the memberships of a user.
func (r *MemberRepository) FindByUserID(ctx context.Context, userID core.ID) ([]*core.ConversationMember, error) {
	return findMany(ctx, r.db, scanMember,
		`SELECT `+memberColumns+` FROM conversation_members WHERE user_id = ? ORDER BY id`,
		userID)
}

// FindByConversationIDAndUserID returns the earliest membership, by ID,
// linking the user to the conversation.
func (r *MemberRepository) FindByConversationIDAndUserID(ctx context.Context, conversationID, userID core.ID) (*core.ConversationMember, error) {
	return findOne(ctx, r.db, scanMember,
		`SELECT `+memberColumns+` FROM conversation_members
		WHERE conversation_id = ? AND user_id = ? ORDER BY id LIMIT 1`,
		conversationID, userID)
}

// DeleteByID removes a membership.
func (r *MemberRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.db.exec(ctx, r.db.conn, `DELETE FROM conversation_members WHERE id = ?`, id)
}

// DeleteByConversationID removes every membership of a conversation in one
// statement.
func (r *MemberRepository) DeleteByConversationID(ctx context.Context, conversationID core.ID) error {
	return r.db.exec(ctx, r.db.conn, `DELETE FROM conversation_members WHERE conversation_id = ?`, conversationID)
}
