package sqlstore

import (
	"context"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// CallSessionRepository implements storage.CallSessionRepository over the
// call_sessions table.
type CallSessionRepository struct {
	db *DB
}

var _ storage.CallSessionRepository = (*CallSessionRepository)(nil)

// Save upserts a call session.
func (r *CallSessionRepository) Save(ctx context.Context, call *core.CallSession) (*core.CallSession, error) {
	if err := core.ValidateCallSession(call); err != nil {
		return nil, err
	}
	saved := call.WithDefaults(core.Now())
	err := r.db.exec(ctx, r.db.conn,
		`INSERT INTO call_sessions (`+callColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			caller_id = excluded.caller_id,
			callee_id = excluded.callee_id,
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at`,
		saved.Id,
		saved.ConversationId,
		saved.CallerId,
		saved.CalleeId,
		string(saved.Status),
		saved.StartedAt,
		timePtrToNull(saved.EndedAt),
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a call session by ID.
func (r *CallSessionRepository) FindByID(ctx context.Context, id core.ID) (*core.CallSession, error) {
	return findOne(ctx, r.db, scanCall, `SELECT `+callColumns+` FROM call_sessions WHERE id = ?`, id)
}

// FindByConversationID returns the call sessions of a conversation.
func (r *CallSessionRepository) FindByConversationID(ctx context.Context, conversationID core.ID) ([]*core.CallSession, error) {
	return findMany(ctx, r.db, scanCall,
		`SELECT `+callColumns+` FROM call_sessions WHERE conversation_id = ? ORDER BY started_at, id`,
		conversationID)
}

// DeleteByID removes a call session.
func (r *CallSessionRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.db.exec(ctx, r.db.conn, `DELETE FROM call_sessions WHERE id = ?`, id)
}
