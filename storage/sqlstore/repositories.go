package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/poiesic/parley/storage"
)

// Repositories bundles the relational repositories over one DB.
type Repositories struct {
	db            *DB
	users         *UserRepository
	conversations *ConversationRepository
	members       *MemberRepository
	messages      *MessageRepository
	calls         *CallSessionRepository
}

var _ storage.Repositories = (*Repositories)(nil)

// NewRepositories creates every repository over db. The schema must
// already exist; see DB.Migrate.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		db:            db,
		users:         &UserRepository{db: db},
		conversations: &ConversationRepository{db: db},
		members:       &MemberRepository{db: db},
		messages:      &MessageRepository{db: db},
		calls:         &CallSessionRepository{db: db},
	}
}

func (r *Repositories) Users() storage.UserRepository                 { return r.users }
func (r *Repositories) Conversations() storage.ConversationRepository { return r.conversations }
func (r *Repositories) Members() storage.ConversationMemberRepository { return r.members }
func (r *Repositories) Messages() storage.MessageRepository           { return r.messages }
func (r *Repositories) Calls() storage.CallSessionRepository          { return r.calls }

// DB returns the underlying connection.
func (r *Repositories) DB() *DB {
	return r.db
}

// Close closes the connection pool.
func (r *Repositories) Close() error {
	return r.db.Close()
}

// findOne runs a single-row query. No row is nil, nil.
func findOne[T any](ctx context.Context, db *DB, scan func(scanner) (*T, error), query string, args ...any) (*T, error) {
	v, err := scan(db.conn.QueryRowContext(ctx, db.dialect.Rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.mapError(err)
	}
	return v, nil
}

// findMany runs a multi-row query.
func findMany[T any](ctx context.Context, db *DB, scan func(scanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := db.conn.QueryContext(ctx, db.dialect.Rebind(query), args...)
	if err != nil {
		return nil, db.mapError(err)
	}
	results, err := scanAll(rows, scan)
	if err != nil {
		return nil, db.mapError(err)
	}
	return results, nil
}
