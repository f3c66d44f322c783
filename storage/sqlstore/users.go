package sqlstore

import (
	"context"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// UserRepository implements storage.UserRepository over the users table.
type UserRepository struct {
	db *DB
}

var _ storage.UserRepository = (*UserRepository)(nil)

// Save upserts a user. A username already held by another user fails
// with storage.ErrDuplicateKey.
func (r *UserRepository) Save(ctx context.Context, user *core.User) (*core.User, error) {
	if err := core.ValidateUser(user); err != nil {
		return nil, err
	}
	saved := user.WithDefaults(core.Now())
	err := r.db.exec(ctx, r.db.conn,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			password_hash = excluded.password_hash,
			avatar_url = excluded.avatar_url,
			created_at = excluded.created_at`,
		saved.Id,
		saved.Username,
		stringToNull(saved.DisplayName),
		stringToNull(saved.PasswordHash),
		stringToNull(saved.AvatarURL),
		saved.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id core.ID) (*core.User, error) {
	return findOne(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// FindByUsername retrieves a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	return findOne(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// ExistsByUsername reports whether a user has the given username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.conn.QueryRowContext(ctx,
		r.db.dialect.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`),
		username,
	).Scan(&exists)
	if err != nil {
		return false, r.db.mapError(err)
	}
	return exists, nil
}

// FindAll returns every user.
func (r *UserRepository) FindAll(ctx context.Context) ([]*core.User, error) {
	return findMany(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users`)
}

// DeleteByID removes a user.
func (r *UserRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.db.exec(ctx, r.db.conn, `DELETE FROM users WHERE id = ?`, id)
}
