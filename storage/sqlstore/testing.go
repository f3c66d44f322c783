package sqlstore

import "context"

// NewMemoryRepositories creates migrated repositories over a private
// in-memory SQLite database for testing. Caller must Close the result.
func NewMemoryRepositories(ctx context.Context) (*Repositories, error) {
	db, err := Open(ctx, string(SQLite), ":memory:")
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewRepositories(db), nil
}
