package badger

import (
	"context"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// UserRepository implements storage.UserRepository for BadgerDB.
type UserRepository struct {
	backend *Backend
}

var _ storage.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(backend *Backend) *UserRepository {
	return &UserRepository{backend: backend}
}

// Save upserts a user and its username-index entry. Usernames are not
// checked for uniqueness.
func (r *UserRepository) Save(ctx context.Context, user *core.User) (*core.User, error) {
	if err := core.ValidateUser(user); err != nil {
		return nil, err
	}
	saved := user.WithDefaults(core.Now())
	if err := r.backend.PutItem(ctx, UsersTable, userToItem(&saved)); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id core.ID) (*core.User, error) {
	item, err := r.backend.GetItem(ctx, UsersTable, storage.MarshalID(id))
	if err != nil || item == nil {
		return nil, err
	}
	return itemToUser(item)
}

// FindByUsername looks the username up in username-index.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	items, err := r.backend.Query(ctx, UsersTable, QueryInput{
		Index:          UsernameIndex,
		PartitionValue: username,
		Limit:          1,
	})
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return itemToUser(items[0])
}

// ExistsByUsername reports whether username-index has an entry for username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	items, err := r.backend.Query(ctx, UsersTable, QueryInput{
		Index:          UsernameIndex,
		PartitionValue: username,
		Limit:          1,
	})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// FindAll scans the Users table.
func (r *UserRepository) FindAll(ctx context.Context) ([]*core.User, error) {
	items, err := r.backend.Scan(ctx, UsersTable)
	if err != nil {
		return nil, err
	}
	return decodeItems(items, itemToUser)
}

// DeleteByID removes a user and its index entry.
func (r *UserRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.backend.DeleteItem(ctx, UsersTable, storage.MarshalID(id))
}

// decodeItems maps every item with decode, stopping at the first failure.
func decodeItems[T any](items []Item, decode func(Item) (*T, error)) ([]*T, error) {
	results := make([]*T, 0, len(items))
	for _, item := range items {
		v, err := decode(item)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}
