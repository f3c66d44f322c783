package badger

import (
	"context"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// CallSessionRepository implements storage.CallSessionRepository for
// BadgerDB.
type CallSessionRepository struct {
	backend *Backend
}

var _ storage.CallSessionRepository = (*CallSessionRepository)(nil)

// NewCallSessionRepository creates a new CallSessionRepository.
func NewCallSessionRepository(backend *Backend) *CallSessionRepository {
	return &CallSessionRepository{backend: backend}
}

// Save upserts a call session and its conversation-index entry.
func (r *CallSessionRepository) Save(ctx context.Context, call *core.CallSession) (*core.CallSession, error) {
	if err := core.ValidateCallSession(call); err != nil {
		return nil, err
	}
	saved := call.WithDefaults(core.Now())
	if err := r.backend.PutItem(ctx, CallSessionsTable, callToItem(&saved)); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a call session by ID.
func (r *CallSessionRepository) FindByID(ctx context.Context, id core.ID) (*core.CallSession, error) {
	item, err := r.backend.GetItem(ctx, CallSessionsTable, storage.MarshalID(id))
	if err != nil || item == nil {
		return nil, err
	}
	return itemToCall(item)
}

// FindByConversationID queries conversation-index.
func (r *CallSessionRepository) FindByConversationID(ctx context.Context, conversationID core.ID) ([]*core.CallSession, error) {
	items, err := r.backend.Query(ctx, CallSessionsTable, QueryInput{
		Index:          ConversationIndex,
		PartitionValue: storage.MarshalID(conversationID),
	})
	if err != nil {
		return nil, err
	}
	return decodeItems(items, itemToCall)
}

// DeleteByID removes a call session and its index entry.
func (r *CallSessionRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.backend.DeleteItem(ctx, CallSessionsTable, storage.MarshalID(id))
}
