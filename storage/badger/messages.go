package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
// Every conversation query walks conversation-created-index, whose entries
// are ordered by createdAt and then id.
type MessageRepository struct {
	backend *Backend
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) *MessageRepository {
	return &MessageRepository{backend: backend}
}

// Save upserts a message and its index entry.
func (r *MessageRepository) Save(ctx context.Context, message *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(message); err != nil {
		return nil, err
	}
	saved := message.WithDefaults(core.Now())
	if err := r.backend.PutItem(ctx, MessagesTable, messageToItem(&saved)); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a message by ID.
func (r *MessageRepository) FindByID(ctx context.Context, id core.ID) (*core.Message, error) {
	item, err := r.backend.GetItem(ctx, MessagesTable, storage.MarshalID(id))
	if err != nil || item == nil {
		return nil, err
	}
	return itemToMessage(item)
}

// FindByConversationIDOrderByCreatedAtAsc returns the whole conversation,
// oldest first.
func (r *MessageRepository) FindByConversationIDOrderByCreatedAtAsc(ctx context.Context, conversationID core.ID) ([]*core.Message, error) {
	return r.query(ctx, QueryInput{
		Index:          ConversationCreatedIndex,
		PartitionValue: storage.MarshalID(conversationID),
	})
}

// FindByConversationIDOrderByCreatedAtDesc reverse-scans the index and
// stops after pageSize messages. There is no offset.
func (r *MessageRepository) FindByConversationIDOrderByCreatedAtDesc(ctx context.Context, conversationID core.ID, pageSize int) ([]*core.Message, error) {
	return r.query(ctx, QueryInput{
		Index:          ConversationCreatedIndex,
		PartitionValue: storage.MarshalID(conversationID),
		Descending:     true,
		Limit:          storage.NormalizePageSize(pageSize),
	})
}

// FindByConversationIDAndCreatedAtBefore reverse-scans the index from the
// cursor, excluding messages created exactly at it.
func (r *MessageRepository) FindByConversationIDAndCreatedAtBefore(ctx context.Context, conversationID core.ID, cursor time.Time, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	return r.query(ctx, QueryInput{
		Index:          ConversationCreatedIndex,
		PartitionValue: storage.MarshalID(conversationID),
		SortCondition:  SortLess,
		SortValue:      storage.MarshalTime(core.CeilTime(cursor)),
		Descending:     true,
		Limit:          limit,
	})
}

// DeleteByID removes a message and its index entry.
func (r *MessageRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.backend.DeleteItem(ctx, MessagesTable, storage.MarshalID(id))
}

func (r *MessageRepository) query(ctx context.Context, in QueryInput) ([]*core.Message, error) {
	items, err := r.backend.Query(ctx, MessagesTable, in)
	if err != nil {
		return nil, err
	}
	return decodeItems(items, itemToMessage)
}
