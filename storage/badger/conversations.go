package badger

import (
	"context"
	"fmt"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// ConversationRepository implements storage.ConversationRepository for
// BadgerDB.
type ConversationRepository struct {
	backend *Backend
	members *MemberRepository
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository. Members
// created by CreateWithMembers are written through members.
func NewConversationRepository(backend *Backend, members *MemberRepository) *ConversationRepository {
	return &ConversationRepository{backend: backend, members: members}
}

// Save upserts a conversation.
func (r *ConversationRepository) Save(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error) {
	if err := core.ValidateConversation(conversation); err != nil {
		return nil, err
	}
	saved := conversation.WithDefaults(core.Now())
	if err := r.backend.PutItem(ctx, ConversationsTable, conversationToItem(&saved)); err != nil {
		return nil, err
	}
	return &saved, nil
}

// CreateWithMembers writes the conversation, then one membership per user
// in order. Nothing is undone if a write fails: the conversation and the
// members written before the failure stay in place.
func (r *ConversationRepository) CreateWithMembers(ctx context.Context, conversation *core.Conversation, memberIDs []core.ID) (*core.Conversation, []*core.ConversationMember, error) {
	saved, err := r.Save(ctx, conversation)
	if err != nil {
		return nil, nil, err
	}

	now := core.Now()
	members := make([]*core.ConversationMember, 0, len(memberIDs))
	for i, userID := range memberIDs {
		member, err := r.members.Save(ctx, &core.ConversationMember{
			ConversationId: saved.Id,
			UserId:         userID,
			JoinedAt:       now,
		})
		if err != nil {
			r.backend.logger.Warn("conversation left with partial member set",
				"conversation", saved.Id, "written", i, "requested", len(memberIDs), "error", err)
			return nil, nil, fmt.Errorf("adding member %d of %d: %w", i+1, len(memberIDs), err)
		}
		members = append(members, member)
	}
	return saved, members, nil
}

// FindByID retrieves a conversation by ID.
func (r *ConversationRepository) FindByID(ctx context.Context, id core.ID) (*core.Conversation, error) {
	item, err := r.backend.GetItem(ctx, ConversationsTable, storage.MarshalID(id))
	if err != nil || item == nil {
		return nil, err
	}
	return itemToConversation(item)
}

// FindAll scans the Conversations table.
func (r *ConversationRepository) FindAll(ctx context.Context) ([]*core.Conversation, error) {
	items, err := r.backend.Scan(ctx, ConversationsTable)
	if err != nil {
		return nil, err
	}
	return decodeItems(items, itemToConversation)
}

// DeleteByID removes the conversation item only. Its memberships are not
// touched; use MemberRepository.DeleteByConversationID first.
func (r *ConversationRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.backend.DeleteItem(ctx, ConversationsTable, storage.MarshalID(id))
}
