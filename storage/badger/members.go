package badger

import (
	"context"
	"fmt"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// MemberRepository implements storage.ConversationMemberRepository for
// BadgerDB.
type MemberRepository struct {
	backend *Backend
}

var _ storage.ConversationMemberRepository = (*MemberRepository)(nil)

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(backend *Backend) *MemberRepository {
	return &MemberRepository{backend: backend}
}

// Save upserts a membership and its three index entries. A second
// membership for the same conversation and user is not rejected.
func (r *MemberRepository) Save(ctx context.Context, member *core.ConversationMember) (*core.ConversationMember, error) {
	if err := core.ValidateMember(member); err != nil {
		return nil, err
	}
	saved := member.WithDefaults(core.Now())
	if err := r.backend.PutItem(ctx, ConversationMembersTable, memberToItem(&saved)); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a membership by ID.
func (r *MemberRepository) FindByID(ctx context.Context, id core.ID) (*core.ConversationMember, error) {
	item, err := r.backend.GetItem(ctx, ConversationMembersTable, storage.MarshalID(id))
	if err != nil || item == nil {
		return nil, err
	}
	return itemToMember(item)
}

// FindByConversationID queries conversation-index.
func (r *MemberRepository) FindByConversationID(ctx context.Context, conversationID core.ID) ([]*core.ConversationMember, error) {
	return r.query(ctx, QueryInput{
		Index:          ConversationIndex,
		PartitionValue: storage.MarshalID(conversationID),
	})
}

// FindByUserID queries user-index.
func (r *MemberRepository) FindByUserID(ctx context.Context, userID core.ID) ([]*core.ConversationMember, error) {
	return r.query(ctx, QueryInput{
		Index:          UserIndex,
		PartitionValue: storage.MarshalID(userID),
	})
}

// FindByConversationIDAndUserID queries conversation-user-index.
func (r *MemberRepository) FindByConversationIDAndUserID(ctx context.Context, conversationID, userID core.ID) (*core.ConversationMember, error) {
	members, err := r.query(ctx, QueryInput{
		Index:          ConversationUserIndex,
		PartitionValue: storage.MarshalID(conversationID),
		SortCondition:  SortEqual,
		SortValue:      storage.MarshalID(userID),
		Limit:          1,
	})
	if err != nil || len(members) == 0 {
		return nil, err
	}
	return members[0], nil
}

// DeleteByID removes a membership and its index entries.
func (r *MemberRepository) DeleteByID(ctx context.Context, id core.ID) error {
	return r.backend.DeleteItem(ctx, ConversationMembersTable, storage.MarshalID(id))
}

// DeleteByConversationID lists the memberships through conversation-index
// and deletes them one at a time. A failure stops the loop; members deleted
// before it stay deleted.
func (r *MemberRepository) DeleteByConversationID(ctx context.Context, conversationID core.ID) error {
	members, err := r.FindByConversationID(ctx, conversationID)
	if err != nil {
		return err
	}
	for i, member := range members {
		if err := r.DeleteByID(ctx, member.Id); err != nil {
			return fmt.Errorf("deleting member %d of %d: %w", i+1, len(members), err)
		}
	}
	return nil
}

func (r *MemberRepository) query(ctx context.Context, in QueryInput) ([]*core.ConversationMember, error) {
	items, err := r.backend.Query(ctx, ConversationMembersTable, in)
	if err != nil {
		return nil, err
	}
	return decodeItems(items, itemToMember)
}
