package chat

import (
	"context"
	"fmt"

	"github.com/poiesic/parley/core"
)

// CreateConversation creates a conversation and adds every distinct user in
// memberIDs to it. A direct conversation needs exactly two distinct users.
func (s *Service) CreateConversation(ctx context.Context, direct bool, memberIDs []core.ID) (*core.Conversation, []*core.ConversationMember, error) {
	ids := dedupeIDs(memberIDs)
	if direct && len(ids) != 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrDirectConversation, len(ids))
	}
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if user == nil {
			return nil, nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
	}

	conversation, members, err := s.conversations.CreateWithMembers(ctx, &core.Conversation{IsDirect: direct}, ids)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("conversation created", "conversation", conversation.Id, "members", len(members))
	return conversation, members, nil
}

// ListMemberships returns the memberships of a user.
func (s *Service) ListMemberships(ctx context.Context, userID core.ID) ([]*core.ConversationMember, error) {
	return s.members.FindByUserID(ctx, userID)
}

// ListConversations returns the conversations a user belongs to. A
// membership whose conversation no longer exists is skipped.
func (s *Service) ListConversations(ctx context.Context, userID core.ID) ([]*core.Conversation, error) {
	memberships, err := s.members.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[core.ID]bool, len(memberships))
	conversations := make([]*core.Conversation, 0, len(memberships))
	for _, m := range memberships {
		if seen[m.ConversationId] {
			continue
		}
		seen[m.ConversationId] = true
		c, err := s.conversations.FindByID(ctx, m.ConversationId)
		if err != nil {
			return nil, err
		}
		if c == nil {
			s.logger.Debug("membership references missing conversation", "member", m.Id, "conversation", m.ConversationId)
			continue
		}
		conversations = append(conversations, c)
	}
	return conversations, nil
}

// DeleteConversation removes a conversation with its messages, calls and
// members, in that order, so a failure part way leaves the conversation in
// place to retry. Backend cascades are not relied on.
func (s *Service) DeleteConversation(ctx context.Context, conversationID core.ID) error {
	messages, err := s.messages.FindByConversationIDOrderByCreatedAtAsc(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("listing messages of %s: %w", conversationID, err)
	}
	for _, m := range messages {
		if err := s.messages.DeleteByID(ctx, m.Id); err != nil {
			return fmt.Errorf("deleting message %s: %w", m.Id, err)
		}
	}

	calls, err := s.calls.FindByConversationID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("listing calls of %s: %w", conversationID, err)
	}
	for _, c := range calls {
		if err := s.calls.DeleteByID(ctx, c.Id); err != nil {
			return fmt.Errorf("deleting call %s: %w", c.Id, err)
		}
	}

	if err := s.members.DeleteByConversationID(ctx, conversationID); err != nil {
		return fmt.Errorf("deleting members of %s: %w", conversationID, err)
	}
	if err := s.conversations.DeleteByID(ctx, conversationID); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", conversationID, err)
	}
	s.logger.Info("conversation deleted",
		"conversation", conversationID,
		"messages", len(messages),
		"calls", len(calls))
	return nil
}

// requireMember returns the membership of userID in conversationID, or
// ErrNotMember.
func (s *Service) requireMember(ctx context.Context, conversationID, userID core.ID) (*core.ConversationMember, error) {
	m, err := s.members.FindByConversationIDAndUserID(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: user %s, conversation %s", ErrNotMember, userID, conversationID)
	}
	return m, nil
}

func dedupeIDs(ids []core.ID) []core.ID {
	seen := make(map[core.ID]bool, len(ids))
	out := make([]core.ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
