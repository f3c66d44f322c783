package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/parley/core"
)

// SendMessage stores a message from a member of the conversation.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID core.ID, content string) (*core.Message, error) {
	if _, err := s.requireMember(ctx, conversationID, senderID); err != nil {
		return nil, err
	}
	return s.messages.Save(ctx, &core.Message{
		ConversationId: conversationID,
		SenderId:       senderID,
		Content:        content,
	})
}

// History returns up to limit messages of a conversation, newest first.
// With a nil before it returns the latest page; otherwise the messages
// created strictly before that time.
func (s *Service) History(ctx context.Context, conversationID core.ID, before *time.Time, limit int) ([]*core.Message, error) {
	if before == nil {
		return s.messages.FindByConversationIDOrderByCreatedAtDesc(ctx, conversationID, limit)
	}
	return s.messages.FindByConversationIDAndCreatedAtBefore(ctx, conversationID, *before, limit)
}

// EditMessage replaces the content of a message and stamps EditedAt. Only
// the sender may edit.
func (s *Service) EditMessage(ctx context.Context, messageID, editorID core.ID, content string) (*core.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if msg.SenderId != editorID {
		return nil, fmt.Errorf("%w: message %s", ErrNotSender, messageID)
	}
	now := core.Now()
	msg.Content = content
	msg.EditedAt = &now
	return s.messages.Save(ctx, msg)
}

// MarkRead records messageID as the last message userID has read in the
// message's conversation.
func (s *Service) MarkRead(ctx context.Context, userID, messageID core.ID) (*core.ConversationMember, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	member, err := s.requireMember(ctx, msg.ConversationId, userID)
	if err != nil {
		return nil, err
	}
	id := msg.Id
	member.LastReadMessageId = &id
	return s.members.Save(ctx, member)
}
