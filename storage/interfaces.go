// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"time"

	"github.com/poiesic/parley/core"
)

// DefaultPageSize is used when a page size of zero or less is requested.
const DefaultPageSize = 50

// UserRepository provides operations for managing users.
type UserRepository interface {
	// Save upserts a user by ID.
	// Assigns a new ID and CreatedAt if they are not set.
	// Returns the persisted user; the argument is not modified.
	Save(ctx context.Context, user *core.User) (*core.User, error)

	// FindByID retrieves a user by ID.
	// Returns nil, nil if the user doesn't exist.
	FindByID(ctx context.Context, id core.ID) (*core.User, error)

	// FindByUsername retrieves a user by username.
	// Returns nil, nil if no user has that username.
	FindByUsername(ctx context.Context, username string) (*core.User, error)

	// ExistsByUsername reports whether any user has the given username.
	// The answer is advisory: nothing stops a concurrent Save from
	// claiming the same username afterwards.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// FindAll returns every user, in no particular order.
	FindAll(ctx context.Context) ([]*core.User, error)

	// DeleteByID removes a user. Deleting a missing user is not an error.
	DeleteByID(ctx context.Context, id core.ID) error
}

// ConversationRepository provides operations for managing conversations.
type ConversationRepository interface {
	// Save upserts a conversation by ID.
	// Assigns a new ID and CreatedAt if they are not set.
	Save(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error)

	// CreateWithMembers saves a conversation and one membership per user ID.
	// Relational backends commit all rows or none. Key-value backends write
	// the conversation and each member independently, so a failure part way
	// leaves the rows written so far in place.
	CreateWithMembers(ctx context.Context, conversation *core.Conversation, memberIDs []core.ID) (*core.Conversation, []*core.ConversationMember, error)

	// FindByID retrieves a conversation by ID.
	// Returns nil, nil if the conversation doesn't exist.
	FindByID(ctx context.Context, id core.ID) (*core.Conversation, error)

	// FindAll returns every conversation, in no particular order.
	FindAll(ctx context.Context) ([]*core.Conversation, error)

	// DeleteByID removes a conversation.
	DeleteByID(ctx context.Context, id core.ID) error
}

// ConversationMemberRepository provides operations for managing memberships.
type ConversationMemberRepository interface {
	// Save upserts a membership by ID.
	// Assigns a new ID and JoinedAt if they are not set.
	Save(ctx context.Context, member *core.ConversationMember) (*core.ConversationMember, error)

	// FindByID retrieves a membership by ID.
	// Returns nil, nil if the membership doesn't exist.
	FindByID(ctx context.Context, id core.ID) (*core.ConversationMember, error)

	// FindByConversationID returns the memberships of a conversation.
	FindByConversationID(ctx context.Context, conversationID core.ID) ([]*core.ConversationMember, error)

	// FindByUserID returns the memberships of a user.
	FindByUserID(ctx context.Context, userID core.ID) ([]*core.ConversationMember, error)

	// FindByConversationIDAndUserID returns the membership linking a user
	// to a conversation. Returns nil, nil if there is none. When duplicate
	// memberships exist, the earliest by ID order is returned.
	FindByConversationIDAndUserID(ctx context.Context, conversationID, userID core.ID) (*core.ConversationMember, error)

	// DeleteByID removes a membership.
	DeleteByID(ctx context.Context, id core.ID) error

	// DeleteByConversationID removes every membership of a conversation.
	// Not atomic on key-value backends.
	DeleteByConversationID(ctx context.Context, conversationID core.ID) error
}

// MessageRepository provides operations for managing messages.
type MessageRepository interface {
	// Save upserts a message by ID.
	// Assigns a new ID and CreatedAt if they are not set.
	Save(ctx context.Context, message *core.Message) (*core.Message, error)

	// FindByID retrieves a message by ID.
	// Returns nil, nil if the message doesn't exist.
	FindByID(ctx context.Context, id core.ID) (*core.Message, error)

	// FindByConversationIDOrderByCreatedAtAsc returns all messages of a
	// conversation, oldest first.
	FindByConversationIDOrderByCreatedAtAsc(ctx context.Context, conversationID core.ID) ([]*core.Message, error)

	// FindByConversationIDOrderByCreatedAtDesc returns the pageSize most
	// recent messages of a conversation, newest first. Only the first page
	// is reachable; use FindByConversationIDAndCreatedAtBefore to continue.
	FindByConversationIDOrderByCreatedAtDesc(ctx context.Context, conversationID core.ID, pageSize int) ([]*core.Message, error)

	// FindByConversationIDAndCreatedAtBefore returns up to limit messages
	// created strictly before cursor, newest first.
	// Returns ErrInvalidQuery if limit is not positive.
	FindByConversationIDAndCreatedAtBefore(ctx context.Context, conversationID core.ID, cursor time.Time, limit int) ([]*core.Message, error)

	// DeleteByID removes a message.
	DeleteByID(ctx context.Context, id core.ID) error
}

// CallSessionRepository provides operations for managing call sessions.
type CallSessionRepository interface {
	// Save upserts a call session by ID.
	// Assigns a new ID, StartedAt and INITIATED status if they are not set.
	Save(ctx context.Context, call *core.CallSession) (*core.CallSession, error)

	// FindByID retrieves a call session by ID.
	// Returns nil, nil if the call session doesn't exist.
	FindByID(ctx context.Context, id core.ID) (*core.CallSession, error)

	// FindByConversationID returns the call sessions of a conversation.
	FindByConversationID(ctx context.Context, conversationID core.ID) ([]*core.CallSession, error)

	// DeleteByID removes a call session.
	DeleteByID(ctx context.Context, id core.ID) error
}

// Repositories bundles one repository per entity for a single backend.
type Repositories interface {
	Users() UserRepository
	Conversations() ConversationRepository
	Members() ConversationMemberRepository
	Messages() MessageRepository
	Calls() CallSessionRepository

	// Close releases the backend.
	Close() error
}

// NormalizePageSize maps non-positive page sizes to DefaultPageSize.
func NormalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	return pageSize
}
