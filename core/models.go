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

package core

import (
	"time"

	"github.com/google/uuid"
)

// ID is an opaque 128-bit identifier shared by every entity.
type ID = uuid.UUID

// NilID is the zero ID. Entities saved with a NilID get a fresh one.
var NilID = uuid.Nil

// NewID returns a new random ID.
func NewID() ID {
	return uuid.New()
}

// ParseID parses the canonical string form of an ID.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// MaxUsernameLength and MaxContentLength bound the matching text fields.
const (
	MaxUsernameLength = 50
	MaxContentLength  = 4000
)

type User struct {
	Id           ID
	Username     string // Unique across all users
	DisplayName  string
	PasswordHash string
	AvatarURL    string
	CreatedAt    time.Time
}

type Conversation struct {
	Id        ID
	IsDirect  bool
	CreatedAt time.Time
}

// ConversationMember ties a user to a conversation.
type ConversationMember struct {
	Id                ID
	ConversationId    ID
	UserId            ID
	JoinedAt          time.Time
	LastReadMessageId *ID // nil until the member has read something
}

type Message struct {
	Id             ID
	ConversationId ID
	SenderId       ID
	Content        string
	CreatedAt      time.Time  // Assigned once, orders messages within a conversation
	EditedAt       *time.Time // nil unless the message was edited
}

// CallStatus is the lifecycle state of a CallSession.
type CallStatus string

const (
	CallStatusInitiated CallStatus = "INITIATED"
	CallStatusRinging   CallStatus = "RINGING"
	CallStatusActive    CallStatus = "ACTIVE"
	CallStatusEnded     CallStatus = "ENDED"
)

// CallStatuses lists every valid CallStatus in lifecycle order.
var CallStatuses = []CallStatus{
	CallStatusInitiated,
	CallStatusRinging,
	CallStatusActive,
	CallStatusEnded,
}

// Valid reports whether s is one of the enumerated statuses.
func (s CallStatus) Valid() bool {
	for _, known := range CallStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a call may move from s to next.
// Calls only move forward, and any live call may end.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	if !s.Valid() || !next.Valid() || s == CallStatusEnded {
		return false
	}
	if next == CallStatusEnded {
		return true
	}
	return next.rank() == s.rank()+1
}

func (s CallStatus) rank() int {
	for i, known := range CallStatuses {
		if s == known {
			return i
		}
	}
	return -1
}

type CallSession struct {
	Id             ID
	ConversationId ID
	CallerId       ID
	CalleeId       ID
	Status         CallStatus
	StartedAt      time.Time
	EndedAt        *time.Time
}
