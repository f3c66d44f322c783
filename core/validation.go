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
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidateUser checks the invariants a stored User must satisfy.
func ValidateUser(user *User) error {
	if user == nil {
		return fmt.Errorf("%w: user is nil", ErrInvalidUser)
	}

	if user.Username == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUser, ErrEmptyUsername)
	}

	fields := []struct{ name, value string }{
		{"username", user.Username},
		{"display name", user.DisplayName},
		{"password hash", user.PasswordHash},
		{"avatar url", user.AvatarURL},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %w: %s", ErrInvalidUser, ErrInvalidEncoding, f.name)
		}
	}

	if strings.IndexFunc(user.Username, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidUser, ErrInvalidUsername)
	}

	if utf8.RuneCountInString(user.Username) > MaxUsernameLength {
		return fmt.Errorf("%w: %w", ErrInvalidUser, ErrUsernameTooLong)
	}

	return nil
}

// ValidateConversation checks a Conversation before it is stored.
func ValidateConversation(conversation *Conversation) error {
	if conversation == nil {
		return fmt.Errorf("%w: conversation is nil", ErrInvalidConversation)
	}
	return nil
}

// ValidateMember checks that a membership references both sides.
func ValidateMember(member *ConversationMember) error {
	if member == nil {
		return fmt.Errorf("%w: member is nil", ErrInvalidMember)
	}

	if member.ConversationId == NilID {
		return fmt.Errorf("%w: %w: conversation", ErrInvalidMember, ErrMissingReference)
	}

	if member.UserId == NilID {
		return fmt.Errorf("%w: %w: user", ErrInvalidMember, ErrMissingReference)
	}

	return nil
}

// ValidateMessage checks references and the content bounds of a Message.
func ValidateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if message.ConversationId == NilID {
		return fmt.Errorf("%w: %w: conversation", ErrInvalidMessage, ErrMissingReference)
	}

	if message.SenderId == NilID {
		return fmt.Errorf("%w: %w: sender", ErrInvalidMessage, ErrMissingReference)
	}

	if message.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	if !utf8.ValidString(message.Content) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidEncoding)
	}

	if utf8.RuneCountInString(message.Content) > MaxContentLength {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrContentTooLong)
	}

	return nil
}

// ValidateCallSession checks references and the status of a CallSession.
// An empty status is accepted because it defaults to INITIATED on save.
func ValidateCallSession(call *CallSession) error {
	if call == nil {
		return fmt.Errorf("%w: call session is nil", ErrInvalidCallSession)
	}

	if call.ConversationId == NilID || call.CallerId == NilID || call.CalleeId == NilID {
		return fmt.Errorf("%w: %w", ErrInvalidCallSession, ErrMissingReference)
	}

	if call.Status != "" {
		if err := ValidateCallStatus(call.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCallSession, err)
		}
	}

	return nil
}

// ValidateCallStatus returns ErrInvalidCallStatus for unknown values.
func ValidateCallStatus(status CallStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: value %q", ErrInvalidCallStatus, status)
	}
	return nil
}
