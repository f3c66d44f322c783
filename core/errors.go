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

import "errors"

var (
	// ErrInvalidUser indicates a User failed validation.
	ErrInvalidUser = errors.New("invalid user")

	// ErrInvalidConversation indicates a Conversation failed validation.
	ErrInvalidConversation = errors.New("invalid conversation")

	// ErrInvalidMember indicates a ConversationMember failed validation.
	ErrInvalidMember = errors.New("invalid conversation member")

	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidCallSession indicates a CallSession failed validation.
	ErrInvalidCallSession = errors.New("invalid call session")

	// ErrEmptyUsername indicates the Username field is empty.
	ErrEmptyUsername = errors.New("username cannot be empty")

	// ErrUsernameTooLong indicates the Username exceeds MaxUsernameLength.
	ErrUsernameTooLong = errors.New("username too long")

	// ErrInvalidUsername indicates a Username with control characters.
	ErrInvalidUsername = errors.New("username contains control characters")

	// ErrInvalidEncoding indicates a text field that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("text is not valid UTF-8")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooLong indicates the Content exceeds MaxContentLength.
	ErrContentTooLong = errors.New("content too long")

	// ErrMissingReference indicates a required foreign id is nil.
	ErrMissingReference = errors.New("missing reference id")

	// ErrInvalidCallStatus indicates a status outside the enumerated values.
	ErrInvalidCallStatus = errors.New("invalid call status")

	// ErrInvalidTransition indicates a call status change that is not allowed.
	ErrInvalidTransition = errors.New("invalid call status transition")
)
