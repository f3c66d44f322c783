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

package chat

import "errors"

var (
	// ErrUsernameTaken is returned by Register when the username is in use.
	ErrUsernameTaken = errors.New("username taken")

	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmptyPassword is returned by Register for an empty password.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotMember is returned when a user acts on a conversation they do
	// not belong to.
	ErrNotMember = errors.New("not a member of the conversation")

	// ErrNotSender is returned when a user edits someone else's message.
	ErrNotSender = errors.New("not the sender of the message")

	// ErrDirectConversation is returned when a direct conversation does not
	// have exactly two distinct members.
	ErrDirectConversation = errors.New("direct conversations have exactly two members")
)
