package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name    string
		user    *User
		wantErr error
	}{
		{
			name:    "valid user",
			user:    &User{Username: "alice", DisplayName: "Alice"},
			wantErr: nil,
		},
		{
			name:    "nil user",
			user:    nil,
			wantErr: ErrInvalidUser,
		},
		{
			name:    "empty username",
			user:    &User{DisplayName: "Nobody"},
			wantErr: ErrEmptyUsername,
		},
		{
			name:    "username at limit",
			user:    &User{Username: strings.Repeat("a", MaxUsernameLength)},
			wantErr: nil,
		},
		{
			name:    "username too long",
			user:    &User{Username: strings.Repeat("a", MaxUsernameLength+1)},
			wantErr: ErrUsernameTooLong,
		},
		{
			name:    "username with NUL",
			user:    &User{Username: "ada\x00mallory"},
			wantErr: ErrInvalidUsername,
		},
		{
			name:    "username with newline",
			user:    &User{Username: "ada\nmallory"},
			wantErr: ErrInvalidUsername,
		},
		{
			name:    "username with invalid UTF-8",
			user:    &User{Username: "ad\xffa"},
			wantErr: ErrInvalidEncoding,
		},
		{
			name:    "display name with invalid UTF-8",
			user:    &User{Username: "ada", DisplayName: "Ad\xc3"},
			wantErr: ErrInvalidEncoding,
		},
		{
			name:    "unicode username",
			user:    &User{Username: "zoë_日本"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUser(tt.user)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateUser() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateUser() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMember(t *testing.T) {
	tests := []struct {
		name    string
		member  *ConversationMember
		wantErr error
	}{
		{
			name:    "valid member",
			member:  &ConversationMember{ConversationId: NewID(), UserId: NewID()},
			wantErr: nil,
		},
		{
			name:    "nil member",
			member:  nil,
			wantErr: ErrInvalidMember,
		},
		{
			name:    "missing conversation",
			member:  &ConversationMember{UserId: NewID()},
			wantErr: ErrMissingReference,
		},
		{
			name:    "missing user",
			member:  &ConversationMember{ConversationId: NewID()},
			wantErr: ErrMissingReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMember(tt.member)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMember() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMember() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	valid := func() *Message {
		return &Message{ConversationId: NewID(), SenderId: NewID(), Content: "hello"}
	}

	tests := []struct {
		name    string
		mutate  func(m *Message) *Message
		wantErr error
	}{
		{
			name:    "valid message",
			mutate:  func(m *Message) *Message { return m },
			wantErr: nil,
		},
		{
			name:    "nil message",
			mutate:  func(m *Message) *Message { return nil },
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing conversation",
			mutate:  func(m *Message) *Message { m.ConversationId = NilID; return m },
			wantErr: ErrMissingReference,
		},
		{
			name:    "missing sender",
			mutate:  func(m *Message) *Message { m.SenderId = NilID; return m },
			wantErr: ErrMissingReference,
		},
		{
			name:    "empty content",
			mutate:  func(m *Message) *Message { m.Content = ""; return m },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "content at limit counts runes",
			mutate:  func(m *Message) *Message { m.Content = strings.Repeat("é", MaxContentLength); return m },
			wantErr: nil,
		},
		{
			name:    "content with invalid UTF-8",
			mutate:  func(m *Message) *Message { m.Content = "caf\xe9"; return m },
			wantErr: ErrInvalidEncoding,
		},
		{
			name:    "content may span lines",
			mutate:  func(m *Message) *Message { m.Content = "line one\nline two\t!"; return m },
			wantErr: nil,
		},
		{
			name:    "content too long",
			mutate:  func(m *Message) *Message { m.Content = strings.Repeat("x", MaxContentLength+1); return m },
			wantErr: ErrContentTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.mutate(valid()))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCallSession(t *testing.T) {
	base := CallSession{ConversationId: NewID(), CallerId: NewID(), CalleeId: NewID()}

	if err := ValidateCallSession(&base); err != nil {
		t.Errorf("empty status should default, got %v", err)
	}

	for _, status := range CallStatuses {
		c := base
		c.Status = status
		if err := ValidateCallSession(&c); err != nil {
			t.Errorf("status %s: unexpected error %v", status, err)
		}
	}

	bad := base
	bad.Status = "ON_HOLD"
	if err := ValidateCallSession(&bad); !errors.Is(err, ErrInvalidCallStatus) {
		t.Errorf("expected ErrInvalidCallStatus, got %v", err)
	}

	missing := base
	missing.CalleeId = NilID
	if err := ValidateCallSession(&missing); !errors.Is(err, ErrMissingReference) {
		t.Errorf("expected ErrMissingReference, got %v", err)
	}

	if err := ValidateCallSession(nil); !errors.Is(err, ErrInvalidCallSession) {
		t.Errorf("expected ErrInvalidCallSession, got %v", err)
	}
}
