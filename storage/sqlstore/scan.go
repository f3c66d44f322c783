package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// Column lists, in the order the scan functions expect.
const (
	userColumns         = "id, username, display_name, password_hash, avatar_url, created_at"
	conversationColumns = "id, is_direct, created_at"
	memberColumns       = "id, conversation_id, user_id, joined_at, last_read_message_id"
	messageColumns      = "id, conversation_id, sender_id, content, created_at, edited_at"
	callColumns         = "id, conversation_id, caller_id, callee_id, status, started_at, ended_at"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*core.User, error) {
	var (
		u                                 core.User
		displayName, passwordHash, avatar sql.NullString
	)
	if err := s.Scan(&u.Id, &u.Username, &displayName, &passwordHash, &avatar, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.DisplayName = nullToString(displayName)
	u.PasswordHash = nullToString(passwordHash)
	u.AvatarURL = nullToString(avatar)
	u.CreatedAt = core.NormalizeTime(u.CreatedAt)
	return &u, nil
}

func scanConversation(s scanner) (*core.Conversation, error) {
	var c core.Conversation
	if err := s.Scan(&c.Id, &c.IsDirect, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = core.NormalizeTime(c.CreatedAt)
	return &c, nil
}

func scanMember(s scanner) (*core.ConversationMember, error) {
	var (
		m        core.ConversationMember
		lastRead uuid.NullUUID
	)
	if err := s.Scan(&m.Id, &m.ConversationId, &m.UserId, &m.JoinedAt, &lastRead); err != nil {
		return nil, err
	}
	m.JoinedAt = core.NormalizeTime(m.JoinedAt)
	if lastRead.Valid {
		id := lastRead.UUID
		m.LastReadMessageId = &id
	}
	return &m, nil
}

func scanMessage(s scanner) (*core.Message, error) {
	var (
		m      core.Message
		edited sql.NullTime
	)
	if err := s.Scan(&m.Id, &m.ConversationId, &m.SenderId, &m.Content, &m.CreatedAt, &edited); err != nil {
		return nil, err
	}
	m.CreatedAt = core.NormalizeTime(m.CreatedAt)
	m.EditedAt = nullToTimePtr(edited)
	return &m, nil
}

func scanCall(s scanner) (*core.CallSession, error) {
	var (
		c      core.CallSession
		status string
		ended  sql.NullTime
	)
	if err := s.Scan(&c.Id, &c.ConversationId, &c.CallerId, &c.CalleeId, &status, &c.StartedAt, &ended); err != nil {
		return nil, err
	}
	c.Status = core.CallStatus(status)
	if !c.Status.Valid() {
		return nil, fmt.Errorf("%w: call %s has status %q", storage.ErrSerializationFailed, c.Id, status)
	}
	c.StartedAt = core.NormalizeTime(c.StartedAt)
	c.EndedAt = nullToTimePtr(ended)
	return &c, nil
}

// scanAll drains rows with scan.
func scanAll[T any](rows *sql.Rows, scan func(scanner) (*T, error)) ([]*T, error) {
	defer rows.Close()
	results := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullToTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := core.NormalizeTime(nt.Time)
	return &t
}

func timePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: core.NormalizeTime(*t), Valid: true}
}

func idPtrToNull(id *core.ID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
