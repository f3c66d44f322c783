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

import "time"

// Timestamps are stored at microsecond precision on every backend.
const timePrecision = time.Microsecond

// Now returns the current time in storage precision.
func Now() time.Time {
	return NormalizeTime(time.Now())
}

// NormalizeTime converts t to UTC and truncates it to storage precision.
// The zero time is returned unchanged.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(timePrecision)
}

// CeilTime converts t to UTC and rounds it up to storage precision. For a
// stored time s, s.Before(t) holds exactly when s.Before(CeilTime(t)).
func CeilTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	floor := t.UTC().Truncate(timePrecision)
	if floor.Before(t) {
		return floor.Add(timePrecision)
	}
	return floor
}

func normalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := NormalizeTime(*t)
	return &n
}

func copyIDPtr(id *ID) *ID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func defaultID(id ID) ID {
	if id == NilID {
		return NewID()
	}
	return id
}

func defaultTime(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return NormalizeTime(t)
}

// The WithDefaults methods return a copy with a fresh id and timestamps
// filled in where missing. The receiver is never modified.

func (u User) WithDefaults(now time.Time) User {
	u.Id = defaultID(u.Id)
	u.CreatedAt = defaultTime(u.CreatedAt, NormalizeTime(now))
	return u
}

func (c Conversation) WithDefaults(now time.Time) Conversation {
	c.Id = defaultID(c.Id)
	c.CreatedAt = defaultTime(c.CreatedAt, NormalizeTime(now))
	return c
}

func (m ConversationMember) WithDefaults(now time.Time) ConversationMember {
	m.Id = defaultID(m.Id)
	m.JoinedAt = defaultTime(m.JoinedAt, NormalizeTime(now))
	m.LastReadMessageId = copyIDPtr(m.LastReadMessageId)
	return m
}

func (m Message) WithDefaults(now time.Time) Message {
	m.Id = defaultID(m.Id)
	m.CreatedAt = defaultTime(m.CreatedAt, NormalizeTime(now))
	m.EditedAt = normalizeTimePtr(m.EditedAt)
	return m
}

func (c CallSession) WithDefaults(now time.Time) CallSession {
	c.Id = defaultID(c.Id)
	c.StartedAt = defaultTime(c.StartedAt, NormalizeTime(now))
	c.EndedAt = normalizeTimePtr(c.EndedAt)
	if c.Status == "" {
		c.Status = CallStatusInitiated
	}
	return c
}
