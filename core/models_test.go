package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEqual(t, NilID, a)
	assert.NotEqual(t, a, b)

	parsed, err := ParseID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseID("not-an-id")
	assert.Error(t, err)
}

func TestNormalizeTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2025, 3, 1, 12, 0, 0, 123456789, loc)

	out := NormalizeTime(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, 123456000, out.Nanosecond())
	assert.True(t, out.Equal(in.Truncate(time.Microsecond)))

	assert.True(t, NormalizeTime(time.Time{}).IsZero())
}

func TestCeilTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"already at precision", base, base},
		{"rounds up a remainder", base.Add(500 * time.Nanosecond), base.Add(time.Microsecond)},
		{"one nanosecond over", base.Add(time.Nanosecond), base.Add(time.Microsecond)},
		{"zero", time.Time{}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CeilTime(tt.in)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}

	// A stored time is before the cursor exactly when it is before the
	// rounded cursor.
	cursor := base.Add(500 * time.Nanosecond)
	assert.True(t, base.Before(cursor))
	assert.True(t, base.Before(CeilTime(cursor)))
}

func TestWithDefaults(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC)

	t.Run("user gets id and createdAt", func(t *testing.T) {
		in := User{Username: "alice"}
		out := in.WithDefaults(now)
		assert.NotEqual(t, NilID, out.Id)
		assert.Equal(t, NormalizeTime(now), out.CreatedAt)
		assert.Equal(t, NilID, in.Id, "receiver must not change")
	})

	t.Run("existing values are kept", func(t *testing.T) {
		id := NewID()
		created := now.Add(-time.Hour)
		out := Conversation{Id: id, CreatedAt: created}.WithDefaults(now)
		assert.Equal(t, id, out.Id)
		assert.Equal(t, created, out.CreatedAt)
	})

	t.Run("member joinedAt and copied last read", func(t *testing.T) {
		read := NewID()
		in := ConversationMember{ConversationId: NewID(), UserId: NewID(), LastReadMessageId: &read}
		out := in.WithDefaults(now)
		assert.Equal(t, NormalizeTime(now), out.JoinedAt)
		require.NotNil(t, out.LastReadMessageId)
		assert.Equal(t, read, *out.LastReadMessageId)
		assert.NotSame(t, in.LastReadMessageId, out.LastReadMessageId)
	})

	t.Run("message createdAt", func(t *testing.T) {
		out := Message{Content: "hi"}.WithDefaults(now)
		assert.Equal(t, NormalizeTime(now), out.CreatedAt)
		assert.Nil(t, out.EditedAt)
	})

	t.Run("call session status and startedAt", func(t *testing.T) {
		out := CallSession{}.WithDefaults(now)
		assert.Equal(t, CallStatusInitiated, out.Status)
		assert.Equal(t, NormalizeTime(now), out.StartedAt)

		ringing := CallSession{Status: CallStatusRinging}.WithDefaults(now)
		assert.Equal(t, CallStatusRinging, ringing.Status)
	})
}

func TestCallStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to CallStatus
		want     bool
	}{
		{CallStatusInitiated, CallStatusRinging, true},
		{CallStatusRinging, CallStatusActive, true},
		{CallStatusActive, CallStatusEnded, true},
		{CallStatusInitiated, CallStatusEnded, true},
		{CallStatusInitiated, CallStatusActive, false},
		{CallStatusActive, CallStatusRinging, false},
		{CallStatusEnded, CallStatusEnded, false},
		{CallStatusEnded, CallStatusInitiated, false},
		{CallStatus("HELD"), CallStatusEnded, false},
		{CallStatusInitiated, CallStatus("HELD"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
