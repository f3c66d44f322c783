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

// Package storagetest checks that a storage backend honours the repository
// contracts. Each backend's tests call Run with a factory for fresh,
// empty repositories.
package storagetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns empty repositories. The suite closes them.
type Factory func(t *testing.T) storage.Repositories

// Run runs every contract test against repositories from newRepos.
func Run(t *testing.T, newRepos Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repos storage.Repositories)
	}{
		{"UserRoundTrip", testUserRoundTrip},
		{"UserLookups", testUserLookups},
		{"UsernameChange", testUsernameChange},
		{"ConversationRoundTrip", testConversationRoundTrip},
		{"CreateWithMembers", testCreateWithMembers},
		{"MembershipQueries", testMembershipQueries},
		{"DeleteByConversationID", testDeleteByConversationID},
		{"MessageOrdering", testMessageOrdering},
		{"MessagePaging", testMessagePaging},
		{"MessageCursor", testMessageCursor},
		{"MessageEdit", testMessageEdit},
		{"CallSessions", testCallSessions},
		{"Absence", testAbsence},
		{"Validation", testValidation},
		{"TextValidation", testTextValidation},
		{"SaveDoesNotMutate", testSaveDoesNotMutate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos := newRepos(t)
			t.Cleanup(func() { repos.Close() })
			tt.fn(t, repos)
		})
	}
}

func mustUser(t *testing.T, repos storage.Repositories, username string) *core.User {
	t.Helper()
	user, err := repos.Users().Save(context.Background(), &core.User{Username: username, DisplayName: username})
	require.NoError(t, err)
	return user
}

func mustConversation(t *testing.T, repos storage.Repositories) *core.Conversation {
	t.Helper()
	conversation, err := repos.Conversations().Save(context.Background(), &core.Conversation{})
	require.NoError(t, err)
	return conversation
}

func messageIDs(messages []*core.Message) []core.ID {
	out := make([]core.ID, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Id)
	}
	return out
}

func memberIDs(members []*core.ConversationMember) []core.ID {
	out := make([]core.ID, 0, len(members))
	for _, m := range members {
		out = append(out, m.Id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []core.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

func testUserRoundTrip(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	created := time.Date(2025, 3, 4, 5, 6, 7, 891234567, time.FixedZone("CET", 3600))

	saved, err := repos.Users().Save(ctx, &core.User{
		Username:     "ada",
		DisplayName:  "Ada Lovelace",
		PasswordHash: "$2a$10$hash",
		AvatarURL:    "https://example.org/ada.png",
		CreatedAt:    created,
	})
	require.NoError(t, err)
	assert.NotEqual(t, core.NilID, saved.Id)
	assert.True(t, saved.CreatedAt.Equal(created.Truncate(time.Microsecond)))

	found, err := repos.Users().FindByID(ctx, saved.Id)
	require.NoError(t, err)
	assert.Equal(t, saved, found)

	saved.DisplayName = "Countess"
	updated, err := repos.Users().Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.Id, updated.Id)

	found, err = repos.Users().FindByID(ctx, saved.Id)
	require.NoError(t, err)
	assert.Equal(t, "Countess", found.DisplayName)

	all, err := repos.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repos.Users().DeleteByID(ctx, saved.Id))
	require.NoError(t, repos.Users().DeleteByID(ctx, saved.Id))
	found, err = repos.Users().FindByID(ctx, saved.Id)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func testUserLookups(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	ada := mustUser(t, repos, "ada")
	mustUser(t, repos, "grace")

	found, err := repos.Users().FindByUsername(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ada.Id, found.Id)

	exists, err := repos.Users().ExistsByUsername(ctx, "grace")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.Users().ExistsByUsername(ctx, "linus")
	require.NoError(t, err)
	assert.False(t, exists)

	missing, err := repos.Users().FindByUsername(ctx, "linus")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repos.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testUsernameChange(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	user := mustUser(t, repos, "old-name")

	user.Username = "new-name"
	_, err := repos.Users().Save(ctx, user)
	require.NoError(t, err)

	exists, err := repos.Users().ExistsByUsername(ctx, "old-name")
	require.NoError(t, err)
	assert.False(t, exists)

	found, err := repos.Users().FindByUsername(ctx, "new-name")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.Id, found.Id)

	require.NoError(t, repos.Users().DeleteByID(ctx, user.Id))
	exists, err = repos.Users().ExistsByUsername(ctx, "new-name")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testConversationRoundTrip(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()

	direct, err := repos.Conversations().Save(ctx, &core.Conversation{IsDirect: true})
	require.NoError(t, err)
	group := mustConversation(t, repos)

	found, err := repos.Conversations().FindByID(ctx, direct.Id)
	require.NoError(t, err)
	assert.Equal(t, direct, found)

	found, err = repos.Conversations().FindByID(ctx, group.Id)
	require.NoError(t, err)
	assert.False(t, found.IsDirect)

	all, err := repos.Conversations().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repos.Conversations().DeleteByID(ctx, direct.Id))
	found, err = repos.Conversations().FindByID(ctx, direct.Id)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func testCreateWithMembers(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	ada := mustUser(t, repos, "ada")
	grace := mustUser(t, repos, "grace")

	conversation, members, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{IsDirect: true}, []core.ID{ada.Id, grace.Id})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.True(t, conversation.IsDirect)
	for _, m := range members {
		assert.Equal(t, conversation.Id, m.ConversationId)
		assert.False(t, m.JoinedAt.IsZero())
		assert.Nil(t, m.LastReadMessageId)
	}

	stored, err := repos.Members().FindByConversationID(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Equal(t, memberIDs(members), memberIDs(stored))

	found, err := repos.Conversations().FindByID(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Equal(t, conversation, found)
}

func testMembershipQueries(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	ada := mustUser(t, repos, "ada")
	grace := mustUser(t, repos, "grace")
	linus := mustUser(t, repos, "linus")

	first, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{}, []core.ID{ada.Id, grace.Id})
	require.NoError(t, err)
	second, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{}, []core.ID{ada.Id, linus.Id})
	require.NoError(t, err)

	adas, err := repos.Members().FindByUserID(ctx, ada.Id)
	require.NoError(t, err)
	conversations := []core.ID{}
	for _, m := range adas {
		assert.Equal(t, ada.Id, m.UserId)
		conversations = append(conversations, m.ConversationId)
	}
	want := []core.ID{first.Id, second.Id}
	sortIDs(want)
	sortIDs(conversations)
	assert.Equal(t, want, conversations)

	membership, err := repos.Members().FindByConversationIDAndUserID(ctx, second.Id, linus.Id)
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, second.Id, membership.ConversationId)
	assert.Equal(t, linus.Id, membership.UserId)

	none, err := repos.Members().FindByConversationIDAndUserID(ctx, first.Id, linus.Id)
	require.NoError(t, err)
	assert.Nil(t, none)

	lastRead := core.NewID()
	membership.LastReadMessageId = &lastRead
	_, err = repos.Members().Save(ctx, membership)
	require.NoError(t, err)

	reread, err := repos.Members().FindByID(ctx, membership.Id)
	require.NoError(t, err)
	require.NotNil(t, reread.LastReadMessageId)
	assert.Equal(t, lastRead, *reread.LastReadMessageId)

	require.NoError(t, repos.Members().DeleteByID(ctx, membership.Id))
	gone, err := repos.Members().FindByConversationIDAndUserID(ctx, second.Id, linus.Id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func testDeleteByConversationID(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	users := make([]core.ID, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		users = append(users, mustUser(t, repos, name).Id)
	}

	doomed, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{}, users)
	require.NoError(t, err)
	kept, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{}, users[:2])
	require.NoError(t, err)

	require.NoError(t, repos.Members().DeleteByConversationID(ctx, doomed.Id))

	remaining, err := repos.Members().FindByConversationID(ctx, doomed.Id)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	others, err := repos.Members().FindByConversationID(ctx, kept.Id)
	require.NoError(t, err)
	assert.Len(t, others, 2)

	byUser, err := repos.Members().FindByUserID(ctx, users[4])
	require.NoError(t, err)
	assert.Empty(t, byUser)

	require.NoError(t, repos.Members().DeleteByConversationID(ctx, doomed.Id))
}

// seedMessages saves count messages one second apart, oldest first.
func seedMessages(t *testing.T, repos storage.Repositories, conversationID, senderID core.ID, base time.Time, count int) []*core.Message {
	t.Helper()
	messages := make([]*core.Message, 0, count)
	for i := 0; i < count; i++ {
		m, err := repos.Messages().Save(context.Background(), &core.Message{
			ConversationId: conversationID,
			SenderId:       senderID,
			Content:        "message",
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		messages = append(messages, m)
	}
	return messages
}

func reversed(messages []*core.Message) []*core.Message {
	out := make([]*core.Message, len(messages))
	for i, m := range messages {
		out[len(messages)-1-i] = m
	}
	return out
}

func testMessageOrdering(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	sender := mustUser(t, repos, "ada")
	conversation := mustConversation(t, repos)
	other := mustConversation(t, repos)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	messages := seedMessages(t, repos, conversation.Id, sender.Id, base, 5)
	seedMessages(t, repos, other.Id, sender.Id, base, 3)

	// Two messages at the same instant are ordered by id.
	tieA, err := repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: sender.Id, Content: "tie", CreatedAt: base.Add(10 * time.Second)})
	require.NoError(t, err)
	tieB, err := repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: sender.Id, Content: "tie", CreatedAt: base.Add(10 * time.Second)})
	require.NoError(t, err)
	ties := []*core.Message{tieA, tieB}
	sort.Slice(ties, func(i, j int) bool { return ties[i].Id.String() < ties[j].Id.String() })
	messages = append(messages, ties...)

	asc, err := repos.Messages().FindByConversationIDOrderByCreatedAtAsc(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Equal(t, messageIDs(messages), messageIDs(asc))
	assert.Equal(t, messages, asc)

	desc, err := repos.Messages().FindByConversationIDOrderByCreatedAtDesc(ctx, conversation.Id, 0)
	require.NoError(t, err)
	assert.Equal(t, messageIDs(reversed(messages)), messageIDs(desc))
}

func testMessagePaging(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	sender := mustUser(t, repos, "ada")
	conversation := mustConversation(t, repos)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	messages := seedMessages(t, repos, conversation.Id, sender.Id, base, 250)

	page, err := repos.Messages().FindByConversationIDOrderByCreatedAtDesc(ctx, conversation.Id, 50)
	require.NoError(t, err)
	require.Len(t, page, 50)
	assert.Equal(t, messageIDs(reversed(messages[200:])), messageIDs(page))

	defaulted, err := repos.Messages().FindByConversationIDOrderByCreatedAtDesc(ctx, conversation.Id, -1)
	require.NoError(t, err)
	assert.Len(t, defaulted, storage.DefaultPageSize)

	small, err := repos.Messages().FindByConversationIDOrderByCreatedAtDesc(ctx, conversation.Id, 3)
	require.NoError(t, err)
	assert.Equal(t, messageIDs(reversed(messages[247:])), messageIDs(small))
}

func testMessageCursor(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	sender := mustUser(t, repos, "ada")
	conversation := mustConversation(t, repos)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	messages := seedMessages(t, repos, conversation.Id, sender.Id, base, 30)

	// Walk the whole history backwards, one cursor page at a time.
	var walked []*core.Message
	page, err := repos.Messages().FindByConversationIDOrderByCreatedAtDesc(ctx, conversation.Id, 7)
	require.NoError(t, err)
	for len(page) > 0 {
		walked = append(walked, page...)
		cursor := page[len(page)-1].CreatedAt
		page, err = repos.Messages().FindByConversationIDAndCreatedAtBefore(ctx, conversation.Id, cursor, 7)
		require.NoError(t, err)
		for _, m := range page {
			assert.True(t, m.CreatedAt.Before(cursor))
		}
	}
	assert.Equal(t, messageIDs(reversed(messages)), messageIDs(walked))

	// The cursor itself is excluded.
	before, err := repos.Messages().FindByConversationIDAndCreatedAtBefore(ctx, conversation.Id, messages[10].CreatedAt, 100)
	require.NoError(t, err)
	assert.Equal(t, messageIDs(reversed(messages[:10])), messageIDs(before))

	// A cursor finer than storage precision still includes the message
	// stored just below it.
	fine := messages[10].CreatedAt.Add(500 * time.Nanosecond)
	before, err = repos.Messages().FindByConversationIDAndCreatedAtBefore(ctx, conversation.Id, fine, 100)
	require.NoError(t, err)
	assert.Equal(t, messageIDs(reversed(messages[:11])), messageIDs(before))

	oldest, err := repos.Messages().FindByConversationIDAndCreatedAtBefore(ctx, conversation.Id, base, 10)
	require.NoError(t, err)
	assert.Empty(t, oldest)

	_, err = repos.Messages().FindByConversationIDAndCreatedAtBefore(ctx, conversation.Id, base, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func testMessageEdit(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	sender := mustUser(t, repos, "ada")
	conversation := mustConversation(t, repos)

	original, err := repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: sender.Id, Content: "helo"})
	require.NoError(t, err)
	assert.Nil(t, original.EditedAt)

	edited := *original
	now := core.Now()
	edited.Content = "hello"
	edited.EditedAt = &now
	_, err = repos.Messages().Save(ctx, &edited)
	require.NoError(t, err)

	found, err := repos.Messages().FindByID(ctx, original.Id)
	require.NoError(t, err)
	assert.Equal(t, "hello", found.Content)
	assert.True(t, original.CreatedAt.Equal(found.CreatedAt))
	require.NotNil(t, found.EditedAt)
	assert.True(t, now.Equal(*found.EditedAt))

	all, err := repos.Messages().FindByConversationIDOrderByCreatedAtAsc(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repos.Messages().DeleteByID(ctx, original.Id))
	all, err = repos.Messages().FindByConversationIDOrderByCreatedAtAsc(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testCallSessions(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	caller := mustUser(t, repos, "ada")
	callee := mustUser(t, repos, "grace")
	conversation := mustConversation(t, repos)

	call, err := repos.Calls().Save(ctx, &core.CallSession{ConversationId: conversation.Id, CallerId: caller.Id, CalleeId: callee.Id})
	require.NoError(t, err)
	assert.Equal(t, core.CallStatusInitiated, call.Status)
	assert.False(t, call.StartedAt.IsZero())
	assert.Nil(t, call.EndedAt)

	ended := core.Now()
	call.Status = core.CallStatusEnded
	call.EndedAt = &ended
	_, err = repos.Calls().Save(ctx, call)
	require.NoError(t, err)

	found, err := repos.Calls().FindByID(ctx, call.Id)
	require.NoError(t, err)
	assert.Equal(t, call, found)

	byConversation, err := repos.Calls().FindByConversationID(ctx, conversation.Id)
	require.NoError(t, err)
	require.Len(t, byConversation, 1)
	assert.Equal(t, call.Id, byConversation[0].Id)

	require.NoError(t, repos.Calls().DeleteByID(ctx, call.Id))
	byConversation, err = repos.Calls().FindByConversationID(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Empty(t, byConversation)
}

func testAbsence(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	id := core.NewID()

	user, err := repos.Users().FindByID(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, user)

	conversation, err := repos.Conversations().FindByID(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, conversation)

	member, err := repos.Members().FindByID(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, member)

	message, err := repos.Messages().FindByID(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, message)

	call, err := repos.Calls().FindByID(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, call)

	messages, err := repos.Messages().FindByConversationIDOrderByCreatedAtAsc(ctx, id)
	assert.NoError(t, err)
	assert.Empty(t, messages)

	members, err := repos.Members().FindByUserID(ctx, id)
	assert.NoError(t, err)
	assert.Empty(t, members)

	assert.NoError(t, repos.Messages().DeleteByID(ctx, id))
	assert.NoError(t, repos.Calls().DeleteByID(ctx, id))
	assert.NoError(t, repos.Members().DeleteByConversationID(ctx, id))
}

func testValidation(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	sender := mustUser(t, repos, "ada")
	conversation := mustConversation(t, repos)

	_, err := repos.Users().Save(ctx, &core.User{})
	assert.ErrorIs(t, err, core.ErrInvalidUser)

	long := make([]rune, core.MaxContentLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: sender.Id, Content: string(long)})
	assert.ErrorIs(t, err, core.ErrContentTooLong)

	_, err = repos.Members().Save(ctx, &core.ConversationMember{ConversationId: conversation.Id})
	assert.ErrorIs(t, err, core.ErrInvalidMember)

	_, err = repos.Calls().Save(ctx, &core.CallSession{ConversationId: conversation.Id, CallerId: sender.Id, CalleeId: sender.Id, Status: "DIALING"})
	assert.ErrorIs(t, err, core.ErrInvalidCallStatus)

	all, err := repos.Messages().FindByConversationIDOrderByCreatedAtAsc(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testTextValidation(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	ada := mustUser(t, repos, "ada")
	mustUser(t, repos, "adam")
	conversation := mustConversation(t, repos)

	for _, username := range []string{"ada\x00mallory", "ada\nmallory", "ad\xffa"} {
		_, err := repos.Users().Save(ctx, &core.User{Username: username})
		assert.ErrorIs(t, err, core.ErrInvalidUser, "username %q", username)
	}
	_, err := repos.Users().Save(ctx, &core.User{Username: "grace", DisplayName: "Gr\xc3"})
	assert.ErrorIs(t, err, core.ErrInvalidEncoding)

	found, err := repos.Users().FindByUsername(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ada.Id, found.Id)

	all, err := repos.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: ada.Id, Content: "caf\xe9"})
	assert.ErrorIs(t, err, core.ErrInvalidEncoding)

	// Non-ASCII text round-trips unchanged.
	saved, err := repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: ada.Id, Content: "café ☕\nzweite Zeile"})
	require.NoError(t, err)
	loaded, err := repos.Messages().FindByID(ctx, saved.Id)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func testSaveDoesNotMutate(t *testing.T, repos storage.Repositories) {
	ctx := context.Background()
	input := &core.User{Username: "ada"}

	saved, err := repos.Users().Save(ctx, input)
	require.NoError(t, err)
	assert.NotEqual(t, core.NilID, saved.Id)
	assert.Equal(t, core.NilID, input.Id)
	assert.True(t, input.CreatedAt.IsZero())
}
