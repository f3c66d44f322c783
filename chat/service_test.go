package chat

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
	"github.com/poiesic/parley/storage/badger"
	"github.com/poiesic/parley/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var backends = []struct {
	name string
	open func(ctx context.Context) (storage.Repositories, error)
}{
	{"keyvalue", func(ctx context.Context) (storage.Repositories, error) {
		return badger.NewMemoryRepositories(ctx)
	}},
	{"relational", func(ctx context.Context) (storage.Repositories, error) {
		return sqlstore.NewMemoryRepositories(ctx)
	}},
}

// forEachBackend runs fn with a fresh Service on every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, ctx context.Context, svc *Service)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			repos, err := b.open(ctx)
			require.NoError(t, err)
			t.Cleanup(func() { repos.Close() })
			fn(t, ctx, NewService(repos, WithBcryptCost(bcrypt.MinCost)))
		})
	}
}

func register(t *testing.T, ctx context.Context, svc *Service, username string) *core.User {
	t.Helper()
	u, err := svc.Register(ctx, username, username, "secret-"+username)
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice, err := svc.Register(ctx, "alice", "Alice", "hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, core.NilID, alice.Id)
		assert.NotEqual(t, "hunter2", alice.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(alice.PasswordHash), []byte("hunter2")))

		_, err = svc.Register(ctx, "alice", "Other", "pw")
		assert.ErrorIs(t, err, ErrUsernameTaken)

		_, err = svc.Register(ctx, "bob", "Bob", "")
		assert.ErrorIs(t, err, ErrEmptyPassword)

		got, err := svc.Login(ctx, "alice", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, alice.Id, got.Id)

		_, err = svc.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.Login(ctx, "nobody", "hunter2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUpdateProfile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")

		updated, err := svc.UpdateProfile(ctx, alice.Id, "Alice A.", "https://example.com/a.png")
		require.NoError(t, err)
		assert.Equal(t, "Alice A.", updated.DisplayName)
		assert.Equal(t, "https://example.com/a.png", updated.AvatarURL)
		assert.Equal(t, alice.PasswordHash, updated.PasswordHash)
		assert.Equal(t, alice.CreatedAt, updated.CreatedAt)

		_, err = svc.UpdateProfile(ctx, core.NewID(), "x", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConversations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")
		bob := register(t, ctx, svc, "bob")
		carol := register(t, ctx, svc, "carol")

		t.Run("direct needs two distinct users", func(t *testing.T) {
			_, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, alice.Id})
			assert.ErrorIs(t, err, ErrDirectConversation)
			_, _, err = svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id, carol.Id})
			assert.ErrorIs(t, err, ErrDirectConversation)
		})

		t.Run("unknown user", func(t *testing.T) {
			_, _, err := svc.CreateConversation(ctx, false, []core.ID{alice.Id, core.NewID()})
			assert.ErrorIs(t, err, ErrNotFound)
		})

		direct, members, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id, bob.Id})
		require.NoError(t, err)
		assert.True(t, direct.IsDirect)
		assert.Len(t, members, 2)

		group, _, err := svc.CreateConversation(ctx, false, []core.ID{alice.Id, bob.Id, carol.Id})
		require.NoError(t, err)

		aliceConvs, err := svc.ListConversations(ctx, alice.Id)
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.ID{direct.Id, group.Id}, conversationIDs(aliceConvs))

		carolConvs, err := svc.ListConversations(ctx, carol.Id)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{group.Id}, conversationIDs(carolConvs))

		memberships, err := svc.ListMemberships(ctx, bob.Id)
		require.NoError(t, err)
		assert.Len(t, memberships, 2)

		require.NoError(t, svc.DeleteConversation(ctx, group.Id))
		memberships, err = svc.ListMemberships(ctx, carol.Id)
		require.NoError(t, err)
		assert.Empty(t, memberships)

		aliceConvs, err = svc.ListConversations(ctx, alice.Id)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{direct.Id}, conversationIDs(aliceConvs))

		// Deleting again is a no-op.
		assert.NoError(t, svc.DeleteConversation(ctx, group.Id))
	})
}

func TestDeleteConversation_RemovesHistory(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")
		bob := register(t, ctx, svc, "bob")
		conv, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id})
		require.NoError(t, err)
		other, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id})
		require.NoError(t, err)

		for _, id := range []core.ID{conv.Id, other.Id} {
			_, err = svc.SendMessage(ctx, id, alice.Id, "hello")
			require.NoError(t, err)
			_, err = svc.InitiateCall(ctx, id, alice.Id, bob.Id)
			require.NoError(t, err)
		}

		require.NoError(t, svc.DeleteConversation(ctx, conv.Id))

		messages, err := svc.History(ctx, conv.Id, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, messages)
		calls, err := svc.CallHistory(ctx, conv.Id)
		require.NoError(t, err)
		assert.Empty(t, calls)

		messages, err = svc.History(ctx, other.Id, nil, 10)
		require.NoError(t, err)
		assert.Len(t, messages, 1)
		calls, err = svc.CallHistory(ctx, other.Id)
		require.NoError(t, err)
		assert.Len(t, calls, 1)
	})
}

func TestMessages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")
		bob := register(t, ctx, svc, "bob")
		mallory := register(t, ctx, svc, "mallory")
		conv, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id})
		require.NoError(t, err)

		_, err = svc.SendMessage(ctx, conv.Id, mallory.Id, "hi")
		assert.ErrorIs(t, err, ErrNotMember)

		_, err = svc.SendMessage(ctx, conv.Id, alice.Id, "")
		assert.ErrorIs(t, err, core.ErrInvalidMessage)

		var sent []*core.Message
		for i, sender := range []core.ID{alice.Id, bob.Id, alice.Id, bob.Id, alice.Id} {
			msg, err := svc.SendMessage(ctx, conv.Id, sender, string(rune('a'+i)))
			require.NoError(t, err)
			sent = append(sent, msg)
			// Distinct timestamps keep the expected order obvious.
			time.Sleep(2 * time.Millisecond)
		}

		latest, err := svc.History(ctx, conv.Id, nil, 3)
		require.NoError(t, err)
		require.Len(t, latest, 3)
		assert.Equal(t, []core.ID{sent[4].Id, sent[3].Id, sent[2].Id}, messageIDs(latest))

		cursor := latest[2].CreatedAt
		older, err := svc.History(ctx, conv.Id, &cursor, 10)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{sent[1].Id, sent[0].Id}, messageIDs(older))

		t.Run("edit", func(t *testing.T) {
			_, err := svc.EditMessage(ctx, sent[0].Id, bob.Id, "nope")
			assert.ErrorIs(t, err, ErrNotSender)
			_, err = svc.EditMessage(ctx, core.NewID(), alice.Id, "nope")
			assert.ErrorIs(t, err, ErrNotFound)

			edited, err := svc.EditMessage(ctx, sent[0].Id, alice.Id, "a, edited")
			require.NoError(t, err)
			assert.Equal(t, "a, edited", edited.Content)
			require.NotNil(t, edited.EditedAt)
			assert.Equal(t, sent[0].CreatedAt, edited.CreatedAt)
		})

		t.Run("mark read", func(t *testing.T) {
			member, err := svc.MarkRead(ctx, bob.Id, sent[4].Id)
			require.NoError(t, err)
			require.NotNil(t, member.LastReadMessageId)
			assert.Equal(t, sent[4].Id, *member.LastReadMessageId)

			_, err = svc.MarkRead(ctx, mallory.Id, sent[4].Id)
			assert.ErrorIs(t, err, ErrNotMember)
		})
	})
}

func TestCalls(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")
		bob := register(t, ctx, svc, "bob")
		mallory := register(t, ctx, svc, "mallory")
		conv, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id})
		require.NoError(t, err)

		_, err = svc.InitiateCall(ctx, conv.Id, alice.Id, mallory.Id)
		assert.ErrorIs(t, err, ErrNotMember)

		call, err := svc.InitiateCall(ctx, conv.Id, alice.Id, bob.Id)
		require.NoError(t, err)
		assert.Equal(t, core.CallStatusInitiated, call.Status)
		assert.Nil(t, call.EndedAt)

		_, err = svc.TransitionCall(ctx, call.Id, core.CallStatusActive)
		assert.ErrorIs(t, err, core.ErrInvalidTransition)
		_, err = svc.TransitionCall(ctx, call.Id, core.CallStatus("DROPPED"))
		assert.ErrorIs(t, err, core.ErrInvalidCallStatus)

		for _, next := range []core.CallStatus{core.CallStatusRinging, core.CallStatusActive} {
			call, err = svc.TransitionCall(ctx, call.Id, next)
			require.NoError(t, err)
			assert.Equal(t, next, call.Status)
			assert.Nil(t, call.EndedAt)
		}

		call, err = svc.TransitionCall(ctx, call.Id, core.CallStatusEnded)
		require.NoError(t, err)
		require.NotNil(t, call.EndedAt)

		_, err = svc.TransitionCall(ctx, call.Id, core.CallStatusEnded)
		assert.ErrorIs(t, err, core.ErrInvalidTransition)
		_, err = svc.TransitionCall(ctx, core.NewID(), core.CallStatusEnded)
		assert.ErrorIs(t, err, ErrNotFound)

		calls, err := svc.CallHistory(ctx, conv.Id)
		require.NoError(t, err)
		require.Len(t, calls, 1)
		assert.Equal(t, core.CallStatusEnded, calls[0].Status)
	})
}

func conversationIDs(cs []*core.Conversation) []core.ID {
	ids := make([]core.ID, len(cs))
	for i, c := range cs {
		ids[i] = c.Id
	}
	return ids
}

func messageIDs(ms []*core.Message) []core.ID {
	ids := make([]core.ID, len(ms))
	for i, m := range ms {
		ids[i] = m.Id
	}
	return ids
}
