package chat

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryIterator(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")
		bob := register(t, ctx, svc, "bob")
		conv, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id})
		require.NoError(t, err)

		var sent []core.ID
		for i := 0; i < 7; i++ {
			msg, err := svc.SendMessage(ctx, conv.Id, alice.Id, "m")
			require.NoError(t, err)
			sent = append(sent, msg.Id)
			time.Sleep(time.Millisecond)
		}

		t.Run("walks every page newest first", func(t *testing.T) {
			var pages [][]core.ID
			err := svc.NewHistoryIterator(conv.Id, 3).ForEach(ctx, func(page []*core.Message) error {
				pages = append(pages, messageIDs(page))
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, [][]core.ID{
				{sent[6], sent[5], sent[4]},
				{sent[3], sent[2], sent[1]},
				{sent[0]},
			}, pages)
		})

		t.Run("exact multiple of page size", func(t *testing.T) {
			calls := 0
			err := svc.NewHistoryIterator(conv.Id, 7).ForEach(ctx, func(page []*core.Message) error {
				calls++
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, 1, calls)
		})

		t.Run("stops on callback error", func(t *testing.T) {
			stop := errors.New("stop")
			calls := 0
			err := svc.NewHistoryIterator(conv.Id, 2).ForEach(ctx, func([]*core.Message) error {
				calls++
				return stop
			})
			assert.ErrorIs(t, err, stop)
			assert.Equal(t, 1, calls)
		})

		t.Run("canceled between pages", func(t *testing.T) {
			ctx, cancel := context.WithCancel(ctx)
			err := svc.NewHistoryIterator(conv.Id, 2).ForEach(ctx, func([]*core.Message) error {
				cancel()
				return nil
			})
			assert.ErrorIs(t, err, context.Canceled)
		})

		t.Run("empty conversation", func(t *testing.T) {
			called := false
			err := svc.NewHistoryIterator(core.NewID(), 0).ForEach(ctx, func([]*core.Message) error {
				called = true
				return nil
			})
			require.NoError(t, err)
			assert.False(t, called)
		})
	})
}

func TestHistoryIterator_TiedTimestamps(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, svc *Service) {
		alice := register(t, ctx, svc, "alice")
		bob := register(t, ctx, svc, "bob")
		conv, _, err := svc.CreateConversation(ctx, true, []core.ID{alice.Id, bob.Id})
		require.NoError(t, err)

		tied := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		var want []*core.Message
		for i := 0; i < 7; i++ {
			createdAt := tied
			if i >= 5 {
				createdAt = tied.Add(-time.Second)
			}
			m, err := svc.messages.Save(ctx, &core.Message{
				ConversationId: conv.Id,
				SenderId:       alice.Id,
				Content:        "m",
				CreatedAt:      createdAt,
			})
			require.NoError(t, err)
			want = append(want, m)
		}
		sort.Slice(want, func(i, j int) bool {
			if !want[i].CreatedAt.Equal(want[j].CreatedAt) {
				return want[i].CreatedAt.After(want[j].CreatedAt)
			}
			return want[i].Id.String() > want[j].Id.String()
		})

		for _, pageSize := range []int{1, 2, 3, 5, 7} {
			var got []core.ID
			err := svc.NewHistoryIterator(conv.Id, pageSize).ForEach(ctx, func(page []*core.Message) error {
				assert.LessOrEqual(t, len(page), pageSize)
				got = append(got, messageIDs(page)...)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, messageIDs(want), got, "page size %d", pageSize)
		}
	})
}
