package sqlstore

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
	"github.com/poiesic/parley/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories(context.Background())
	require.NoError(t, err)
	return repos
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repositories {
		return newTestRepositories(t)
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	_, err := repos.Users().Save(ctx, &core.User{Username: "ada"})
	require.NoError(t, err)

	require.NoError(t, repos.DB().Migrate(ctx))

	exists, err := repos.Users().ExistsByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	_, err := repos.Users().Save(ctx, &core.User{Username: "ada"})
	require.NoError(t, err)

	_, err = repos.Users().Save(ctx, &core.User{Username: "ada"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := repos.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateWithMembers_RollsBack(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	// The third member is invalid, so nothing may be committed.
	_, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{},
		[]core.ID{core.NewID(), core.NewID(), core.NilID})
	require.ErrorIs(t, err, core.ErrInvalidMember)

	conversations, err := repos.Conversations().FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, conversations)

	var members int
	require.NoError(t, repos.DB().conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversation_members").Scan(&members))
	assert.Zero(t, members)
}

func TestDeleteConversation_Cascades(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	sender := core.NewID()
	conversation, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{}, []core.ID{sender, core.NewID()})
	require.NoError(t, err)
	_, err = repos.Messages().Save(ctx, &core.Message{ConversationId: conversation.Id, SenderId: sender, Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, repos.Conversations().DeleteByID(ctx, conversation.Id))

	members, err := repos.Members().FindByConversationID(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Empty(t, members)

	messages, err := repos.Messages().FindByConversationIDOrderByCreatedAtAsc(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMessageForUnknownConversation(t *testing.T) {
	repos := newTestRepositories(t)
	defer repos.Close()

	_, err := repos.Messages().Save(context.Background(), &core.Message{ConversationId: core.NewID(), SenderId: core.NewID(), Content: "hi"})
	assert.Error(t, err)
}

func TestFindByConversationIDPage(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	conversation, err := repos.Conversations().Save(ctx, &core.Conversation{})
	require.NoError(t, err)
	sender := core.NewID()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var saved []*core.Message
	for i := 0; i < 25; i++ {
		m, err := repos.Messages().Save(ctx, &core.Message{
			ConversationId: conversation.Id,
			SenderId:       sender,
			Content:        "m",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		saved = append(saved, m)
	}

	tests := []struct {
		page, size int
		wantFirst  int
		wantLen    int
	}{
		{page: 0, size: 10, wantFirst: 24, wantLen: 10},
		{page: 1, size: 10, wantFirst: 14, wantLen: 10},
		{page: 2, size: 10, wantFirst: 4, wantLen: 5},
		{page: 3, size: 10, wantLen: 0},
		{page: 0, size: 0, wantFirst: 24, wantLen: 25},
	}
	for _, tt := range tests {
		page, err := repos.messages.FindByConversationIDPage(ctx, conversation.Id, tt.page, tt.size)
		require.NoError(t, err)
		require.Len(t, page, tt.wantLen)
		if tt.wantLen > 0 {
			assert.Equal(t, saved[tt.wantFirst].Id, page[0].Id)
		}
	}

	_, err = repos.messages.FindByConversationIDPage(ctx, conversation.Id, -1, 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestClosedDatabase(t *testing.T) {
	repos := newTestRepositories(t)
	require.NoError(t, repos.Close())

	_, err := repos.Users().FindByID(context.Background(), core.NewID())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestOpen_WithLogger(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := Open(ctx, string(SQLite), ":memory:", WithLogger(logger))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	out := buf.String()
	assert.Contains(t, out, "schema up to date")
	assert.Contains(t, out, "component=sqlstore")
	assert.Contains(t, out, "dialect=sqlite")
}
