package badger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
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

func TestCreateWithMembers_PartialFailure(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	users := []core.ID{core.NewID(), core.NewID(), core.NewID(), core.NewID()}

	// Fail the third membership item write.
	failure := errors.New("write failed")
	memberItems := makeItemPrefix(ConversationMembersTable)
	writes := 0
	repos.backend.beforeWrite = func(key []byte) error {
		if bytes.HasPrefix(key, memberItems) {
			writes++
			if writes == 3 {
				return failure
			}
		}
		return nil
	}

	_, _, err := repos.Conversations().CreateWithMembers(ctx, &core.Conversation{}, users)
	require.ErrorIs(t, err, failure)
	repos.backend.beforeWrite = nil

	conversations, err := repos.Conversations().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, conversations, 1, "conversation write is not rolled back")

	members, err := repos.Members().FindByConversationID(ctx, conversations[0].Id)
	require.NoError(t, err)
	require.Len(t, members, 2)

	written := map[core.ID]bool{}
	for _, m := range members {
		written[m.UserId] = true
	}
	assert.True(t, written[users[0]])
	assert.True(t, written[users[1]])
	assert.False(t, written[users[2]])
}

func TestUsernameChange_RemovesStaleIndexEntry(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	user, err := repos.Users().Save(ctx, &core.User{Username: "before"})
	require.NoError(t, err)
	user.Username = "after"
	_, err = repos.Users().Save(ctx, user)
	require.NoError(t, err)

	var keys [][]byte
	err = repos.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeIndexPrefix(UsersTable, UsernameIndex)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	require.NoError(t, err)

	require.Len(t, keys, 1)
	assert.Equal(t, makeIndexEntryKey(UsersTable, UsernameIndex, "after", nil, user.Id.String()), keys[0])
}

func TestDuplicateMembershipsAllowed(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	conversation := core.NewID()
	user := core.NewID()
	first, err := repos.Members().Save(ctx, &core.ConversationMember{ConversationId: conversation, UserId: user})
	require.NoError(t, err)
	second, err := repos.Members().Save(ctx, &core.ConversationMember{ConversationId: conversation, UserId: user})
	require.NoError(t, err)

	all, err := repos.Members().FindByConversationID(ctx, conversation)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	want := first
	if second.Id.String() < first.Id.String() {
		want = second
	}
	found, err := repos.Members().FindByConversationIDAndUserID(ctx, conversation, user)
	require.NoError(t, err)
	assert.Equal(t, want.Id, found.Id)
}

// Both registrations check the username before either saves, so both
// succeed and the username ends up on two users.
func TestUsernameRace(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepositories(t)
	defer repos.Close()

	var checked sync.WaitGroup
	checked.Add(2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exists, err := repos.Users().ExistsByUsername(ctx, "ada")
			checked.Done()
			if err != nil {
				errs[i] = err
				return
			}
			if exists {
				errs[i] = errors.New("taken")
				return
			}
			checked.Wait()
			_, errs[i] = repos.Users().Save(ctx, &core.User{Username: "ada"})
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	all, err := repos.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepositoriesNeedTables(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	repos := NewRepositories(backend)
	defer repos.Close()

	_, err = repos.Users().Save(context.Background(), &core.User{Username: "ada"})
	assert.ErrorIs(t, err, storage.ErrTableNotFound)
}

func TestClosedRepositories(t *testing.T) {
	repos := newTestRepositories(t)
	require.NoError(t, repos.Close())

	_, err := repos.Messages().FindByID(context.Background(), core.NewID())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
