package badger

import (
	"testing"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMapping(t *testing.T) {
	user := &core.User{
		Id:           core.NewID(),
		Username:     "ada",
		PasswordHash: "hash",
		CreatedAt:    core.Now(),
	}

	item := userToItem(user)
	assert.Equal(t, "ada", item["username"])
	assert.NotContains(t, item, "displayName")
	assert.NotContains(t, item, "avatarUrl")

	decoded, err := itemToUser(item)
	require.NoError(t, err)
	assert.Equal(t, user, decoded)
}

func TestMemberMapping(t *testing.T) {
	lastRead := core.NewID()
	member := &core.ConversationMember{
		Id:             core.NewID(),
		ConversationId: core.NewID(),
		UserId:         core.NewID(),
		JoinedAt:       core.Now(),
	}

	item := memberToItem(member)
	assert.NotContains(t, item, "lastReadMessageId")
	decoded, err := itemToMember(item)
	require.NoError(t, err)
	assert.Equal(t, member, decoded)

	member.LastReadMessageId = &lastRead
	item = memberToItem(member)
	assert.Equal(t, lastRead.String(), item["lastReadMessageId"])
	decoded, err = itemToMember(item)
	require.NoError(t, err)
	assert.Equal(t, member, decoded)
}

func TestMessageAndCallMapping(t *testing.T) {
	edited := core.Now().Add(time.Minute)
	message := &core.Message{
		Id:             core.NewID(),
		ConversationId: core.NewID(),
		SenderId:       core.NewID(),
		Content:        "hello",
		CreatedAt:      core.Now(),
		EditedAt:       &edited,
	}
	decodedMessage, err := itemToMessage(messageToItem(message))
	require.NoError(t, err)
	assert.Equal(t, message, decodedMessage)

	call := &core.CallSession{
		Id:             core.NewID(),
		ConversationId: core.NewID(),
		CallerId:       core.NewID(),
		CalleeId:       core.NewID(),
		Status:         core.CallStatusRinging,
		StartedAt:      core.Now(),
	}
	decodedCall, err := itemToCall(callToItem(call))
	require.NoError(t, err)
	assert.Equal(t, call, decodedCall)

	conversation := &core.Conversation{Id: core.NewID(), IsDirect: true, CreatedAt: core.Now()}
	decodedConversation, err := itemToConversation(conversationToItem(conversation))
	require.NoError(t, err)
	assert.Equal(t, conversation, decodedConversation)
}

func TestMappingDoesNotMutateInput(t *testing.T) {
	message := &core.Message{Id: core.NewID(), ConversationId: core.NewID(), SenderId: core.NewID(), Content: "x", CreatedAt: core.Now()}
	before := *message
	item := messageToItem(message)
	item["content"] = "changed"
	assert.Equal(t, before, *message)
}

func TestMappingRejectsMalformedItems(t *testing.T) {
	validUser := func() Item {
		return userToItem(&core.User{Id: core.NewID(), Username: "ada", CreatedAt: core.Now()})
	}
	validCall := func() Item {
		return callToItem(&core.CallSession{
			Id: core.NewID(), ConversationId: core.NewID(), CallerId: core.NewID(), CalleeId: core.NewID(),
			Status: core.CallStatusActive, StartedAt: core.Now(),
		})
	}

	tests := []struct {
		name   string
		item   Item
		decode func(Item) error
	}{
		{
			name:   "bad user id",
			item:   func() Item { it := validUser(); it["id"] = "not-a-uuid"; return it }(),
			decode: func(it Item) error { _, err := itemToUser(it); return err },
		},
		{
			name:   "missing username",
			item:   func() Item { it := validUser(); delete(it, "username"); return it }(),
			decode: func(it Item) error { _, err := itemToUser(it); return err },
		},
		{
			name:   "bad timestamp",
			item:   func() Item { it := validUser(); it["createdAt"] = "yesterday"; return it }(),
			decode: func(it Item) error { _, err := itemToUser(it); return err },
		},
		{
			name:   "wrong attribute type",
			item:   Item{"id": core.NewID().String(), "isDirect": "yes", "createdAt": storage.MarshalTime(core.Now())},
			decode: func(it Item) error { _, err := itemToConversation(it); return err },
		},
		{
			name:   "unknown call status",
			item:   func() Item { it := validCall(); it["status"] = "DIALING"; return it }(),
			decode: func(it Item) error { _, err := itemToCall(it); return err },
		},
		{
			name:   "bad optional end time",
			item:   func() Item { it := validCall(); it["endedAt"] = "soon"; return it }(),
			decode: func(it Item) error { _, err := itemToCall(it); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.decode(tt.item), storage.ErrSerializationFailed)
		})
	}
}
