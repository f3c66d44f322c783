package badger

import (
	"fmt"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// Item attribute names not covered in schema.go.
const (
	attrDisplayName       = "displayName"
	attrPasswordHash      = "passwordHash"
	attrAvatarURL         = "avatarUrl"
	attrIsDirect          = "isDirect"
	attrJoinedAt          = "joinedAt"
	attrLastReadMessageID = "lastReadMessageId"
	attrSenderID          = "senderId"
	attrContent           = "content"
	attrEditedAt          = "editedAt"
	attrCallerID          = "callerId"
	attrCalleeID          = "calleeId"
	attrStatus            = "status"
	attrStartedAt         = "startedAt"
	attrEndedAt           = "endedAt"
)

// Mappers between entities and items. Ids and timestamps are stored as
// strings; empty optional strings and nil pointers are left out of the
// item.

func userToItem(u *core.User) Item {
	item := Item{
		attrID:        storage.MarshalID(u.Id),
		attrUsername:  u.Username,
		attrCreatedAt: storage.MarshalTime(u.CreatedAt),
	}
	putOptionalString(item, attrDisplayName, u.DisplayName)
	putOptionalString(item, attrPasswordHash, u.PasswordHash)
	putOptionalString(item, attrAvatarURL, u.AvatarURL)
	return item
}

func itemToUser(item Item) (*core.User, error) {
	d := itemDecoder{item: item}
	u := &core.User{
		Id:           d.id(attrID),
		Username:     d.str(attrUsername),
		DisplayName:  d.optionalStr(attrDisplayName),
		PasswordHash: d.optionalStr(attrPasswordHash),
		AvatarURL:    d.optionalStr(attrAvatarURL),
		CreatedAt:    d.time(attrCreatedAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decoding user: %w", d.err)
	}
	return u, nil
}

func conversationToItem(c *core.Conversation) Item {
	return Item{
		attrID:        storage.MarshalID(c.Id),
		attrIsDirect:  c.IsDirect,
		attrCreatedAt: storage.MarshalTime(c.CreatedAt),
	}
}

func itemToConversation(item Item) (*core.Conversation, error) {
	d := itemDecoder{item: item}
	c := &core.Conversation{
		Id:        d.id(attrID),
		IsDirect:  d.optionalBool(attrIsDirect),
		CreatedAt: d.time(attrCreatedAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", d.err)
	}
	return c, nil
}

func memberToItem(m *core.ConversationMember) Item {
	item := Item{
		attrID:             storage.MarshalID(m.Id),
		attrConversationID: storage.MarshalID(m.ConversationId),
		attrUserID:         storage.MarshalID(m.UserId),
		attrJoinedAt:       storage.MarshalTime(m.JoinedAt),
	}
	if m.LastReadMessageId != nil {
		item[attrLastReadMessageID] = storage.MarshalID(*m.LastReadMessageId)
	}
	return item
}

func itemToMember(item Item) (*core.ConversationMember, error) {
	d := itemDecoder{item: item}
	m := &core.ConversationMember{
		Id:                d.id(attrID),
		ConversationId:    d.id(attrConversationID),
		UserId:            d.id(attrUserID),
		JoinedAt:          d.time(attrJoinedAt),
		LastReadMessageId: d.optionalID(attrLastReadMessageID),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decoding member: %w", d.err)
	}
	return m, nil
}

func messageToItem(m *core.Message) Item {
	item := Item{
		attrID:             storage.MarshalID(m.Id),
		attrConversationID: storage.MarshalID(m.ConversationId),
		attrSenderID:       storage.MarshalID(m.SenderId),
		attrContent:        m.Content,
		attrCreatedAt:      storage.MarshalTime(m.CreatedAt),
	}
	if m.EditedAt != nil {
		item[attrEditedAt] = storage.MarshalTime(*m.EditedAt)
	}
	return item
}

func itemToMessage(item Item) (*core.Message, error) {
	d := itemDecoder{item: item}
	m := &core.Message{
		Id:             d.id(attrID),
		ConversationId: d.id(attrConversationID),
		SenderId:       d.id(attrSenderID),
		Content:        d.str(attrContent),
		CreatedAt:      d.time(attrCreatedAt),
		EditedAt:       d.optionalTime(attrEditedAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decoding message: %w", d.err)
	}
	return m, nil
}

func callToItem(c *core.CallSession) Item {
	item := Item{
		attrID:             storage.MarshalID(c.Id),
		attrConversationID: storage.MarshalID(c.ConversationId),
		attrCallerID:       storage.MarshalID(c.CallerId),
		attrCalleeID:       storage.MarshalID(c.CalleeId),
		attrStatus:         string(c.Status),
		attrStartedAt:      storage.MarshalTime(c.StartedAt),
	}
	if c.EndedAt != nil {
		item[attrEndedAt] = storage.MarshalTime(*c.EndedAt)
	}
	return item
}

func itemToCall(item Item) (*core.CallSession, error) {
	d := itemDecoder{item: item}
	c := &core.CallSession{
		Id:             d.id(attrID),
		ConversationId: d.id(attrConversationID),
		CallerId:       d.id(attrCallerID),
		CalleeId:       d.id(attrCalleeID),
		Status:         d.status(attrStatus),
		StartedAt:      d.time(attrStartedAt),
		EndedAt:        d.optionalTime(attrEndedAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decoding call session: %w", d.err)
	}
	return c, nil
}

func putOptionalString(item Item, name, value string) {
	if value != "" {
		item[name] = value
	}
}

// itemDecoder reads typed attributes and keeps the first error.
type itemDecoder struct {
	item Item
	err  error
}

func (d *itemDecoder) fail(name, format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: attribute %s: %s", storage.ErrSerializationFailed, name, fmt.Sprintf(format, args...))
	}
}

func (d *itemDecoder) str(name string) string {
	raw, present := d.item[name]
	if !present {
		d.fail(name, "missing")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		d.fail(name, "want string, got %T", raw)
	}
	return s
}

func (d *itemDecoder) optionalStr(name string) string {
	if _, present := d.item[name]; !present {
		return ""
	}
	return d.str(name)
}

func (d *itemDecoder) optionalBool(name string) bool {
	raw, present := d.item[name]
	if !present {
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		d.fail(name, "want bool, got %T", raw)
	}
	return b
}

func (d *itemDecoder) id(name string) core.ID {
	s := d.str(name)
	if d.err != nil {
		return core.NilID
	}
	id, err := storage.UnmarshalID(s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("attribute %s: %w", name, err)
	}
	return id
}

func (d *itemDecoder) optionalID(name string) *core.ID {
	if _, present := d.item[name]; !present {
		return nil
	}
	id := d.id(name)
	return &id
}

func (d *itemDecoder) time(name string) time.Time {
	s := d.str(name)
	if d.err != nil {
		return time.Time{}
	}
	t, err := storage.UnmarshalTime(s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("attribute %s: %w", name, err)
	}
	return t
}

func (d *itemDecoder) optionalTime(name string) *time.Time {
	if _, present := d.item[name]; !present {
		return nil
	}
	t := d.time(name)
	return &t
}

func (d *itemDecoder) status(name string) core.CallStatus {
	status := core.CallStatus(d.str(name))
	if d.err == nil && !status.Valid() {
		d.fail(name, "unknown call status %q", status)
	}
	return status
}
