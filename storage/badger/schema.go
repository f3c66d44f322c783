package badger

// Table names.
const (
	UsersTable               = "Users"
	ConversationsTable       = "Conversations"
	MessagesTable            = "Messages"
	ConversationMembersTable = "ConversationMembers"
	CallSessionsTable        = "CallSessions"
)

// Index names. conversation-index exists on both ConversationMembers and
// CallSessions.
const (
	UsernameIndex            = "username-index"
	ConversationIndex        = "conversation-index"
	UserIndex                = "user-index"
	ConversationUserIndex    = "conversation-user-index"
	ConversationCreatedIndex = "conversation-created-index"
)

// Attribute names shared by several tables.
const (
	attrID             = "id"
	attrConversationID = "conversationId"
	attrUserID         = "userId"
	attrCreatedAt      = "createdAt"
	attrUsername       = "username"
)

// Schemas returns the tables the repositories need, with every index
// each of their queries is served by.
func Schemas() []TableSchema {
	return []TableSchema{
		{
			Name:         UsersTable,
			PartitionKey: attrID,
			Indexes: []IndexSchema{
				{Name: UsernameIndex, PartitionKey: attrUsername},
			},
		},
		{
			Name:         ConversationsTable,
			PartitionKey: attrID,
		},
		{
			Name:         MessagesTable,
			PartitionKey: attrID,
			Indexes: []IndexSchema{
				{Name: ConversationCreatedIndex, PartitionKey: attrConversationID, SortKey: attrCreatedAt},
			},
		},
		{
			Name:         ConversationMembersTable,
			PartitionKey: attrID,
			Indexes: []IndexSchema{
				{Name: ConversationIndex, PartitionKey: attrConversationID},
				{Name: UserIndex, PartitionKey: attrUserID},
				{Name: ConversationUserIndex, PartitionKey: attrConversationID, SortKey: attrUserID},
			},
		},
		{
			Name:         CallSessionsTable,
			PartitionKey: attrID,
			Indexes: []IndexSchema{
				{Name: ConversationIndex, PartitionKey: attrConversationID},
			},
		},
	}
}
