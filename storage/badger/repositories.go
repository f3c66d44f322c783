package badger

import "github.com/poiesic/parley/storage"

// Repositories bundles the BadgerDB repositories over one Backend.
type Repositories struct {
	backend       *Backend
	users         *UserRepository
	conversations *ConversationRepository
	members       *MemberRepository
	messages      *MessageRepository
	calls         *CallSessionRepository
}

var _ storage.Repositories = (*Repositories)(nil)

// NewRepositories creates every repository over backend. The tables must
// already exist; see Provisioner.
func NewRepositories(backend *Backend) *Repositories {
	members := NewMemberRepository(backend)
	return &Repositories{
		backend:       backend,
		users:         NewUserRepository(backend),
		conversations: NewConversationRepository(backend, members),
		members:       members,
		messages:      NewMessageRepository(backend),
		calls:         NewCallSessionRepository(backend),
	}
}

func (r *Repositories) Users() storage.UserRepository                 { return r.users }
func (r *Repositories) Conversations() storage.ConversationRepository { return r.conversations }
func (r *Repositories) Members() storage.ConversationMemberRepository { return r.members }
func (r *Repositories) Messages() storage.MessageRepository           { return r.messages }
func (r *Repositories) Calls() storage.CallSessionRepository          { return r.calls }

// Backend returns the underlying table layer.
func (r *Repositories) Backend() *Backend {
	return r.backend
}

// Close closes the backend.
func (r *Repositories) Close() error {
	return r.backend.Close()
}
