// Package chat implements messaging operations on top of the storage
// repositories. It holds no storage logic of its own and behaves the same
// on every backend, within the limits documented in package storage.
package chat

import (
	"log/slog"

	"github.com/poiesic/parley/storage"
	"golang.org/x/crypto/bcrypt"
)

// Service performs chat operations against one set of repositories.
type Service struct {
	users         storage.UserRepository
	conversations storage.ConversationRepository
	members       storage.ConversationMemberRepository
	messages      storage.MessageRepository
	calls         storage.CallSessionRepository
	bcryptCost    int
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost sets the bcrypt cost used for password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service over repos.
func NewService(repos storage.Repositories, opts ...Option) *Service {
	s := &Service{
		users:         repos.Users(),
		conversations: repos.Conversations(),
		members:       repos.Members(),
		messages:      repos.Messages(),
		calls:         repos.Calls(),
		bcryptCost:    bcrypt.DefaultCost,
		logger:        slog.Default().With("component", "chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
