package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a user with a bcrypt password hash.
//
// The username check and the save are two separate calls. The relational
// backend still rejects a duplicate through its unique constraint; the
// key-value backend does not, so two concurrent registrations can both
// succeed there.
func (s *Service) Register(ctx context.Context, username, displayName, password string) (*core.User, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.users.Save(ctx, &core.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user", user.Id, "username", username)
	return user, nil
}

// Login returns the user when password matches the stored hash.
func (s *Service) Login(ctx context.Context, username, password string) (*core.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile changes a user's display name and avatar.
func (s *Service) UpdateProfile(ctx context.Context, userID core.ID, displayName, avatarURL string) (*core.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	user.DisplayName = displayName
	user.AvatarURL = avatarURL
	return s.users.Save(ctx, user)
}
