// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package parley opens the configured storage backend and hands out the
// repository contracts over it.
package parley

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/parley/chat"
	"github.com/poiesic/parley/config"
	"github.com/poiesic/parley/seed"
	"github.com/poiesic/parley/storage"
	"github.com/poiesic/parley/storage/badger"
	"github.com/poiesic/parley/storage/sqlstore"
)

// Database is an open storage backend. The backend is chosen once, by Open,
// and does not change for the life of the Database.
type Database struct {
	backend config.Backend
	repos   storage.Repositories
	logger  *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used by the Database.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open validates cfg and opens the backend it selects. When
// cfg.AutoCreateTables is set, missing tables and indexes are created before
// Open returns.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		repos storage.Repositories
		err   error
	)
	switch cfg.Backend {
	case config.BackendRelational:
		repos, err = openRelational(ctx, cfg, options.logger)
	case config.BackendKeyValue:
		repos, err = openKeyValue(ctx, cfg, options.logger)
	default:
		err = fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger := options.logger.With("backend", string(cfg.Backend))
	logger.Info("database opened", "auto_create_tables", cfg.AutoCreateTables)
	return &Database{
		backend: cfg.Backend,
		repos:   repos,
		logger:  logger,
	}, nil
}

func openRelational(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Repositories, error) {
	db, err := sqlstore.Open(ctx, cfg.Relational.Driver, cfg.Relational.DSN, sqlstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.AutoCreateTables {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return sqlstore.NewRepositories(db), nil
}

func openKeyValue(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Repositories, error) {
	backend, err := badger.OpenBackend(cfg.KeyValue.Path, cfg.KeyValue.InMemory)
	if err != nil {
		return nil, err
	}
	if cfg.AutoCreateTables {
		provisioner := badger.NewProvisioner(backend,
			badger.WithProvisionTimeout(cfg.ProvisionTimeout),
			badger.WithProvisionLogger(logger.With("component", "provisioner")),
		)
		if err := provisioner.Provision(ctx); err != nil {
			backend.Close()
			return nil, fmt.Errorf("provisioning tables: %w", err)
		}
	}
	return badger.NewRepositories(backend), nil
}

// Close closes the backend.
func (db *Database) Close() error {
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Backend returns the backend selected at Open.
func (db *Database) Backend() config.Backend {
	return db.backend
}

func (db *Database) Repositories() storage.Repositories {
	return db.repos
}

func (db *Database) Users() storage.UserRepository {
	return db.repos.Users()
}

func (db *Database) Conversations() storage.ConversationRepository {
	return db.repos.Conversations()
}

func (db *Database) Members() storage.ConversationMemberRepository {
	return db.repos.Members()
}

func (db *Database) Messages() storage.MessageRepository {
	return db.repos.Messages()
}

func (db *Database) Calls() storage.CallSessionRepository {
	return db.repos.Calls()
}

func (db *Database) NewChatService(opts ...chat.Option) *chat.Service {
	return chat.NewService(db.repos, opts...)
}

func (db *Database) NewSeeder(opts ...seed.Option) (*seed.Seeder, error) {
	return seed.NewSeeder(db.NewChatService(), opts...)
}
