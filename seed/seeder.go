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


// Package seed fills a database with demo users, a conversation and
// messages.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/parley/chat"
	"github.com/poiesic/parley/core"
)

// ErrInvalidPlan is returned by Run for a plan it cannot carry out.
var ErrInvalidPlan = errors.New("invalid seed plan")

// DefaultPassword is the password given to seeded users.
const DefaultPassword = "parley"

// Plan describes how much data to create.
type Plan struct {
	Users    int
	Messages int
}

// Result reports what a run created.
type Result struct {
	Users        []*core.User
	Conversation *core.Conversation
	Messages     int
}

// Seeder creates demo data through a chat.Service. Registrations and
// messages are spread over a worker pool.
type Seeder struct {
	svc            *chat.Service
	pool           *ants.Pool
	prefix         string
	password       string
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Seeder.
type Option func(*Seeder) error

// WithWorkers sets the worker pool size. Default is runtime.NumCPU().
func WithWorkers(size int) Option {
	return func(s *Seeder) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithUsernamePrefix sets the prefix of generated usernames. The default
// prefix is random so repeated runs do not collide.
func WithUsernamePrefix(prefix string) Option {
	return func(s *Seeder) error {
		if len(prefix)+8 > core.MaxUsernameLength {
			return fmt.Errorf("%w: username prefix too long", ErrInvalidPlan)
		}
		s.prefix = prefix
		return nil
	}
}

// WithPassword sets the password of seeded users.
func WithPassword(password string) Option {
	return func(s *Seeder) error {
		s.password = password
		return nil
	}
}

// WithProgress writes a progress line for each phase to w, updated every
// interval completed tasks.
func WithProgress(w io.Writer, interval int) Option {
	return func(s *Seeder) error {
		s.progress = w
		s.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Seeder) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSeeder creates a Seeder. Call Release when done.
func NewSeeder(svc *chat.Service, opts ...Option) (*Seeder, error) {
	if svc == nil {
		return nil, errors.New("chat service is required")
	}
	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	s := &Seeder{
		svc:            svc,
		pool:           pool,
		prefix:         "seed-" + core.NewID().String()[:8] + "-",
		password:       DefaultPassword,
		reportInterval: 100,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	return s, nil
}

// Release stops the worker pool.
func (s *Seeder) Release() {
	s.pool.Release()
}

// Run registers plan.Users users, puts all of them in one conversation and
// sends plan.Messages messages from them in turn. It stops at the first
// error; data written before the error stays.
func (s *Seeder) Run(ctx context.Context, plan Plan) (*Result, error) {
	if plan.Users < 2 {
		return nil, fmt.Errorf("%w: need at least 2 users, got %d", ErrInvalidPlan, plan.Users)
	}
	if plan.Messages < 0 {
		return nil, fmt.Errorf("%w: negative message count", ErrInvalidPlan)
	}

	p := newProgress(s.progress, s.reportInterval)

	users := make([]*core.User, plan.Users)
	p.begin(phaseUsers, plan.Users)
	err := s.fanOut(ctx, plan.Users, p, func(i int) error {
		username := fmt.Sprintf("%s%04d", s.prefix, i)
		u, err := s.svc.Register(ctx, username, fmt.Sprintf("Seed User %d", i), s.password)
		if err != nil {
			return fmt.Errorf("registering %s: %w", username, err)
		}
		users[i] = u
		return nil
	})
	registered, elapsed := p.end()
	if err != nil {
		return nil, err
	}
	s.logger.Info("users registered", "count", registered, "elapsed", elapsed)

	ids := make([]core.ID, len(users))
	for i, u := range users {
		ids[i] = u.Id
	}
	conversation, _, err := s.svc.CreateConversation(ctx, len(ids) == 2, ids)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	result := &Result{Users: users, Conversation: conversation}
	p.begin(phaseMessages, plan.Messages)
	err = s.fanOut(ctx, plan.Messages, p, func(i int) error {
		sender := ids[i%len(ids)]
		if _, err := s.svc.SendMessage(ctx, conversation.Id, sender, fmt.Sprintf("seed message %d", i)); err != nil {
			return fmt.Errorf("sending message %d: %w", i, err)
		}
		return nil
	})
	result.Messages, elapsed = p.end()
	if err != nil {
		return result, err
	}
	s.logger.Info("messages sent",
		"conversation", conversation.Id,
		"count", result.Messages,
		"elapsed", elapsed)
	return result, nil
}

// fanOut runs task for 0..n-1 on the pool and waits. It returns the first
// error; tasks not yet started when an error or cancellation is seen are
// skipped.
func (s *Seeder) fanOut(ctx context.Context, n int, p *progress, task func(i int) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		if failed() {
			break
		}
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if failed() {
				return
			}
			if err := task(i); err != nil {
				fail(err)
				return
			}
			p.add()
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submitting task: %w", err))
			break
		}
	}
	wg.Wait()
	return firstErr
}
