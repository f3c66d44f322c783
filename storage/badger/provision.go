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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/parley/retry"
	"github.com/poiesic/parley/storage"
)

// DefaultProvisionTimeout bounds the wait for one table to become ACTIVE.
const DefaultProvisionTimeout = 30 * time.Second

// TableAdmin is the subset of the table layer the provisioner needs.
type TableAdmin interface {
	DescribeTable(ctx context.Context, name string) (*TableDescription, error)
	CreateTable(ctx context.Context, schema TableSchema) error
}

var _ TableAdmin = (*Backend)(nil)

// Provisioner creates missing tables and waits for them to become ACTIVE.
type Provisioner struct {
	admin   TableAdmin
	schemas []TableSchema
	timeout time.Duration
	poll    retry.Policy
	logger  *slog.Logger
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithProvisionTimeout sets the bounded wait per table.
func WithProvisionTimeout(timeout time.Duration) ProvisionerOption {
	return func(p *Provisioner) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithPollPolicy sets the backoff between status checks.
func WithPollPolicy(policy retry.Policy) ProvisionerOption {
	return func(p *Provisioner) {
		p.poll = policy
	}
}

// WithSchemas replaces the default table set.
func WithSchemas(schemas []TableSchema) ProvisionerOption {
	return func(p *Provisioner) {
		p.schemas = schemas
	}
}

// WithProvisionLogger sets the logger.
func WithProvisionLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvisioner creates a Provisioner for Schemas().
func NewProvisioner(admin TableAdmin, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		admin:   admin,
		schemas: Schemas(),
		timeout: DefaultProvisionTimeout,
		poll: retry.Policy{
			MaxAttempts: 1 << 20,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		logger: slog.Default().With("component", "provisioner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision makes sure every table exists and is ACTIVE. Tables that
// already exist are left alone, so running it again is a no-op.
func (p *Provisioner) Provision(ctx context.Context) error {
	for _, schema := range p.schemas {
		if err := p.provisionTable(ctx, schema); err != nil {
			return fmt.Errorf("provisioning %s: %w", schema.Name, err)
		}
	}
	return nil
}

func (p *Provisioner) provisionTable(ctx context.Context, schema TableSchema) error {
	_, err := p.admin.DescribeTable(ctx, schema.Name)
	switch {
	case err == nil:
		p.logger.Info("table exists, skipping", "table", schema.Name)
	case errors.Is(err, storage.ErrTableNotFound):
		if err := p.admin.CreateTable(ctx, schema); err != nil && !errors.Is(err, storage.ErrTableExists) {
			return err
		}
		p.logger.Info("table created", "table", schema.Name, "indexes", len(schema.Indexes))
	default:
		return err
	}
	return p.waitActive(ctx, schema.Name)
}

// waitActive polls DescribeTable until the table is ACTIVE or the timeout
// passes.
func (p *Provisioner) waitActive(ctx context.Context, name string) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	errPending := errors.New("table pending")
	err := retry.WithBackoff(waitCtx, func() error {
		desc, err := p.admin.DescribeTable(waitCtx, name)
		if err != nil {
			if errors.Is(err, storage.ErrTableNotFound) {
				return err
			}
			return retry.Permanent(err)
		}
		if desc.Status != TableStatusActive {
			p.logger.Debug("waiting for table", "table", name, "status", desc.Status)
			return errPending
		}
		return nil
	}, p.poll)

	if err == nil {
		p.logger.Info("table active", "table", name)
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", storage.ErrTableNotActive, name, p.timeout)
	}
	if errors.Is(err, errPending) {
		return fmt.Errorf("%w: %s", storage.ErrTableNotActive, name)
	}
	return err
}
