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

// Package config holds the settings that choose and prepare a storage
// backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names a storage backend.
type Backend string

const (
	// BackendRelational stores entities in PostgreSQL or SQLite tables.
	BackendRelational Backend = "relational"
	// BackendKeyValue stores entities as BadgerDB items with secondary indexes.
	BackendKeyValue Backend = "keyvalue"
)

// Config holds storage configuration. It is read once at startup.
type Config struct {
	// Backend selects the storage backend.
	// Default: keyvalue
	Backend Backend `yaml:"backend"`

	// AutoCreateTables creates missing tables and indexes at startup.
	// Default: false
	AutoCreateTables bool `yaml:"auto_create_tables"`

	// ProvisionTimeout bounds the wait for each key-value table to become
	// ACTIVE.
	// Default: 30s
	ProvisionTimeout time.Duration `yaml:"provision_timeout"`

	Relational RelationalConfig `yaml:"relational"`
	KeyValue   KeyValueConfig   `yaml:"keyvalue"`
}

// RelationalConfig configures the relational backend.
type RelationalConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `yaml:"driver"`
	// DSN is the driver's connection string.
	DSN string `yaml:"dsn"`
}

// KeyValueConfig configures the key-value backend.
type KeyValueConfig struct {
	// Path is the BadgerDB directory.
	Path string `yaml:"path"`
	// InMemory keeps everything in memory; Path is ignored.
	InMemory bool `yaml:"in_memory"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend selects the storage backend.
func WithBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithAutoCreateTables enables or disables schema creation at startup.
func WithAutoCreateTables(enabled bool) ConfigOption {
	return func(c *Config) {
		c.AutoCreateTables = enabled
	}
}

// WithProvisionTimeout sets the bounded wait for key-value tables.
func WithProvisionTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.ProvisionTimeout = timeout
	}
}

// WithDriver sets the relational driver.
func WithDriver(driver string) ConfigOption {
	return func(c *Config) {
		c.Relational.Driver = driver
	}
}

// WithDSN sets the relational connection string.
func WithDSN(dsn string) ConfigOption {
	return func(c *Config) {
		c.Relational.DSN = dsn
	}
}

// WithDataDir sets the BadgerDB directory.
func WithDataDir(path string) ConfigOption {
	return func(c *Config) {
		c.KeyValue.Path = path
	}
}

// WithInMemory keeps the key-value backend in memory.
func WithInMemory(inMemory bool) ConfigOption {
	return func(c *Config) {
		c.KeyValue.InMemory = inMemory
	}
}

// DefaultConfig returns a Config for a local BadgerDB directory with schema
// creation disabled.
func DefaultConfig() *Config {
	return &Config{
		Backend:          BackendKeyValue,
		AutoCreateTables: false,
		ProvisionTimeout: 30 * time.Second,
		Relational: RelationalConfig{
			Driver: "postgres",
			DSN:    "postgres://localhost:5432/parley?sslmode=disable",
		},
		KeyValue: KeyValueConfig{
			Path: "./data",
		},
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBackend(BackendRelational),
//	    WithDriver("sqlite"),
//	    WithDSN("parley.db"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return cfg
}

// Apply applies options to an existing Config.
func (c *Config) Apply(opts ...ConfigOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize puts the configuration in canonical form.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	c.Relational.Driver = strings.ToLower(strings.TrimSpace(c.Relational.Driver))
}

// Validate checks that the configuration is complete for the selected
// backend. It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendRelational:
		if c.Relational.Driver != "postgres" && c.Relational.Driver != "sqlite" {
			return fmt.Errorf("config: relational.driver must be postgres or sqlite, got %q", c.Relational.Driver)
		}
		if c.Relational.DSN == "" {
			return errors.New("config: relational.dsn is required")
		}
	case BackendKeyValue:
		if !c.KeyValue.InMemory && c.KeyValue.Path == "" {
			return errors.New("config: keyvalue.path is required unless keyvalue.in_memory is set")
		}
	default:
		return fmt.Errorf("config: backend must be %s or %s, got %q", BackendRelational, BackendKeyValue, c.Backend)
	}

	if c.ProvisionTimeout <= 0 {
		return errors.New("config: provision_timeout must be positive")
	}
	return nil
}
