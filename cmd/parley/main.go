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


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/parley"
	"github.com/poiesic/parley/chat"
	"github.com/poiesic/parley/config"
	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/seed"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "parley",
		Usage: "Messaging storage over a relational or key-value backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"PARLEY_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"PARLEY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Storage backend (relational, keyvalue)",
				EnvVars: []string{"PARLEY_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "Relational driver (postgres, sqlite)",
				EnvVars: []string{"PARLEY_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Relational connection string",
				EnvVars: []string{"PARLEY_DSN"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"PARLEY_DATA_DIR"},
			},
			&cli.BoolFlag{
				Name:    "in-memory",
				Usage:   "Keep the key-value backend in memory",
				EnvVars: []string{"PARLEY_IN_MEMORY"},
			},
			&cli.BoolFlag{
				Name:    "auto-create-tables",
				Usage:   "Create missing tables and indexes at startup",
				EnvVars: []string{"PARLEY_AUTO_CREATE_TABLES"},
			},
			&cli.DurationFlag{
				Name:    "provision-timeout",
				Usage:   "How long to wait for each key-value table to become active",
				EnvVars: []string{"PARLEY_PROVISION_TIMEOUT"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "provision",
				Usage:  "Create every table and index, then exit",
				Action: provisionCommand,
			},
			{
				Name:   "seed",
				Usage:  "Register demo users and fill a conversation with messages",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "users",
						Usage: "Number of users to register",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "messages",
						Usage: "Number of messages to send",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Worker pool size",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N messages",
						Value: 100,
					},
					&cli.StringFlag{
						Name:  "username-prefix",
						Usage: "Prefix for generated usernames (random if empty)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password for every seeded user",
						Value: seed.DefaultPassword,
					},
					&cli.IntFlag{
						Name:  "bcrypt-cost",
						Usage: "bcrypt cost for password hashes",
						Value: bcrypt.DefaultCost,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Print messages of a conversation, newest first",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "conversation",
						Usage:    "Conversation ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of messages",
						Value: 50,
					},
					&cli.TimestampFlag{
						Name:   "before",
						Usage:  "Only messages created before this RFC3339 time",
						Layout: time.RFC3339Nano,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Print the whole history, --limit messages per page",
					},
				},
			},
		},
	}
}

// loadConfig builds the storage config from the config file, then the
// global flags and their environment variables.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var opts []config.ConfigOption
	if c.IsSet("backend") {
		opts = append(opts, config.WithBackend(config.Backend(c.String("backend"))))
	}
	if c.IsSet("driver") {
		opts = append(opts, config.WithDriver(c.String("driver")))
	}
	if c.IsSet("dsn") {
		opts = append(opts, config.WithDSN(c.String("dsn")))
	}
	if c.IsSet("data-dir") {
		opts = append(opts, config.WithDataDir(c.String("data-dir")))
	}
	if c.IsSet("in-memory") {
		opts = append(opts, config.WithInMemory(c.Bool("in-memory")))
	}
	if c.IsSet("auto-create-tables") {
		opts = append(opts, config.WithAutoCreateTables(c.Bool("auto-create-tables")))
	}
	if c.IsSet("provision-timeout") {
		opts = append(opts, config.WithProvisionTimeout(c.Duration("provision-timeout")))
	}
	cfg.Apply(opts...)
	return cfg, cfg.Validate()
}

func openDatabase(ctx context.Context, c *cli.Context, opts ...config.ConfigOption) (*parley.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg.Apply(opts...)
	return parley.Open(ctx, cfg)
}

func provisionCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c, config.WithAutoCreateTables(true))
	if err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(c.App.Writer, "%s backend provisioned\n", db.Backend())
	return nil
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []seed.Option{
		seed.WithWorkers(c.Int("workers")),
		seed.WithPassword(c.String("password")),
		seed.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	}
	if prefix := c.String("username-prefix"); prefix != "" {
		opts = append(opts, seed.WithUsernamePrefix(prefix))
	}
	svc := db.NewChatService(chat.WithBcryptCost(c.Int("bcrypt-cost")))
	seeder, err := seed.NewSeeder(svc, opts...)
	if err != nil {
		return err
	}
	defer seeder.Release()

	result, err := seeder.Run(ctx, seed.Plan{
		Users:    c.Int("users"),
		Messages: c.Int("messages"),
	})
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "conversation %s\n", result.Conversation.Id)
	fmt.Fprintf(c.App.Writer, "users %d, messages %d\n", len(result.Users), result.Messages)
	return nil
}

func historyCommand(c *cli.Context) error {
	ctx := context.Background()

	conversationID, err := core.ParseID(c.String("conversation"))
	if err != nil {
		return fmt.Errorf("invalid conversation id: %w", err)
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := db.NewChatService()
	if c.Bool("all") {
		return svc.NewHistoryIterator(conversationID, c.Int("limit")).ForEach(ctx, func(page []*core.Message) error {
			printMessages(c.App.Writer, page)
			return nil
		})
	}

	messages, err := svc.History(ctx, conversationID, c.Timestamp("before"), c.Int("limit"))
	if err != nil {
		return err
	}
	printMessages(c.App.Writer, messages)
	return nil
}

func printMessages(w io.Writer, messages []*core.Message) {
	for _, m := range messages {
		fmt.Fprintf(w, "%s  %s  %s\n",
			m.CreatedAt.Format(time.RFC3339Nano), m.SenderId, m.Content)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
