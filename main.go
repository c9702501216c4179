// docchat - chat with your documents, CSVs, and websites from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/auth"
	"github.com/jeranaias/docchat-tui/internal/bus"
	"github.com/jeranaias/docchat-tui/internal/cli"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/logging"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/stream"
	"github.com/jeranaias/docchat-tui/internal/ui"
	"github.com/jeranaias/docchat-tui/internal/watch"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docchat:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogPath(), cfg.Log.Level)
	defer logger.Sync()

	cmd := "chat"
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		cmd = os.Args[1]
	}

	switch cmd {
	case "version":
		fmt.Printf("docchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return nil
	case "login":
		return login(cfg, dir, false)
	case "signup":
		return login(cfg, dir, true)
	case "logout":
		auth.ClearCredentials(dir)
		fmt.Println("Signed out.")
		return nil
	case "chat":
		return chat(cfg, dir, logger, replRequested())
	default:
		return fmt.Errorf("unknown command %q (try: chat, login, signup, logout, version)", cmd)
	}
}

// replRequested reports whether --repl was passed anywhere on the line.
func replRequested() bool {
	for _, a := range os.Args[1:] {
		if a == "--repl" {
			return true
		}
	}
	return false
}

// chat wires the session and runs whichever surface fits the terminal.
func chat(cfg *config.Config, dir string, logger *zap.Logger, forceREPL bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var identity, displayName string
	if creds, err := auth.LoadCredentials(dir); err == nil {
		identity = creds.Email
		displayName = creds.DisplayName
	}

	durable, err := store.NewSQLiteTier(filepath.Join(dir, "docchat.db"))
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer durable.Close()
	adapter := store.NewAdapter(durable, store.NewMemoryTier(), logger)

	client := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Origin, logger).
		WithTimeout(cfg.Timeout())

	events := bus.New(logger)
	defer events.Close()

	streamCfg := stream.DefaultConfig()
	if cfg.Streaming.BaseDelayMs > 0 {
		streamCfg.BaseDelay = time.Duration(cfg.Streaming.BaseDelayMs) * time.Millisecond
	}
	if cfg.Streaming.SentencePauseMs > 0 {
		streamCfg.SentencePause = time.Duration(cfg.Streaming.SentencePauseMs) * time.Millisecond
	}
	if cfg.Streaming.CompressThreshold > 0 {
		streamCfg.CompressThreshold = cfg.Streaming.CompressThreshold
	}

	sess := session.New(session.Options{
		Identity:    identity,
		DisplayName: displayName,
		Client:      client,
		Adapter:     adapter,
		Events:      events,
		Logger:      logger,
		StreamCfg:   streamCfg,
	})
	if err := sess.SubscribeBus(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	sess.Mount(ctx)
	sess.RefreshCatalog(ctx)

	if cfg.Watch.Enabled && identity != "" {
		w, err := watch.New(cfg.OutboxDir(), identity, client, events, logger)
		if err != nil {
			logger.Warn("outbox watcher unavailable", zap.Error(err))
		} else {
			defer w.Close()
			if err := w.Watch(); err != nil {
				logger.Warn("outbox watch failed", zap.Error(err))
			}
		}
	}

	if forceREPL || !term.IsTerminal(int(os.Stdout.Fd())) {
		return cli.Run(ctx, sess, dir)
	}
	return ui.Run(ctx, sess)
}

// login prompts for credentials and stores the resulting identity.
func login(cfg *config.Config, dir string, signup bool) error {
	fmt.Print("email: ")
	var email string
	fmt.Scanln(&email)

	fmt.Print("password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	client := auth.NewClient(cfg.Backend.BaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var creds *auth.Credentials
	if signup {
		creds, err = client.SignUp(ctx, email, string(password))
	} else {
		creds, err = client.SignIn(ctx, email, string(password))
	}
	if err != nil {
		return err
	}
	if err := auth.SaveCredentials(dir, creds); err != nil {
		return err
	}
	fmt.Println("Signed in as", creds.Email)
	return nil
}
