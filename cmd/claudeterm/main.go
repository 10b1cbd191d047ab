package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/claudeterm/internal/api"
	"github.com/user/claudeterm/internal/broadcast"
	"github.com/user/claudeterm/internal/cache"
	"github.com/user/claudeterm/internal/config"
	"github.com/user/claudeterm/internal/db"
	"github.com/user/claudeterm/internal/hub"
	"github.com/user/claudeterm/internal/monitor"
	"github.com/user/claudeterm/internal/registry"
	"github.com/user/claudeterm/internal/server"
	"github.com/user/claudeterm/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	agents, err := registry.NewRegistry(cfg.AgentsDir)
	if err != nil {
		slog.Error("failed to load agent profiles", "error", err)
		os.Exit(1)
	}

	bc := broadcast.NewRegistry()
	metrics := monitor.New(0)
	responses := cache.New(0, 0)

	sessions := session.NewRegistry(session.Deps{
		Broadcast:      bc,
		SessionRepo:    db.NewSessionRepo(database.SQL()),
		TranscriptRepo: db.NewTranscriptRepo(database.SQL()),
		Metrics:        metrics,
		Responses:      responses,
		Agents:         agents,
		DefaultCommand: cfg.DefaultShell,
		WorkDir:        cfg.WorkDir,
	})

	h := hub.New(cfg.Token, bc, sessions)

	if cfg.PrintToken {
		fmt.Printf("\nclaudeterm running at ws://localhost:%d/ws/terminal/{project}?token=%s\n\n", cfg.Port, cfg.Token)
	} else {
		fmt.Printf("\nclaudeterm running on port %d (token in %s)\n\n", cfg.Port, cfg.ConfigPath)
	}

	apiHandler := api.NewRouter(database.SQL(), agents, cfg.Token)

	srv := server.New(cfg, h, database.SQL(), metrics, apiHandler)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
