// Package main is the entry point for the agentbox server. It stays
// minimal: load configuration, set up logging, build the server, run it.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sufal6785/agentbox/internal/config"
	"github.com/sufal6785/agentbox/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Error("auth.jwt_secret is required (set AGENTBOX_AUTH_JWT_SECRET)")
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
