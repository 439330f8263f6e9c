package main

import (
	"log/slog"
	"os"

	"tenant-auth-core/internal/app"
	"tenant-auth-core/internal/config"
	"tenant-auth-core/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.New(os.Stdout, cfg.LogFormat, logger.ParseLevel(cfg.LogLevel))))
	slog.Info("starting tenant auth core",
		"port", cfg.ServerPort,
		"redis", cfg.RedisAddr != "",
		"action_token_timezone", cfg.ActionTokenTimezone,
	)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
