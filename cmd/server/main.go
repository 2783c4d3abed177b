package main

import (
	"log/slog"
	"os"
	"strings"

	"go-micropost/internal/app"
	"go-micropost/internal/logger"
)

func main() {
	production := strings.EqualFold(strings.TrimSpace(os.Getenv("ENV")), "production")
	slog.SetDefault(slog.New(logger.New(os.Stdout, production, slog.LevelInfo)))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
