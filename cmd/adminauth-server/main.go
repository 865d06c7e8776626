package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/adminauth/internal/logger"
	"github.com/MrEthical07/adminauth/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := server.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Serve(ctx)
}
