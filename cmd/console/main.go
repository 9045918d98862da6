package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightline/console-auth/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting console session core",
		"addr", cfg.HTTP.Addr,
		"backend", cfg.Backend.BaseURL,
		"durable_store", cfg.Redis.Enabled())

	core, err := bootstrap.BuildSessionCore(bootstrap.CoreConfig{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	// One startup pass: restore, refresh, resolve, then Ready.
	core.Bootstrapper.Run(ctx)

	server := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config: &cfg,
		Core:   core,
		Logger: logger,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	return bootstrap.ShutdownHTTPServer(ctx, server, logger)
}
