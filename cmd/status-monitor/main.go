// Command status-monitor polls configured HTTP endpoints and serves their status.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bissquit/status-monitor/internal/app"
	"github.com/bissquit/status-monitor/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $STATUS_CONFIG or config.yaml)")
	flag.Parse()

	path, err := config.ResolvePath(*configPath)
	if err != nil {
		slog.Error("resolve config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("load config", "path", path, "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("initialize application", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server stopped", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		slog.Error("shutdown", "error", err)
		os.Exit(1)
	}
}
