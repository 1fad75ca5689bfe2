package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vedran77/xchat/internal/app"
	"github.com/vedran77/xchat/internal/config"
	"github.com/vedran77/xchat/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if config.IsHelp(err) {
			return 0
		}
		return 2
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("starting server", "error", err)
		return 1
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		return 1
	}
	return 0
}
