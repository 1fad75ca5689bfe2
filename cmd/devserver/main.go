// Command devserver runs the server and rebuilds it whenever a watched path
// changes. Configuration is read the same way as cmd/server, plus --watch.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/vedran77/xchat/internal/app"
	"github.com/vedran77/xchat/internal/config"
	"github.com/vedran77/xchat/internal/telemetry"
)

const debounce = 300 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	watchPath, rest := splitWatchFlag(args)

	cfg, err := config.Load(rest)
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

	if err := watch(ctx, cfg, rest, watchPath, logger); err != nil {
		logger.Error("devserver failed", "error", err)
		return 1
	}
	return 0
}

// splitWatchFlag pulls --watch=<path> out of args. The default is ".env".
func splitWatchFlag(args []string) (string, []string) {
	path := ".env"
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--watch" && i+1 < len(args):
			path = args[i+1]
			i++
		case strings.HasPrefix(a, "--watch="):
			path = strings.TrimPrefix(a, "--watch=")
		default:
			rest = append(rest, a)
		}
	}
	return path, rest
}

func watch(ctx context.Context, cfg *config.Config, args []string, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so editors that replace the file are noticed.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	srv, err := startServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		var serveErrs <-chan error
		if srv != nil {
			serveErrs = srv.Errors()
		}

		select {
		case <-ctx.Done():
			if srv == nil {
				return nil
			}
			return stopServer(srv, cfg)
		case err, ok := <-serveErrs:
			if ok {
				_ = stopServer(srv, cfg)
				return err
			}
		case ev := <-w.Events:
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err := <-w.Errors:
			logger.Warn("watcher error", "error", err)
		case <-fire:
			fire = nil
			logger.Info("change detected, restarting", "path", path)
			if srv != nil {
				if err := stopServer(srv, cfg); err != nil {
					logger.Error("stopping server", "error", err)
				}
				srv = nil
			}
			// Overload so edited values replace the ones loaded at startup.
			if strings.HasSuffix(abs, ".env") {
				_ = godotenv.Overload(abs)
			}
			if next, err := config.Load(args); err != nil {
				logger.Error("reloading config, keeping previous", "error", err)
			} else {
				cfg = next
			}
			if srv, err = startServer(ctx, cfg, logger); err != nil {
				logger.Error("restart failed, waiting for the next change", "error", err)
				srv = nil
			}
		}
	}
}

func startServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Server, error) {
	srv, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		_ = srv.Stop(context.Background())
		return nil, err
	}
	return srv, nil
}

func stopServer(srv *app.Server, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Stop(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("server did not stop within %s: %w", cfg.ShutdownTimeout, err)
	}
	return err
}
