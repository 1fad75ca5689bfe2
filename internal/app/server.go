// Package app wires configuration into a running server: storage backend,
// services, router and background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vedran77/xchat/internal/config"
	"github.com/vedran77/xchat/internal/database"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/internal/repository/filesystem"
	"github.com/vedran77/xchat/internal/repository/kv"
	postgresrepo "github.com/vedran77/xchat/internal/repository/postgres"
	"github.com/vedran77/xchat/internal/service"
	"github.com/vedran77/xchat/internal/telemetry"
	"github.com/vedran77/xchat/internal/transport/http/handlers"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	reporter *telemetry.Reporter
	http     *http.Server
	sweeper  *filesystem.Sweeper
	closers  []func() error

	listener net.Listener
	errs     chan error
}

type stores struct {
	channels repository.ChannelRepository
	messages repository.MessageRepository
	closers  []func() error
}

// New builds a server without starting it. Resources opened here are
// released by Stop, or right away when New fails.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Server, err error) {
	s := &Server{cfg: cfg, logger: logger, errs: make(chan error, 1)}
	defer func() {
		if err != nil {
			s.closeStores()
		}
	}()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.closers = st.closers

	files, err := filesystem.NewFileStore(cfg.Files.Dir)
	if err != nil {
		return nil, err
	}
	s.sweeper = filesystem.NewSweeper(cfg.Files.Dir, cfg.Files.PartialMaxAge, logger)

	s.reporter, err = telemetry.NewReporter(cfg.SentryDSN, Version)
	if err != nil {
		return nil, err
	}
	var metrics *telemetry.Metrics
	if cfg.Metrics {
		metrics = telemetry.NewMetrics()
	}

	messages := service.NewMessageService(st.messages, st.channels, files, service.NewSequencer())
	router := handlers.NewRouter(handlers.RouterDeps{
		Channels:  service.NewChannelService(st.channels),
		Messages:  messages,
		Files:     service.NewFileService(files, messages, logger),
		Health:    st.channels,
		Logger:    logger,
		Reporter:  s.reporter,
		Metrics:   metrics,
		JWTSecret: cfg.JWTSecret,
	})

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return s, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.Store {
	case "postgres":
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to postgres", "host", cfg.DB.Host, "database", cfg.DB.Name)
		return &stores{
			channels: postgresrepo.NewChannelRepo(pool),
			messages: postgresrepo.NewMessageRepo(pool),
			closers:  []func() error{func() error { pool.Close(); return nil }},
		}, nil
	case "badger":
		db, err := database.OpenBadger(cfg.Badger.Dir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("opened badger store", "dir", cfg.Badger.Dir)
		return &stores{
			channels: kv.NewChannelRepo(db),
			messages: kv.NewMessageRepo(db),
			closers:  []func() error{db.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start binds the listen address and serves in the background. Serve
// failures arrive on Errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.http.Addr, err)
	}
	if err := s.sweeper.Start(s.cfg.Files.SweepSchedule); err != nil {
		_ = ln.Close()
		return err
	}
	s.listener = ln
	s.logger.Info("server listening", "addr", ln.Addr().String(), "store", s.cfg.Store)

	go func() {
		defer close(s.errs)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

// Addr is the bound address once Start returned.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Errors() <-chan error {
	return s.errs
}

// Stop drains in-flight requests, stops the sweeper and closes the stores.
func (s *Server) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.sweeper.Stop()
	s.closeStores()
	s.reporter.Flush(2 * time.Second)
	if err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) closeStores() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error("closing store", "error", err)
		}
	}
	s.closers = nil
}

// Run starts the server and blocks until ctx is done or serving fails, then
// shuts down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		s.closeStores()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err, ok := <-s.errs; ok {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Stop(stopCtx)
	})
	return g.Wait()
}
