package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/xchat/internal/config"
)

func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	id         UUID PRIMARY KEY,
	name       TEXT,
	members    TEXT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS channels_created_at_idx ON channels (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS channels_members_idx ON channels USING GIN (members);

CREATE TABLE IF NOT EXISTS messages (
	id          UUID PRIMARY KEY,
	channel_id  UUID NOT NULL REFERENCES channels (id),
	sender      TEXT NOT NULL,
	sent_at     TIMESTAMPTZ NOT NULL,
	kind        TEXT NOT NULL CHECK (kind IN ('text', 'file')),
	text        TEXT,
	file_name   TEXT,
	file_size   BIGINT,
	storage_key TEXT,
	checksum    TEXT
);
CREATE INDEX IF NOT EXISTS messages_channel_sent_at_idx ON messages (channel_id, sent_at DESC, id DESC);
`

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// OpenBadger opens the embedded store. An empty dir opens an in-memory database.
func OpenBadger(dir string, logger *slog.Logger) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(badgerLogger{log: logger.With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", dir, err)
	}
	return db, nil
}

// badgerLogger routes badger's printf logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
