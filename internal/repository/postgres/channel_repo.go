package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	query := `
		INSERT INTO channels (id, name, members, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query,
		ch.ID, nameOrNil(ch.Name), domain.NameStrings(ch.Members), ch.CreatedAt,
	)
	if err != nil {
		return repository.StorageError("insert channel", err)
	}
	return nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	query := `SELECT id, name, members, created_at FROM channels WHERE id = $1`
	ch, err := scanChannel(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repository.StorageError("get channel", err)
	}
	return ch, nil
}

func (r *ChannelRepo) List(ctx context.Context, filter repository.ChannelFilter, page domain.Page) ([]domain.Channel, error) {
	var conds []string
	var args []any

	if len(filter.Members) > 0 {
		args = append(args, domain.NameStrings(filter.Members))
		conds = append(conds, fmt.Sprintf("members @> $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		conds = append(conds, fmt.Sprintf("created_at > $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`SELECT id, name, members, created_at FROM channels %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, repository.StorageError("list channels", err)
	}
	defer rows.Close()

	channels := []domain.Channel{}
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, repository.StorageError("scan channel", err)
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list channels", err)
	}
	return channels, nil
}

func (r *ChannelRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return repository.StorageError("ping", err)
	}
	return nil
}

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var (
		ch      domain.Channel
		name    *string
		members []string
	)
	if err := row.Scan(&ch.ID, &name, &members, &ch.CreatedAt); err != nil {
		return nil, err
	}
	if name != nil {
		n := domain.StoredName(*name)
		ch.Name = &n
	}
	ch.Members = domain.StoredNames(members)
	ch.CreatedAt = ch.CreatedAt.UTC()
	return &ch, nil
}

func nameOrNil(n *domain.Name) *string {
	if n == nil {
		return nil
	}
	s := n.String()
	return &s
}
