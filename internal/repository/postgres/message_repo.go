package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// SQLSTATE of an insert that references a missing channel.
const foreignKeyViolation = "23503"

const messageColumns = `id, channel_id, sender, sent_at, kind, text, file_name, file_size, storage_key, checksum`

// messageRow is the flattened form of domain.Message. Only the columns of the
// content kind are set.
type messageRow struct {
	kind       domain.ContentKind
	text       *string
	fileName   *string
	fileSize   *int64
	storageKey *string
	checksum   *string
}

func toRow(c domain.Content) (messageRow, error) {
	switch v := c.(type) {
	case domain.TextContent:
		return messageRow{kind: domain.ContentKindText, text: &v.Text}, nil
	case domain.FileContent:
		return messageRow{
			kind:       domain.ContentKindFile,
			fileName:   &v.Name,
			fileSize:   &v.Size,
			storageKey: &v.StorageKey,
			checksum:   &v.Checksum,
		}, nil
	default:
		return messageRow{}, fmt.Errorf("unsupported message content %T", c)
	}
}

func (row messageRow) content() (domain.Content, error) {
	switch row.kind {
	case domain.ContentKindText:
		return domain.TextContent{Text: deref(row.text)}, nil
	case domain.ContentKindFile:
		var size int64
		if row.fileSize != nil {
			size = *row.fileSize
		}
		return domain.FileContent{
			Name:       deref(row.fileName),
			Size:       size,
			StorageKey: deref(row.storageKey),
			Checksum:   deref(row.checksum),
		}, nil
	default:
		return nil, fmt.Errorf("unknown message kind %q", row.kind)
	}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	row, err := toRow(msg.Content)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.pool.Exec(ctx, query,
		msg.ID, msg.ChannelID, msg.Sender.String(), msg.SentAt, row.kind,
		row.text, row.fileName, row.fileSize, row.storageKey, row.checksum,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("channel %s: %w", msg.ChannelID, domain.ErrNotFound)
	}
	if err != nil {
		return repository.StorageError("insert message", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repository.StorageError("get message", err)
	}
	return msg, nil
}

func (r *MessageRepo) List(ctx context.Context, filter repository.MessageFilter, page domain.Page) ([]domain.Message, error) {
	var query string
	var args []any

	if filter.SentBefore != nil {
		query = `SELECT ` + messageColumns + ` FROM messages
			WHERE channel_id = $1 AND sent_at < $2
			ORDER BY sent_at DESC, id DESC
			LIMIT $3 OFFSET $4`
		args = []any{filter.ChannelID, *filter.SentBefore, page.Size, page.Offset()}
	} else {
		query = `SELECT ` + messageColumns + ` FROM messages
			WHERE channel_id = $1
			ORDER BY sent_at DESC, id DESC
			LIMIT $2 OFFSET $3`
		args = []any{filter.ChannelID, page.Size, page.Offset()}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, repository.StorageError("scan message", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	return messages, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg    domain.Message
		sender string
		mr     messageRow
	)
	err := row.Scan(&msg.ID, &msg.ChannelID, &sender, &msg.SentAt, &mr.kind,
		&mr.text, &mr.fileName, &mr.fileSize, &mr.storageKey, &mr.checksum)
	if err != nil {
		return nil, err
	}
	content, err := mr.content()
	if err != nil {
		return nil, err
	}
	msg.Sender = domain.StoredName(sender)
	msg.SentAt = msg.SentAt.UTC()
	msg.Content = content
	return &msg, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
