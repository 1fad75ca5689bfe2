//go:generate mockgen -source=interfaces.go -destination=mocks/mock_repository.go -package=mocks
package repository

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/pkg/domain"
)

// ChannelFilter narrows a channel listing. Members is a superset match and
// CreatedAfter is exclusive.
type ChannelFilter struct {
	Members      []domain.Name
	CreatedAfter *time.Time
}

// MessageFilter narrows a message listing to one channel. SentBefore is exclusive.
type MessageFilter struct {
	ChannelID  uuid.UUID
	SentBefore *time.Time
}

// Lookups return (nil, nil) when the entity does not exist. Listings are
// ordered by timestamp then id, newest first.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	List(ctx context.Context, filter ChannelFilter, page domain.Page) ([]domain.Channel, error)
	Ping(ctx context.Context) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	List(ctx context.Context, filter MessageFilter, page domain.Page) ([]domain.Message, error)
}

type FileInfo struct {
	StorageKey string
	Size       int64
	Checksum   string
	ModTime    time.Time
}

type StoredFile struct {
	FileInfo
	Content io.ReadSeekCloser
}

// FileWriter receives the bytes of one upload. Nothing is visible to Open or
// Stat until Commit returns; Abort discards everything written so far.
type FileWriter interface {
	io.Writer
	Commit() (*FileInfo, error)
	Abort() error
}

// FileStore keeps file bytes addressed by (channel, file name).
type FileStore interface {
	Create(ctx context.Context, channelID uuid.UUID, name string) (FileWriter, error)
	Open(ctx context.Context, channelID uuid.UUID, name string) (*StoredFile, error)
	Stat(ctx context.Context, channelID uuid.UUID, name string) (*FileInfo, error)
	Remove(ctx context.Context, channelID uuid.UUID, name string) error
}

// StorageError marks err as a backend failure.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
