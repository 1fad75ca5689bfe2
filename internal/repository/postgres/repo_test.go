package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/internal/database"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

// openPool connects to XCHAT_TEST_DATABASE_URL and skips when it is unset.
// Tables are truncated before each test.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("XCHAT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("XCHAT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE messages, channels`)
	require.NoError(t, err)
	return pool
}

func newChannel(at time.Time, members ...string) *domain.Channel {
	names := make([]domain.Name, 0, len(members))
	for _, m := range members {
		names = append(names, domain.MustParseName(m))
	}
	return &domain.Channel{
		ID:        uuid.Must(uuid.NewV7()),
		Members:   domain.MemberSet(names...),
		CreatedAt: domain.Millis(at),
	}
}

func TestChannelRepo(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewChannelRepo(openPool(t))

	base := time.Now().Add(-time.Hour)
	name := domain.MustParseName("general")
	first := newChannel(base, "alice", "bob")
	first.Name = &name
	second := newChannel(base.Add(time.Second), "alice")
	third := newChannel(base.Add(2*time.Second), "carol")
	for _, ch := range []*domain.Channel{first, second, third} {
		req.NoError(repo.Create(ctx, ch))
	}

	got, err := repo.GetByID(ctx, first.ID)
	req.NoError(err)
	req.Equal("general", got.Name.String())
	req.Equal(first.Members, got.Members)
	req.True(got.CreatedAt.Equal(first.CreatedAt))

	missing, err := repo.GetByID(ctx, uuid.New())
	req.NoError(err)
	req.Nil(missing)

	list, err := repo.List(ctx, repository.ChannelFilter{Members: []domain.Name{domain.MustParseName("alice")}}, domain.Page{Size: 10})
	req.NoError(err)
	req.Len(list, 2)
	req.Equal(second.ID, list[0].ID)

	after := first.CreatedAt
	list, err = repo.List(ctx, repository.ChannelFilter{CreatedAfter: &after}, domain.Page{Size: 10})
	req.NoError(err)
	req.Len(list, 2)

	list, err = repo.List(ctx, repository.ChannelFilter{}, domain.Page{Number: 1, Size: 2})
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(first.ID, list[0].ID)

	req.NoError(repo.Ping(ctx))
}

func TestMessageRepo(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	pool := openPool(t)
	channels := NewChannelRepo(pool)
	messages := NewMessageRepo(pool)

	ch := newChannel(time.Now(), "alice")
	req.NoError(channels.Create(ctx, ch))

	at := domain.Millis(time.Now())
	text := &domain.Message{ID: uuid.Must(uuid.NewV7()), ChannelID: ch.ID, Sender: domain.MustParseName("alice"), SentAt: at, Content: domain.TextContent{Text: "hi"}}
	file := &domain.Message{ID: uuid.Must(uuid.NewV7()), ChannelID: ch.ID, Sender: domain.MustParseName("alice"), SentAt: at.Add(time.Millisecond),
		Content: domain.FileContent{Name: "a.txt", Size: 3, StorageKey: "k", Checksum: "c"}}
	req.NoError(messages.Create(ctx, text))
	req.NoError(messages.Create(ctx, file))

	got, err := messages.GetByID(ctx, file.ID)
	req.NoError(err)
	req.Equal(file.Content, got.Content)

	list, err := messages.List(ctx, repository.MessageFilter{ChannelID: ch.ID}, domain.Page{Size: 10})
	req.NoError(err)
	req.Len(list, 2)
	req.Equal(file.ID, list[0].ID)

	before := file.SentAt
	list, err = messages.List(ctx, repository.MessageFilter{ChannelID: ch.ID, SentBefore: &before}, domain.Page{Size: 10})
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(text.ID, list[0].ID)

	orphan := &domain.Message{ID: uuid.Must(uuid.NewV7()), ChannelID: uuid.New(), Sender: domain.MustParseName("alice"), SentAt: at, Content: domain.TextContent{Text: "x"}}
	req.ErrorIs(messages.Create(ctx, orphan), domain.ErrNotFound)
}
