package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/internal/app"
	"github.com/vedran77/xchat/internal/config"
	"github.com/vedran77/xchat/pkg/domain"
)

func newServer(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		ServerPort: "0",
		Store:      "badger",
		Files: config.FilesConfig{
			Dir:           t.TempDir(),
			PartialMaxAge: time.Hour,
			SweepSchedule: "@every 1h",
		},
		ShutdownTimeout: time.Second,
	}
	srv, err := app.New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Stop(context.Background())
	})
	return ts.URL
}

func TestClient_ChannelsAndMessages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	base := newServer(t)
	alice := New(base, domain.MustParseName("alice"))
	bob := New(base, domain.MustParseName("Bob"))

	name := domain.MustParseName("general")
	ch, err := alice.CreateChannel(ctx, &name, []domain.Name{domain.MustParseName("bob")})
	req.NoError(err)
	req.Equal("general", ch.Name.String())
	req.True(ch.HasMember(domain.MustParseName("alice")))

	got, err := bob.GetChannel(ctx, ch.ID)
	req.NoError(err)
	req.Equal(ch.ID, got.ID)
	req.True(got.CreatedAt.Equal(ch.CreatedAt))

	listed, err := bob.ListChannels(ctx, ChannelQuery{Members: []domain.Name{domain.MustParseName("alice")}})
	req.NoError(err)
	req.Len(listed, 1)

	sent, err := bob.SendMessage(ctx, ch.ID, domain.TextContent{Text: "hello"})
	req.NoError(err)
	req.Equal("bob", sent.Sender.String())

	msgs, err := alice.ListMessages(ctx, ch.ID, MessageQuery{PageSize: 10})
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal(domain.TextContent{Text: "hello"}, msgs[0].Content)

	one, err := alice.GetMessage(ctx, ch.ID, sent.ID)
	req.NoError(err)
	req.Equal(sent.ID, one.ID)
}

func TestClient_ErrorsUnwrapToDomain(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	base := newServer(t)
	alice := New(base, domain.MustParseName("alice"))
	carol := New(base, domain.MustParseName("carol"))

	ch, err := alice.CreateChannel(ctx, nil, nil)
	req.NoError(err)

	_, err = carol.SendMessage(ctx, ch.ID, domain.TextContent{Text: "hi"})
	req.ErrorIs(err, domain.ErrForbidden)
	var apiErr *Error
	req.ErrorAs(err, &apiErr)
	req.Equal(403, apiErr.Status)

	_, err = alice.GetChannel(ctx, uuid.New())
	req.ErrorIs(err, domain.ErrNotFound)

	_, err = alice.ListChannels(ctx, ChannelQuery{PageSize: 500})
	req.ErrorIs(err, domain.ErrBadRequest)

	_, err = alice.DownloadFile(ctx, ch.ID, "missing.bin", nil)
	req.ErrorIs(err, domain.ErrNotFound)
}

func TestClient_UploadDownload(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	base := newServer(t)
	alice := New(base, domain.MustParseName("alice"))

	ch, err := alice.CreateChannel(ctx, nil, []domain.Name{domain.MustParseName("bob")})
	req.NoError(err)

	payload := bytes.Repeat([]byte("0123456789"), 10_000)
	var fractions []float64
	msg, err := alice.UploadFile(ctx, ch.ID, "data.bin", int64(len(payload)), bytes.NewReader(payload), func(f float64) {
		fractions = append(fractions, f)
	})
	req.NoError(err)
	fc, ok := msg.Content.(domain.FileContent)
	req.True(ok)
	req.Equal("data.bin", fc.Name)
	req.Equal(int64(len(payload)), fc.Size)
	req.NotEmpty(fc.Checksum)

	req.NotEmpty(fractions)
	req.Equal(1.0, fractions[len(fractions)-1])
	for i := 1; i < len(fractions); i++ {
		req.GreaterOrEqual(fractions[i], fractions[i-1])
	}

	bob := New(base, domain.MustParseName("bob"))
	var downloaded []float64
	rc, err := bob.DownloadFile(ctx, ch.ID, "data.bin", func(f float64) {
		downloaded = append(downloaded, f)
	})
	req.NoError(err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	req.NoError(err)
	req.Equal(payload, got)
	req.NotEmpty(downloaded)
	req.Equal(1.0, downloaded[len(downloaded)-1])
	for i := 1; i < len(downloaded); i++ {
		req.Greater(downloaded[i], downloaded[i-1])
	}

	_, err = alice.UploadFile(ctx, ch.ID, "short.bin", 1000, strings.NewReader(strings.Repeat("x", 900)), nil)
	req.ErrorIs(err, domain.ErrPayloadMismatch)

	_, err = alice.SendMessage(ctx, ch.ID, domain.FileContent{Name: "data.bin", Size: int64(len(payload))})
	req.NoError(err)
}
