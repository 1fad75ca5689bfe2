package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/internal/app"
	"github.com/vedran77/xchat/internal/config"
	"github.com/vedran77/xchat/pkg/domain"
)

func startServer(t *testing.T) string {
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

func exec(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func TestCLI_EndToEnd(t *testing.T) {
	req := require.New(t)
	t.Setenv("XCHAT_HOST", startServer(t))
	t.Setenv("XCHAT_USER", "Alice")

	code, out, errOut := exec(t, "create", "--name", "general", "bob")
	req.Equal(0, code, errOut)
	channelID := uuidPattern.FindString(out)
	req.NotEmpty(channelID)
	req.Contains(out, "alice, bob")

	code, out, errOut = exec(t, "send", channelID, "hello", "there")
	req.Equal(0, code, errOut)
	req.Contains(out, "hello there")

	src := filepath.Join(t.TempDir(), "notes.txt")
	req.NoError(os.WriteFile(src, []byte("some notes"), 0o644))
	code, _, errOut = exec(t, "upload", channelID, src)
	req.Equal(0, code, errOut)

	code, out, errOut = exec(t, "messages", channelID)
	req.Equal(0, code, errOut)
	req.Contains(out, "notes.txt")
	req.Contains(out, "hello there")

	dest := filepath.Join(t.TempDir(), "copy.txt")
	code, _, errOut = exec(t, "download", channelID, "notes.txt", "-o", dest)
	req.Equal(0, code, errOut)
	got, err := os.ReadFile(dest)
	req.NoError(err)
	req.Equal("some notes", string(got))

	req.Contains(errOut, "100%")

	code, out, errOut = exec(t, "priv", "Bob")
	req.Equal(0, code, errOut)
	privID := uuidPattern.FindString(out)
	req.NotEmpty(privID)
	req.NotEqual(channelID, privID)
	req.Contains(out, "alice, bob")

	code, out, errOut = exec(t, "channels")
	req.Equal(0, code, errOut)
	req.Contains(out, channelID)
	req.Contains(out, privID)

	t.Setenv("XCHAT_USER", "mallory")
	code, _, errOut = exec(t, "send", channelID, "hi")
	req.Equal(1, code)
	req.Contains(errOut, "not a member")
}

func TestCLI_MissingUser(t *testing.T) {
	t.Setenv("XCHAT_USER", "")
	os.Unsetenv("XCHAT_USER")
	code, _, _ := exec(t, "channels")
	require.Equal(t, 2, code)
}

func TestDescribeContent(t *testing.T) {
	require.Equal(t, "hi", describeContent(domain.TextContent{Text: "hi"}))
	require.Contains(t, describeContent(domain.FileContent{Name: "a.bin", Size: 2048}), "a.bin (2.0 KiB)")
	require.Equal(t, "512 B", humanSize(512))
}
