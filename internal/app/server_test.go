package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/internal/config"
	"github.com/vedran77/xchat/pkg/api"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServerPort: "0",
		Store:      "badger",
		Badger:     config.BadgerConfig{Dir: ""},
		Files: config.FilesConfig{
			Dir:           t.TempDir(),
			PartialMaxAge: time.Hour,
			SweepSchedule: "@every 1h",
		},
		Metrics:         true,
		ShutdownTimeout: time.Second,
	}
}

func TestServer_StartServeStop(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	srv, err := New(ctx, testConfig(t), slog.New(slog.DiscardHandler))
	req.NoError(err)
	req.NoError(srv.Start())

	base := "http://" + srv.Addr()
	resp, err := http.Get(base + "/health")
	req.NoError(err)
	var health api.Health
	req.NoError(json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	req.Equal("ok", health.Status)

	r, err := http.NewRequest(http.MethodPost, base+"/v1/channels", strings.NewReader(`{"members":["bob"]}`))
	req.NoError(err)
	r.Header.Set("Authorization", "alice")
	resp, err = http.DefaultClient.Do(r)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req.NoError(srv.Stop(stopCtx))

	_, ok := <-srv.Errors()
	req.False(ok)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	srv, err := New(ctx, testConfig(t), slog.New(slog.DiscardHandler))
	req.NoError(err)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNew_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "mongo"
	_, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
}
