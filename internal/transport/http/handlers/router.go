package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/internal/service"
	"github.com/vedran77/xchat/internal/telemetry"
	"github.com/vedran77/xchat/internal/transport/http/middleware"
	"github.com/vedran77/xchat/pkg/api"
)

type RouterDeps struct {
	Channels *service.ChannelService
	Messages *service.MessageService
	Files    *service.FileService
	// Health is pinged by GET /health.
	Health repository.ChannelRepository

	Logger    *slog.Logger
	Reporter  *telemetry.Reporter
	Metrics   *telemetry.Metrics // nil disables /metrics
	JWTSecret string
}

func NewRouter(deps RouterDeps) http.Handler {
	errs := errorWriter{logger: deps.Logger, reporter: deps.Reporter}
	channelHandler := NewChannelHandler(deps.Channels, errs)
	messageHandler := NewMessageHandler(deps.Messages, errs)
	fileHandler := NewFileHandler(deps.Files, deps.Metrics, errs)

	auth := middleware.Auth(deps.JWTSecret, errs.Unauthorized)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Health.Ping(r.Context()); err != nil {
			deps.Logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, api.Health{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, api.Health{Status: "ok"})
	})
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	mux.Handle("GET /v1/channels", protected(channelHandler.List))
	mux.Handle("POST /v1/channels", protected(channelHandler.Create))
	mux.Handle("GET /v1/channels/{id}", protected(channelHandler.Get))

	mux.Handle("GET /v1/channels/{id}/messages", protected(messageHandler.List))
	mux.Handle("POST /v1/channels/{id}/messages", protected(messageHandler.Send))
	mux.Handle("GET /v1/channels/{id}/messages/{mid}", protected(messageHandler.Get))

	mux.Handle("POST /v1/channels/{id}/files", protected(fileHandler.Upload))
	mux.Handle("GET /v1/channels/{id}/files/{name}", protected(fileHandler.Download))

	mws := []func(http.Handler) http.Handler{
		middleware.Recover(deps.Logger, deps.Reporter),
		middleware.Logger(deps.Logger),
	}
	if deps.Metrics != nil {
		mws = append(mws, middleware.Metrics(deps.Metrics))
	}
	return middleware.Chain(mux, mws...)
}
