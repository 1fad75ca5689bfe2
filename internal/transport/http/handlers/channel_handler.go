package handlers

import (
	"net/http"

	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/internal/service"
	"github.com/vedran77/xchat/internal/transport/http/middleware"
	"github.com/vedran77/xchat/pkg/api"
)

type ChannelHandler struct {
	errorWriter
	channelService *service.ChannelService
}

func NewChannelHandler(channelService *service.ChannelService, errs errorWriter) *ChannelHandler {
	return &ChannelHandler{errorWriter: errs, channelService: channelService}
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())

	var input api.CreateChannelRequest
	if err := decodeJSON(w, r, &input); err != nil {
		writeDecodeError(w, err)
		return
	}

	ch, err := h.channelService.Create(r.Context(), caller, service.CreateChannelInput{
		Name:    input.Name,
		Members: input.Members,
	})
	if err != nil {
		h.writeServiceError(w, r, "create channel", err)
		return
	}

	writeJSON(w, http.StatusCreated, api.FromChannel(ch))
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	q := r.URL.Query()

	members, err := membersParam(q)
	if err != nil {
		h.writeServiceError(w, r, "list channels", err)
		return
	}
	createdAfter, err := millisParam(q, "createdAfter")
	if err != nil {
		h.writeServiceError(w, r, "list channels", err)
		return
	}
	page, err := parsePage(q)
	if err != nil {
		h.writeServiceError(w, r, "list channels", err)
		return
	}

	channels, err := h.channelService.List(r.Context(), caller, repository.ChannelFilter{
		Members:      members,
		CreatedAfter: createdAfter,
	}, page)
	if err != nil {
		h.writeServiceError(w, r, "list channels", err)
		return
	}

	writeJSON(w, http.StatusOK, api.FromChannels(channels))
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	channelID, err := pathID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, "get channel", err)
		return
	}

	ch, err := h.channelService.GetByID(r.Context(), caller, channelID)
	if err != nil {
		h.writeServiceError(w, r, "get channel", err)
		return
	}

	writeJSON(w, http.StatusOK, api.FromChannel(ch))
}
