package handlers

import (
	"net/http"

	"github.com/vedran77/xchat/internal/service"
	"github.com/vedran77/xchat/internal/transport/http/middleware"
	"github.com/vedran77/xchat/pkg/api"
	"github.com/vedran77/xchat/pkg/validator"
)

type MessageHandler struct {
	errorWriter
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService, errs errorWriter) *MessageHandler {
	return &MessageHandler{errorWriter: errs, messageService: messageService}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	channelID, err := pathID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, "send message", err)
		return
	}

	var input api.SendMessageRequest
	if err := decodeJSON(w, r, &input); err != nil {
		writeDecodeError(w, err)
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}
	content, err := input.Content.Domain()
	if err != nil {
		h.writeServiceError(w, r, "send message", err)
		return
	}

	msg, err := h.messageService.Send(r.Context(), caller, channelID, content)
	if err != nil {
		h.writeServiceError(w, r, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, api.FromMessage(msg))
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	channelID, err := pathID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, "list messages", err)
		return
	}
	q := r.URL.Query()
	sentBefore, err := millisParam(q, "sentBefore")
	if err != nil {
		h.writeServiceError(w, r, "list messages", err)
		return
	}
	page, err := parsePage(q)
	if err != nil {
		h.writeServiceError(w, r, "list messages", err)
		return
	}

	messages, err := h.messageService.List(r.Context(), caller, channelID, sentBefore, page)
	if err != nil {
		h.writeServiceError(w, r, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, api.FromMessages(messages))
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	channelID, err := pathID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, "get message", err)
		return
	}
	messageID, err := pathID(r, "mid")
	if err != nil {
		h.writeServiceError(w, r, "get message", err)
		return
	}

	msg, err := h.messageService.GetByID(r.Context(), caller, channelID, messageID)
	if err != nil {
		h.writeServiceError(w, r, "get message", err)
		return
	}

	writeJSON(w, http.StatusOK, api.FromMessage(msg))
}
