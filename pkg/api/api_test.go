package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/pkg/domain"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("parse: %w", domain.ErrInvalidName), http.StatusBadRequest, CodeInvalidName},
		{domain.ErrBadRequest, http.StatusBadRequest, CodeBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
		{fmt.Errorf("x: %w", domain.ErrForbidden), http.StatusForbidden, CodeForbidden},
		{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists},
		{domain.ErrPayloadMismatch, http.StatusUnprocessableEntity, CodePayloadMismatch},
		{fmt.Errorf("%w: %w", domain.ErrCancelled, context.Canceled), StatusClientClosedRequest, CodeCancelled},
		{domain.ErrStorage, http.StatusInternalServerError, CodeInternal},
		{fmt.Errorf("random"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		status, code := ErrorCode(tt.err)
		require.Equal(t, tt.status, status, tt.err.Error())
		require.Equal(t, tt.code, code, tt.err.Error())
		if code != CodeInternal {
			require.ErrorIs(t, tt.err, Sentinel(code))
		}
	}
	require.Nil(t, Sentinel("SOMETHING_ELSE"))
}

func TestMessageWireShape(t *testing.T) {
	req := require.New(t)
	sentAt := time.UnixMilli(1_700_000_000_123).UTC()
	msg := domain.Message{
		ID:        uuid.New(),
		ChannelID: uuid.New(),
		Sender:    domain.MustParseName("alice"),
		SentAt:    sentAt,
		Content:   domain.FileContent{Name: "a.txt", Size: 3, StorageKey: "secret/key", Checksum: "abc"},
	}

	raw, err := json.Marshal(FromMessage(&msg))
	req.NoError(err)

	var generic map[string]any
	req.NoError(json.Unmarshal(raw, &generic))
	req.Equal(float64(1_700_000_000_123), generic["sentTimestamp"])
	content := generic["content"].(map[string]any)
	req.Equal("a.txt", content["fileName"])
	req.NotContains(content, "text")
	req.NotContains(string(raw), "secret/key")

	var decoded Message
	req.NoError(json.Unmarshal(raw, &decoded))
	back, err := decoded.Domain()
	req.NoError(err)
	req.True(back.SentAt.Equal(sentAt))
	req.Equal(domain.FileContent{Name: "a.txt", Size: 3, Checksum: "abc"}, back.Content)
}

func TestMessageContentDomain(t *testing.T) {
	text := "hi"
	name := "f"
	size := int64(1)

	_, err := MessageContent{}.Domain()
	require.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = MessageContent{Text: &text, FileName: &name, FileSize: &size}.Domain()
	require.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = MessageContent{FileName: &name}.Domain()
	require.ErrorIs(t, err, domain.ErrBadRequest)

	c, err := MessageContent{Text: &text}.Domain()
	require.NoError(t, err)
	require.Equal(t, domain.TextContent{Text: "hi"}, c)
}

func TestChannelNullName(t *testing.T) {
	ch := domain.Channel{ID: uuid.New(), CreatedAt: time.Now()}
	raw, err := json.Marshal(FromChannel(&ch))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"name":null`)
	require.Contains(t, string(raw), `"members":[]`)
}
