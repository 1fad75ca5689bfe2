// Package api holds the JSON shapes exchanged between the server and its
// clients.
package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/pkg/domain"
)

type Channel struct {
	ID                uuid.UUID     `json:"id"`
	Name              *domain.Name  `json:"name"`
	Members           []domain.Name `json:"members"`
	CreationTimestamp int64         `json:"creationTimestamp"`
}

type Message struct {
	ID            uuid.UUID      `json:"id"`
	Channel       uuid.UUID      `json:"channel"`
	Sender        domain.Name    `json:"sender"`
	SentTimestamp int64          `json:"sentTimestamp"`
	Content       MessageContent `json:"content"`
}

// MessageContent carries either Text or a file reference. Exactly one of
// Text and FileName is set.
type MessageContent struct {
	Text     *string `json:"text,omitempty" validate:"omitempty,max=4000"`
	FileName *string `json:"fileName,omitempty" validate:"omitempty,min=1,max=255"`
	FileSize *int64  `json:"fileSize,omitempty" validate:"omitempty,min=0"`
	Checksum string  `json:"checksum,omitempty"`
}

type CreateChannelRequest struct {
	Name    *domain.Name  `json:"name"`
	Members []domain.Name `json:"members"`
}

type SendMessageRequest struct {
	Content MessageContent `json:"content"`
}

type Health struct {
	Status string `json:"status"`
}

func FromChannel(ch *domain.Channel) Channel {
	members := ch.Members
	if members == nil {
		members = []domain.Name{}
	}
	return Channel{
		ID:                ch.ID,
		Name:              ch.Name,
		Members:           members,
		CreationTimestamp: ch.CreatedAt.UnixMilli(),
	}
}

func FromChannels(chs []domain.Channel) []Channel {
	out := make([]Channel, 0, len(chs))
	for i := range chs {
		out = append(out, FromChannel(&chs[i]))
	}
	return out
}

func FromMessage(m *domain.Message) Message {
	return Message{
		ID:            m.ID,
		Channel:       m.ChannelID,
		Sender:        m.Sender,
		SentTimestamp: m.SentAt.UnixMilli(),
		Content:       FromContent(m.Content),
	}
}

func FromMessages(msgs []domain.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, FromMessage(&msgs[i]))
	}
	return out
}

func FromContent(c domain.Content) MessageContent {
	switch c := c.(type) {
	case domain.TextContent:
		return MessageContent{Text: &c.Text}
	case domain.FileContent:
		return MessageContent{FileName: &c.Name, FileSize: &c.Size, Checksum: c.Checksum}
	default:
		panic(fmt.Sprintf("api: unhandled content %T", c))
	}
}

// Domain converts the wire content into its domain variant. The storage key
// and checksum of a file reference are resolved by the server, never trusted
// from the wire.
func (c MessageContent) Domain() (domain.Content, error) {
	switch {
	case c.Text != nil && c.FileName != nil:
		return nil, fmt.Errorf("%w: content must be either text or a file", domain.ErrBadRequest)
	case c.Text != nil:
		return domain.TextContent{Text: *c.Text}, nil
	case c.FileName != nil:
		if c.FileSize == nil {
			return nil, fmt.Errorf("%w: fileSize is required with fileName", domain.ErrBadRequest)
		}
		return domain.FileContent{Name: *c.FileName, Size: *c.FileSize}, nil
	default:
		return nil, fmt.Errorf("%w: content is empty", domain.ErrBadRequest)
	}
}

func (c Channel) Domain() domain.Channel {
	return domain.Channel{
		ID:        c.ID,
		Name:      c.Name,
		Members:   c.Members,
		CreatedAt: time.UnixMilli(c.CreationTimestamp).UTC(),
	}
}

func (m Message) Domain() (domain.Message, error) {
	content, err := m.Content.Domain()
	if err != nil {
		return domain.Message{}, err
	}
	if fc, ok := content.(domain.FileContent); ok {
		fc.Checksum = m.Content.Checksum
		content = fc
	}
	return domain.Message{
		ID:        m.ID,
		ChannelID: m.Channel,
		Sender:    m.Sender,
		SentAt:    time.UnixMilli(m.SentTimestamp).UTC(),
		Content:   content,
	}, nil
}
