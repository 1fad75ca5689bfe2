package kv

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/pkg/domain"
)

type channelDocument struct {
	ID                uuid.UUID `json:"_id"`
	Name              *string   `json:"name"`
	Members           []string  `json:"members"`
	CreationTimestamp int64     `json:"creationTimestamp"`
}

type messageDocument struct {
	ID            uuid.UUID          `json:"_id"`
	Channel       uuid.UUID          `json:"channel"`
	Sender        string             `json:"sender"`
	SentTimestamp int64              `json:"sentTimestamp"`
	Kind          domain.ContentKind `json:"kind"`
	Text          string             `json:"text,omitempty"`
	FileName      string             `json:"fileName,omitempty"`
	FileSize      int64              `json:"fileSize,omitempty"`
	StorageKey    string             `json:"storageKey,omitempty"`
	Checksum      string             `json:"checksum,omitempty"`
}

func fromChannel(ch *domain.Channel) channelDocument {
	doc := channelDocument{
		ID:                ch.ID,
		Members:           domain.NameStrings(ch.Members),
		CreationTimestamp: ch.CreatedAt.UnixMilli(),
	}
	if ch.Name != nil {
		name := ch.Name.String()
		doc.Name = &name
	}
	return doc
}

func (d channelDocument) toChannel() domain.Channel {
	ch := domain.Channel{
		ID:        d.ID,
		Members:   domain.StoredNames(d.Members),
		CreatedAt: time.UnixMilli(d.CreationTimestamp).UTC(),
	}
	if d.Name != nil {
		name := domain.StoredName(*d.Name)
		ch.Name = &name
	}
	return ch
}

func fromMessage(msg *domain.Message) (messageDocument, error) {
	doc := messageDocument{
		ID:            msg.ID,
		Channel:       msg.ChannelID,
		Sender:        msg.Sender.String(),
		SentTimestamp: msg.SentAt.UnixMilli(),
	}
	switch c := msg.Content.(type) {
	case domain.TextContent:
		doc.Kind = domain.ContentKindText
		doc.Text = c.Text
	case domain.FileContent:
		doc.Kind = domain.ContentKindFile
		doc.FileName = c.Name
		doc.FileSize = c.Size
		doc.StorageKey = c.StorageKey
		doc.Checksum = c.Checksum
	default:
		return messageDocument{}, fmt.Errorf("unsupported message content %T", msg.Content)
	}
	return doc, nil
}

func (d messageDocument) toMessage() (domain.Message, error) {
	msg := domain.Message{
		ID:        d.ID,
		ChannelID: d.Channel,
		Sender:    domain.StoredName(d.Sender),
		SentAt:    time.UnixMilli(d.SentTimestamp).UTC(),
	}
	switch d.Kind {
	case domain.ContentKindText:
		msg.Content = domain.TextContent{Text: d.Text}
	case domain.ContentKindFile:
		msg.Content = domain.FileContent{
			Name:       d.FileName,
			Size:       d.FileSize,
			StorageKey: d.StorageKey,
			Checksum:   d.Checksum,
		}
	default:
		return domain.Message{}, fmt.Errorf("unknown message kind %q", d.Kind)
	}
	return msg, nil
}
