package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

var ErrMessageNotFound = fmt.Errorf("message %w", domain.ErrNotFound)

type MessageService struct {
	messageRepo repository.MessageRepository
	channelRepo repository.ChannelRepository
	files       repository.FileStore
	sequencer   *Sequencer
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	files repository.FileStore,
	sequencer *Sequencer,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		channelRepo: channelRepo,
		files:       files,
		sequencer:   sequencer,
	}
}

// Send appends content to a channel the caller belongs to. File content must
// name a file already stored for the channel, with its exact size.
func (s *MessageService) Send(ctx context.Context, caller domain.Name, channelID uuid.UUID, content domain.Content) (*domain.Message, error) {
	if _, err := s.checkChannelAccess(ctx, caller, channelID); err != nil {
		return nil, err
	}

	switch c := content.(type) {
	case domain.TextContent:
		if err := domain.ValidateText(c.Text); err != nil {
			return nil, err
		}
	case domain.FileContent:
		resolved, err := s.resolveFile(ctx, channelID, c)
		if err != nil {
			return nil, err
		}
		content = resolved
	default:
		return nil, fmt.Errorf("%w: unsupported message content", domain.ErrBadRequest)
	}

	return s.appendMessage(ctx, channelID, caller, content)
}

func (s *MessageService) List(ctx context.Context, caller domain.Name, channelID uuid.UUID, sentBefore *time.Time, page domain.Page) ([]domain.Message, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.checkChannelAccess(ctx, caller, channelID); err != nil {
		return nil, err
	}

	filter := repository.MessageFilter{ChannelID: channelID, SentBefore: sentBefore}
	return s.messageRepo.List(ctx, filter, page)
}

func (s *MessageService) GetByID(ctx context.Context, caller domain.Name, channelID, messageID uuid.UUID) (*domain.Message, error) {
	if _, err := s.checkChannelAccess(ctx, caller, channelID); err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.ChannelID != channelID {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

func (s *MessageService) resolveFile(ctx context.Context, channelID uuid.UUID, c domain.FileContent) (domain.FileContent, error) {
	if err := domain.ValidateFileName(c.Name); err != nil {
		return c, err
	}
	info, err := s.files.Stat(ctx, channelID, c.Name)
	if err != nil {
		return c, err
	}
	if info.Size != c.Size {
		return c, fmt.Errorf("%w: file %q has %d bytes, message declares %d", domain.ErrPayloadMismatch, c.Name, info.Size, c.Size)
	}
	return domain.FileContent{
		Name:       c.Name,
		Size:       info.Size,
		StorageKey: info.StorageKey,
		Checksum:   info.Checksum,
	}, nil
}

// appendMessage assigns id and timestamp under the channel's sequencer lock
// and inserts the message.
func (s *MessageService) appendMessage(ctx context.Context, channelID uuid.UUID, sender domain.Name, content domain.Content) (*domain.Message, error) {
	var msg *domain.Message
	err := s.sequencer.Next(channelID, func(id uuid.UUID, at time.Time) error {
		candidate := &domain.Message{
			ID:        id,
			ChannelID: channelID,
			Sender:    sender,
			SentAt:    at,
			Content:   content,
		}
		if err := s.messageRepo.Create(ctx, candidate); err != nil {
			return err
		}
		msg = candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return msg, nil
}

func (s *MessageService) checkChannelAccess(ctx context.Context, caller domain.Name, channelID uuid.UUID) (*domain.Channel, error) {
	ch, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	if !ch.HasMember(caller) {
		return nil, ErrNotChannelMember
	}
	return ch, nil
}
