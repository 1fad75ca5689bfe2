package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

var (
	ErrChannelNotFound  = fmt.Errorf("channel %w", domain.ErrNotFound)
	ErrNotChannelMember = fmt.Errorf("%w: user is not a member of this channel", domain.ErrForbidden)
)

type ChannelService struct {
	channelRepo repository.ChannelRepository
	now         func() time.Time
}

func NewChannelService(channelRepo repository.ChannelRepository) *ChannelService {
	return &ChannelService{
		channelRepo: channelRepo,
		now:         time.Now,
	}
}

type CreateChannelInput struct {
	Name    *domain.Name
	Members []domain.Name
}

// Create stores a new channel. The caller is always made a member, so an
// empty member list yields a channel with the caller alone. Identical
// requests create distinct channels.
func (s *ChannelService) Create(ctx context.Context, caller domain.Name, input CreateChannelInput) (*domain.Channel, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating channel id: %w", err)
	}

	ch := &domain.Channel{
		ID:        id,
		Name:      input.Name,
		Members:   domain.MemberSet(append(slices.Clone(input.Members), caller)...),
		CreatedAt: domain.Millis(s.now()),
	}

	if err := s.channelRepo.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}
	return ch, nil
}

func (s *ChannelService) GetByID(ctx context.Context, caller domain.Name, channelID uuid.UUID) (*domain.Channel, error) {
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

// List returns the caller's channels, newest first. filter.Members narrows
// the result further; the caller is always part of it.
func (s *ChannelService) List(ctx context.Context, caller domain.Name, filter repository.ChannelFilter, page domain.Page) ([]domain.Channel, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	filter.Members = domain.MemberSet(append(slices.Clone(filter.Members), caller)...)
	return s.channelRepo.List(ctx, filter, page)
}
