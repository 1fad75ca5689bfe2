package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/internal/repository/mocks"
	"github.com/vedran77/xchat/pkg/domain"
	"go.uber.org/mock/gomock"
)

func TestFileService_RemovesBlobWhenMessageInsertFails(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	channelRepo := mocks.NewMockChannelRepository(ctrl)
	messageRepo := mocks.NewMockMessageRepository(ctrl)
	files := mocks.NewMockFileStore(ctrl)
	writer := mocks.NewMockFileWriter(ctrl)

	ch := &domain.Channel{ID: uuid.New(), Members: []domain.Name{alice}}
	storageErr := repository.StorageError("insert message", errors.New("disk full"))

	channelRepo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	files.EXPECT().Create(gomock.Any(), ch.ID, "a.txt").Return(writer, nil)
	writer.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) { return len(p), nil }).AnyTimes()
	writer.EXPECT().Commit().Return(&repository.FileInfo{StorageKey: "k", Size: 3}, nil)
	messageRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storageErr)
	files.EXPECT().Remove(gomock.Any(), ch.ID, "a.txt").Return(nil)

	messages := NewMessageService(messageRepo, channelRepo, files, NewSequencer())
	svc := NewFileService(files, messages, slog.New(slog.DiscardHandler))

	_, err := svc.Upload(ctx, alice, UploadInput{ChannelID: ch.ID, Name: "a.txt", Size: 3, Source: strings.NewReader("abc")})
	req.ErrorIs(err, domain.ErrStorage)
}

func TestFileService_StorageErrorAbortsUpload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	channelRepo := mocks.NewMockChannelRepository(ctrl)
	files := mocks.NewMockFileStore(ctrl)
	writer := mocks.NewMockFileWriter(ctrl)

	ch := &domain.Channel{ID: uuid.New(), Members: []domain.Name{alice}}
	channelRepo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	files.EXPECT().Create(gomock.Any(), ch.ID, "a.txt").Return(writer, nil)
	writer.EXPECT().Write(gomock.Any()).Return(0, repository.StorageError("write", errors.New("io")))
	writer.EXPECT().Abort().Return(nil)

	messages := NewMessageService(nil, channelRepo, files, NewSequencer())
	svc := NewFileService(files, messages, slog.New(slog.DiscardHandler))

	_, err := svc.Upload(context.Background(), alice, UploadInput{ChannelID: ch.ID, Name: "a.txt", Size: 3, Source: strings.NewReader("abc")})
	req.ErrorIs(err, domain.ErrStorage)
}

func TestChannelService_ListAddsCallerToFilter(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	channelRepo := mocks.NewMockChannelRepository(ctrl)

	page := domain.Page{Size: 10}
	channelRepo.EXPECT().
		List(gomock.Any(), repository.ChannelFilter{Members: []domain.Name{alice, bob}}, page).
		Return([]domain.Channel{}, nil)

	got, err := NewChannelService(channelRepo).List(context.Background(), alice, repository.ChannelFilter{Members: []domain.Name{bob}}, page)
	req.NoError(err)
	req.Empty(got)
}

func TestMessageService_StorageErrorOnAccessCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	channelRepo := mocks.NewMockChannelRepository(ctrl)
	channelRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, repository.StorageError("get channel", errors.New("down")))

	svc := NewMessageService(nil, channelRepo, nil, NewSequencer())
	_, err := svc.Send(context.Background(), alice, uuid.New(), domain.TextContent{Text: "hi"})
	require.ErrorIs(t, err, domain.ErrStorage)
}
