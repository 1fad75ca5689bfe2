package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

// ProgressFunc receives the fraction of an upload received so far. Values
// only increase and the last one of a complete upload is 1.
type ProgressFunc func(fraction float64)

type FileService struct {
	files    repository.FileStore
	messages *MessageService
	logger   *slog.Logger
}

func NewFileService(files repository.FileStore, messages *MessageService, logger *slog.Logger) *FileService {
	return &FileService{
		files:    files,
		messages: messages,
		logger:   logger,
	}
}

// UnknownSize marks an upload whose length is only known once the stream
// ends. Such an upload cannot fail with a size mismatch.
const UnknownSize int64 = -1

type UploadInput struct {
	ChannelID uuid.UUID
	Name      string
	Size      int64
	Source    io.Reader
	Progress  ProgressFunc
}

// Upload streams Source into the file store and, once the bytes are
// committed, records a file message in the channel. Access is checked before
// the first byte is read. A short or long stream fails with
// domain.ErrPayloadMismatch and leaves neither a file nor a message behind.
func (s *FileService) Upload(ctx context.Context, caller domain.Name, input UploadInput) (*domain.Message, error) {
	if err := domain.ValidateFileName(input.Name); err != nil {
		return nil, err
	}
	if input.Size < UnknownSize {
		return nil, fmt.Errorf("%w: file size must not be negative", domain.ErrBadRequest)
	}
	if _, err := s.messages.checkChannelAccess(ctx, caller, input.ChannelID); err != nil {
		return nil, err
	}

	w, err := s.files.Create(ctx, input.ChannelID, input.Name)
	if err != nil {
		return nil, err
	}

	sized := input.Size != UnknownSize
	var src io.Reader = &progressReader{ctx: ctx, r: input.Source, total: input.Size, report: input.Progress}
	if sized {
		src = io.LimitReader(src, input.Size+1)
	}
	received, err := io.Copy(w, src)
	if err != nil {
		s.abort(w, input)
		return nil, classifyStreamError(ctx, err)
	}
	if sized && received != input.Size {
		s.abort(w, input)
		return nil, fmt.Errorf("%w: declared %d bytes, received %s", domain.ErrPayloadMismatch, input.Size, describeReceived(received, input.Size))
	}

	info, err := w.Commit()
	if err != nil {
		return nil, err
	}
	if (input.Size == 0 || !sized) && input.Progress != nil {
		input.Progress(1)
	}

	msg, err := s.messages.appendMessage(ctx, input.ChannelID, caller, domain.FileContent{
		Name:       input.Name,
		Size:       info.Size,
		StorageKey: info.StorageKey,
		Checksum:   info.Checksum,
	})
	if err != nil {
		if rmErr := s.files.Remove(context.WithoutCancel(ctx), input.ChannelID, input.Name); rmErr != nil {
			s.logger.Error("removing file after failed message insert",
				"channel", input.ChannelID, "file", input.Name, "error", rmErr)
		}
		return nil, err
	}
	return msg, nil
}

// Download opens a stored file of a channel the caller belongs to. The caller
// must close the returned content.
func (s *FileService) Download(ctx context.Context, caller domain.Name, channelID uuid.UUID, name string) (*repository.StoredFile, error) {
	if err := domain.ValidateFileName(name); err != nil {
		return nil, err
	}
	if _, err := s.messages.checkChannelAccess(ctx, caller, channelID); err != nil {
		return nil, err
	}
	return s.files.Open(ctx, channelID, name)
}

func (s *FileService) abort(w repository.FileWriter, input UploadInput) {
	if err := w.Abort(); err != nil {
		s.logger.Warn("aborting upload", "channel", input.ChannelID, "file", input.Name, "error", err)
	}
}

func classifyStreamError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrStorage):
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("%w: upload: %w", domain.ErrCancelled, ctx.Err())
	default:
		return fmt.Errorf("%w: upload interrupted: %v", domain.ErrBadRequest, err)
	}
}

func describeReceived(received, declared int64) string {
	if received > declared {
		return "more"
	}
	return fmt.Sprintf("%d", received)
}

// progressReader counts bytes read from r and reports the fraction of total.
type progressReader struct {
	ctx    context.Context
	r      io.Reader
	total  int64
	read   int64
	last   float64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	p.read += int64(n)
	if n > 0 && p.report != nil && p.total > 0 {
		fraction := min(float64(p.read)/float64(p.total), 1)
		if fraction > p.last {
			p.last = fraction
			p.report(fraction)
		}
	}
	return n, err
}
