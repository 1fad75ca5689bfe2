package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxTextLength = 4000

type Message struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	Sender    Name
	SentAt    time.Time
	Content   Content
}

// Content is either TextContent or FileContent.
type Content interface {
	isContent()
}

type TextContent struct {
	Text string
}

// FileContent points at bytes kept in the file store under StorageKey.
type FileContent struct {
	Name       string
	Size       int64
	StorageKey string
	Checksum   string
}

func (TextContent) isContent() {}
func (FileContent) isContent() {}

// ContentKind is the persisted discriminator of a Content value.
type ContentKind string

const (
	ContentKindText ContentKind = "text"
	ContentKindFile ContentKind = "file"
)

func KindOf(c Content) ContentKind {
	switch c.(type) {
	case TextContent:
		return ContentKindText
	case FileContent:
		return ContentKindFile
	default:
		return ""
	}
}

const MaxFileNameLength = 255

// ValidateFileName accepts names usable as a single path element.
func ValidateFileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: invalid file name %q", ErrBadRequest, name)
	case len(name) > MaxFileNameLength:
		return fmt.Errorf("%w: file name is longer than %d bytes", ErrBadRequest, MaxFileNameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: file name %q contains a path separator", ErrBadRequest, name)
	}
	return nil
}

// ValidateText checks the body of a text message.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message text is empty", ErrBadRequest)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%w: message text is longer than %d characters", ErrBadRequest, MaxTextLength)
	}
	return nil
}
