package filesystem

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
	"golang.org/x/crypto/blake2b"
)

const (
	partialDir    = ".partial"
	partialSuffix = ".part"
)

// FileStore keeps uploads on disk as {root}/{channel id}/{file name}.
// Uploads are written under {root}/.partial and hard linked into place on
// commit, so readers never observe a partially written file.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, partialDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating file store at %q: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// StorageKey is the location of a file relative to the store root.
func StorageKey(channelID uuid.UUID, name string) string {
	return channelID.String() + "/" + name
}

func (s *FileStore) path(channelID uuid.UUID, name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: invalid file name %q", domain.ErrBadRequest, name)
	}
	return filepath.Join(s.root, channelID.String(), name), nil
}

func (s *FileStore) Create(ctx context.Context, channelID uuid.UUID, name string) (repository.FileWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final, err := s.path(channelID, name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("%w: file %q", domain.ErrAlreadyExists, name)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, partialDir), "upload-*"+partialSuffix)
	if err != nil {
		return nil, repository.StorageError("create partial file", err)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &fileWriter{
		tmp:   tmp,
		final: final,
		key:   StorageKey(channelID, name),
		hash:  h,
	}, nil
}

func (s *FileStore) Open(ctx context.Context, channelID uuid.UUID, name string) (*repository.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(channelID, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %q", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, repository.StorageError("open file", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, repository.StorageError("stat file", err)
	}
	return &repository.StoredFile{
		FileInfo: repository.FileInfo{
			StorageKey: StorageKey(channelID, name),
			Size:       st.Size(),
			ModTime:    st.ModTime(),
		},
		Content: f,
	}, nil
}

// Stat reads the whole file to compute its checksum.
func (s *FileStore) Stat(ctx context.Context, channelID uuid.UUID, name string) (*repository.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(channelID, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %q", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, repository.StorageError("open file", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, repository.StorageError("stat file", err)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("creating hasher: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return nil, repository.StorageError("hash file", err)
	}
	return &repository.FileInfo{
		StorageKey: StorageKey(channelID, name),
		Size:       st.Size(),
		Checksum:   hex.EncodeToString(h.Sum(nil)),
		ModTime:    st.ModTime(),
	}, nil
}

func (s *FileStore) Remove(ctx context.Context, channelID uuid.UUID, name string) error {
	p, err := s.path(channelID, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return repository.StorageError("remove file", err)
	}
	return nil
}

type fileWriter struct {
	tmp   *os.File
	final string
	key   string
	hash  hash.Hash
	size  int64
	done  bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.tmp.Write(p)
	w.hash.Write(p[:n])
	w.size += int64(n)
	if err != nil {
		return n, repository.StorageError("write partial file", err)
	}
	return n, nil
}

// Commit flushes the partial file and links it to its final name. It fails
// with domain.ErrAlreadyExists when another upload published the name first.
func (w *fileWriter) Commit() (*repository.FileInfo, error) {
	if w.done {
		return nil, errors.New("file writer already finished")
	}
	w.done = true
	defer os.Remove(w.tmp.Name())

	if err := w.tmp.Sync(); err != nil {
		_ = w.tmp.Close()
		return nil, repository.StorageError("sync partial file", err)
	}
	if err := w.tmp.Close(); err != nil {
		return nil, repository.StorageError("close partial file", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.final), 0o755); err != nil {
		return nil, repository.StorageError("create channel directory", err)
	}
	if err := os.Link(w.tmp.Name(), w.final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: file %q", domain.ErrAlreadyExists, filepath.Base(w.final))
		}
		return nil, repository.StorageError("publish file", err)
	}

	st, err := os.Stat(w.final)
	if err != nil {
		return nil, repository.StorageError("stat file", err)
	}
	return &repository.FileInfo{
		StorageKey: w.key,
		Size:       w.size,
		Checksum:   hex.EncodeToString(w.hash.Sum(nil)),
		ModTime:    st.ModTime(),
	}, nil
}

func (w *fileWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.tmp.Close()
	if err := os.Remove(w.tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return repository.StorageError("remove partial file", err)
	}
	return nil
}
