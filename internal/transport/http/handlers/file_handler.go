package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vedran77/xchat/internal/service"
	"github.com/vedran77/xchat/internal/telemetry"
	"github.com/vedran77/xchat/internal/transport/http/middleware"
	"github.com/vedran77/xchat/pkg/api"
	"github.com/vedran77/xchat/pkg/domain"
)

const (
	sizeField  = "size"
	fileField  = "file"
	sniffBytes = 3072
)

type FileHandler struct {
	errorWriter
	fileService *service.FileService
	metrics     *telemetry.Metrics
}

func NewFileHandler(fileService *service.FileService, metrics *telemetry.Metrics, errs errorWriter) *FileHandler {
	return &FileHandler{errorWriter: errs, fileService: fileService, metrics: metrics}
}

// Upload streams a multipart body into the file store. The declared length
// comes from a "size" field sent before the "file" part, or from the part's
// own Content-Length header. Without either the stream decides the size.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	channelID, err := pathID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, "upload file", err)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "Expected a multipart/form-data body")
		return
	}
	size, part, err := readUploadHeader(mr)
	if err != nil {
		h.writeServiceError(w, r, "upload file", err)
		return
	}
	defer part.Close()

	logger := h.logger.With("channel", channelID, "file", part.FileName(), "size", size)
	msg, err := h.fileService.Upload(r.Context(), caller, service.UploadInput{
		ChannelID: channelID,
		Name:      part.FileName(),
		Size:      size,
		Source:    part,
		Progress:  quarterLogger(logger),
	})
	h.observeUpload(msg, err)
	if err != nil {
		h.writeServiceError(w, r, "upload file", err)
		return
	}

	logger.Info("file uploaded", "message", msg.ID)
	writeJSON(w, http.StatusCreated, api.FromMessage(msg))
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	caller := middleware.Caller(r.Context())
	channelID, err := pathID(r, "id")
	if err != nil {
		h.writeServiceError(w, r, "download file", err)
		return
	}
	name := r.PathValue("name")

	file, err := h.fileService.Download(r.Context(), caller, channelID, name)
	if err != nil {
		h.writeServiceError(w, r, "download file", err)
		return
	}
	defer file.Content.Close()

	contentType, err := sniff(file.Content)
	if err != nil {
		h.writeServiceError(w, r, "download file", fmt.Errorf("%w: sniffing %q: %w", domain.ErrStorage, name, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if file.Checksum != "" {
		w.Header().Set("ETag", strconv.Quote(file.Checksum))
	}
	http.ServeContent(w, r, name, file.ModTime, file.Content)
}

func (h *FileHandler) observeUpload(msg *domain.Message, err error) {
	if h.metrics == nil {
		return
	}
	if err != nil {
		_, code := api.ErrorCode(err)
		h.metrics.ObserveUpload(code, 0)
		return
	}
	var size int64
	if fc, ok := msg.Content.(domain.FileContent); ok {
		size = fc.Size
	}
	h.metrics.ObserveUpload("ok", size)
}

// readUploadHeader reads the optional size field and returns the file part
// positioned at its first byte.
func readUploadHeader(mr *multipart.Reader) (int64, *multipart.Part, error) {
	size := service.UnknownSize
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return 0, nil, fmt.Errorf("%w: multipart body has no %q part", domain.ErrBadRequest, fileField)
		}
		if err != nil {
			return 0, nil, fmt.Errorf("%w: reading multipart body: %v", domain.ErrBadRequest, err)
		}

		switch part.FormName() {
		case sizeField:
			raw, err := io.ReadAll(io.LimitReader(part, 32))
			part.Close()
			if err != nil {
				return 0, nil, fmt.Errorf("%w: reading size field: %v", domain.ErrBadRequest, err)
			}
			size, err = strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
			if err != nil || size < 0 {
				return 0, nil, fmt.Errorf("%w: size must be a non-negative integer", domain.ErrBadRequest)
			}
		case fileField:
			if size == service.UnknownSize {
				if size, err = partLength(part); err != nil {
					part.Close()
					return 0, nil, err
				}
			}
			return size, part, nil
		default:
			part.Close()
		}
	}
}

func partLength(part *multipart.Part) (int64, error) {
	raw := part.Header.Get("Content-Length")
	if raw == "" {
		return service.UnknownSize, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid Content-Length on the %q part", domain.ErrBadRequest, fileField)
	}
	return n, nil
}

// quarterLogger logs upload progress at debug level each time another
// quarter of the file has arrived.
func quarterLogger(logger *slog.Logger) service.ProgressFunc {
	next := 0.25
	return func(fraction float64) {
		if fraction < next {
			return
		}
		logger.Debug("upload progress", "percent", int(fraction*100))
		for next <= fraction {
			next += 0.25
		}
	}
}

func sniff(content io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(io.LimitReader(content, sniffBytes))
	if err != nil {
		return "", err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mtype.String(), nil
}
