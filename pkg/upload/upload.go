package upload

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vango-dev/livehooks/internal/errors"
)

// ErrNotFound is returned when a ref doesn't exist or was claimed.
var ErrNotFound = stderrors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New(errors.CodeUploadTooLarge)

// Store is an upload storage backend.
type Store interface {
	// Save stores the file and returns its ref. The file stays until
	// Claim or Cleanup removes it.
	Save(ctx context.Context, name, contentType string, size int64, r io.Reader) (ref string, err error)

	// Claim returns the file and removes it from the store once its
	// reader is closed.
	Claim(ctx context.Context, ref string) (*File, error)

	// Cleanup removes files older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is a stored upload.
type File struct {
	Ref         string
	Name        string
	ContentType string
	Size        int64

	// Path is the local path (DiskStore).
	Path string

	// Reader streams the contents.
	Reader io.ReadCloser
}

// Close closes the reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// Config configures the upload handler.
type Config struct {
	// MaxFileSize is the request body limit in bytes. Default: 10MB.
	MaxFileSize int64

	// AllowedTypes restricts the sniffed MIME type. Entries ending in
	// "/*" match a whole family. Empty allows everything.
	AllowedTypes []string
}

// DefaultMaxFileSize is used when Config.MaxFileSize is zero.
const DefaultMaxFileSize = 10 << 20

// Response is the JSON body returned by Handler.
type Response struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Handler accepts multipart uploads with a "file" field.
type Handler struct {
	store  Store
	config Config
	logger *slog.Logger
}

// NewHandler creates an upload handler. A nil logger uses slog.Default.
func NewHandler(store Store, cfg Config, logger *slog.Logger) *Handler {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, config: cfg, logger: logger.With("component", "upload")}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Limit the body before parsing.
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.fail(w, http.StatusRequestEntityTooLarge, errors.New(errors.CodeUploadTooLarge).Wrap(err))
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Sniff the type; the part header is client controlled.
	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	detected := http.DetectContentType(sniff[:n])
	if !h.allowed(detected) {
		h.fail(w, http.StatusUnsupportedMediaType, errors.New(errors.CodeUploadRejected).WithDetail(detected))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.fail(w, http.StatusInternalServerError, errors.New(errors.CodeUploadStore).Wrap(err))
		return
	}

	ref, err := h.store.Save(r.Context(), header.Filename, baseType(detected), header.Size, file)
	if err != nil {
		if stderrors.Is(err, ErrTooLarge) {
			h.fail(w, http.StatusRequestEntityTooLarge, errors.FromError(err, errors.CodeUploadTooLarge))
			return
		}
		h.fail(w, http.StatusInternalServerError, errors.FromError(err, errors.CodeUploadStore))
		return
	}

	h.logger.Info("stored upload", "ref", ref, "name", header.Filename, "size", header.Size)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Ref: ref, Name: header.Filename, Size: header.Size})
}

func (h *Handler) fail(w http.ResponseWriter, status int, err *errors.Error) {
	h.logger.Warn("upload failed", err.LogAttrs()...)
	http.Error(w, err.Message, status)
}

func (h *Handler) allowed(detected string) bool {
	if len(h.config.AllowedTypes) == 0 {
		return true
	}
	base := baseType(detected)
	for _, t := range h.config.AllowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if strings.HasSuffix(t, "/*") {
			if strings.HasPrefix(base, strings.TrimSuffix(t, "*")) {
				return true
			}
			continue
		}
		if base == t {
			return true
		}
	}
	return false
}

// baseType strips parameters and lowercases a MIME type.
func baseType(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// limitCopy copies at most max bytes (max <= 0 means unlimited) and
// reports ErrTooLarge when r holds more.
func limitCopy(dst io.Writer, r io.Reader, max int64) (int64, error) {
	if max <= 0 {
		return io.Copy(dst, r)
	}
	n, err := io.Copy(dst, io.LimitReader(r, max+1))
	if err != nil {
		return n, err
	}
	if n > max {
		return n, ErrTooLarge
	}
	return n, nil
}
