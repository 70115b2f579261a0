package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"electroCare/domain"
	"electroCare/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ObjectStorage contract interface
type ObjectStorage interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

type uploadService struct {
	storage ObjectStorage
	maxSize int64
}

func NewUploadService(storage ObjectStorage, maxSize int64) *uploadService {
	return &uploadService{
		storage: storage,
		maxSize: maxSize,
	}
}

type File struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Upload stores an image or PDF for the user. The content type is sniffed
// from the bytes; the client supplied name and type are ignored.
func (s *uploadService) Upload(ctx context.Context, userID uint, body io.Reader) (File, error) {
	data, err := io.ReadAll(io.LimitReader(body, s.maxSize+1))
	if err != nil {
		logger.Error("Failed to read upload", err)
		return File{}, err
	}

	if len(data) == 0 {
		return File{}, fmt.Errorf("file is empty: %w", domain.ErrInvalidInput)
	}

	if int64(len(data)) > s.maxSize {
		return File{}, fmt.Errorf("file exceeds %d bytes: %w", s.maxSize, domain.ErrInvalidInput)
	}

	mime := mimetype.Detect(data)
	if !allowed(mime) {
		return File{}, fmt.Errorf("unsupported file type %s: %w", mime.String(), domain.ErrInvalidInput)
	}

	contentType, _, _ := strings.Cut(mime.String(), ";")
	key := "uploads/" + strconv.FormatUint(uint64(userID), 10) + "/" + uuid.NewString() + mime.Extension()

	url, err := s.storage.PutObject(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Error("Failed to store upload", err, "key", key)
		return File{}, err
	}

	return File{
		URL:         url,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func allowed(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("application/pdf") || strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}

	return false
}
