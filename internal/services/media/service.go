package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrValidation = errors.New("invalid media input")

const (
	KindCertificate = "certificates"
	KindAvatar      = "avatars"

	signedURLTTL  = 5 * time.Minute
	maxUploadSize = 10 << 20
)

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	storage ObjectStorage
	now     func() time.Time
}

// Upload describes a stored object. ObjectKey is the durable reference
// to persist; URL is a short-lived presigned link for immediate display.
type Upload struct {
	ObjectKey string
	URL       string
}

func NewService(storage ObjectStorage) *Service {
	return &Service{
		storage: storage,
		now:     time.Now,
	}
}

// Upload stores one object under the given kind for userID. Keys embed a
// uuid so repeated uploads never collide or overwrite each other.
func (s *Service) Upload(ctx context.Context, kind, userID, fileName, contentType string, body io.Reader, size int64) (Upload, error) {
	if s.storage == nil {
		return Upload{}, fmt.Errorf("object storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || body == nil || size <= 0 || size > maxUploadSize {
		return Upload{}, ErrValidation
	}
	if kind != KindCertificate && kind != KindAvatar {
		return Upload{}, fmt.Errorf("%w: unknown upload kind %q", ErrValidation, kind)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Upload{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key := s.buildObjectKey(kind, userID, fileName)

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	if err := s.storage.Put(ctx, key, body, size, contentType); err != nil {
		return Upload{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return Upload{}, fmt.Errorf("presign object url: %w", err)
	}

	return Upload{ObjectKey: key, URL: url}, nil
}

// ViewURL presigns a stored object key for display. The link expires;
// callers re-request it rather than persisting it.
func (s *Service) ViewURL(ctx context.Context, objectKey string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	if strings.TrimSpace(objectKey) == "" {
		return "", ErrValidation
	}
	return s.storage.PresignGet(ctx, objectKey, signedURLTTL)
}

func (s *Service) Delete(ctx context.Context, objectKey string) error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Delete(ctx, objectKey)
}

func (s *Service) buildObjectKey(kind, userID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}
	stamp := s.now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s/%s/%s_%s%s", kind, userID, stamp, uuid.NewString(), ext)
}
