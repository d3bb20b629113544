package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"flowtrack/internal/journey/domain"
	"flowtrack/platform/apperr"
	"flowtrack/platform/config"
)

const (
	// presignedURLTTL is the expiration time for presigned URLs.
	presignedURLTTL = 15 * time.Minute
	// maxFileSize caps stage attachments at 25 MB.
	maxFileSize = 25 << 20
)

// allowedContentTypes are the attachment types stage submissions accept.
var allowedContentTypes = map[string]bool{
	"application/pdf":          true,
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"application/acad":         true,
	"application/vnd.dwg":      true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// MinIOService implements Service using MinIO.
type MinIOService struct {
	client *minio.Client
	bucket string
}

// NewMinIOService creates the stage file storage service.
func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinioBucketStageFiles(),
	}, nil
}

var _ Service = (*MinIOService)(nil)

// EnsureBucket creates the stage files bucket if it doesn't exist.
func (s *MinIOService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// GenerateUploadURL creates a presigned PUT URL under the CRN's folder.
// The key carries a short random suffix so re-uploads never overwrite.
func (s *MinIOService) GenerateUploadURL(ctx context.Context, crn, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	if !allowedContentTypes[contentType] {
		return nil, apperr.Validation(fmt.Sprintf("content type %q is not allowed", contentType))
	}
	if sizeBytes <= 0 || sizeBytes > maxFileSize {
		return nil, apperr.Validation(fmt.Sprintf("file size must be between 1 byte and %d bytes", maxFileSize))
	}

	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(path.Base(fileName), ext)
	fileKey := fmt.Sprintf("%s/%s_%s%s", domain.NormalizeCRN(crn), baseName, uuid.New().String()[:8], ext)

	expiresAt := time.Now().Add(presignedURLTTL)
	presignedURL, err := s.client.PresignedPutObject(ctx, s.bucket, fileKey, presignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// GenerateDownloadURL creates a presigned GET URL for a stored file.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(presignedURLTTL)

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, presignedURLTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DeleteObject removes a stored file.
func (s *MinIOService) DeleteObject(ctx context.Context, fileKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}
