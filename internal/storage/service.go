// Package storage provides S3-compatible object storage for stage
// attachments (recce drawings, meeting minutes, agreement scans).
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service defines the object storage operations used by stage submissions.
type Service interface {
	// GenerateUploadURL creates a presigned PUT URL. Files are keyed under
	// the journey's CRN so attachments stay grouped per customer.
	GenerateUploadURL(ctx context.Context, crn, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)

	// GenerateDownloadURL creates a presigned GET URL for a stored file.
	GenerateDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error)

	// DeleteObject removes a stored file.
	DeleteObject(ctx context.Context, fileKey string) error

	// EnsureBucket creates the stage files bucket if it doesn't exist.
	EnsureBucket(ctx context.Context) error
}
