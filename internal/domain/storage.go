package domain

import (
	"context"
	"time"
)

// FileUpload is an uploaded file read fully into memory.
type FileUpload struct {
	Filename string
	Data     []byte
	ClientIP string
}

// BlobStore stores recordings and resumes.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
