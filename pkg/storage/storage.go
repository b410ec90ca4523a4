// Package storage builds the configured blob store and names stored objects.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Gradiiai/gradii-sub007/config"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/storage/azurestore"
	"github.com/Gradiiai/gradii-sub007/pkg/storage/s3store"
)

const (
	ProviderAzure = "azure"
	ProviderS3    = "s3"
)

// Store is a BlobStore that can report its health.
type Store interface {
	domain.BlobStore
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch strings.ToLower(cfg.Storage.Provider) {
	case ProviderS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
	case ProviderAzure, "":
		return azurestore.New(azurestore.Config{
			AccountName: cfg.Storage.AzureAccountName,
			AccountKey:  cfg.Storage.AzureAccountKey,
			ServiceURL:  cfg.Storage.AzureServiceURL,
			Container:   cfg.Storage.Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func RecordingKey(companyID, interviewID uuid.UUID, ext string) string {
	return fmt.Sprintf("recordings/%s/%s/%s%s", companyID, interviewID, uuid.New(), ext)
}

func ResumeKey(companyID, candidateID uuid.UUID, ext string) string {
	return fmt.Sprintf("resumes/%s/%s/%s%s", companyID, candidateID, uuid.New(), ext)
}
