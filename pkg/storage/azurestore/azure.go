package azurestore

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type Config struct {
	AccountName string
	AccountKey  string
	ServiceURL  string // defaults to https://<account>.blob.core.windows.net/
	Container   string
}

// Store keeps blobs in an Azure Blob Storage container.
type Store struct {
	client    *azblob.Client
	container string
}

var _ domain.BlobStore = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.AccountName == "" || cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account name and key are required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure storage container is required")
	}
	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure storage credentials: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}
	return &Store{client: client, container: cfg.Container}, nil
}

func (s *Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// SignedURL returns a read-only SAS URL for key.
func (s *Store) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	bc := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(key)
	url, err := bc.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(ttl), nil)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return url, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.ServiceClient().NewContainerClient(s.container).GetProperties(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to access container %s: %w", s.container, err)
	}
	return nil
}
