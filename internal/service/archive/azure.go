package archive

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

var _ Store = (*AzureStore)(nil)

// AzureStore writes blobs to an Azure Blob Storage container using
// shared-key credentials.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore creates an AzureStore for account and container.
func NewAzureStore(account, accountKey, container string) (*AzureStore, error) {
	if accountKey == "" {
		return nil, fmt.Errorf("AZURE_ACCOUNT_KEY is required")
	}
	cred, err := azblob.NewSharedKeyCredential(account, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureStore{client: client, container: container}, nil
}

// Put uploads body to key.
func (s *AzureStore) Put(ctx context.Context, key string, body []byte) error {
	if _, err := s.client.UploadBuffer(ctx, s.container, key, body, nil); err != nil {
		return fmt.Errorf("upload azblob %s/%s: %w", s.container, key, err)
	}
	return nil
}
