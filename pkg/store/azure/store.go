// Package azure provides an Azure Blob Storage backed object store.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/pkg/store"
)

// Config holds configuration for the Azure Blob store.
type Config struct {
	// Container is the blob container holding chunk objects.
	Container string

	// ConnectionString is the storage account connection string.
	ConnectionString string

	// KeyPrefix is prepended to all blob names.
	KeyPrefix string

	// MaxRetries, RetryDelay and MaxRetryDelay configure the SDK retry policy.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// MaxConnections caps concurrent connections per host.
	MaxConnections int

	// RequestTimeout bounds a single try, ConnectTimeout the dial.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// Store is an Azure Blob implementation of store.Store.
type Store struct {
	client    *azblob.Client
	container string
	keyPrefix string
	closed    bool
	mu        sync.RWMutex
}

// New creates a store around an existing client.
func New(client *azblob.Client, config Config) *Store {
	return &Store{
		client:    client,
		container: config.Container,
		keyPrefix: config.KeyPrefix,
	}
}

// NewFromConfig creates a store by building a client from a connection string.
func NewFromConfig(_ context.Context, config Config) (*Store, error) {
	if config.Container == "" {
		return nil, errors.New("azure: container is required")
	}
	if config.ConnectionString == "" {
		return nil, errors.New("azure: connection string is required")
	}

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	if config.MaxConnections > 0 {
		transport.MaxConnsPerHost = config.MaxConnections
		transport.MaxIdleConnsPerHost = config.MaxConnections
	}

	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    int32(config.MaxRetries),
				RetryDelay:    config.RetryDelay,
				MaxRetryDelay: config.MaxRetryDelay,
				TryTimeout:    config.RequestTimeout,
			},
			Transport: &http.Client{Transport: transport},
		},
	}

	client, err := azblob.NewClientFromConnectionString(config.ConnectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	logger.Debug("Azure blob client created",
		logger.KeyContainer, config.Container,
		"max_retries", config.MaxRetries)

	return New(client, config), nil
}

func (s *Store) blobName(key string) string {
	return s.keyPrefix + key
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

// Put uploads a complete blob.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, s.blobName(key), data, nil); err != nil {
		return store.WrapError("azure upload blob", key, err)
	}
	return nil
}

// Get downloads a complete blob.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.download(ctx, key, nil)
}

// GetRange downloads a byte range of a blob.
func (s *Store) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("%w: offset %d length %d", store.ErrInvalidRange, offset, length)
	}
	return s.download(ctx, key, &azblob.DownloadStreamOptions{
		Range: azblob.HTTPRange{Offset: offset, Count: length},
	})
}

func (s *Store) download(ctx context.Context, key string, opts *azblob.DownloadStreamOptions) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blobName(key), opts)
	if err != nil {
		return nil, translateError("azure download blob", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.ContentLength != nil && *resp.ContentLength > 0 {
		data := make([]byte, *resp.ContentLength)
		if _, err := io.ReadFull(resp.Body, data); err != nil {
			return nil, store.WrapError("read azure blob body", key, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, store.WrapError("read azure blob body", key, err)
	}
	return data, nil
}

// Delete removes a single blob. A missing blob is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.DeleteBlob(ctx, s.container, s.blobName(key), nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return store.WrapError("azure delete blob", key, err)
	}
	return nil
}

// DeleteByPrefix removes all blobs with a given prefix.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// List returns all keys with a given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	keys := []string{}
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(s.blobName(prefix)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, store.WrapError("azure list blobs", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			keys = append(keys, strings.TrimPrefix(*item.Name, s.keyPrefix))
		}
	}

	slices.Sort(keys)
	return keys, nil
}

// HealthCheck verifies the container is accessible.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.ServiceClient().NewContainerClient(s.container).GetProperties(ctx, nil)
	if err != nil {
		return fmt.Errorf("azure health check failed: %w", err)
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// translateError maps blob service errors onto store errors.
func translateError(op, key string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return store.ErrObjectNotFound
	case bloberror.HasCode(err, bloberror.InvalidRange):
		return fmt.Errorf("%w: %s", store.ErrInvalidRange, key)
	default:
		return store.WrapError(op, key, err)
	}
}

var _ store.Store = (*Store)(nil)
