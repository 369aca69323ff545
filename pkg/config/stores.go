package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/pkg/store"
	"github.com/guzman109/ArrayMorph/pkg/store/azure"
	"github.com/guzman109/ArrayMorph/pkg/store/fs"
	"github.com/guzman109/ArrayMorph/pkg/store/memory"
	"github.com/guzman109/ArrayMorph/pkg/store/s3"
)

// ErrProcessingUnsupported is returned when processed reads are enabled on a
// platform without a processing endpoint.
var ErrProcessingUnsupported = errors.New("processed reads require the S3 platform")

// CreateStore creates the chunk store selected by cfg.Storage.Platform.
func CreateStore(ctx context.Context, cfg *Config) (store.Store, error) {
	platform, err := store.ParsePlatform(cfg.Storage.Platform)
	if err != nil {
		return nil, err
	}

	logger.Debug("Creating chunk store",
		logger.KeyPlatform, string(platform),
		logger.KeyBucket, cfg.Storage.Bucket)

	switch platform {
	case store.PlatformS3:
		return createS3Store(ctx, cfg, cfg.Storage.Bucket)
	case store.PlatformAzure:
		return createAzureStore(ctx, cfg)
	case store.PlatformFilesystem:
		return createFilesystemStore(cfg.Storage.Filesystem)
	case store.PlatformMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownPlatform, cfg.Storage.Platform)
	}
}

// CreateProcessingStore creates the store serving processed reads, an S3
// client pointed at cfg.Processing.Bucket. It returns nil when processing is
// disabled.
func CreateProcessingStore(ctx context.Context, cfg *Config) (store.Store, error) {
	if !cfg.Processing.Enabled {
		return nil, nil
	}

	platform, err := store.ParsePlatform(cfg.Storage.Platform)
	if err != nil {
		return nil, err
	}
	if platform != store.PlatformS3 {
		return nil, fmt.Errorf("%w: platform is %s", ErrProcessingUnsupported, platform)
	}

	return createS3Store(ctx, cfg, cfg.Processing.Bucket)
}

// S3StoreConfig converts the storage section to an s3.Config for bucket.
func S3StoreConfig(cfg *Config, bucket string) s3.Config {
	sc := cfg.Storage
	return s3.Config{
		Bucket:          bucket,
		Region:          sc.S3.Region,
		Endpoint:        sc.S3.Endpoint,
		AccessKeyID:     sc.S3.AccessKeyID,
		SecretAccessKey: sc.S3.SecretAccessKey,
		KeyPrefix:       sc.KeyPrefix,
		UseTLS:          sc.S3.UseTLS,
		ForcePathStyle:  sc.S3.ForcePathStyle,
		SignedPayloads:  sc.S3.SignedPayloads,
		MaxConnections:  sc.MaxConnections,
		RequestTimeout:  sc.RequestTimeout,
		ConnectTimeout:  sc.ConnectTimeout,
		MaxRetries:      sc.MaxRetries,
	}
}

// AzureStoreConfig converts the storage section to an azure.Config.
func AzureStoreConfig(cfg *Config) azure.Config {
	sc := cfg.Storage
	return azure.Config{
		Container:        sc.Bucket,
		ConnectionString: sc.Azure.ConnectionString,
		KeyPrefix:        sc.KeyPrefix,
		MaxRetries:       sc.MaxRetries,
		RetryDelay:       sc.Azure.RetryDelay,
		MaxRetryDelay:    sc.Azure.MaxRetryDelay,
		MaxConnections:   sc.MaxConnections,
		RequestTimeout:   sc.RequestTimeout,
		ConnectTimeout:   sc.ConnectTimeout,
	}
}

func createS3Store(ctx context.Context, cfg *Config, bucket string) (store.Store, error) {
	if bucket == "" {
		return nil, errors.New("s3 store requires storage.bucket (BUCKET_NAME)")
	}

	st, err := s3.NewFromConfig(ctx, S3StoreConfig(cfg, bucket))
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 store: %w", err)
	}
	return st, nil
}

func createAzureStore(ctx context.Context, cfg *Config) (store.Store, error) {
	if cfg.Storage.Bucket == "" {
		return nil, errors.New("azure store requires storage.bucket (BUCKET_NAME)")
	}
	if cfg.Storage.Azure.ConnectionString == "" {
		return nil, errors.New("azure store requires storage.azure.connection_string (AZURE_STORAGE_CONNECTION_STRING)")
	}

	st, err := azure.NewFromConfig(ctx, AzureStoreConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create azure store: %w", err)
	}
	return st, nil
}

func createFilesystemStore(cfg FilesystemConfig) (store.Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("filesystem store requires storage.filesystem.path")
	}

	st, err := fs.New(fs.DefaultConfig(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}
	return st, nil
}
