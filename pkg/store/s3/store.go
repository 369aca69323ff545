// Package s3 provides an S3-backed object store.
package s3

import (
	"bytes"
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

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/pkg/store"
)

// Config holds configuration for the S3 store.
type Config struct {
	// Bucket is the S3 bucket name. An S3 Object Lambda access point ARN
	// or alias is accepted too.
	Bucket string

	// Region is the signing region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	// A bare host:port gets a scheme according to UseTLS.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. When empty the
	// SDK's default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// KeyPrefix is prepended to all object keys.
	KeyPrefix string

	// UseTLS selects HTTPS. Plain HTTP is used otherwise.
	UseTLS bool

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool

	// SignedPayloads includes the request body in the SigV4 signature.
	// When false the payload is sent as UNSIGNED-PAYLOAD.
	SignedPayloads bool

	// MaxConnections caps concurrent connections per host.
	MaxConnections int

	// RequestTimeout bounds a whole request, ConnectTimeout the dial.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient errors.
	MaxRetries int
}

// Store is an S3-backed implementation of store.Store.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	closed    bool
	mu        sync.RWMutex
}

// New creates a new S3 store with an existing client.
func New(client *s3.Client, config Config) *Store {
	return &Store{
		client:    client,
		bucket:    config.Bucket,
		keyPrefix: config.KeyPrefix,
	}
}

// NewFromConfig creates a new S3 store by building a client from config.
func NewFromConfig(ctx context.Context, config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	httpClient := awshttp.NewBuildableClient().
		WithTimeout(config.RequestTimeout).
		WithDialerOptions(func(d *net.Dialer) {
			if config.ConnectTimeout > 0 {
				d.Timeout = config.ConnectTimeout
			}
		}).
		WithTransportOptions(func(tr *http.Transport) {
			if config.MaxConnections > 0 {
				tr.MaxConnsPerHost = config.MaxConnections
				tr.MaxIdleConnsPerHost = config.MaxConnections
			}
		})

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
	}
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	if config.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(config.MaxRetries+1))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(config.Endpoint, config.UseTLS))
		}
		o.EndpointOptions.DisableHTTPS = !config.UseTLS
		o.UsePathStyle = config.ForcePathStyle
		if !config.SignedPayloads {
			o.APIOptions = append(o.APIOptions, v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware)
		}
	})

	logger.Debug("S3 client created",
		logger.KeyBucket, config.Bucket,
		logger.KeyRegion, config.Region,
		logger.KeyEndpoint, config.Endpoint,
		"path_style", config.ForcePathStyle,
		"tls", config.UseTLS)

	return New(client, config), nil
}

// endpointURL adds a scheme to a bare endpoint.
func endpointURL(endpoint string, useTLS bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useTLS {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// fullKey returns the full S3 key for an object key.
func (s *Store) fullKey(key string) string {
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

// Put writes a complete object.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return store.WrapError("s3 put object", key, err)
	}
	return nil
}

// Get reads a complete object.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return nil, translateError("s3 get object", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readBody(resp.Body, resp.ContentLength)
	if err != nil {
		return nil, store.WrapError("read s3 object body", key, err)
	}
	return data, nil
}

// GetRange reads a byte range using an S3 range request.
func (s *Store) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("%w: offset %d length %d", store.ErrInvalidRange, offset, length)
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)),
	})
	if err != nil {
		return nil, translateError("s3 get object range", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readBody(resp.Body, resp.ContentLength)
	if err != nil {
		return nil, store.WrapError("read s3 object body", key, err)
	}
	return data, nil
}

// Delete removes a single object. S3 treats a missing key as success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil && !isNotFoundError(err) {
		return store.WrapError("s3 delete object", key, err)
	}
	return nil
}

// DeleteByPrefix removes all objects with a given prefix using batch delete.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return store.WrapError("s3 list objects", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		// Batch delete (up to 1000 per call, matching the page size)
		objects := make([]types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			objects[i] = types.ObjectIdentifier{Key: obj.Key}
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return store.WrapError("s3 delete objects", prefix, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return store.WrapError("s3 delete objects", aws.ToString(e.Key),
				fmt.Errorf("%s: %s (%d failed)", aws.ToString(e.Code), aws.ToString(e.Message), len(out.Errors)))
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
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, store.WrapError("s3 list objects", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix))
		}
	}

	slices.Sort(keys)
	return keys, nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// HealthCheck verifies the S3 bucket is accessible.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

// readBody reads a response body, preallocating when the size is known.
func readBody(body io.Reader, size *int64) ([]byte, error) {
	if size == nil || *size <= 0 {
		return io.ReadAll(body)
	}
	data := make([]byte, *size)
	if _, err := io.ReadFull(body, data); err != nil {
		return nil, err
	}
	return data, nil
}

// translateError maps S3 errors onto store errors.
func translateError(op, key string, err error) error {
	switch {
	case isNotFoundError(err):
		return store.ErrObjectNotFound
	case errorCode(err) == "InvalidRange":
		return fmt.Errorf("%w: %s", store.ErrInvalidRange, key)
	default:
		return store.WrapError(op, key, err)
	}
}

// isNotFoundError checks if an error is an S3 not found error.
func isNotFoundError(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	switch errorCode(err) {
	case "NoSuchKey", "NotFound":
		return true
	}

	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

var _ store.Store = (*Store)(nil)
