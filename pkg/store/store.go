// Package store provides the object storage interface the transfer engine
// runs against, and the platforms that implement it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by Store implementations.
var (
	// ErrObjectNotFound is returned when a requested object doesn't exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidRange is returned when a range read starts outside the object
	// or has a non-positive length.
	ErrInvalidRange = errors.New("invalid byte range")

	// ErrInvalidKey is returned when a key cannot address an object, such as
	// an empty key or one escaping the store's namespace.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrUnknownPlatform is returned when a platform name is not recognized.
	ErrUnknownPlatform = errors.New("unknown storage platform")
)

// Store defines the interface for object storage backends.
// Objects are opaque byte strings addressed by a string key.
//
// Key format: "{file}/{dataset}/{chunk}"
// Example: "climate.h5/temperature/0.3.1"
type Store interface {
	// Get reads a complete object.
	// Returns ErrObjectNotFound if the object doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRange reads length bytes starting at offset.
	// A range running past the end of the object is truncated.
	// Returns ErrObjectNotFound if the object doesn't exist.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// Put writes a complete object, replacing any existing one.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes a single object.
	// Returns nil if the object doesn't exist.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes all objects with a given prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// List returns the keys of all objects with a given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// HealthCheck verifies the store is accessible and operational.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// ============================================================================
// Platforms
// ============================================================================

// Platform names a storage backend implementation.
type Platform string

const (
	PlatformS3         Platform = "S3"
	PlatformAzure      Platform = "Azure"
	PlatformFilesystem Platform = "filesystem"
	PlatformMemory     Platform = "memory"
)

// ParsePlatform resolves a platform name case-insensitively.
func ParsePlatform(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "s3", "aws":
		return PlatformS3, nil
	case "azure", "azblob":
		return PlatformAzure, nil
	case "filesystem", "fs", "file":
		return PlatformFilesystem, nil
	case "memory", "mem":
		return PlatformMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
}

// ============================================================================
// Transport errors
// ============================================================================

// TransportError records a failed backend operation on an object.
type TransportError struct {
	Op  string
	Key string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// WrapError attaches the operation and key to err. Nil stays nil.
func WrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Key: key, Err: err}
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// ClampRange validates a range read against an object of size bytes and
// returns the end offset, truncated to the object.
func ClampRange(size, offset, length int64) (int64, error) {
	if offset < 0 || length <= 0 || offset >= size {
		return 0, fmt.Errorf("%w: offset %d length %d of %d bytes", ErrInvalidRange, offset, length, size)
	}
	return min(offset+length, size), nil
}
