// Package fs provides a filesystem-backed object store. Keys map to paths
// below a base directory, which makes it convenient for local development
// and for inspecting chunk objects by hand.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/guzman109/ArrayMorph/pkg/store"
)

// Config holds configuration for the filesystem store.
type Config struct {
	// BasePath is the root directory for object storage.
	BasePath string

	// CreateDir creates the base directory if it doesn't exist.
	CreateDir bool

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode
}

// DefaultConfig returns the default configuration.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath:  basePath,
		CreateDir: true,
		DirMode:   0755,
		FileMode:  0644,
	}
}

// Store is a filesystem-backed implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// New creates a filesystem store.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	base, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(base, cfg.DirMode); err != nil {
			return nil, fmt.Errorf("create base path: %w", err)
		}
	}

	info, err := os.Stat(base)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %s is not a directory", base)
	}

	return &Store{
		basePath: base,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// objectPath maps a key to a path below the base directory.
func (s *Store) objectPath(key string) (string, error) {
	if key == "" {
		return "", store.ErrInvalidKey
	}
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if path != s.basePath && !strings.HasPrefix(path, s.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes base path", store.ErrInvalidKey, key)
	}
	return path, nil
}

// Put writes an object via a temporary file and an atomic rename.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return store.WrapError("put", key, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return store.WrapError("put", key, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return store.WrapError("put", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return store.WrapError("put", key, err)
	}
	if err := os.Chmod(tmpPath, s.fileMode); err != nil {
		_ = os.Remove(tmpPath)
		return store.WrapError("put", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return store.WrapError("put", key, err)
	}
	return nil
}

// Get reads a complete object.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrObjectNotFound
		}
		return nil, store.WrapError("get", key, err)
	}
	return data, nil
}

// GetRange reads a byte range of an object.
func (s *Store) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrObjectNotFound
		}
		return nil, store.WrapError("get", key, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, store.WrapError("get", key, err)
	}
	end, err := store.ClampRange(info.Size(), offset, length)
	if err != nil {
		return nil, err
	}

	data := make([]byte, end-offset)
	if _, err := f.ReadAt(data, offset); err != nil {
		return nil, store.WrapError("get", key, err)
	}
	return data, nil
}

// Delete removes a single object and prunes empty parent directories.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return store.WrapError("delete", key, err)
	}
	s.cleanEmptyDirs(filepath.Dir(path))
	return nil
}

// cleanEmptyDirs removes empty directories up to the base path.
func (s *Store) cleanEmptyDirs(dir string) {
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
}

// DeleteByPrefix removes all objects whose key starts with prefix.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	keys, err := s.walk(prefix)
	if err != nil {
		return store.WrapError("delete", prefix, err)
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.basePath, filepath.FromSlash(key))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return store.WrapError("delete", key, err)
		}
		s.cleanEmptyDirs(filepath.Dir(path))
	}
	return nil
}

// List returns the keys of all objects whose key starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	keys, err := s.walk(prefix)
	if err != nil {
		return nil, store.WrapError("list", prefix, err)
	}
	return keys, nil
}

// walk collects keys with the given prefix, starting from the deepest
// directory the prefix names.
func (s *Store) walk(prefix string) ([]string, error) {
	root := s.basePath
	if dir, _ := filepath.Split(filepath.FromSlash(prefix)); dir != "" {
		root = filepath.Join(s.basePath, dir)
	}

	keys := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(keys)
	return keys, nil
}

// HealthCheck verifies the base directory is accessible.
func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	if _, err := os.Stat(s.basePath); err != nil {
		return err
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

// BasePath returns the absolute base directory.
func (s *Store) BasePath() string {
	return s.basePath
}

var _ store.Store = (*Store)(nil)
