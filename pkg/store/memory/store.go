// Package memory provides an in-memory object store for tests and local
// experiments. Failures can be injected per operation and key.
package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/guzman109/ArrayMorph/pkg/store"
)

// ErrInjected is the error returned by injected failures.
var ErrInjected = errors.New("injected failure")

// Op names an operation for failure injection.
type Op string

const (
	OpGet    Op = "get"
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

type faultKey struct {
	op  Op
	key string
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	faults  map[faultKey]int
	calls   map[faultKey]int
	closed  bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
		faults:  make(map[faultKey]int),
		calls:   make(map[faultKey]int),
	}
}

// FailNext makes the next n calls of op on key fail with ErrInjected.
// Get and GetRange share OpGet.
func (s *Store) FailNext(op Op, key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{op, key}] = n
}

// Calls returns how many times op was invoked on key.
func (s *Store) Calls(op Op, key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[faultKey{op, key}]
}

// record counts the call and consumes an injected failure if one is armed.
// Caller must hold the write lock.
func (s *Store) record(op Op, key string) error {
	k := faultKey{op, key}
	s.calls[k]++
	if s.faults[k] > 0 {
		s.faults[k]--
		return store.WrapError(string(op), key, ErrInjected)
	}
	return nil
}

// Put writes an object to memory.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	if err := s.record(OpPut, key); err != nil {
		return err
	}

	s.objects[key] = slices.Clone(data)
	return nil
}

// Get reads a complete object from memory.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}
	if err := s.record(OpGet, key); err != nil {
		return nil, err
	}

	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrObjectNotFound
	}
	return slices.Clone(data), nil
}

// GetRange reads a byte range of an object.
func (s *Store) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}
	if err := s.record(OpGet, key); err != nil {
		return nil, err
	}

	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrObjectNotFound
	}

	end, err := store.ClampRange(int64(len(data)), offset, length)
	if err != nil {
		return nil, err
	}
	return slices.Clone(data[offset:end]), nil
}

// Delete removes a single object.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	if err := s.record(OpDelete, key); err != nil {
		return err
	}

	delete(s.objects, key)
	return nil
}

// DeleteByPrefix removes all objects with a given prefix.
func (s *Store) DeleteByPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}

// List returns all keys with a given prefix.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	keys := []string{}
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// HealthCheck verifies the store is accessible and operational.
func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.objects = nil
	return nil
}

// ObjectCount returns the number of objects stored.
func (s *Store) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ store.Store = (*Store)(nil)
