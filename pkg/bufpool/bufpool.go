// Package bufpool provides a tiered buffer pool and an owned buffer type for
// transfer payloads.
//
// Chunk objects range from a few kilobytes to tens of megabytes. The pool
// keeps three size tiers so that repeated reads and read-modify-write cycles
// of similarly sized chunks reuse memory instead of allocating per request:
//   - Small buffers (default 64KB): small chunks and range segments
//   - Medium buffers (default 1MB): typical chunk objects
//   - Large buffers (default 16MB): large chunk objects
//
// Buffers larger than the large tier are allocated directly and not pooled.
//
// # Ownership
//
// A Buffer has exactly one owner at a time. Whoever holds it last calls
// Release, which returns the memory to its pool. Release is idempotent, so
// every completion path can release without tracking whether another path
// already did.
//
//	buf := bufpool.NewBuffer(size)
//	copy(buf.Bytes(), payload)
//	queue.PutAsync(ctx, key, buf, func(err error) { ... }) // queue now owns buf
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Default buffer size classes.
const (
	DefaultSmallSize  = 64 << 10
	DefaultMediumSize = 1 << 20
	DefaultLargeSize  = 16 << 20
)

// Pool manages a set of byte slice pools organized by size class.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config holds configuration for creating a custom buffer pool.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// NewPool creates a new buffer pool. A nil config uses the defaults.
func NewPool(cfg *Config) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.SmallSize > 0 {
			c.SmallSize = cfg.SmallSize
		}
		if cfg.MediumSize > 0 {
			c.MediumSize = cfg.MediumSize
		}
		if cfg.LargeSize > 0 {
			c.LargeSize = cfg.LargeSize
		}
	}

	p := &Pool{
		smallSize:  c.SmallSize,
		mediumSize: c.MediumSize,
		largeSize:  c.LargeSize,
	}
	p.small.New = newSlice(p.smallSize)
	p.medium.New = newSlice(p.mediumSize)
	p.large.New = newSlice(p.largeSize)
	return p
}

func newSlice(size int) func() any {
	return func() any {
		buf := make([]byte, size)
		return &buf
	}
}

// Get returns a slice of exactly size bytes, backed by a pooled array when
// size fits a tier. The contents are not zeroed.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer obtained from Get to the pool. Buffers whose capacity
// doesn't match a tier are left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	full := buf[:cap(buf)]
	switch cap(buf) {
	case p.smallSize:
		p.small.Put(&full)
	case p.mediumSize:
		p.medium.Put(&full)
	case p.largeSize:
		p.large.Put(&full)
	}
}

// =============================================================================
// Owned buffers
// =============================================================================

// Buffer is a pooled byte slice with a single owner.
type Buffer struct {
	data     []byte
	pool     *Pool
	released atomic.Bool
}

// Buffer returns an owned buffer of size bytes from p.
func (p *Pool) Buffer(size int) *Buffer {
	return &Buffer{data: p.Get(size), pool: p}
}

// Zeroed returns an owned buffer of size bytes with every byte cleared.
func (p *Pool) Zeroed(size int) *Buffer {
	b := p.Buffer(size)
	clear(b.data)
	return b
}

// Bytes returns the buffer's contents. It returns nil after Release.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.released.Load() {
		return nil
	}
	return b.data
}

// Len returns the buffer length in bytes, or 0 after Release.
func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// Release returns the memory to the pool. Only the first call has effect.
func (b *Buffer) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	data := b.data
	b.data = nil
	if b.pool != nil {
		b.pool.Put(data)
	}
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b == nil || b.released.Load()
}

// =============================================================================
// Global Pool
// =============================================================================

var globalPool = NewPool(nil)

// Get returns a byte slice of size bytes from the global pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// NewBuffer returns an owned buffer from the global pool.
func NewBuffer(size int) *Buffer {
	return globalPool.Buffer(size)
}

// NewZeroedBuffer returns a cleared owned buffer from the global pool.
func NewZeroedBuffer(size int) *Buffer {
	return globalPool.Zeroed(size)
}
