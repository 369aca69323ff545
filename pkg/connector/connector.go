// Package connector is the entry point for array-format adapters.
//
// A Connector owns the chunk store, the async transfer queue and the engine
// built on them. Files opened through it share that machinery; every chunk
// read or write is planned, issued asynchronously, and waited on with a
// batch-scoped tracker before the call returns.
//
//	conn, _ := connector.New(cfg)
//	defer conn.Close()
//	f, _ := conn.Open(ctx, "./experiment.h5")
//	desc, _ := f.Descriptor("temperature/0.0", 8, []uint64{64, 64}, ranges)
//	err := f.ReadChunk(ctx, desc, buf)
//
// The backend is created on first use, so configuration errors surface from
// Open or Create rather than from New.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/internal/telemetry"
	"github.com/guzman109/ArrayMorph/pkg/bufpool"
	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/metrics"
	"github.com/guzman109/ArrayMorph/pkg/plan"
	"github.com/guzman109/ArrayMorph/pkg/store"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
)

// ErrClosed is returned by operations on a closed Connector.
var ErrClosed = errors.New("connector: closed")

// Option customizes a Connector.
type Option func(*options)

type options struct {
	store      store.Store
	processing store.Store
	metrics    transfer.Metrics
	pool       *bufpool.Pool
}

// WithStore uses s as the chunk store instead of creating one from config.
// The Connector does not close a store supplied this way.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithProcessingStore uses s for processed reads instead of creating one
// from config.processing. The Connector does not close it.
func WithProcessingStore(s store.Store) Option {
	return func(o *options) {
		o.processing = s
	}
}

// WithMetrics overrides the metrics taken from the global registry.
func WithMetrics(m transfer.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBufferPool sets the pool for write buffers.
func WithBufferPool(p *bufpool.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// backend is one store with its queue and engine.
type backend struct {
	store  store.Store
	queue  *transfer.Queue
	engine *transfer.Engine
	owned  bool
}

func (b *backend) close(ctx context.Context, cfg *config.Config) error {
	if b == nil {
		return nil
	}
	if !b.queue.Stop(cfg.ShutdownTimeout) {
		logger.WarnCtx(ctx, "Transfer queue did not drain before shutdown timeout")
	}
	if b.owned {
		return b.store.Close()
	}
	return nil
}

// Connector resolves the storage backend once and serves chunk I/O for
// every File opened through it.
type Connector struct {
	cfg     *config.Config
	opts    options
	planner *plan.Planner

	once       sync.Once
	initErr    error
	ready      atomic.Bool
	chunks     *backend
	processing *backend

	mu     sync.RWMutex
	closed bool
}

// New creates a Connector. A nil cfg uses defaults.
func New(cfg *config.Config, opts ...Option) (*Connector, error) {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Connector{
		cfg:     cfg,
		planner: plan.NewPlanner(cfg.Transfer.SegmentPolicy()),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.metrics == nil {
		c.opts.metrics = metrics.NewTransferMetrics()
	}
	if c.opts.pool == nil {
		c.opts.pool = bufpool.NewPool(nil)
	}
	return c, nil
}

// Config returns the configuration the Connector was built with.
func (c *Connector) Config() *config.Config {
	return c.cfg
}

// init creates the backends on first use.
func (c *Connector) init(ctx context.Context) error {
	c.once.Do(func() {
		c.chunks, c.initErr = c.newBackend(ctx, c.opts.store, config.CreateStore)
		if c.initErr != nil {
			return
		}
		if c.cfg.Processing.Enabled {
			c.processing, c.initErr = c.newBackend(ctx, c.opts.processing, config.CreateProcessingStore)
			if c.initErr != nil {
				_ = c.chunks.close(ctx, c.cfg)
				c.chunks = nil
				return
			}
		}
		c.ready.Store(true)
	})
	return c.initErr
}

type storeFactory func(context.Context, *config.Config) (store.Store, error)

func (c *Connector) newBackend(ctx context.Context, st store.Store, create storeFactory) (*backend, error) {
	owned := false
	if st == nil {
		var err error
		st, err = create(ctx, c.cfg)
		if err != nil {
			return nil, err
		}
		owned = true
	}

	qcfg := c.cfg.Transfer.QueueConfig()
	qcfg.Metrics = c.opts.metrics
	queue := transfer.NewQueue(st, qcfg)
	queue.Start()

	engine := transfer.NewEngine(queue, transfer.Options{
		Planner: c.planner,
		Pool:    c.opts.pool,
		Metrics: c.opts.metrics,
	})

	logger.InfoCtx(ctx, "Connected to chunk store",
		logger.KeyPlatform, c.cfg.Storage.Platform,
		logger.KeyBucket, c.cfg.Storage.Bucket,
		logger.KeyWorkers, qcfg.Workers)

	return &backend{store: st, queue: queue, engine: engine, owned: owned}, nil
}

// acquire initializes the backends and guards against use after Close.
// The returned release must be called when the operation is done.
func (c *Connector) acquire(ctx context.Context) (func(), error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClosed
	}
	if err := c.init(ctx); err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	return c.mu.RUnlock, nil
}

// Create returns a handle for a new file. No object is written until a chunk
// is. A leading "./" is stripped from name.
func (c *Connector) Create(ctx context.Context, name string) (*File, error) {
	return c.file(ctx, "create", name)
}

// Open returns a handle for an existing file. A leading "./" is stripped
// from name.
func (c *Connector) Open(ctx context.Context, name string) (*File, error) {
	return c.file(ctx, "open", name)
}

func (c *Connector) file(ctx context.Context, op, name string) (*File, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	f := newFile(c, name)
	logger.DebugCtx(ctx, "File "+op, logger.KeyPath, f.name)
	return f, nil
}

// Plan returns the segments a transfer of desc would issue. It does not
// touch the backend.
func (c *Connector) Plan(ctx context.Context, desc *chunk.Descriptor) ([]plan.Segment, error) {
	ctx, span := telemetry.StartChunkSpan(ctx, "plan", desc.URI(),
		telemetry.ChunkShape(desc.Shape()))
	defer span.End()

	segs, err := c.planner.PlanChunk(desc)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.Segments(len(segs)))
	return segs, nil
}

// HealthCheck verifies the chunk store is reachable.
func (c *Connector) HealthCheck(ctx context.Context) error {
	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.chunks.store.HealthCheck(ctx)
}

// QueueStats reports the chunk queue's pending, completed and failed counts.
// All are zero before the backend is created.
func (c *Connector) QueueStats() (pending, completed, failed int) {
	if !c.ready.Load() {
		return 0, 0, 0
	}
	return c.chunks.queue.Stats()
}

// Close drains the queues and closes stores the Connector created.
// It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	ctx := context.Background()
	return errors.Join(
		c.processing.close(ctx, c.cfg),
		c.chunks.close(ctx, c.cfg),
	)
}
