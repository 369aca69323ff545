package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/internal/telemetry"
	"github.com/guzman109/ArrayMorph/pkg/bufpool"
	"github.com/guzman109/ArrayMorph/pkg/store"
)

// AsyncStore issues object requests whose results are delivered to a
// callback. Callbacks run on pool goroutines and must not block; work that
// may block, such as issuing a follow-up request, belongs on another
// goroutine.
type AsyncStore interface {
	// GetAsync fetches a whole object.
	GetAsync(ctx context.Context, key string, cb func([]byte, error))

	// GetRangeAsync fetches length bytes starting at offset.
	GetRangeAsync(ctx context.Context, key string, offset, length int64, cb func([]byte, error))

	// PutAsync writes buf as the whole object. Ownership of buf passes to the
	// call; cb is the last holder and releases it.
	PutAsync(ctx context.Context, key string, buf *bufpool.Buffer, cb func(error))
}

// Default queue settings.
const (
	DefaultWorkers        = 256
	DefaultQueueSize      = 8192
	DefaultRequestTimeout = 5 * time.Minute
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Workers is the number of goroutines executing requests.
	Workers int

	// QueueSize is the buffered capacity of each priority channel.
	QueueSize int

	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration

	// Metrics receives per-request observations. May be nil.
	Metrics Metrics
}

// DefaultQueueConfig returns the default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:        DefaultWorkers,
		QueueSize:      DefaultQueueSize,
		RequestTimeout: DefaultRequestTimeout,
	}
}

type opKind int

const (
	opGet opKind = iota
	opGetRange
	opPut
)

func (k opKind) String() string {
	switch k {
	case opGet:
		return "get"
	case opGetRange:
		return "get_range"
	case opPut:
		return "put"
	default:
		return "unknown"
	}
}

func (k opKind) spanName() string {
	switch k {
	case opGet:
		return telemetry.SpanTransferGet
	case opGetRange:
		return telemetry.SpanTransferGetRange
	default:
		return telemetry.SpanTransferPut
	}
}

func (k opKind) isDownload() bool {
	return k != opPut
}

type request struct {
	kind     opKind
	ctx      context.Context
	key      string
	offset   int64
	length   int64
	buf      *bufpool.Buffer
	onData   func([]byte, error)
	onDone   func(error)
	enqueued time.Time
}

// complete delivers the terminal result to the request's callback.
func (r *request) complete(data []byte, err error) {
	if r.kind == opPut {
		r.onDone(err)
		return
	}
	r.onData(data, err)
}

// Queue executes object requests against a store.Store on a fixed pool of
// workers. Downloads are served before uploads: a caller waiting on a read
// should not queue behind a burst of writes.
//
// Requests run detached from the issuer's cancellation. Once accepted, a
// request always reaches its callback, bounded only by RequestTimeout.
type Queue struct {
	store   store.Store
	metrics Metrics
	timeout time.Duration

	downloads chan *request
	uploads   chan *request

	workers   int
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	// lifecycle guards started/stopped; submitters hold it shared while
	// sending so Stop cannot race a send into a drained channel.
	lifecycle sync.RWMutex
	started   bool
	stopped   bool

	mu              sync.Mutex
	pendingDownload int
	pendingUpload   int
	completed       int
	failed          int
	lastError       error
	lastErrorAt     time.Time
}

var _ AsyncStore = (*Queue)(nil)

// NewQueue creates a queue over s. Call Start before expecting callbacks.
func NewQueue(s store.Store, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &Queue{
		store:     s,
		metrics:   cfg.Metrics,
		timeout:   cfg.RequestTimeout,
		downloads: make(chan *request, cfg.QueueSize),
		uploads:   make(chan *request, cfg.QueueSize),
		workers:   cfg.Workers,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (q *Queue) Start() {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	logger.Info("Starting transfer queue", logger.KeyWorkers, q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	go func() {
		q.wg.Wait()
		close(q.stoppedCh)
	}()
}

// Stop rejects new requests, lets workers drain what is queued, and waits up
// to timeout for them to finish. It returns false on timeout.
func (q *Queue) Stop(timeout time.Duration) bool {
	q.lifecycle.Lock()
	if q.stopped {
		q.lifecycle.Unlock()
		return true
	}
	q.stopped = true
	started := q.started
	q.lifecycle.Unlock()

	if !started {
		q.failQueued()
		return true
	}

	logger.Info("Stopping transfer queue", logger.KeyPending, q.Pending())
	close(q.stopCh)

	select {
	case <-q.stoppedCh:
		logger.Info("Transfer queue stopped gracefully")
		return true
	case <-time.After(timeout):
		logger.Warn("Transfer queue stop timed out", logger.KeyPending, q.Pending())
		return false
	}
}

// failQueued completes requests left in a queue that never started.
func (q *Queue) failQueued() {
	for {
		select {
		case req := <-q.downloads:
			q.decrementPending(req.kind)
			req.complete(nil, ErrQueueStopped)
		case req := <-q.uploads:
			q.decrementPending(req.kind)
			req.complete(nil, ErrQueueStopped)
		default:
			return
		}
	}
}

// GetAsync implements AsyncStore.
func (q *Queue) GetAsync(ctx context.Context, key string, cb func([]byte, error)) {
	q.submit(&request{kind: opGet, ctx: ctx, key: key, onData: cb})
}

// GetRangeAsync implements AsyncStore.
func (q *Queue) GetRangeAsync(ctx context.Context, key string, offset, length int64, cb func([]byte, error)) {
	q.submit(&request{kind: opGetRange, ctx: ctx, key: key, offset: offset, length: length, onData: cb})
}

// PutAsync implements AsyncStore.
func (q *Queue) PutAsync(ctx context.Context, key string, buf *bufpool.Buffer, cb func(error)) {
	q.submit(&request{kind: opPut, ctx: ctx, key: key, buf: buf, onDone: cb})
}

// submit blocks until the request is queued. A request that cannot be
// queued completes immediately on the caller's goroutine.
func (q *Queue) submit(req *request) {
	if req.ctx == nil {
		req.ctx = context.Background()
	}
	req.enqueued = time.Now()

	ch := q.uploads
	if req.kind.isDownload() {
		ch = q.downloads
	}

	q.lifecycle.RLock()
	if q.stopped {
		q.lifecycle.RUnlock()
		req.complete(nil, ErrQueueStopped)
		return
	}

	q.incrementPending(req.kind)
	select {
	case ch <- req:
		q.lifecycle.RUnlock()
	case <-req.ctx.Done():
		q.lifecycle.RUnlock()
		q.decrementPending(req.kind)
		req.complete(nil, req.ctx.Err())
	}
}

// Pending returns the number of queued requests not yet executed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingDownload + q.pendingUpload
}

// PendingByKind returns queued download and upload counts.
func (q *Queue) PendingByKind() (download, upload int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingDownload, q.pendingUpload
}

// Stats returns queue statistics.
func (q *Queue) Stats() (pending, completed, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingDownload + q.pendingUpload, q.completed, q.failed
}

// LastError returns when the last error occurred and the error itself.
func (q *Queue) LastError() (time.Time, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErrorAt, q.lastError
}

// worker serves downloads first, then whatever is available, and drains
// both channels once stopCh closes.
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	logger.Debug("Transfer queue worker started", logger.KeyWorker, id)

	for {
		select {
		case req := <-q.downloads:
			q.process(req)
			continue
		default:
		}

		select {
		case req := <-q.downloads:
			q.process(req)
		case req := <-q.uploads:
			q.process(req)
		case <-q.stopCh:
			q.drain()
			logger.Debug("Transfer queue worker stopped", logger.KeyWorker, id)
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case req := <-q.downloads:
			q.process(req)
		case req := <-q.uploads:
			q.process(req)
		default:
			return
		}
	}
}

// process executes one request and delivers its result.
func (q *Queue) process(req *request) {
	q.decrementPending(req.kind)

	// Keep the issuer's values (trace, log context) but not its cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(req.ctx), q.timeout)
	defer cancel()

	ctx, span := telemetry.StartTransferSpan(ctx, req.kind.spanName(), req.key,
		telemetry.QueueWaitMs(logger.Duration(req.enqueued)))
	defer span.End()

	start := time.Now()
	var (
		data []byte
		err  error
		n    int
	)
	switch req.kind {
	case opGet:
		data, err = q.store.Get(ctx, req.key)
		n = len(data)
	case opGetRange:
		span.SetAttributes(telemetry.Offset(req.offset), telemetry.Length(req.length))
		data, err = q.store.GetRange(ctx, req.key, req.offset, req.length)
		n = len(data)
	case opPut:
		payload := req.buf.Bytes()
		err = q.store.Put(ctx, req.key, payload)
		n = len(payload)
	}
	elapsed := time.Since(start)

	span.SetAttributes(telemetry.Bytes(n))
	telemetry.RecordError(ctx, err)
	if q.metrics != nil {
		q.metrics.ObserveRequest(req.kind.String(), n, elapsed, err)
	}
	q.recordResult(ctx, req, elapsed, err)

	req.complete(data, err)
}

func (q *Queue) incrementPending(kind opKind) {
	q.mu.Lock()
	if kind.isDownload() {
		q.pendingDownload++
	} else {
		q.pendingUpload++
	}
	d, u := q.pendingDownload, q.pendingUpload
	q.mu.Unlock()
	q.reportPending(kind, d, u)
}

func (q *Queue) decrementPending(kind opKind) {
	q.mu.Lock()
	if kind.isDownload() {
		q.pendingDownload--
	} else {
		q.pendingUpload--
	}
	d, u := q.pendingDownload, q.pendingUpload
	q.mu.Unlock()
	q.reportPending(kind, d, u)
}

func (q *Queue) reportPending(kind opKind, download, upload int) {
	if q.metrics == nil {
		return
	}
	if kind.isDownload() {
		q.metrics.SetPending("download", download)
	} else {
		q.metrics.SetPending("upload", upload)
	}
}

func (q *Queue) recordResult(ctx context.Context, req *request, elapsed time.Duration, err error) {
	q.mu.Lock()
	if err != nil {
		q.failed++
		q.lastError = err
		q.lastErrorAt = time.Now()
	} else {
		q.completed++
	}
	q.mu.Unlock()

	if err != nil {
		logger.DebugCtx(ctx, "Transfer request failed",
			logger.KeyOperation, req.kind.String(),
			logger.KeyKey, req.key,
			logger.KeyError, err)
		return
	}
	logger.DebugCtx(ctx, "Transfer request completed",
		logger.KeyOperation, req.kind.String(),
		logger.KeyKey, req.key,
		logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)
}
