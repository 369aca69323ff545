// Package transfer moves chunk selections between caller buffers and remote
// objects.
//
// The Engine turns a chunk descriptor into planned segments, issues one
// asynchronous request per segment through an AsyncStore, and scatters each
// response into the caller's dense buffer as it arrives. Completion is
// counted on a batch-scoped Tracker: the issuer learns how many requests were
// issued and waits for that many terminal completions.
//
//	t := transfer.NewTracker()
//	segs, _ := engine.PlanTransfer(desc)
//	n, _ := engine.ExecuteRead(ctx, t, transfer.ReadRequest{Key: desc.URI(), Segments: segs, Dest: dst})
//	err := t.Wait(ctx, n)
//
// Writes of a full selection replace the object. Partial writes read the
// current object, patch the selected bytes, and write it back.
package transfer

import (
	"context"
	"fmt"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/internal/telemetry"
	"github.com/guzman109/ArrayMorph/pkg/bufpool"
	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/plan"
	"github.com/guzman109/ArrayMorph/pkg/store"
)

// Options configures an Engine.
type Options struct {
	// Planner groups mappings into segments. Nil plans one segment per object.
	Planner *plan.Planner

	// Pool supplies write buffers. Nil uses a private default pool.
	Pool *bufpool.Pool

	// Metrics records retries. May be nil.
	Metrics Metrics
}

// Engine issues and completes chunk transfers.
type Engine struct {
	async   AsyncStore
	planner *plan.Planner
	pool    *bufpool.Pool
	metrics Metrics
}

// NewEngine creates an engine over async.
func NewEngine(async AsyncStore, opts Options) *Engine {
	if opts.Planner == nil {
		opts.Planner = plan.NewPlanner(plan.Policy{})
	}
	if opts.Pool == nil {
		opts.Pool = bufpool.NewPool(nil)
	}
	return &Engine{
		async:   async,
		planner: opts.Planner,
		pool:    opts.Pool,
		metrics: opts.Metrics,
	}
}

// PlanTransfer returns the segments needed to move desc's selection.
func (e *Engine) PlanTransfer(desc *chunk.Descriptor) ([]plan.Segment, error) {
	return e.planner.PlanChunk(desc)
}

// ============================================================================
// Reads
// ============================================================================

// ReadRequest describes the segments to fetch from one object.
type ReadRequest struct {
	// Key is the object to read.
	Key string

	// Segments are the planned spans; their mappings place bytes in Dest.
	Segments []plan.Segment

	// Dest receives the selection, laid out densely.
	Dest []byte

	// ObjectSize is the full object size, when known. A segment covering
	// the whole object is fetched with a plain GET instead of a range GET.
	ObjectSize uint64

	// Retry bounds re-issues of a failed segment.
	Retry RetryPolicy
}

// ExecuteRead issues one asynchronous request per segment and returns how
// many were issued. Each issued request completes on t exactly once. The
// error reports a Dest too small for the mappings; nothing is issued then.
func (e *Engine) ExecuteRead(ctx context.Context, t *Tracker, req ReadRequest) (int, error) {
	for _, seg := range req.Segments {
		for _, m := range seg.Mappings {
			if m.LocalEnd() > uint64(len(req.Dest)) {
				return 0, fmt.Errorf("%w: %s needs %d destination bytes, have %d",
					ErrBufferSize, req.Key, m.LocalEnd(), len(req.Dest))
			}
		}
	}

	for i := range req.Segments {
		e.issueSegment(ctx, t, &req, i, 0)
	}
	return len(req.Segments), nil
}

func (e *Engine) issueSegment(ctx context.Context, t *Tracker, req *ReadRequest, idx, attempt int) {
	seg := req.Segments[idx]
	whole := req.ObjectSize > 0 && seg.Covers(req.ObjectSize)

	cb := func(body []byte, err error) {
		if err == nil {
			err = scatter(req.Key, req.Dest, body, seg)
		}
		if err == nil {
			t.Done(nil)
			return
		}

		if req.Retry.Allows(attempt) {
			logger.WarnCtx(ctx, "Segment fetch failed, retrying",
				logger.KeyKey, req.Key,
				logger.KeySegment, idx,
				logger.KeyAttempt, attempt+1,
				logger.KeyError, err)
			if e.metrics != nil {
				e.metrics.RecordRetry("read")
			}
			telemetry.AddEvent(ctx, "transfer.retry", telemetry.StorageKey(req.Key), telemetry.Attempt(attempt+1))
			// Callbacks run on pool workers; re-issue off the worker.
			go e.issueSegment(ctx, t, req, idx, attempt+1)
			return
		}

		logger.ErrorCtx(ctx, "Segment fetch failed",
			logger.KeyKey, req.Key,
			logger.KeySegment, idx,
			logger.KeyOffset, seg.Start,
			logger.KeyLength, seg.Span(),
			logger.KeyBatchID, t.ID(),
			logger.KeyError, err)
		t.Done(fmt.Errorf("read %s segment %d [%d,%d]: %w", req.Key, idx, seg.Start, seg.End, err))
	}

	if whole {
		e.async.GetAsync(ctx, req.Key, cb)
		return
	}
	e.async.GetRangeAsync(ctx, req.Key, int64(seg.Start), int64(seg.Span()), cb)
}

// scatter copies each mapping's bytes from a body that starts at seg.Start.
// Segments of one request write disjoint regions of dest.
func scatter(key string, dest, body []byte, seg plan.Segment) error {
	for _, m := range seg.Mappings {
		lo := m.RemoteOffset - seg.Start
		hi := lo + m.Length
		if hi > uint64(len(body)) {
			return fmt.Errorf("%w: %s needs byte %d of segment at %d, body has %d",
				ErrShortObject, key, hi, seg.Start, len(body))
		}
		copy(dest[m.LocalOffset:m.LocalEnd()], body[lo:hi])
	}
	return nil
}

// ============================================================================
// Writes
// ============================================================================

// ExecuteWrite writes src, the dense selection of desc, and returns the
// number of requests issued on t (0 or 1).
//
// Synchronous failures (src size, fetching the object to patch) are returned
// directly and nothing is issued. A failed PUT is logged and recorded on t.
func (e *Engine) ExecuteWrite(ctx context.Context, t *Tracker, desc *chunk.Descriptor, src []byte) (int, error) {
	if uint64(len(src)) != desc.RequiredByteSize() {
		return 0, fmt.Errorf("%w: %s selection is %d bytes, got %d",
			ErrBufferSize, desc.URI(), desc.RequiredByteSize(), len(src))
	}

	var buf *bufpool.Buffer
	if desc.IsFullSelection() && desc.Layout().RowTable == nil && desc.RequiredByteSize() == desc.FullByteSize() {
		buf = e.pool.Buffer(len(src))
		copy(buf.Bytes(), src)
	} else {
		mappings, err := desc.Mappings()
		if err != nil {
			return 0, err
		}
		buf, err = e.fetchForPatch(ctx, desc)
		if err != nil {
			return 0, err
		}
		if err := patch(buf.Bytes(), src, mappings); err != nil {
			buf.Release()
			return 0, fmt.Errorf("patch %s: %w", desc.URI(), err)
		}
	}

	key := desc.URI()
	e.async.PutAsync(ctx, key, buf, func(err error) {
		buf.Release()
		if err != nil {
			logger.ErrorCtx(ctx, "Chunk write failed",
				logger.KeyKey, key,
				logger.KeySize, desc.FullByteSize(),
				logger.KeyBatchID, t.ID(),
				logger.KeyError, err)
			t.Done(fmt.Errorf("write %s: %w", key, err))
			return
		}
		t.Done(nil)
	})
	return 1, nil
}

// fetchForPatch returns an owned copy of the current object, or a zeroed
// object of the chunk's full size when none exists yet.
func (e *Engine) fetchForPatch(ctx context.Context, desc *chunk.Descriptor) (*bufpool.Buffer, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanTransferFetchRMW)
	defer span.End()

	full := desc.FullByteSize()
	existing, err := e.get(ctx, desc.URI())
	switch {
	case store.IsNotFound(err):
		logger.DebugCtx(ctx, "Chunk object missing, patching zeroed object",
			logger.KeyKey, desc.URI(), logger.KeySize, full)
		return e.pool.Zeroed(int(full)), nil
	case err != nil:
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("fetch %s for patch: %w", desc.URI(), err)
	case uint64(len(existing)) < full:
		return nil, fmt.Errorf("%w: %s is %d bytes, chunk needs %d",
			ErrShortObject, desc.URI(), len(existing), full)
	}

	buf := e.pool.Buffer(len(existing))
	copy(buf.Bytes(), existing)
	return buf, nil
}

// get performs a blocking whole-object read through the async store.
func (e *Engine) get(ctx context.Context, key string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	e.async.GetAsync(ctx, key, func(data []byte, err error) {
		ch <- result{data, err}
	})

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// patch copies each mapping's bytes from the dense src into obj. Every
// mapping must lie within len(obj) and len(src).
func patch(obj, src []byte, mappings []hyperslab.Mapping) error {
	for _, m := range mappings {
		if m.RemoteEnd() > uint64(len(obj)) || m.LocalEnd() > uint64(len(src)) {
			return fmt.Errorf("%w: mapping %d+%d outside %d byte object",
				ErrShortObject, m.RemoteOffset, m.Length, len(obj))
		}
		copy(obj[m.RemoteOffset:m.RemoteEnd()], src[m.LocalOffset:m.LocalEnd()])
	}
	return nil
}
