package connector

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/internal/telemetry"
	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/plan"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
)

// ErrFileClosed is returned by operations on a closed File.
var ErrFileClosed = errors.New("connector: file closed")

// maxConcurrentPatches bounds partial writes whose read-modify-write fetch
// is in flight at once within one WriteChunks call.
const maxConcurrentPatches = 64

// ReadOp is one chunk selection and the dense buffer receiving it.
type ReadOp struct {
	Desc *chunk.Descriptor
	Dest []byte
}

// WriteOp is one chunk selection and the dense bytes to store.
type WriteOp struct {
	Desc *chunk.Descriptor
	Src  []byte
}

// File is a named namespace of chunk objects.
type File struct {
	conn   *Connector
	name   string
	closed atomic.Bool
}

func newFile(c *Connector, name string) *File {
	return &File{conn: c, name: strings.TrimPrefix(name, "./")}
}

// Name returns the file name without any leading "./".
func (f *File) Name() string {
	return f.name
}

// Key returns the object key of uri within this file.
func (f *File) Key(uri string) string {
	if f.name == "" {
		return uri
	}
	return path.Join(f.name, uri)
}

// Descriptor builds a chunk descriptor for uri within this file.
func (f *File) Descriptor(uri string, elementSize uint64, shape []uint64, ranges []hyperslab.Range, opts ...chunk.Option) (*chunk.Descriptor, error) {
	return chunk.New(f.Key(uri), elementSize, shape, ranges, opts...)
}

// Close releases the handle. The Connector stays open.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	logger.Debug("File close", logger.KeyPath, f.name)
	return nil
}

func (f *File) acquire(ctx context.Context) (func(), error) {
	if f.closed.Load() {
		return nil, ErrFileClosed
	}
	return f.conn.acquire(ctx)
}

// ============================================================================
// Reads
// ============================================================================

// ReadChunk reads desc's selection into dst, laid out densely.
//
// With processing enabled, a partial selection is first requested from the
// processing endpoint; if that fails after its re-fetches, the chunk is read
// directly.
func (f *File) ReadChunk(ctx context.Context, desc *chunk.Descriptor, dst []byte) error {
	release, err := f.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	ctx, span := telemetry.StartChunkSpan(ctx, "read", desc.URI(),
		telemetry.ChunkShape(desc.Shape()),
		telemetry.ChunkRanges(hyperslab.FormatRanges(desc.Ranges())),
		telemetry.FullSelection(desc.IsFullSelection()))
	defer span.End()

	if f.processed(desc) {
		err = f.readProcessed(ctx, desc, dst)
	} else {
		err = f.readDirect(ctx, desc, dst)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return err
}

// ReadChunks reads every op, issuing all direct reads on one tracker and
// waiting once.
func (f *File) ReadChunks(ctx context.Context, ops []ReadOp) error {
	release, err := f.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	lc := logger.NewLogContext("read")
	t := transfer.NewTracker()
	ctx = logger.WithContext(ctx, lc.WithBatch(t.ID()))

	g, gctx := errgroup.WithContext(ctx)
	issued := 0
	for _, op := range ops {
		if f.processed(op.Desc) {
			g.Go(func() error {
				return f.readProcessed(gctx, op.Desc, op.Dest)
			})
			continue
		}

		n, err := f.issueDirect(ctx, t, op.Desc, op.Dest)
		if err != nil {
			_ = settle(ctx, t, issued)
			_ = g.Wait()
			return err
		}
		issued += n
	}

	waitErr := settle(ctx, t, issued)
	logger.DebugCtx(ctx, "Chunk batch read",
		logger.KeySegments, issued,
		logger.KeyDurationMs, lc.DurationMs(),
		logger.Err(waitErr))

	return errors.Join(waitErr, g.Wait())
}

func (f *File) processed(desc *chunk.Descriptor) bool {
	return f.conn.processing != nil && !desc.IsFullSelection()
}

func (f *File) readDirect(ctx context.Context, desc *chunk.Descriptor, dst []byte) error {
	t := transfer.NewTracker()
	n, err := f.issueDirect(ctx, t, desc, dst)
	if err != nil {
		return err
	}
	return settle(ctx, t, n)
}

// settle waits for n completions on t. Issued requests run detached from
// ctx and read callbacks write into caller buffers, so when ctx ends first
// it still waits for every request before returning the ctx error.
func settle(ctx context.Context, t *transfer.Tracker, n int) error {
	err := t.Wait(ctx, n)
	if err == nil || ctx.Err() == nil {
		return err
	}
	return errors.Join(ctx.Err(), t.Wait(context.WithoutCancel(ctx), n))
}

// issueDirect plans desc and issues its segments on t.
func (f *File) issueDirect(ctx context.Context, t *transfer.Tracker, desc *chunk.Descriptor, dst []byte) (int, error) {
	engine := f.conn.chunks.engine

	segs, err := engine.PlanTransfer(desc)
	if err != nil {
		return 0, err
	}
	if len(segs) == 0 {
		return 0, nil
	}
	telemetry.SetAttributes(ctx, telemetry.Segments(len(segs)))

	return engine.ExecuteRead(ctx, t, transfer.ReadRequest{
		Key:        desc.URI(),
		Segments:   segs,
		Dest:       dst,
		ObjectSize: desc.FullByteSize(),
	})
}

// readProcessed fetches the selection computed server-side, keyed by the
// request's query key, and falls back to a direct read on failure.
func (f *File) readProcessed(ctx context.Context, desc *chunk.Descriptor, dst []byte) error {
	size := desc.RequiredByteSize()
	if size == 0 {
		return nil
	}
	seg, err := plan.NewSegment(0, size-1, []hyperslab.Mapping{{LocalOffset: 0, RemoteOffset: 0, Length: size}})
	if err != nil {
		return err
	}

	key := desc.QueryKey()
	t := transfer.NewTracker()
	n, err := f.conn.processing.engine.ExecuteRead(ctx, t, transfer.ReadRequest{
		Key:        key,
		Segments:   []plan.Segment{seg},
		Dest:       dst,
		ObjectSize: size,
		Retry:      f.conn.cfg.Transfer.RefetchPolicy(),
	})
	if err != nil {
		return err
	}

	err = settle(ctx, t, n)
	if err == nil || ctx.Err() != nil {
		return err
	}

	logger.WarnCtx(ctx, "Processed read failed, reading chunk directly",
		logger.KeyKey, key,
		logger.KeyURI, desc.URI(),
		logger.KeyError, err)
	telemetry.AddEvent(ctx, "processing.fallback", telemetry.StorageKey(key))

	return f.readDirect(ctx, desc, dst)
}

// ============================================================================
// Writes
// ============================================================================

// WriteChunk stores src, the dense bytes of desc's selection.
func (f *File) WriteChunk(ctx context.Context, desc *chunk.Descriptor, src []byte) error {
	release, err := f.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	ctx, span := telemetry.StartChunkSpan(ctx, "write", desc.URI(),
		telemetry.ChunkShape(desc.Shape()),
		telemetry.ChunkRanges(hyperslab.FormatRanges(desc.Ranges())),
		telemetry.FullSelection(desc.IsFullSelection()))
	defer span.End()

	t := transfer.NewTracker()
	n, err := f.conn.chunks.engine.ExecuteWrite(ctx, t, desc, src)
	if err == nil {
		err = settle(ctx, t, n)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return err
}

// WriteChunks stores every op on one tracker. Partial writes of different
// objects fetch concurrently; ops on the same object run in order, each
// patch waiting for the previous PUT. A synchronous failure stops further
// issues but writes already issued still complete.
func (f *File) WriteChunks(ctx context.Context, ops []WriteOp) error {
	release, err := f.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	engine := f.conn.chunks.engine
	t := transfer.NewTracker()
	ctx = logger.WithContext(ctx, logger.NewLogContext("write").WithBatch(t.ID()))

	sem := semaphore.NewWeighted(maxConcurrentPatches)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	issued := 0
	for _, group := range groupByKey(ops) {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			for i, op := range group {
				last := i == len(group)-1
				tr := t
				if !last {
					tr = transfer.NewTracker()
				}

				n, err := engine.ExecuteWrite(gctx, tr, op.Desc, op.Src)
				if last {
					mu.Lock()
					issued += n
					mu.Unlock()
				}
				if err == nil && !last {
					err = settle(gctx, tr, n)
				}
				if err != nil {
					return fmt.Errorf("write %s: %w", op.Desc.URI(), err)
				}
			}
			return nil
		})
	}

	syncErr := g.Wait()
	mu.Lock()
	total := issued
	mu.Unlock()

	return errors.Join(syncErr, settle(ctx, t, total))
}

// groupByKey splits ops into per-object groups in first-seen order.
func groupByKey(ops []WriteOp) [][]WriteOp {
	index := make(map[string]int, len(ops))
	var groups [][]WriteOp
	for _, op := range ops {
		key := op.Desc.URI()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], op)
	}
	return groups
}

// DeleteChunk removes the object at uri within this file. Deleting a
// missing object succeeds.
func (f *File) DeleteChunk(ctx context.Context, uri string) error {
	release, err := f.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	key := f.Key(uri)
	ctx, span := telemetry.StartChunkSpan(ctx, "delete", key)
	defer span.End()

	if err := f.conn.chunks.store.Delete(ctx, key); err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Chunk delete failed", logger.KeyKey, key, logger.KeyError, err)
		return err
	}
	return nil
}
