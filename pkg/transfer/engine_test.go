package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/plan"
	"github.com/guzman109/ArrayMorph/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "dset/0.0"

// seqBytes returns n bytes holding 0, 1, 2, ...
func seqBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

type engineFixture struct {
	mem     *memory.Store
	queue   *Queue
	engine  *Engine
	metrics *fakeMetrics
}

func newEngineFixture(t *testing.T, policy plan.Policy) *engineFixture {
	t.Helper()
	mem := memory.New()
	metrics := newFakeMetrics()
	q := newTestQueue(t, mem, 4, metrics)
	q.Start()
	return &engineFixture{
		mem:     mem,
		queue:   q,
		engine:  NewEngine(q, Options{Planner: plan.NewPlanner(policy), Metrics: metrics}),
		metrics: metrics,
	}
}

func (f *engineFixture) read(t *testing.T, desc *chunk.Descriptor, retry RetryPolicy) ([]byte, *Tracker, int, error) {
	t.Helper()
	segs, err := f.engine.PlanTransfer(desc)
	require.NoError(t, err)

	dst := make([]byte, desc.RequiredByteSize())
	tr := NewTracker()
	n, err := f.engine.ExecuteRead(context.Background(), tr, ReadRequest{
		Key:        desc.URI(),
		Segments:   segs,
		Dest:       dst,
		ObjectSize: desc.FullByteSize(),
		Retry:      retry,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return dst, tr, n, tr.Wait(ctx, n)
}

func mustDesc(t *testing.T, shape []uint64, ranges []hyperslab.Range) *chunk.Descriptor {
	t.Helper()
	d, err := chunk.New(testKey, 1, shape, ranges)
	require.NoError(t, err)
	return d
}

// ============================================================================
// Reads
// ============================================================================

func TestExecuteRead_PartialSelection(t *testing.T) {
	t.Parallel()

	policies := map[string]plan.Policy{
		"single segment": {},
		"one per row":    {MaxSegmentBytes: 8},
		"capped count":   {MaxSegments: 2},
	}

	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newEngineFixture(t, policy)
			require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(32)))

			// Rows 1..2, columns 2..5 of a 4x8 chunk.
			desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 1, High: 2}, {Low: 2, High: 5}})
			dst, tr, n, err := f.read(t, desc, NoRetry)

			require.NoError(t, err)
			assert.Equal(t, n, tr.Completed())
			assert.Equal(t, []byte{10, 11, 12, 13, 18, 19, 20, 21}, dst)
		})
	}
}

func TestExecuteRead_WholeObjectUsesPlainGet(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(16)))

	desc, err := chunk.Full(testKey, 2, []uint64{2, 4})
	require.NoError(t, err)
	dst, _, n, err := f.read(t, desc, NoRetry)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, seqBytes(16), dst)

	reqs, _, _ := f.metrics.snapshot()
	assert.Equal(t, 1, reqs["get"])
	assert.Zero(t, reqs["get_range"])
}

func TestExecuteRead_RetryOnceRecovers(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(32)))
	f.mem.FailNext(memory.OpGet, testKey, 1)

	desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 0, High: 0}, {Low: 0, High: 3}})
	dst, tr, n, err := f.read(t, desc, RetryOnce)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, tr.Completed())
	assert.Equal(t, []byte{0, 1, 2, 3}, dst)
	assert.Equal(t, 2, f.mem.Calls(memory.OpGet, testKey))

	_, _, retries := f.metrics.snapshot()
	assert.Equal(t, 1, retries)
}

func TestExecuteRead_RetryIsBounded(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(32)))
	f.mem.FailNext(memory.OpGet, testKey, 5)

	desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 0, High: 0}, {Low: 0, High: 3}})
	_, tr, _, err := f.read(t, desc, RetryOnce)

	assert.ErrorIs(t, err, memory.ErrInjected)
	assert.Equal(t, 1, tr.Completed())
	assert.Equal(t, 1, tr.Failed())
	assert.Equal(t, 2, f.mem.Calls(memory.OpGet, testKey))
}

func TestExecuteRead_NoRetryCountsFailure(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{MaxSegmentBytes: 8})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(32)))
	f.mem.FailNext(memory.OpGet, testKey, 1)

	desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 0, High: 3}, {Low: 0, High: 1}})
	_, tr, n, err := f.read(t, desc, NoRetry)

	assert.ErrorIs(t, err, memory.ErrInjected)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, tr.Completed())
	assert.Equal(t, 1, tr.Failed())
	assert.Equal(t, 4, f.mem.Calls(memory.OpGet, testKey))
}

func TestExecuteRead_ShortObjectIsFailure(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(10)))

	desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 0, High: 3}, {Low: 0, High: 7}})
	_, tr, _, err := f.read(t, desc, NoRetry)

	assert.ErrorIs(t, err, ErrShortObject)
	assert.Equal(t, 1, tr.Failed())
}

func TestExecuteRead_MissingObject(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})

	desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 1, High: 1}, {Low: 0, High: 7}})
	_, _, _, err := f.read(t, desc, RetryOnce)

	require.Error(t, err)
	assert.Contains(t, err.Error(), testKey)
}

func TestExecuteRead_EmptyPlanIssuesNothing(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	tr := NewTracker()

	n, err := f.engine.ExecuteRead(context.Background(), tr, ReadRequest{Key: testKey})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, tr.Wait(context.Background(), n))
}

func TestExecuteRead_DestTooSmall(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	desc := mustDesc(t, []uint64{4, 8}, []hyperslab.Range{{Low: 0, High: 1}, {Low: 0, High: 7}})
	segs, err := f.engine.PlanTransfer(desc)
	require.NoError(t, err)

	n, err := f.engine.ExecuteRead(context.Background(), NewTracker(), ReadRequest{
		Key:      testKey,
		Segments: segs,
		Dest:     make([]byte, 4),
	})
	assert.ErrorIs(t, err, ErrBufferSize)
	assert.Zero(t, n)
}

// ============================================================================
// Writes
// ============================================================================

func (f *engineFixture) write(t *testing.T, desc *chunk.Descriptor, src []byte) (*Tracker, error) {
	t.Helper()
	tr := NewTracker()
	n, err := f.engine.ExecuteWrite(context.Background(), tr, desc, src)
	if err != nil {
		return tr, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return tr, tr.Wait(ctx, n)
}

func TestExecuteWrite_FullSelectionSkipsFetch(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	desc, err := chunk.Full(testKey, 1, []uint64{2, 4})
	require.NoError(t, err)

	tr, err := f.write(t, desc, seqBytes(8))
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Completed())

	got, err := f.mem.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, seqBytes(8), got)
	assert.Equal(t, 1, f.mem.Calls(memory.OpGet, testKey))
}

func TestExecuteWrite_PatchesExistingObject(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(16)))

	// Column 1..2 of rows 2..3 in a 4x4 chunk.
	desc := mustDesc(t, []uint64{4, 4}, []hyperslab.Range{{Low: 2, High: 3}, {Low: 1, High: 2}})
	_, err := f.write(t, desc, []byte{0xa1, 0xa2, 0xb1, 0xb2})
	require.NoError(t, err)

	got, err := f.mem.Get(context.Background(), testKey)
	require.NoError(t, err)
	want := seqBytes(16)
	want[9], want[10] = 0xa1, 0xa2
	want[13], want[14] = 0xb1, 0xb2
	assert.Equal(t, want, got)
}

func TestExecuteWrite_MissingObjectIsZeroFilled(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})

	desc := mustDesc(t, []uint64{2, 3}, []hyperslab.Range{{Low: 1, High: 1}, {Low: 0, High: 2}})
	_, err := f.write(t, desc, []byte{7, 8, 9})
	require.NoError(t, err)

	got, err := f.mem.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 7, 8, 9}, got)
}

func TestExecuteWrite_SourceSizeMismatch(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	desc := mustDesc(t, []uint64{2, 3}, []hyperslab.Range{{Low: 1, High: 1}, {Low: 0, High: 2}})

	tr := NewTracker()
	n, err := f.engine.ExecuteWrite(context.Background(), tr, desc, []byte{1})
	assert.ErrorIs(t, err, ErrBufferSize)
	assert.Zero(t, n)
	assert.Zero(t, f.mem.ObjectCount())
}

func TestExecuteWrite_FetchFailureIsSynchronous(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	require.NoError(t, f.mem.Put(context.Background(), testKey, seqBytes(6)))
	f.mem.FailNext(memory.OpGet, testKey, 1)

	desc := mustDesc(t, []uint64{2, 3}, []hyperslab.Range{{Low: 0, High: 0}, {Low: 0, High: 2}})
	_, err := f.write(t, desc, []byte{1, 2, 3})
	assert.ErrorIs(t, err, memory.ErrInjected)
	assert.Equal(t, 1, f.mem.Calls(memory.OpPut, testKey))
}

func TestExecuteWrite_PutFailureIsRecorded(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})
	f.mem.FailNext(memory.OpPut, testKey, 1)

	desc, err := chunk.Full(testKey, 1, []uint64{4})
	require.NoError(t, err)

	tr, err := f.write(t, desc, seqBytes(4))
	assert.ErrorIs(t, err, memory.ErrInjected)
	assert.Equal(t, 1, tr.Completed())
	assert.Equal(t, 1, tr.Failed())
	assert.Zero(t, f.mem.ObjectCount())
}

func TestExecuteWrite_ThenReadRoundTrip(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{MaxSegmentBytes: 16})
	desc := mustDesc(t, []uint64{3, 4, 5}, []hyperslab.Range{{Low: 0, High: 2}, {Low: 1, High: 2}, {Low: 1, High: 3}})

	src := seqBytes(int(desc.RequiredByteSize()))
	_, err := f.write(t, desc, src)
	require.NoError(t, err)

	dst, _, _, err := f.read(t, desc, NoRetry)
	require.NoError(t, err)
	assert.Equal(t, src, dst)
}

func TestExecuteWrite_PaddedLayoutRoundTrip(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, plan.Policy{})

	// Rows of 3 elements stored 4 apart: the object is 7 bytes long.
	layout := chunk.Layout{RowTable: []uint64{0, 4}, RowLength: 3}
	desc, err := chunk.New(testKey, 1, []uint64{2, 3},
		[]hyperslab.Range{{Low: 1, High: 1}, {Low: 0, High: 2}}, chunk.WithTargetLayout(layout))
	require.NoError(t, err)
	require.Equal(t, uint64(7), desc.FullByteSize())

	_, err = f.write(t, desc, []byte{1, 2, 3})
	require.NoError(t, err)

	got, err := f.mem.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3}, got)

	dst, _, _, err := f.read(t, desc, NoRetry)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, dst)
}

func TestPatch_RejectsMappingPastObject(t *testing.T) {
	t.Parallel()

	// Spare capacity must not absorb bytes beyond the object's length.
	obj := make([]byte, 4, 16)
	err := patch(obj, []byte{1, 2, 3}, []hyperslab.Mapping{{LocalOffset: 0, RemoteOffset: 4, Length: 3}})
	assert.ErrorIs(t, err, ErrShortObject)

	require.NoError(t, patch(obj, []byte{1, 2, 3}, []hyperslab.Mapping{{LocalOffset: 0, RemoteOffset: 1, Length: 3}}))
	assert.Equal(t, []byte{0, 1, 2, 3}, obj)
}
