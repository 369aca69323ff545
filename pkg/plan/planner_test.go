package plan

import (
	"testing"

	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sparseMappings() []hyperslab.Mapping {
	return []hyperslab.Mapping{
		{LocalOffset: 0, RemoteOffset: 0, Length: 5},
		{LocalOffset: 5, RemoteOffset: 10, Length: 5},
		{LocalOffset: 10, RemoteOffset: 100, Length: 5},
		{LocalOffset: 15, RemoteOffset: 110, Length: 5},
	}
}

func flatten(segments []Segment) []hyperslab.Mapping {
	var out []hyperslab.Mapping
	for _, s := range segments {
		out = append(out, s.Mappings...)
	}
	return out
}

func TestPlan_EmptyMappings(t *testing.T) {
	t.Parallel()

	segments, err := NewPlanner(Policy{}).Plan(nil, 64)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestPlan_WholeObject(t *testing.T) {
	t.Parallel()

	desc, err := chunk.New("obj", 4, []uint64{4, 4}, []hyperslab.Range{{Low: 1, High: 2}, {Low: 0, High: 3}})
	require.NoError(t, err)

	segments, err := NewPlanner(Policy{}).PlanChunk(desc)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	seg := segments[0]
	assert.Equal(t, uint64(0), seg.Start)
	assert.Equal(t, uint64(63), seg.End)
	assert.True(t, seg.Covers(64))
	assert.Equal(t, uint64(32), seg.RequiredDataSize)
	assert.Len(t, seg.Mappings, 2)
}

func TestPlan_SplitByBytes(t *testing.T) {
	t.Parallel()

	desc, err := chunk.New("obj", 4, []uint64{4, 4}, []hyperslab.Range{{Low: 1, High: 2}, {Low: 0, High: 3}})
	require.NoError(t, err)

	segments, err := NewPlanner(Policy{MaxSegmentBytes: 16}).PlanChunk(desc)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, uint64(16), segments[0].Start)
	assert.Equal(t, uint64(31), segments[0].End)
	assert.Equal(t, uint64(32), segments[1].Start)
	assert.Equal(t, uint64(47), segments[1].End)
	for _, s := range segments {
		assert.Equal(t, uint64(16), s.RequiredDataSize)
		assert.LessOrEqual(t, s.Span(), uint64(16))
	}
}

func TestPlan_NeverSplitsMapping(t *testing.T) {
	t.Parallel()

	mappings := []hyperslab.Mapping{
		{LocalOffset: 0, RemoteOffset: 0, Length: 100},
		{LocalOffset: 100, RemoteOffset: 100, Length: 10},
	}
	segments, err := NewPlanner(Policy{MaxSegmentBytes: 50}).Plan(mappings, 200)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, uint64(100), segments[0].Span())
	assert.Equal(t, mappings[:1], segments[0].Mappings)
	assert.Equal(t, uint64(100), segments[1].Start)
	assert.Equal(t, uint64(109), segments[1].End)
}

func TestPlan_MergeToMaxSegments(t *testing.T) {
	t.Parallel()

	mappings := sparseMappings()
	segments, err := NewPlanner(Policy{MaxSegmentBytes: 8, MaxSegments: 2}).Plan(mappings, 128)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, uint64(0), segments[0].Start)
	assert.Equal(t, uint64(14), segments[0].End)
	assert.Equal(t, uint64(100), segments[1].Start)
	assert.Equal(t, uint64(114), segments[1].End)
	assert.Equal(t, mappings, flatten(segments))
}

func TestPlan_MaxSegmentsOnly(t *testing.T) {
	t.Parallel()

	mappings := sparseMappings()
	segments, err := NewPlanner(Policy{MaxSegments: 2}).Plan(mappings, 128)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, mappings, flatten(segments))

	var total uint64
	for _, s := range segments {
		require.NotEmpty(t, s.Mappings)
		total += s.RequiredDataSize
	}
	assert.Equal(t, hyperslab.TotalLength(mappings), total)
}

func TestPlan_MappingBeyondObject(t *testing.T) {
	t.Parallel()

	_, err := NewPlanner(Policy{}).Plan([]hyperslab.Mapping{{RemoteOffset: 60, Length: 8}}, 64)
	assert.Error(t, err)
}

func TestNewSegment(t *testing.T) {
	t.Parallel()

	_, err := NewSegment(0, 10, nil)
	assert.ErrorIs(t, err, ErrEmptySegment)

	_, err = SegmentFromMappings(nil)
	assert.ErrorIs(t, err, ErrEmptySegment)

	_, err = NewSegment(4, 10, []hyperslab.Mapping{{RemoteOffset: 0, Length: 2}})
	assert.Error(t, err)

	seg, err := SegmentFromMappings([]hyperslab.Mapping{
		{LocalOffset: 0, RemoteOffset: 8, Length: 4},
		{LocalOffset: 4, RemoteOffset: 20, Length: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), seg.Start)
	assert.Equal(t, uint64(23), seg.End)
	assert.Equal(t, uint64(8), seg.RequiredDataSize)
	assert.False(t, seg.Covers(24))
}
