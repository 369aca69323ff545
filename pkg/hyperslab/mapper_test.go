package hyperslab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRows_NoStraddle(t *testing.T) {
	t.Parallel()

	// Shape [2,3], ranges [[0,1],[1,2]], one-byte elements.
	global, err := RowStarts([]Range{{0, 1}, {1, 2}}, []uint64{2, 3})
	require.NoError(t, err)

	got, err := MapRows(MapInput{
		LocalRowStarts:  []uint64{0, 2},
		GlobalRowStarts: global,
		TargetRowTable:  []uint64{0, 3},
		InputRowLength:  2,
		TargetRowLength: 3,
		ElementSize:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, []Mapping{
		{LocalOffset: 0, RemoteOffset: 1, Length: 2},
		{LocalOffset: 2, RemoteOffset: 4, Length: 2},
	}, got)
	require.NoError(t, Verify(got, 4))
}

func TestMapRows_ScalesByElementSize(t *testing.T) {
	t.Parallel()

	got, err := MapRows(MapInput{
		LocalRowStarts:  []uint64{0, 4},
		GlobalRowStarts: []uint64{4, 8},
		TargetRowTable:  []uint64{0, 4, 8, 12},
		InputRowLength:  4,
		TargetRowLength: 4,
		ElementSize:     4,
	})
	require.NoError(t, err)
	assert.Equal(t, []Mapping{
		{LocalOffset: 0, RemoteOffset: 16, Length: 16},
		{LocalOffset: 16, RemoteOffset: 32, Length: 16},
	}, got)
	assert.Equal(t, uint64(32), TotalLength(got))
}

func TestMapRows_Straddle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    MapInput
		want  []Mapping
		total uint64
	}{
		{
			name: "head and one full row",
			in: MapInput{
				LocalRowStarts:  []uint64{0},
				GlobalRowStarts: []uint64{1},
				TargetRowTable:  []uint64{0, 3, 6},
				InputRowLength:  5,
				TargetRowLength: 3,
				ElementSize:     2,
			},
			want: []Mapping{
				{LocalOffset: 0, RemoteOffset: 2, Length: 4},
				{LocalOffset: 4, RemoteOffset: 6, Length: 6},
			},
			total: 10,
		},
		{
			name: "head full row and tail",
			in: MapInput{
				LocalRowStarts:  []uint64{0},
				GlobalRowStarts: []uint64{1},
				TargetRowTable:  []uint64{0, 3, 6, 9},
				InputRowLength:  7,
				TargetRowLength: 3,
				ElementSize:     1,
			},
			want: []Mapping{
				{LocalOffset: 0, RemoteOffset: 1, Length: 2},
				{LocalOffset: 2, RemoteOffset: 3, Length: 3},
				{LocalOffset: 5, RemoteOffset: 6, Length: 2},
			},
			total: 7,
		},
		{
			name: "padded target rows",
			in: MapInput{
				LocalRowStarts:  []uint64{0},
				GlobalRowStarts: []uint64{1},
				TargetRowTable:  []uint64{0, 4, 8},
				InputRowLength:  4,
				TargetRowLength: 3,
				ElementSize:     1,
			},
			want: []Mapping{
				{LocalOffset: 0, RemoteOffset: 1, Length: 2},
				{LocalOffset: 2, RemoteOffset: 4, Length: 2},
			},
			total: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MapRows(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, Verify(got, tt.total))

			// The last piece carries whatever the earlier pieces left over.
			require.GreaterOrEqual(t, len(got), 2)
			prefix := TotalLength(got[:len(got)-1])
			assert.Equal(t, tt.in.InputRowLength*tt.in.ElementSize-prefix, got[len(got)-1].Length)
		})
	}
}

func TestMapRows_RaggedTarget(t *testing.T) {
	t.Parallel()

	_, err := MapRows(MapInput{
		LocalRowStarts:  []uint64{0},
		GlobalRowStarts: []uint64{1},
		TargetRowTable:  []uint64{0, 3},
		InputRowLength:  7,
		TargetRowLength: 3,
		ElementSize:     1,
	})
	assert.ErrorIs(t, err, ErrRaggedTarget)

	_, err = MapRows(MapInput{
		LocalRowStarts:  []uint64{0},
		GlobalRowStarts: []uint64{9},
		TargetRowTable:  []uint64{0, 3},
		InputRowLength:  1,
		TargetRowLength: 3,
		ElementSize:     1,
	})
	assert.ErrorIs(t, err, ErrRaggedTarget)
}

func TestMapRows_DenseTarget(t *testing.T) {
	t.Parallel()

	in := MapInput{
		LocalRowStarts:  []uint64{0},
		GlobalRowStarts: []uint64{1},
		InputRowLength:  7,
		TargetRowLength: 3,
		ElementSize:     1,
	}

	in.TargetRows = 3
	got, err := MapRows(in)
	require.NoError(t, err)
	assert.Equal(t, []Mapping{
		{LocalOffset: 0, RemoteOffset: 1, Length: 2},
		{LocalOffset: 2, RemoteOffset: 3, Length: 3},
		{LocalOffset: 5, RemoteOffset: 6, Length: 2},
	}, got)

	// Same mappings as an explicit back-to-back table.
	explicit := in
	explicit.TargetRowTable = []uint64{0, 3, 6}
	want, err := MapRows(explicit)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	in.TargetRows = 2
	_, err = MapRows(in)
	assert.ErrorIs(t, err, ErrRaggedTarget)

	// Row starts far beyond anything addressable in memory.
	got, err = MapRows(MapInput{
		LocalRowStarts:  []uint64{0},
		GlobalRowStarts: []uint64{1 << 40},
		TargetRows:      1 << 41,
		InputRowLength:  1,
		TargetRowLength: 1,
		ElementSize:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{LocalOffset: 0, RemoteOffset: 1 << 40, Length: 1}}, got)
}

func TestMapRows_Degenerate(t *testing.T) {
	t.Parallel()

	got, err := MapRows(MapInput{TargetRowLength: 3, ElementSize: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMapRows_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := MapRows(MapInput{LocalRowStarts: []uint64{0}, GlobalRowStarts: nil})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = MapRows(MapInput{
		LocalRowStarts:  []uint64{0},
		GlobalRowStarts: []uint64{0},
		InputRowLength:  1,
		ElementSize:     1,
	})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	ok := []Mapping{{4, 0, 4}, {0, 8, 4}}
	assert.NoError(t, Verify(ok, 8))

	gap := []Mapping{{0, 0, 2}, {3, 2, 2}}
	assert.Error(t, Verify(gap, 5))

	overlap := []Mapping{{0, 0, 3}, {2, 3, 2}}
	assert.Error(t, Verify(overlap, 4))

	short := []Mapping{{0, 0, 2}}
	assert.Error(t, Verify(short, 4))

	empty := []Mapping{{0, 0, 0}}
	assert.Error(t, Verify(empty, 0))
}
