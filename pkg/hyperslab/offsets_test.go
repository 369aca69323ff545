package hyperslab

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		shape []uint64
		want  []uint64
	}{
		{"1d", []uint64{7}, []uint64{1}},
		{"2d", []uint64{4, 4}, []uint64{4, 1}},
		{"3d", []uint64{2, 3, 4}, []uint64{12, 4, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ComputeStrides(tt.shape)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStrides_InvalidShape(t *testing.T) {
	t.Parallel()

	_, err := ComputeStrides(nil)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = ComputeStrides([]uint64{4, 0, 2})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestComputeStrides_Overflow(t *testing.T) {
	t.Parallel()

	_, err := ComputeStrides([]uint64{2, math.MaxUint64 / 2, 4})
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestRowStarts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ranges []Range
		shape  []uint64
		want   []uint64
	}{
		{
			name:   "rows 1-2 all columns",
			ranges: []Range{{1, 2}, {0, 3}},
			shape:  []uint64{4, 4},
			want:   []uint64{4, 8},
		},
		{
			name:   "two partial rows",
			ranges: []Range{{0, 1}, {1, 2}},
			shape:  []uint64{2, 3},
			want:   []uint64{1, 4},
		},
		{
			name:   "1d selection",
			ranges: []Range{{3, 5}},
			shape:  []uint64{10},
			want:   []uint64{3},
		},
		{
			name:   "3d first dimension slowest",
			ranges: []Range{{0, 1}, {1, 2}, {1, 2}},
			shape:  []uint64{2, 3, 4},
			want:   []uint64{5, 9, 17, 21},
		},
		{
			name:   "single element",
			ranges: []Range{{1, 1}, {2, 2}},
			shape:  []uint64{3, 3},
			want:   []uint64{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := RowStarts(tt.ranges, tt.shape)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowStarts_Errors(t *testing.T) {
	t.Parallel()

	_, err := RowStarts([]Range{{0, 1}}, []uint64{2, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = RowStarts([]Range{{0, 2}, {0, 1}}, []uint64{2, 2})
	assert.ErrorIs(t, err, ErrRangeOutOfBounds)

	_, err = RowStarts([]Range{{1, 0}, {0, 1}}, []uint64{2, 2})
	assert.ErrorIs(t, err, ErrRangeOutOfBounds)
}

func TestElements(t *testing.T) {
	t.Parallel()

	n, err := Elements([]Range{{1, 2}, {0, 3}})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), n)

	_, err = Elements([]Range{{0, math.MaxUint64 - 1}, {0, 1}, {0, 1}})
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDenseRanges(t *testing.T) {
	t.Parallel()

	dense, shape := DenseRanges([]Range{{1, 2}, {3, 5}})
	assert.Equal(t, []Range{{0, 1}, {0, 2}}, dense)
	assert.Equal(t, []uint64{2, 3}, shape)

	starts, err := RowStarts(dense, shape)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 3}, starts)
}
