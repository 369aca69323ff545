// Package hyperslab translates rectangular array selections into row offsets
// and byte-range mappings between two serialized layouts.
//
// All offsets handled here are row-major. Offsets produced by ComputeStrides
// and RowStarts are in element units; MapRows converts to bytes as its last
// step.
package hyperslab

import (
	"fmt"
	"math/bits"
)

// ComputeStrides returns the row-major stride of every dimension of shape.
// The last dimension has stride 1 and strides[i] = strides[i+1] * shape[i+1].
func ComputeStrides(shape []uint64) ([]uint64, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrInvalidShape)
	}
	for d, extent := range shape {
		if extent == 0 {
			return nil, fmt.Errorf("%w: dimension %d has zero extent", ErrInvalidShape, d)
		}
	}

	strides := make([]uint64, len(shape))
	strides[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		s, err := mul(strides[i+1], shape[i+1])
		if err != nil {
			return nil, err
		}
		strides[i] = s
	}

	// The element count of the whole shape must be addressable too.
	if _, err := mul(strides[0], shape[0]); err != nil {
		return nil, err
	}
	return strides, nil
}

// NumElements returns the product of all extents of shape.
func NumElements(shape []uint64) (uint64, error) {
	n := uint64(1)
	for _, extent := range shape {
		var err error
		if n, err = mul(n, extent); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Elements returns the number of elements selected by ranges.
func Elements(ranges []Range) (uint64, error) {
	n := uint64(1)
	for _, r := range ranges {
		var err error
		if n, err = mul(n, r.Len()); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// ValidateRanges checks that ranges has one entry per dimension of shape and
// that every range lies within its dimension.
func ValidateRanges(ranges []Range, shape []uint64) error {
	if len(ranges) != len(shape) {
		return fmt.Errorf("%w: %d ranges for %d dimensions", ErrShapeMismatch, len(ranges), len(shape))
	}
	for d, r := range ranges {
		if r.Low > r.High {
			return fmt.Errorf("%w: dimension %d range %s is inverted", ErrRangeOutOfBounds, d, r)
		}
		if r.High >= shape[d] {
			return fmt.Errorf("%w: dimension %d range %s exceeds extent %d", ErrRangeOutOfBounds, d, r, shape[d])
		}
	}
	return nil
}

// RowStarts returns the serialized start offset, in elements, of every row
// selected by ranges within a layout of the given shape. A row is the
// contiguous run of ranges[last].Len() elements along the last dimension.
//
// Offsets are generated in row-major order: the first dimension varies
// slowest. A 1-D selection yields a single offset equal to ranges[0].Low.
func RowStarts(ranges []Range, shape []uint64) ([]uint64, error) {
	if err := ValidateRanges(ranges, shape); err != nil {
		return nil, err
	}
	strides, err := ComputeStrides(shape)
	if err != nil {
		return nil, err
	}

	last := len(shape) - 1
	rows, err := Elements(ranges[:last])
	if err != nil {
		return nil, err
	}

	starts := make([]uint64, 0, rows)
	idx := make([]uint64, last)
	for d := range idx {
		idx[d] = ranges[d].Low
	}

	for {
		off := ranges[last].Low
		for d, i := range idx {
			off += i * strides[d]
		}
		starts = append(starts, off)

		// Advance the odometer, fastest dimension first.
		d := last - 1
		for ; d >= 0; d-- {
			if idx[d] < ranges[d].High {
				idx[d]++
				break
			}
			idx[d] = ranges[d].Low
		}
		if d < 0 {
			return starts, nil
		}
	}
}

// DenseRanges returns ranges shifted to start at zero in every dimension,
// together with the shape of the resulting dense block. RowStarts over the
// result yields the offsets of the selection within its own buffer.
func DenseRanges(ranges []Range) ([]Range, []uint64) {
	dense := make([]Range, len(ranges))
	shape := make([]uint64, len(ranges))
	for d, r := range ranges {
		n := r.Len()
		shape[d] = n
		dense[d] = Full(n)
	}
	return dense, shape
}

func mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return lo, nil
}
