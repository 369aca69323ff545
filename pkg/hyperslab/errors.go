package hyperslab

import "errors"

var (
	// ErrInvalidShape is returned when a shape has no dimensions, a zero
	// extent, or when a mapper input carries a zero row length or element size.
	ErrInvalidShape = errors.New("hyperslab: invalid shape")

	// ErrShapeMismatch is returned when the number of ranges differs from the
	// number of dimensions, or when paired offset tables differ in length.
	ErrShapeMismatch = errors.New("hyperslab: shape mismatch")

	// ErrRangeOutOfBounds is returned when a range is inverted or exceeds its
	// dimension's extent.
	ErrRangeOutOfBounds = errors.New("hyperslab: range out of bounds")

	// ErrRaggedTarget is returned when a row straddles past the last entry of
	// the target row table.
	ErrRaggedTarget = errors.New("hyperslab: row runs past end of target row table")

	// ErrOverflow is returned when a size computation exceeds uint64.
	ErrOverflow = errors.New("hyperslab: size overflow")
)
