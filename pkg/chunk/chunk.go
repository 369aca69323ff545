// Package chunk describes one chunk-shaped backing object and the selection
// an I/O request makes within it.
//
// A Descriptor is the unit handed to the transfer engine:
//
//   - Shape:     the full logical extent of the chunk, one entry per dimension
//   - Ranges:    the inclusive [low, high] selection in each dimension
//   - Layout:    how the chunk's rows are laid out in the remote object
//
// From these the descriptor derives the row offset tables and, through
// hyperslab.MapRows, the byte mappings between the caller's dense buffer and
// the remote object.
package chunk

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
)

// ============================================================================
// Layout
// ============================================================================

// Layout describes the rows of the remote object. RowTable[r] is the element
// offset where row r begins and RowLength is the number of contiguous
// elements in each row. A nil RowTable describes Rows rows stored back to
// back.
type Layout struct {
	RowTable  []uint64
	Rows      uint64
	RowLength uint64
}

// ObjectLayout returns the dense layout of a chunk of the given shape:
// rows of shape[last] elements stored back to back.
func ObjectLayout(shape []uint64) Layout {
	if len(shape) == 0 {
		return Layout{}
	}
	rows := uint64(1)
	for _, extent := range shape[:len(shape)-1] {
		rows *= extent
	}
	return Layout{Rows: rows, RowLength: shape[len(shape)-1]}
}

// NumRows returns the number of rows in the layout.
func (l Layout) NumRows() uint64 {
	if l.RowTable != nil {
		return uint64(len(l.RowTable))
	}
	return l.Rows
}

// Extent returns the number of elements the remote object must hold: one
// past the end of the furthest row.
func (l Layout) Extent() (uint64, error) {
	if l.RowTable == nil {
		if l.RowLength != 0 && l.Rows > ^uint64(0)/l.RowLength {
			return 0, fmt.Errorf("%w: %d rows of %d elements", hyperslab.ErrOverflow, l.Rows, l.RowLength)
		}
		return l.Rows * l.RowLength, nil
	}
	if len(l.RowTable) == 0 {
		return 0, nil
	}
	last := slices.Max(l.RowTable)
	if last > ^uint64(0)-l.RowLength {
		return 0, fmt.Errorf("%w: row at %d of %d elements", hyperslab.ErrOverflow, last, l.RowLength)
	}
	return last + l.RowLength, nil
}

// ============================================================================
// Descriptor
// ============================================================================

// Descriptor is an immutable description of a selection within one chunk.
type Descriptor struct {
	uri           string
	elementSize   uint64
	shape         []uint64
	ranges        []hyperslab.Range
	strides       []uint64
	fullBytes     uint64
	requiredBytes uint64
	localOffsets  []uint64
	globalOffsets []uint64
	layout        Layout
}

// Option customizes a Descriptor at construction.
type Option func(*options)

type options struct {
	globalOffsets []uint64
	layout        *Layout
}

// WithGlobalOffsets supplies the row offsets of the selection in the target's
// compact layout instead of deriving them from shape and ranges.
func WithGlobalOffsets(offsets []uint64) Option {
	return func(o *options) {
		o.globalOffsets = offsets
	}
}

// WithTargetLayout overrides the layout of the remote object's rows.
func WithTargetLayout(layout Layout) Option {
	return func(o *options) {
		o.layout = &layout
	}
}

// New validates the selection and builds a Descriptor.
//
// It fails with hyperslab.ErrShapeMismatch when len(ranges) != len(shape) and
// with hyperslab.ErrInvalidShape when an extent or the element size is zero.
func New(uri string, elementSize uint64, shape []uint64, ranges []hyperslab.Range, opts ...Option) (*Descriptor, error) {
	if len(ranges) != len(shape) {
		return nil, fmt.Errorf("chunk %q: %w: %d ranges for %d dimensions",
			uri, hyperslab.ErrShapeMismatch, len(ranges), len(shape))
	}
	if elementSize == 0 {
		return nil, fmt.Errorf("chunk %q: %w: zero element size", uri, hyperslab.ErrInvalidShape)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	strides, err := hyperslab.ComputeStrides(shape)
	if err != nil {
		return nil, fmt.Errorf("chunk %q: %w", uri, err)
	}
	if err := hyperslab.ValidateRanges(ranges, shape); err != nil {
		return nil, fmt.Errorf("chunk %q: %w", uri, err)
	}

	total, err := hyperslab.NumElements(shape)
	if err != nil {
		return nil, fmt.Errorf("chunk %q: %w", uri, err)
	}
	selected, err := hyperslab.Elements(ranges)
	if err != nil {
		return nil, fmt.Errorf("chunk %q: %w", uri, err)
	}
	layout := ObjectLayout(shape)
	if o.layout != nil {
		layout = *o.layout
	}
	extent := total
	if o.layout != nil {
		if extent, err = layout.Extent(); err != nil {
			return nil, fmt.Errorf("chunk %q: layout: %w", uri, err)
		}
	}
	if extent > ^uint64(0)/elementSize {
		return nil, fmt.Errorf("chunk %q: %w: %d elements of %d bytes", uri, hyperslab.ErrOverflow, extent, elementSize)
	}

	dense, denseShape := hyperslab.DenseRanges(ranges)
	local, err := hyperslab.RowStarts(dense, denseShape)
	if err != nil {
		return nil, fmt.Errorf("chunk %q: local offsets: %w", uri, err)
	}

	global := o.globalOffsets
	if global == nil {
		if global, err = hyperslab.RowStarts(ranges, shape); err != nil {
			return nil, fmt.Errorf("chunk %q: global offsets: %w", uri, err)
		}
	} else if len(global) != len(local) {
		return nil, fmt.Errorf("chunk %q: %w: %d global offsets for %d rows",
			uri, hyperslab.ErrShapeMismatch, len(global), len(local))
	}

	return &Descriptor{
		uri:           uri,
		elementSize:   elementSize,
		shape:         slices.Clone(shape),
		ranges:        slices.Clone(ranges),
		strides:       strides,
		fullBytes:     extent * elementSize,
		requiredBytes: selected * elementSize,
		localOffsets:  local,
		globalOffsets: slices.Clone(global),
		layout:        layout,
	}, nil
}

// Full builds a Descriptor selecting the whole chunk.
func Full(uri string, elementSize uint64, shape []uint64, opts ...Option) (*Descriptor, error) {
	return New(uri, elementSize, shape, hyperslab.FullRanges(shape), opts...)
}

// ============================================================================
// Accessors
// ============================================================================

// URI returns the remote object identifier.
func (d *Descriptor) URI() string { return d.uri }

// ElementSize returns the width of one element in bytes.
func (d *Descriptor) ElementSize() uint64 { return d.elementSize }

// NumDims returns the dimensionality of the chunk.
func (d *Descriptor) NumDims() int { return len(d.shape) }

// Shape returns a copy of the chunk's extents.
func (d *Descriptor) Shape() []uint64 { return slices.Clone(d.shape) }

// Ranges returns a copy of the selected ranges.
func (d *Descriptor) Ranges() []hyperslab.Range { return slices.Clone(d.ranges) }

// Strides returns a copy of the row-major strides of the chunk.
func (d *Descriptor) Strides() []uint64 { return slices.Clone(d.strides) }

// FullByteSize returns the size of the whole backing object. With a target
// layout this is the layout's extent, including any row padding.
func (d *Descriptor) FullByteSize() uint64 { return d.fullBytes }

// RequiredByteSize returns the size of the selected region.
func (d *Descriptor) RequiredByteSize() uint64 { return d.requiredBytes }

// LocalOffsets returns the row offsets of the selection within its own
// dense buffer, in elements.
func (d *Descriptor) LocalOffsets() []uint64 { return slices.Clone(d.localOffsets) }

// GlobalOffsets returns the row offsets of the selection within the full
// chunk layout, in elements.
func (d *Descriptor) GlobalOffsets() []uint64 { return slices.Clone(d.globalOffsets) }

// Layout returns the row layout of the remote object.
func (d *Descriptor) Layout() Layout {
	l := d.layout
	l.RowTable = slices.Clone(l.RowTable)
	return l
}

// RowLength returns the number of elements in each selected row.
func (d *Descriptor) RowLength() uint64 { return d.ranges[len(d.ranges)-1].Len() }

// ============================================================================
// Derived operations
// ============================================================================

// IsFullSelection reports whether every dimension is selected end to end.
// A write of a full selection replaces the object without reading it first.
func (d *Descriptor) IsFullSelection() bool {
	for i, r := range d.ranges {
		if r.Low != 0 || r.High != d.shape[i]-1 {
			return false
		}
	}
	return true
}

// Mappings returns the byte mappings between the caller's dense buffer
// (local) and the remote object (remote).
func (d *Descriptor) Mappings() ([]hyperslab.Mapping, error) {
	mappings, err := hyperslab.MapRows(hyperslab.MapInput{
		LocalRowStarts:  d.localOffsets,
		GlobalRowStarts: d.globalOffsets,
		TargetRowTable:  d.layout.RowTable,
		TargetRows:      d.layout.Rows,
		InputRowLength:  d.RowLength(),
		TargetRowLength: d.layout.RowLength,
		ElementSize:     d.elementSize,
	})
	if err != nil {
		return nil, fmt.Errorf("chunk %q: %w", d.uri, err)
	}
	if err := hyperslab.Verify(mappings, d.requiredBytes); err != nil {
		return nil, fmt.Errorf("chunk %q: %w", d.uri, err)
	}
	return mappings, nil
}

// QueryKey returns a deterministic key naming this exact request:
//
//	uri-elementSize-ndims-shape0-...-shapeN-low0-high0-...-lowN-highN
//
// Identical requests always produce identical keys.
func (d *Descriptor) QueryKey() string {
	var b strings.Builder
	b.WriteString(d.uri)
	b.WriteByte('-')
	b.WriteString(strconv.FormatUint(d.elementSize, 10))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(len(d.shape)))
	for _, extent := range d.shape {
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(extent, 10))
	}
	for _, r := range d.ranges {
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(r.Low, 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(r.High, 10))
	}
	return b.String()
}

// Describe returns a human-readable dump of the descriptor.
func (d *Descriptor) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "uri: %s\n", d.uri)
	fmt.Fprintf(&b, "dims: %d\n", len(d.shape))
	fmt.Fprintf(&b, "shape: %s\n", hyperslab.FormatShape(d.shape))
	for i, r := range d.ranges {
		fmt.Fprintf(&b, "range[%d]: %d - %d\n", i, r.Low, r.High)
	}
	fmt.Fprintf(&b, "element size: %d\n", d.elementSize)
	fmt.Fprintf(&b, "required bytes: %d of %d\n", d.requiredBytes, d.fullBytes)
	return b.String()
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s[%s]", d.uri, hyperslab.FormatRanges(d.ranges))
}
