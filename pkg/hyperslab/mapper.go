package hyperslab

import (
	"fmt"
	"sort"
)

// Mapping describes one contiguous copy between a caller buffer and a
// remote object. All fields are in bytes.
type Mapping struct {
	LocalOffset  uint64 `json:"local_offset"`
	RemoteOffset uint64 `json:"remote_offset"`
	Length       uint64 `json:"length"`
}

// RemoteEnd returns the offset one past the last remote byte of m.
func (m Mapping) RemoteEnd() uint64 {
	return m.RemoteOffset + m.Length
}

// LocalEnd returns the offset one past the last local byte of m.
func (m Mapping) LocalEnd() uint64 {
	return m.LocalOffset + m.Length
}

// MapInput holds the offset tables consumed by MapRows. Offsets and lengths
// are in element units.
type MapInput struct {
	// LocalRowStarts are the row offsets within the caller's own buffer.
	LocalRowStarts []uint64

	// GlobalRowStarts are the same rows expressed in the target's compact
	// row-concatenated layout.
	GlobalRowStarts []uint64

	// TargetRowTable maps a target row number to the offset where that row
	// begins in the target object. A nil table means TargetRows dense rows,
	// row r beginning at r*TargetRowLength.
	TargetRowTable []uint64

	// TargetRows is the number of rows in a dense target. Ignored when
	// TargetRowTable is set.
	TargetRows uint64

	// InputRowLength is the number of elements in every local row.
	InputRowLength uint64

	// TargetRowLength is the number of contiguous elements in a target row.
	TargetRowLength uint64

	// ElementSize is the width of one element in bytes.
	ElementSize uint64
}

// MapRows produces the ordered list of mappings that moves every local row
// to its place in the target layout. A local row that would cross a target
// row boundary is split into a partial head, zero or more full target rows,
// and a partial tail.
//
// Empty row tables produce an empty result.
func MapRows(in MapInput) ([]Mapping, error) {
	if len(in.LocalRowStarts) != len(in.GlobalRowStarts) {
		return nil, fmt.Errorf("%w: %d local rows, %d global rows",
			ErrShapeMismatch, len(in.LocalRowStarts), len(in.GlobalRowStarts))
	}
	if len(in.LocalRowStarts) == 0 || in.InputRowLength == 0 {
		return nil, nil
	}
	if in.TargetRowLength == 0 {
		return nil, fmt.Errorf("%w: zero target row length", ErrInvalidShape)
	}
	if in.ElementSize == 0 {
		return nil, fmt.Errorf("%w: zero element size", ErrInvalidShape)
	}

	inR, outR := in.InputRowLength, in.TargetRowLength
	table := in.TargetRowTable
	rows := in.TargetRows
	if table != nil {
		rows = uint64(len(table))
	}
	rowStart := func(r uint64) uint64 {
		if table == nil {
			return r * outR
		}
		return table[r]
	}
	mappings := make([]Mapping, 0, len(in.LocalRowStarts))

	for i, global := range in.GlobalRowStarts {
		local := in.LocalRowStarts[i]
		row := global / outR
		if row >= rows {
			return nil, fmt.Errorf("%w: row %d maps to target row %d of %d", ErrRaggedTarget, i, row, rows)
		}

		start := rowStart(row) + global%outR
		remaining := outR - global%outR
		if remaining >= inR {
			mappings = append(mappings, Mapping{local, start, inR})
			continue
		}

		mappings = append(mappings, Mapping{local, start, remaining})
		rest := inR - remaining
		full := rest / outR
		tail := rest % outR

		need := row + full
		if tail > 0 {
			need++
		}
		if need >= rows {
			return nil, fmt.Errorf("%w: row %d needs target row %d of %d", ErrRaggedTarget, i, need, rows)
		}

		cursor := remaining
		for j := uint64(1); j <= full; j++ {
			mappings = append(mappings, Mapping{local + cursor, rowStart(row + j), outR})
			cursor += outR
		}
		if tail > 0 {
			mappings = append(mappings, Mapping{local + cursor, rowStart(row + full + 1), tail})
		}
	}

	for i := range mappings {
		mappings[i].LocalOffset *= in.ElementSize
		mappings[i].RemoteOffset *= in.ElementSize
		mappings[i].Length *= in.ElementSize
	}
	return mappings, nil
}

// TotalLength returns the sum of the lengths of mappings.
func TotalLength(mappings []Mapping) uint64 {
	var n uint64
	for _, m := range mappings {
		n += m.Length
	}
	return n
}

// Verify checks that mappings exactly partition [0, required) in local
// offset space: no empty mapping, no gap and no overlap.
func Verify(mappings []Mapping, required uint64) error {
	sorted := make([]Mapping, len(mappings))
	copy(sorted, mappings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LocalOffset < sorted[j].LocalOffset
	})

	var next uint64
	for _, m := range sorted {
		if m.Length == 0 {
			return fmt.Errorf("hyperslab: empty mapping at local offset %d", m.LocalOffset)
		}
		if m.LocalOffset != next {
			return fmt.Errorf("hyperslab: mapping at local offset %d, expected %d", m.LocalOffset, next)
		}
		next = m.LocalEnd()
	}
	if next != required {
		return fmt.Errorf("hyperslab: mappings cover %d bytes, expected %d", next, required)
	}
	return nil
}
