// Package plan groups byte mappings into transfer segments. A segment is a
// contiguous span of a remote object together with the mappings that one
// request for that span must satisfy.
package plan

import (
	"errors"
	"fmt"

	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
)

// ErrEmptySegment is returned when a segment would carry no mappings.
var ErrEmptySegment = errors.New("plan: segment has no mappings")

// Segment is an inclusive span [Start, End] of a remote object and the
// mappings it satisfies. Mappings is always non-empty.
type Segment struct {
	Start            uint64              `json:"start"`
	End              uint64              `json:"end"`
	Mappings         []hyperslab.Mapping `json:"mappings"`
	RequiredDataSize uint64              `json:"required_data_size"`
}

// NewSegment builds a segment over an explicit span.
func NewSegment(start, end uint64, mappings []hyperslab.Mapping) (Segment, error) {
	if len(mappings) == 0 {
		return Segment{}, ErrEmptySegment
	}
	if end < start {
		return Segment{}, fmt.Errorf("plan: segment end %d before start %d", end, start)
	}
	for _, m := range mappings {
		if m.RemoteOffset < start || m.RemoteEnd()-1 > end {
			return Segment{}, fmt.Errorf("plan: mapping [%d,%d) outside segment [%d,%d]",
				m.RemoteOffset, m.RemoteEnd(), start, end)
		}
	}
	return Segment{
		Start:            start,
		End:              end,
		Mappings:         mappings,
		RequiredDataSize: hyperslab.TotalLength(mappings),
	}, nil
}

// SegmentFromMappings builds the smallest segment covering every mapping.
func SegmentFromMappings(mappings []hyperslab.Mapping) (Segment, error) {
	if len(mappings) == 0 {
		return Segment{}, ErrEmptySegment
	}
	lo, hi := remoteBounds(mappings)
	return NewSegment(lo, hi-1, mappings)
}

// Span returns the number of remote bytes the segment covers.
func (s Segment) Span() uint64 {
	return s.End - s.Start + 1
}

// Covers reports whether the segment spans exactly [0, size).
func (s Segment) Covers(size uint64) bool {
	return s.Start == 0 && s.End+1 == size
}

// remoteBounds returns the lowest remote offset and one past the highest
// remote byte touched by mappings.
func remoteBounds(mappings []hyperslab.Mapping) (uint64, uint64) {
	lo, hi := mappings[0].RemoteOffset, mappings[0].RemoteEnd()
	for _, m := range mappings[1:] {
		lo = min(lo, m.RemoteOffset)
		hi = max(hi, m.RemoteEnd())
	}
	return lo, hi
}
