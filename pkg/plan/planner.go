package plan

import (
	"fmt"

	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
)

// Policy bounds how mappings are grouped into segments.
//
// The zero Policy yields a single segment spanning the whole object, which
// fetches the object with one request.
type Policy struct {
	// MaxSegmentBytes caps the remote span of a segment. A single mapping
	// larger than the cap still gets a segment of its own.
	MaxSegmentBytes uint64 `mapstructure:"max_segment_bytes" yaml:"max_segment_bytes"`

	// MaxSegments caps the number of segments per object. Adjacent segments
	// separated by the smallest gaps are merged until the count fits.
	MaxSegments int `mapstructure:"max_segments" yaml:"max_segments"`
}

// Splits reports whether the policy produces span-limited segments.
func (p Policy) Splits() bool {
	return p.MaxSegmentBytes > 0 || p.MaxSegments > 0
}

// Planner turns mapping lists into segments.
type Planner struct {
	policy Policy
}

// NewPlanner creates a planner with the given policy.
func NewPlanner(policy Policy) *Planner {
	return &Planner{policy: policy}
}

// Policy returns the planner's policy.
func (p *Planner) Policy() Policy {
	return p.policy
}

// Plan groups mappings, in order, into segments over an object of
// objectSize bytes. An empty mapping list yields no segments and no error.
func (p *Planner) Plan(mappings []hyperslab.Mapping, objectSize uint64) ([]Segment, error) {
	if len(mappings) == 0 {
		return nil, nil
	}
	if _, hi := remoteBounds(mappings); hi > objectSize {
		return nil, fmt.Errorf("plan: mappings reach byte %d of a %d byte object", hi, objectSize)
	}

	if !p.policy.Splits() {
		seg, err := NewSegment(0, objectSize-1, mappings)
		if err != nil {
			return nil, err
		}
		return []Segment{seg}, nil
	}

	groups := p.split(mappings)
	if p.policy.MaxSegments > 0 {
		groups = merge(groups, p.policy.MaxSegments)
	}

	segments := make([]Segment, 0, len(groups))
	for _, g := range groups {
		seg, err := SegmentFromMappings(g)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// PlanChunk plans the transfer of a chunk descriptor's selection.
func (p *Planner) PlanChunk(desc *chunk.Descriptor) ([]Segment, error) {
	mappings, err := desc.Mappings()
	if err != nil {
		return nil, err
	}
	return p.Plan(mappings, desc.FullByteSize())
}

// split cuts mappings into consecutive groups whose remote span stays within
// MaxSegmentBytes. Groups share the backing array of mappings.
func (p *Planner) split(mappings []hyperslab.Mapping) [][]hyperslab.Mapping {
	limit := p.policy.MaxSegmentBytes
	if limit == 0 {
		// Only a segment count is set: aim for even spans and let merge
		// fix up any excess.
		lo, hi := remoteBounds(mappings)
		n := uint64(p.policy.MaxSegments)
		limit = max((hi-lo+n-1)/n, 1)
	}

	var groups [][]hyperslab.Mapping
	start := 0
	lo, hi := mappings[0].RemoteOffset, mappings[0].RemoteEnd()
	for i := 1; i < len(mappings); i++ {
		m := mappings[i]
		nlo, nhi := min(lo, m.RemoteOffset), max(hi, m.RemoteEnd())
		if nhi-nlo > limit {
			groups = append(groups, mappings[start:i:i])
			start = i
			lo, hi = m.RemoteOffset, m.RemoteEnd()
			continue
		}
		lo, hi = nlo, nhi
	}
	return append(groups, mappings[start:])
}

// merge joins adjacent groups separated by the smallest remote gap until at
// most limit groups remain.
func merge(groups [][]hyperslab.Mapping, limit int) [][]hyperslab.Mapping {
	for len(groups) > limit {
		best, bestGap := 0, ^uint64(0)
		for i := 0; i+1 < len(groups); i++ {
			_, hi := remoteBounds(groups[i])
			lo, _ := remoteBounds(groups[i+1])
			gap := uint64(0)
			if lo > hi {
				gap = lo - hi
			}
			if gap < bestGap {
				best, bestGap = i, gap
			}
		}

		joined := make([]hyperslab.Mapping, 0, len(groups[best])+len(groups[best+1]))
		joined = append(joined, groups[best]...)
		joined = append(joined, groups[best+1]...)

		next := make([][]hyperslab.Mapping, 0, len(groups)-1)
		next = append(next, groups[:best]...)
		next = append(next, joined)
		next = append(next, groups[best+2:]...)
		groups = next
	}
	return groups
}
