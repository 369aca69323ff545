package output

import (
	"strconv"

	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/plan"
)

// PlanView is the printable result of planning one chunk selection.
type PlanView struct {
	URI              string         `json:"uri" yaml:"uri"`
	Shape            string         `json:"shape" yaml:"shape"`
	Ranges           string         `json:"ranges" yaml:"ranges"`
	ElementSize      uint64         `json:"element_size" yaml:"element_size"`
	QueryKey         string         `json:"query_key" yaml:"query_key"`
	RequiredByteSize uint64         `json:"required_byte_size" yaml:"required_byte_size"`
	FullByteSize     uint64         `json:"full_byte_size" yaml:"full_byte_size"`
	Segments         []plan.Segment `json:"segments" yaml:"segments"`
}

// NewPlanView builds the view of desc planned into segs.
func NewPlanView(desc *chunk.Descriptor, segs []plan.Segment) *PlanView {
	return &PlanView{
		URI:              desc.URI(),
		Shape:            hyperslab.FormatShape(desc.Shape()),
		Ranges:           hyperslab.FormatRanges(desc.Ranges()),
		ElementSize:      desc.ElementSize(),
		QueryKey:         desc.QueryKey(),
		RequiredByteSize: desc.RequiredByteSize(),
		FullByteSize:     desc.FullByteSize(),
		Segments:         segs,
	}
}

// Summary returns the descriptor fields printed above the segment table.
func (v *PlanView) Summary() [][2]string {
	return [][2]string{
		{"URI", v.URI},
		{"Shape", v.Shape},
		{"Ranges", v.Ranges},
		{"Element size", strconv.FormatUint(v.ElementSize, 10)},
		{"Required bytes", strconv.FormatUint(v.RequiredByteSize, 10)},
		{"Object bytes", strconv.FormatUint(v.FullByteSize, 10)},
		{"Query key", v.QueryKey},
	}
}

// Headers implements TableRenderer.
func (v *PlanView) Headers() []string {
	return []string{"Segment", "Range", "Span", "Mappings", "Required"}
}

// Rows implements TableRenderer. One row per segment.
func (v *PlanView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Segments))
	for i, s := range v.Segments {
		rows = append(rows, []string{
			strconv.Itoa(i),
			"bytes=" + strconv.FormatUint(s.Start, 10) + "-" + strconv.FormatUint(s.End, 10),
			strconv.FormatUint(s.Span(), 10),
			strconv.Itoa(len(s.Mappings)),
			strconv.FormatUint(s.RequiredDataSize, 10),
		})
	}
	return rows
}
