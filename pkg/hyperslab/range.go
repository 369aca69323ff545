package hyperslab

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive [Low, High] index interval along one dimension.
type Range struct {
	Low  uint64 `json:"low" yaml:"low"`
	High uint64 `json:"high" yaml:"high"`
}

// Len returns the number of indices covered by the range.
func (r Range) Len() uint64 {
	if r.High < r.Low {
		return 0
	}
	return r.High - r.Low + 1
}

// String renders the range as "low:high".
func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Low, r.High)
}

// Full returns the range selecting every index of a dimension with the
// given extent.
func Full(extent uint64) Range {
	if extent == 0 {
		return Range{}
	}
	return Range{Low: 0, High: extent - 1}
}

// FullRanges returns one full range per dimension of shape.
func FullRanges(shape []uint64) []Range {
	ranges := make([]Range, len(shape))
	for i, extent := range shape {
		ranges[i] = Full(extent)
	}
	return ranges
}

// ParseShape parses a comma-separated list of extents such as "4,4".
func ParseShape(s string) ([]uint64, error) {
	fields := splitList(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrInvalidShape)
	}

	shape := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: dimension %d: %q", ErrInvalidShape, i, f)
		}
		shape[i] = v
	}
	return shape, nil
}

// ParseRanges parses a comma-separated list of "low:high" pairs such as
// "1:2,0:3". A bare index "n" is read as "n:n".
func ParseRanges(s string) ([]Range, error) {
	fields := splitList(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty ranges", ErrShapeMismatch)
	}

	ranges := make([]Range, len(fields))
	for i, f := range fields {
		lo, hi, found := strings.Cut(f, ":")
		if !found {
			hi = lo
		}
		low, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %d %q: %w", i, f, err)
		}
		high, err := strconv.ParseUint(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %d %q: %w", i, f, err)
		}
		if high < low {
			return nil, fmt.Errorf("%w: range %d %q is inverted", ErrRangeOutOfBounds, i, f)
		}
		ranges[i] = Range{Low: low, High: high}
	}
	return ranges, nil
}

// FormatShape renders a shape in the form accepted by ParseShape.
func FormatShape(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, v := range shape {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

// FormatRanges renders ranges in the form accepted by ParseRanges.
func FormatRanges(ranges []Range) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "[]()")
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
