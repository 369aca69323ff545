package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
)

// chunkQuery is the selection named by a request's query string:
//
//	?file=run.h5&uri=temp/0.0&shape=4,4&ranges=1:2,0:3&element_size=8
//
// file is optional. ranges defaults to the whole chunk and element_size
// to 1.
type chunkQuery struct {
	File        string
	URI         string
	Shape       []uint64
	Ranges      []hyperslab.Range
	ElementSize uint64
}

var (
	errMissingURI        = errors.New("missing required parameter: uri")
	errSelectionTooLarge = errors.New("selection exceeds the request size limit")
)

func parseChunkQuery(q url.Values) (*chunkQuery, error) {
	cq := &chunkQuery{
		File:        q.Get("file"),
		URI:         q.Get("uri"),
		ElementSize: 1,
	}
	if cq.URI == "" {
		return nil, errMissingURI
	}

	shape, err := hyperslab.ParseShape(q.Get("shape"))
	if err != nil {
		return nil, err
	}
	cq.Shape = shape

	if s := q.Get("ranges"); s != "" {
		if cq.Ranges, err = hyperslab.ParseRanges(s); err != nil {
			return nil, err
		}
	} else {
		cq.Ranges = hyperslab.FullRanges(shape)
	}

	if s := q.Get("element_size"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("%w: element_size %q", hyperslab.ErrInvalidShape, s)
		}
		cq.ElementSize = n
	}
	return cq, nil
}

// checkSize fails with errSelectionTooLarge when the selection holds more
// than limit bytes. A zero limit disables the check.
func (cq *chunkQuery) checkSize(limit int64) error {
	if limit <= 0 {
		return nil
	}
	n, err := hyperslab.Elements(cq.Ranges)
	if err != nil {
		return err
	}
	if n > uint64(limit)/cq.ElementSize {
		return fmt.Errorf("%w: %d elements of %d bytes, limit %d bytes",
			errSelectionTooLarge, n, cq.ElementSize, limit)
	}
	return nil
}
