package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/plan"
)

// Selection names a hyperslab of one chunk on the gateway. Nil Ranges
// selects the whole chunk; zero ElementSize means one byte.
type Selection struct {
	File        string
	URI         string
	Shape       []uint64
	Ranges      []hyperslab.Range
	ElementSize uint64
}

func (s Selection) query() url.Values {
	q := url.Values{}
	if s.File != "" {
		q.Set("file", s.File)
	}
	q.Set("uri", s.URI)
	q.Set("shape", hyperslab.FormatShape(s.Shape))
	if len(s.Ranges) > 0 {
		q.Set("ranges", hyperslab.FormatRanges(s.Ranges))
	}
	if s.ElementSize > 0 {
		q.Set("element_size", strconv.FormatUint(s.ElementSize, 10))
	}
	return q
}

// PlanResult is the gateway's plan for one selection.
type PlanResult struct {
	URI              string         `json:"uri"`
	QueryKey         string         `json:"query_key"`
	RequiredByteSize uint64         `json:"required_byte_size"`
	FullByteSize     uint64         `json:"full_byte_size"`
	Segments         []plan.Segment `json:"segments"`
}

// ReadChunk returns the selected bytes in dense order.
func (c *Client) ReadChunk(ctx context.Context, sel Selection) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/v1/chunks/read", sel.query(), nil)
}

// WriteChunk stores data as the selected region of the chunk.
func (c *Client) WriteChunk(ctx context.Context, sel Selection, data []byte) error {
	_, err := c.do(ctx, http.MethodPut, "/v1/chunks/write", sel.query(), bytes.NewReader(data))
	return err
}

// DeleteChunk removes the chunk named uri in file.
func (c *Client) DeleteChunk(ctx context.Context, file, uri string) error {
	q := url.Values{}
	if file != "" {
		q.Set("file", file)
	}
	q.Set("uri", uri)
	_, err := c.do(ctx, http.MethodDelete, "/v1/chunks", q, nil)
	return err
}

// PlanChunk asks the gateway how it would read sel.
func (c *Client) PlanChunk(ctx context.Context, sel Selection) (*PlanResult, error) {
	var result PlanResult
	if err := c.getData(ctx, "/v1/chunks/plan", sel.query(), &result); err != nil {
		return nil, fmt.Errorf("plan %s: %w", sel.URI, err)
	}
	return &result, nil
}
