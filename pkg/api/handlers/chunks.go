package handlers

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/plan"
)

// ChunkHandler serves chunk reads, writes, deletes and plans over HTTP.
type ChunkHandler struct {
	conn        *connector.Connector
	maxBodySize int64
}

// NewChunkHandler creates a chunk handler. Selections and write bodies
// larger than maxBodySize are rejected; zero means no limit.
func NewChunkHandler(conn *connector.Connector, maxBodySize int64) *ChunkHandler {
	return &ChunkHandler{conn: conn, maxBodySize: maxBodySize}
}

// PlanResponse describes the requests a read of the selection would issue.
type PlanResponse struct {
	URI              string         `json:"uri"`
	QueryKey         string         `json:"query_key"`
	RequiredByteSize uint64         `json:"required_byte_size"`
	FullByteSize     uint64         `json:"full_byte_size"`
	Segments         []plan.Segment `json:"segments"`
}

// openDescriptor parses the query, opens its file and builds the descriptor.
// On failure it writes the error response and returns ok=false.
func (h *ChunkHandler) openDescriptor(w http.ResponseWriter, r *http.Request) (*connector.File, *chunk.Descriptor, bool) {
	q, err := parseChunkQuery(r.URL.Query())
	if err != nil {
		BadRequest(w, err.Error())
		return nil, nil, false
	}
	if err := q.checkSize(h.maxBodySize); err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	f, err := h.conn.Open(r.Context(), q.File)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	desc, err := f.Descriptor(q.URI, q.ElementSize, q.Shape, q.Ranges)
	if err != nil {
		_ = f.Close()
		BadRequest(w, err.Error())
		return nil, nil, false
	}
	return f, desc, true
}

// Read handles GET /v1/chunks/read and responds with the selected bytes.
func (h *ChunkHandler) Read(w http.ResponseWriter, r *http.Request) {
	f, desc, ok := h.openDescriptor(w, r)
	if !ok {
		return
	}
	defer f.Close()

	buf := make([]byte, desc.RequiredByteSize())
	if err := f.ReadChunk(r.Context(), desc, buf); err != nil {
		logger.WarnCtx(r.Context(), "Chunk read failed",
			logger.KeyRequestID, middleware.GetReqID(r.Context()),
			logger.KeyURI, desc.URI(),
			logger.KeyError, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

// Write handles PUT /v1/chunks/write. The body is the selection's bytes in
// dense order.
func (h *ChunkHandler) Write(w http.ResponseWriter, r *http.Request) {
	f, desc, ok := h.openDescriptor(w, r)
	if !ok {
		return
	}
	defer f.Close()

	body := r.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	src, err := io.ReadAll(body)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := f.WriteChunk(r.Context(), desc, src); err != nil {
		logger.WarnCtx(r.Context(), "Chunk write failed",
			logger.KeyRequestID, middleware.GetReqID(r.Context()),
			logger.KeyURI, desc.URI(),
			logger.KeyError, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /v1/chunks?uri=. Deleting a missing chunk succeeds.
func (h *ChunkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		BadRequest(w, errMissingURI.Error())
		return
	}

	f, err := h.conn.Open(r.Context(), r.URL.Query().Get("file"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	if err := f.DeleteChunk(r.Context(), uri); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Plan handles GET /v1/chunks/plan. It does not contact the backend.
func (h *ChunkHandler) Plan(w http.ResponseWriter, r *http.Request) {
	q, err := parseChunkQuery(r.URL.Query())
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := q.checkSize(h.maxBodySize); err != nil {
		writeError(w, err)
		return
	}

	key := q.URI
	if file := strings.TrimPrefix(q.File, "./"); file != "" {
		key = path.Join(file, q.URI)
	}
	desc, err := chunk.New(key, q.ElementSize, q.Shape, q.Ranges)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	segs, err := h.conn.Plan(r.Context(), desc)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(PlanResponse{
		URI:              desc.URI(),
		QueryKey:         desc.QueryKey(),
		RequiredByteSize: desc.RequiredByteSize(),
		FullByteSize:     desc.FullByteSize(),
		Segments:         segs,
	}))
}
