package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/store"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
)

// Response is the envelope of every JSON response.
//
//   - Status is "healthy", "unhealthy", "ok" or "error"
//   - Data carries the payload, if any
//   - Error carries the failure message, if any
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", logger.KeyError, err)
	}
}

func healthyResponse(data any) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

func okResponse(data any) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(errMsg string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg}
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse(msg))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, errorResponse(msg))
}

// InternalServerError writes a 500 error response.
func InternalServerError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, errorResponse(msg))
}

// statusFor maps a chunk operation error to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, errSelectionTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, hyperslab.ErrInvalidShape),
		errors.Is(err, hyperslab.ErrShapeMismatch),
		errors.Is(err, hyperslab.ErrRangeOutOfBounds),
		errors.Is(err, hyperslab.ErrRaggedTarget),
		errors.Is(err, hyperslab.ErrOverflow),
		errors.Is(err, transfer.ErrBufferSize),
		errors.Is(err, store.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, connector.ErrClosed),
		errors.Is(err, transfer.ErrQueueStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, transfer.ErrShortObject):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error with the status statusFor picks.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse(err.Error()))
}
