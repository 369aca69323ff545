package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents an error response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func newAPIError(status int, body []byte) *APIError {
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return &APIError{StatusCode: status, Message: env.Error}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the chunk or route does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsBadRequest returns true if the gateway rejected the selection.
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsUnavailable returns true if the gateway's store or queue is down.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}
