package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/guzman109/ArrayMorph/internal/cli/health"
)

// Health fetches the liveness response.
func (c *Client) Health(ctx context.Context) (*health.Response, error) {
	body, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return nil, err
	}
	var resp health.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Ready fetches the readiness response. An unhealthy gateway answers 503
// with a decodable body, which is returned without error.
func (c *Client) Ready(ctx context.Context) (*health.ReadyResponse, error) {
	status, body, err := c.send(ctx, http.MethodGet, "/health/ready", nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusServiceUnavailable {
		return nil, newAPIError(status, body)
	}
	var resp health.ReadyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}
