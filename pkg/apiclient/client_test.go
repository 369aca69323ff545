package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzman109/ArrayMorph/pkg/api"
	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
	"github.com/guzman109/ArrayMorph/pkg/store/memory"
)

// newGateway starts a gateway over an in-memory store.
func newGateway(t *testing.T) *Client {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Storage.Platform = "memory"
	cfg.Transfer.Workers = 2

	conn, err := connector.New(cfg, connector.WithStore(memory.New()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	server := httptest.NewServer(api.NewRouter(conn, cfg.Server))
	t.Cleanup(server.Close)
	return New(server.URL + "/")
}

func TestNew(t *testing.T) {
	client := New("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.BaseURL())

	hc := &http.Client{}
	other := client.WithHTTPClient(hc)
	assert.Same(t, hc, other.httpClient)
	assert.NotSame(t, hc, client.httpClient)
}

func TestSelectionQuery(t *testing.T) {
	q := Selection{
		File:        "run.h5",
		URI:         "temp/0.0",
		Shape:       []uint64{4, 4},
		Ranges:      []hyperslab.Range{{Low: 1, High: 2}, {Low: 0, High: 3}},
		ElementSize: 8,
	}.query()

	assert.Equal(t, "run.h5", q.Get("file"))
	assert.Equal(t, "temp/0.0", q.Get("uri"))
	assert.Equal(t, "4,4", q.Get("shape"))
	assert.Equal(t, "1:2,0:3", q.Get("ranges"))
	assert.Equal(t, "8", q.Get("element_size"))

	q = Selection{URI: "d", Shape: []uint64{2}}.query()
	assert.False(t, q.Has("file"))
	assert.False(t, q.Has("ranges"))
	assert.False(t, q.Has("element_size"))
}

func TestChunkRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newGateway(t)

	full := Selection{File: "run.h5", URI: "temp/0.0", Shape: []uint64{3, 3}}
	require.NoError(t, client.WriteChunk(ctx, full, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}))

	part := full
	part.Ranges = []hyperslab.Range{{Low: 1, High: 2}, {Low: 1, High: 2}}
	got, err := client.ReadChunk(ctx, part)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 8, 9}, got)

	p, err := client.PlanChunk(ctx, part)
	require.NoError(t, err)
	assert.Equal(t, "run.h5/temp/0.0", p.URI)
	assert.Equal(t, uint64(4), p.RequiredByteSize)
	assert.Equal(t, uint64(9), p.FullByteSize)
	require.NotEmpty(t, p.Segments)

	require.NoError(t, client.DeleteChunk(ctx, "run.h5", "temp/0.0"))

	_, err = client.ReadChunk(ctx, part)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
}

func TestChunkBadSelection(t *testing.T) {
	client := newGateway(t)

	_, err := client.ReadChunk(context.Background(), Selection{
		URI:    "d",
		Shape:  []uint64{4},
		Ranges: []hyperslab.Range{{Low: 0, High: 4}},
	})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsBadRequest())
	assert.NotEmpty(t, apiErr.Message)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	client := newGateway(t)

	live, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", live.Status)
	assert.Equal(t, "arraymorph", live.Data.Service)
	assert.NotEmpty(t, live.Data.StartedAt)

	ready, err := client.Ready(ctx)
	require.NoError(t, err)
	assert.True(t, ready.Healthy())
	assert.Equal(t, "memory", ready.Data.Platform)
}

func TestReadyUnhealthy(t *testing.T) {
	server := httptest.NewServer(api.NewRouter(nil, config.GetDefaultConfig().Server))
	defer server.Close()

	ready, err := New(server.URL).Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, ready.Healthy())
	assert.Equal(t, "backend not initialized", ready.Error)
}

func TestAPIErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream gone", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).Health(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream gone", apiErr.Message)
	assert.False(t, apiErr.IsUnavailable())

	_, err = New(server.URL).Ready(context.Background())
	require.Error(t, err)
}
