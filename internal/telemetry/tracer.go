package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for chunk and transfer spans.
const (
	// ========================================================================
	// Chunk attributes
	// ========================================================================
	AttrChunkURI      = "chunk.uri"
	AttrChunkShape    = "chunk.shape"
	AttrChunkRanges   = "chunk.ranges"
	AttrElementSize   = "chunk.element_size"
	AttrFullSelection = "chunk.full_selection"
	AttrMappings      = "chunk.mappings"
	AttrSegments      = "chunk.segments"

	// ========================================================================
	// Transfer attributes
	// ========================================================================
	AttrBatchID   = "transfer.batch_id"
	AttrOperation = "transfer.operation"
	AttrOffset    = "transfer.offset"
	AttrLength    = "transfer.length"
	AttrBytes     = "transfer.bytes"
	AttrAttempt   = "transfer.attempt"
	AttrQueueWait = "transfer.queue_wait_ms"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrPlatform  = "storage.platform"
	AttrBucket    = "storage.bucket"
	AttrContainer = "storage.container"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"

	// ========================================================================
	// HTTP gateway attributes
	// ========================================================================
	AttrClientIP  = "client.ip"
	AttrRequestID = "http.request_id"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanChunkRead   = "chunk.read"
	SpanChunkWrite  = "chunk.write"
	SpanChunkDelete = "chunk.delete"
	SpanChunkPlan   = "chunk.plan"

	SpanTransferGet      = "transfer.get"
	SpanTransferGetRange = "transfer.get_range"
	SpanTransferPut      = "transfer.put"
	SpanTransferFetchRMW = "transfer.rmw_fetch"

	SpanHTTPRequest = "http.request"
)

// ChunkURI returns an attribute for a chunk object name
func ChunkURI(uri string) attribute.KeyValue {
	return attribute.String(AttrChunkURI, uri)
}

// ChunkShape returns an attribute for chunk extents
func ChunkShape(shape []uint64) attribute.KeyValue {
	return attribute.String(AttrChunkShape, fmt.Sprint(shape))
}

// ChunkRanges returns an attribute for the selected hyperslab, already formatted
func ChunkRanges(ranges string) attribute.KeyValue {
	return attribute.String(AttrChunkRanges, ranges)
}

// ElementSize returns an attribute for bytes per element
func ElementSize(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrElementSize, int64(n))
}

// FullSelection returns an attribute marking whole-chunk selections
func FullSelection(full bool) attribute.KeyValue {
	return attribute.Bool(AttrFullSelection, full)
}

// Mappings returns an attribute for the number of mapping triples
func Mappings(n int) attribute.KeyValue {
	return attribute.Int(AttrMappings, n)
}

// Segments returns an attribute for the number of planned segments
func Segments(n int) attribute.KeyValue {
	return attribute.Int(AttrSegments, n)
}

// BatchID returns an attribute for a tracker batch
func BatchID(id string) attribute.KeyValue {
	return attribute.String(AttrBatchID, id)
}

// Operation returns an attribute for the transfer operation
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Offset returns an attribute for a remote byte offset
func Offset(off int64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, off)
}

// Length returns an attribute for a requested byte count
func Length(n int64) attribute.KeyValue {
	return attribute.Int64(AttrLength, n)
}

// Bytes returns an attribute for bytes actually moved
func Bytes(n int) attribute.KeyValue {
	return attribute.Int(AttrBytes, n)
}

// Attempt returns an attribute for a retry attempt
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// QueueWaitMs returns an attribute for time spent queued
func QueueWaitMs(ms float64) attribute.KeyValue {
	return attribute.Float64(AttrQueueWait, ms)
}

// Platform returns an attribute for the storage platform
func Platform(p string) attribute.KeyValue {
	return attribute.String(AttrPlatform, p)
}

// Bucket returns an attribute for an S3 bucket
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// Container returns an attribute for an Azure container
func Container(name string) attribute.KeyValue {
	return attribute.String(AttrContainer, name)
}

// StorageKey returns an attribute for an object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for a cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// RequestID returns an attribute for a gateway request ID
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// StartChunkSpan starts a span for a chunk-level operation (read, write, delete, plan).
func StartChunkSpan(ctx context.Context, operation, uri string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, ChunkURI(uri))
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "chunk."+operation, trace.WithAttributes(allAttrs...))
}

// StartTransferSpan starts a span for a single backend request issued by the transfer queue.
func StartTransferSpan(ctx context.Context, name, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, StorageKey(key))
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...), trace.WithSpanKind(trace.SpanKindClient))
}
