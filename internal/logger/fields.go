package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Operation
	// ========================================================================
	KeyOperation  = "operation"   // read, write, delete, plan
	KeyRequestID  = "request_id"  // HTTP gateway request ID
	KeyBatchID    = "batch_id"    // Tracker batch identifier
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message

	// ========================================================================
	// Chunk Geometry
	// ========================================================================
	KeyURI         = "uri"          // Chunk object name
	KeyShape       = "shape"        // Chunk extents
	KeyRanges      = "ranges"       // Selected hyperslab
	KeyElementSize = "element_size" // Bytes per element
	KeyMappings    = "mappings"     // Number of mapping triples
	KeySegments    = "segments"     // Number of planned segments
	KeySegment     = "segment"      // Segment index within a plan

	// ========================================================================
	// I/O
	// ========================================================================
	KeyOffset  = "offset"  // Byte offset within an object
	KeyLength  = "length"  // Byte count requested
	KeySize    = "size"    // Object size in bytes
	KeyPending = "pending" // Queued requests not yet executed
	KeyWorkers = "workers" // Worker goroutine count
	KeyWorker  = "worker"  // Worker index

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyPlatform   = "platform"    // s3, azure, filesystem, memory
	KeyBucket     = "bucket"      // S3 bucket name
	KeyContainer  = "container"   // Azure Blob container name
	KeyKey        = "key"         // Object key
	KeyRegion     = "region"      // Cloud region
	KeyEndpoint   = "endpoint"    // Custom service endpoint
	KeyPath       = "path"        // Filesystem path
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// HTTP Gateway
	// ========================================================================
	KeyMethod   = "method"    // HTTP method
	KeyStatus   = "status"    // HTTP status code
	KeyClientIP = "client_ip" // Client IP address
	KeyAddress  = "address"   // Listen address
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Operation returns a slog.Attr for the operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// BatchID returns a slog.Attr for a tracker batch identifier
func BatchID(id string) slog.Attr {
	return slog.String(KeyBatchID, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// URI returns a slog.Attr for a chunk object name
func URI(uri string) slog.Attr {
	return slog.String(KeyURI, uri)
}

// Segment returns a slog.Attr for a segment index
func Segment(i int) slog.Attr {
	return slog.Int(KeySegment, i)
}

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Length returns a slog.Attr for a byte count
func Length(n uint64) slog.Attr {
	return slog.Uint64(KeyLength, n)
}

// Size returns a slog.Attr for an object size
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Platform returns a slog.Attr for the storage platform
func Platform(p string) slog.Attr {
	return slog.String(KeyPlatform, p)
}

// Bucket returns a slog.Attr for an S3 bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Container returns a slog.Attr for an Azure container name
func Container(name string) slog.Attr {
	return slog.String(KeyContainer, name)
}

// Key returns a slog.Attr for an object key
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
