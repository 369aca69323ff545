package transfer

import "time"

// Metrics observes transfer activity. Implementations must be safe for
// concurrent use. A nil Metrics disables collection.
type Metrics interface {
	// ObserveRequest records one backend request executed by the queue.
	ObserveRequest(op string, bytes int, duration time.Duration, err error)

	// RecordRetry records a read re-issued after a failure.
	RecordRetry(op string)

	// SetPending reports the number of queued requests of a kind (download, upload).
	SetPending(kind string, n int)
}
