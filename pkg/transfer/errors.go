package transfer

import "errors"

var (
	// ErrShortObject is returned when a fetched body ends before a mapping's last byte.
	ErrShortObject = errors.New("transfer: object shorter than mapped range")

	// ErrBufferSize is returned when a caller buffer does not match the selection size.
	ErrBufferSize = errors.New("transfer: buffer size does not match selection")

	// ErrQueueStopped is delivered to callbacks of requests submitted after Stop.
	ErrQueueStopped = errors.New("transfer: queue stopped")
)
