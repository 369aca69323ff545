package transfer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Tracker counts terminal completions of one batch of asynchronous requests.
//
// Every request the engine issues reaches exactly one terminal completion,
// successful or not, and each one advances the count. Failures are kept and
// reported by Wait. A Tracker is safe for concurrent use; callbacks on pool
// goroutines call Done while the issuer blocks in Wait.
type Tracker struct {
	id string

	mu        sync.Mutex
	completed int
	failures  []error
	changed   chan struct{} // closed and replaced on every Done
}

// NewTracker returns an empty tracker with a fresh batch ID.
func NewTracker() *Tracker {
	return &Tracker{
		id:      uuid.NewString(),
		changed: make(chan struct{}),
	}
}

// ID returns the batch ID, used to correlate logs and spans.
func (t *Tracker) ID() string {
	return t.id
}

// Reset zeroes the count and forgets recorded failures. Callers must not
// Reset while requests from the previous batch are still in flight.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = 0
	t.failures = nil
	t.notifyLocked()
}

// Done records one terminal completion. A non-nil err is kept for Wait.
func (t *Tracker) Done(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	if err != nil {
		t.failures = append(t.failures, err)
	}
	t.notifyLocked()
}

func (t *Tracker) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Completed returns the number of terminal completions so far.
func (t *Tracker) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Failed returns the number of completions that carried an error.
func (t *Tracker) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures)
}

// Err returns the recorded failures joined, or nil.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.failures...)
}

// Wait blocks until at least expected completions have been recorded and
// returns the joined failures. It returns ctx.Err() if ctx ends first.
func (t *Tracker) Wait(ctx context.Context, expected int) error {
	for {
		t.mu.Lock()
		if t.completed >= expected {
			err := errors.Join(t.failures...)
			t.mu.Unlock()
			return err
		}
		ch := t.changed
		t.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
