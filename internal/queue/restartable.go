// Package queue implements RestartableQueue: a FIFO wrapper that remembers
// items it has dispensed but which the consumer has not yet confirmed, so
// that after a volume change the same sequence can be replayed against a
// fresh archive without re-walking the filesystem.
package queue

import (
	"context"
	"sync"
)

// RestartableQueue wraps a producer channel with a "consumed but
// unconfirmed" memory. Get always returns items in producer order, both
// normally and while replaying; Confirm(k) drops the k oldest unconfirmed
// items once their durability is assured.
//
// Only one goroutine is expected to call Get/Confirm/SetRestoring — the
// backup driver — while an independent producer goroutine feeds the
// channel passed to New. That split mirrors the walker-feeds-queue,
// driver-drains-queue split in spec §5.
type RestartableQueue[T any] struct {
	mu sync.Mutex

	ch <-chan T

	// pending holds every item dispensed but not yet Confirm-ed, oldest
	// first. It is never reordered; replay reads through it with a cursor
	// instead of physically rotating items, since Confirm must always be
	// able to drop the k oldest entries regardless of replay state.
	pending []T

	replaying    bool
	replayCursor int
}

// New wraps producer, a channel the caller's filesystem walker (or any
// other producer) closes once it has no more items to offer.
func New[T any](producer <-chan T) *RestartableQueue[T] {
	return &RestartableQueue[T]{ch: producer}
}

// Get returns the next item in producer order. The second return value is
// false once no replay is in progress and the producer has closed its
// channel; items dispensed but not yet confirmed do not hold it back. Get
// blocks on the producer channel only when not currently replaying.
func (q *RestartableQueue[T]) Get(ctx context.Context) (T, bool, error) {
	q.mu.Lock()
	if q.replaying {
		if q.replayCursor < len(q.pending) {
			item := q.pending[q.replayCursor]
			q.replayCursor++
			if q.replayCursor == len(q.pending) {
				q.replaying = false
				q.replayCursor = 0
			}
			q.mu.Unlock()
			return item, true, nil
		}
		q.replaying = false
		q.replayCursor = 0
	}
	q.mu.Unlock()

	select {
	case item, ok := <-q.ch:
		if !ok {
			var zero T
			return zero, false, nil
		}
		q.mu.Lock()
		q.pending = append(q.pending, item)
		q.mu.Unlock()
		return item, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Confirm removes the k oldest unconfirmed items, asserting their
// durability, and returns them (in the order they were originally
// dispensed) so the caller can run a commit hook over each. If k exceeds
// the number of pending items, every pending item is confirmed.
func (q *RestartableQueue[T]) Confirm(k int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if k > len(q.pending) {
		k = len(q.pending)
	}
	if k <= 0 {
		return nil
	}
	confirmed := make([]T, k)
	copy(confirmed, q.pending[:k])
	remaining := make([]T, len(q.pending)-k)
	copy(remaining, q.pending[k:])
	q.pending = remaining
	if q.replayCursor > k {
		q.replayCursor -= k
	} else {
		q.replayCursor = 0
	}
	return confirmed
}

// SetRestoring enters or leaves replay mode. Entering replay mode with no
// pending items is a no-op (there is nothing to replay, matching spec
// §4.6's "when R empties, clear restoring").
func (q *RestartableQueue[T]) SetRestoring(restoring bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if restoring {
		q.replaying = len(q.pending) > 0
		q.replayCursor = 0
		return
	}
	q.replaying = false
	q.replayCursor = 0
}

// Restoring reports whether the queue is currently replaying unconfirmed items.
func (q *RestartableQueue[T]) Restoring() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.replaying
}

// QSize returns the producer's buffered item count plus the number of
// items dispensed but not yet confirmed.
func (q *RestartableQueue[T]) QSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ch) + len(q.pending)
}

// NumPending returns the number of dispensed-but-unconfirmed items.
func (q *RestartableQueue[T]) NumPending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
