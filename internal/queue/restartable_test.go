package queue

import (
	"context"
	"reflect"
	"testing"
)

func feed(items []string) chan string {
	ch := make(chan string, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func drainN(t *testing.T, q *RestartableQueue[string], n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		item, ok, err := q.Get(context.Background())
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !ok {
			t.Fatalf("Get() ran out of items after %d", i)
		}
		out = append(out, item)
	}
	return out
}

func TestRestartableQueueNormalOrderMatchesProducer(t *testing.T) {
	q := New(feed([]string{"a", "b", "c"}))
	got := drainN(t, q, 3)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if _, ok, _ := q.Get(context.Background()); ok {
		t.Fatalf("expected exhausted queue to report ok=false")
	}
}

// TestRestartableQueueReplayAfterVolumeChange models scenario 4: producer
// queue [a,b,c,d,e], items a and b get confirmed, c is dispensed but the
// volume changes before it is confirmed. Entering restore must replay c
// (and only c) before resuming from the producer.
func TestRestartableQueueReplayAfterVolumeChange(t *testing.T) {
	q := New(feed([]string{"a", "b", "c", "d", "e"}))

	first := drainN(t, q, 3) // a, b, c
	if !reflect.DeepEqual(first, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected dispense order: %v", first)
	}
	if confirmed := q.Confirm(2); !reflect.DeepEqual(confirmed, []string{"a", "b"}) {
		t.Fatalf("expected confirm to return [a b], got %v", confirmed)
	}
	if q.NumPending() != 1 {
		t.Fatalf("expected 1 unconfirmed item (c), got %d", q.NumPending())
	}

	q.SetRestoring(true)
	if !q.Restoring() {
		t.Fatalf("expected Restoring() true after SetRestoring(true) with pending items")
	}

	replayed, ok, err := q.Get(context.Background())
	if err != nil || !ok {
		t.Fatalf("Get() during replay failed: ok=%v err=%v", ok, err)
	}
	if replayed != "c" {
		t.Fatalf("expected replay to re-yield c, got %q", replayed)
	}
	if q.Restoring() {
		t.Fatalf("expected replay to end once the single pending item was re-yielded")
	}

	rest := drainN(t, q, 2) // d, e resume from the producer
	if !reflect.DeepEqual(rest, []string{"d", "e"}) {
		t.Fatalf("expected resumed order [d e], got %v", rest)
	}

	if confirmed := q.Confirm(3); !reflect.DeepEqual(confirmed, []string{"c", "d", "e"}) {
		t.Fatalf("expected final confirm to return [c d e], got %v", confirmed)
	}
	if q.NumPending() != 0 {
		t.Fatalf("expected no pending items after final confirm, got %d", q.NumPending())
	}
}

func TestRestartableQueueReplayMultipleUnconfirmedInOrder(t *testing.T) {
	q := New(feed([]string{"a", "b", "c", "d"}))
	_ = drainN(t, q, 4) // nothing confirmed: all four remain pending

	q.SetRestoring(true)
	replayed := drainN(t, q, 4)
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(replayed, want) {
		t.Fatalf("expected replay in original dispense order %v, got %v", want, replayed)
	}
	if q.Restoring() {
		t.Fatalf("expected restoring to clear once every pending item replayed")
	}
	// The replayed items are still unconfirmed: Confirm must still see them.
	if q.NumPending() != 4 {
		t.Fatalf("replay must not drop items from the pending set, got %d pending", q.NumPending())
	}
}

func TestRestartableQueueSetRestoringNoopWhenNothingPending(t *testing.T) {
	q := New(feed([]string{"a"}))
	q.SetRestoring(true)
	if q.Restoring() {
		t.Fatalf("expected SetRestoring(true) with an empty pending set to be a no-op")
	}
}

func TestRestartableQueueQSizeCountsProducerAndPending(t *testing.T) {
	q := New(feed([]string{"a", "b", "c"}))
	if got := q.QSize(); got != 3 {
		t.Fatalf("expected qsize 3 before any Get, got %d", got)
	}
	drainN(t, q, 1)
	if got := q.QSize(); got != 3 {
		t.Fatalf("expected qsize still 3 (2 buffered + 1 pending), got %d", got)
	}
	q.Confirm(1)
	if got := q.QSize(); got != 2 {
		t.Fatalf("expected qsize 2 after confirming the only pending item, got %d", got)
	}
}

func TestRestartableQueueConfirmClampsToPendingCount(t *testing.T) {
	q := New(feed([]string{"a", "b"}))
	drainN(t, q, 2)
	confirmed := q.Confirm(100)
	if !reflect.DeepEqual(confirmed, []string{"a", "b"}) {
		t.Fatalf("expected Confirm to clamp and return both items, got %v", confirmed)
	}
	if q.NumPending() != 0 {
		t.Fatalf("expected 0 pending after over-confirming, got %d", q.NumPending())
	}
}

func TestRestartableQueueContextCancellationDuringBlockingGet(t *testing.T) {
	ch := make(chan string) // never fed, never closed: Get must block until cancelled
	q := New((<-chan string)(ch))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := q.Get(ctx)
	if ok {
		t.Fatalf("expected ok=false on cancelled context")
	}
	if err == nil {
		t.Fatalf("expected a context error")
	}
}
