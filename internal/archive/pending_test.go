package archive

import "testing"

func TestPendingTrackerPurgesLastCommittableAndEverythingBefore(t *testing.T) {
	var tr PendingTracker
	// Three members: record 0 and 1 look committable against sink bytes 100,
	// record 2 is not yet (its tail is still beyond the buffer fill implied
	// by the current sink position).
	tr.Append(PendingRecord{Seq: 1, BufferFill: 10, SinkBytesAtTime: 0})
	tr.Append(PendingRecord{Seq: 2, BufferFill: 20, SinkBytesAtTime: 0})
	tr.Append(PendingRecord{Seq: 3, BufferFill: 500, SinkBytesAtTime: 0})

	tr.Purge(100)

	if tr.NumCommitted() != 2 {
		t.Fatalf("expected 2 committed, got %d", tr.NumCommitted())
	}
	if tr.NumPending() != 1 {
		t.Fatalf("expected 1 still pending, got %d", tr.NumPending())
	}
	if tr.records[0].Seq != 3 {
		t.Errorf("expected remaining pending record to be seq 3, got %d", tr.records[0].Seq)
	}
}

func TestPendingTrackerDoesNotLeaveHoles(t *testing.T) {
	// A small early member buffered deep inside a compressor window only
	// becomes committable once a later, larger member flushes the buffer
	// past all of them at once — purge must clear everything up to the
	// last committable record, not just that one record.
	var tr PendingTracker
	tr.Append(PendingRecord{Seq: 1, BufferFill: 1000, SinkBytesAtTime: 0}) // not committable yet
	tr.Append(PendingRecord{Seq: 2, BufferFill: 50, SinkBytesAtTime: 0})   // committable
	tr.Append(PendingRecord{Seq: 3, BufferFill: 60, SinkBytesAtTime: 0})   // committable, later than 2

	tr.Purge(100)

	if tr.NumCommitted() != 0 {
		t.Fatalf("record 1 (buffer fill 1000) is not committable yet, so nothing before it may be removed either: got %d committed", tr.NumCommitted())
	}
}

func TestPendingTrackerNeverDecreasesOrExceedsTotal(t *testing.T) {
	var tr PendingTracker
	prev := 0
	for i := 1; i <= 10; i++ {
		tr.Append(PendingRecord{Seq: i, BufferFill: i * 10, SinkBytesAtTime: 0})
		tr.Purge(int64(i * 10))
		got := tr.NumCommitted()
		if got < prev {
			t.Fatalf("num_committed decreased: %d -> %d", prev, got)
		}
		if got > tr.TotalAdded() {
			t.Fatalf("num_committed %d exceeds total added %d", got, tr.TotalAdded())
		}
		prev = got
	}
}

func TestPendingTrackerFullCommitAfterClose(t *testing.T) {
	var tr PendingTracker
	for i := 1; i <= 5; i++ {
		tr.Append(PendingRecord{Seq: i, BufferFill: 10, SinkBytesAtTime: int64(10 * (i - 1))})
	}
	tr.Purge(1 << 20)
	if tr.NumCommitted() != tr.TotalAdded() {
		t.Errorf("expected all %d members committed after a large enough sink position, got %d", tr.TotalAdded(), tr.NumCommitted())
	}
}
