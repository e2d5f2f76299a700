// Package archive implements ArchiveWriter and PendingTracker: the tar
// emission layer that sits between the backup driver and an encrypted
// sink, and the bookkeeping that tracks which archive members are merely
// buffered versus durably flushed to the medium.
package archive

// PendingRecord captures, immediately after a member is appended to the
// archive, the state needed to later decide whether that member's last
// byte has left the staging buffer: the tar-layer staging-buffer fill and
// the sink's plaintext byte counter at that moment, plus the tar stream's
// logical (pre-compression) offset for introspection/debugging.
type PendingRecord struct {
	Seq              int
	BufferFill       int
	SinkBytesAtTime  int64
	TarLogicalOffset int64
}

// committable reports whether this record's tail is guaranteed to have
// left the staging buffer given the sink's current plaintext byte count.
func (r PendingRecord) committable(sinkBytesNow int64) bool {
	return int64(r.BufferFill)+r.SinkBytesAtTime <= sinkBytesNow
}

// PendingTracker owns the ordered list of PendingRecords for one volume's
// ArchiveWriter and implements the "last committable index" purge rule
// from spec §4.5.
type PendingTracker struct {
	records    []PendingRecord
	totalAdded int
}

// Append records a newly added member. Invariant: Seq values are strictly
// increasing; callers (ArchiveWriter) are responsible for that ordering.
func (t *PendingTracker) Append(r PendingRecord) {
	t.records = append(t.records, r)
	t.totalAdded++
}

// Purge removes every record up to and including the LAST committable one,
// per spec §4.5: because sink.Tell() only grows and records are kept in
// append order, a later record being committable implies every earlier one
// is too, so holes are never left behind even though individual earlier
// records might look committable before a later, larger member flushes the
// buffer past all of them at once.
func (t *PendingTracker) Purge(sinkBytesNow int64) {
	lastCommittable := -1
	for i, r := range t.records {
		if r.committable(sinkBytesNow) {
			lastCommittable = i
		}
	}
	if lastCommittable >= 0 {
		t.records = append([]PendingRecord{}, t.records[lastCommittable+1:]...)
	}
}

// NumCommitted returns totalAdded - len(pending), per spec §4.5.
func (t *PendingTracker) NumCommitted() int {
	return t.totalAdded - len(t.records)
}

// NumPending returns the number of members still buffered, not yet durable.
func (t *PendingTracker) NumPending() int {
	return len(t.records)
}

// TotalAdded returns the number of members ever appended, including
// already-committed ones.
func (t *PendingTracker) TotalAdded() int {
	return t.totalAdded
}
