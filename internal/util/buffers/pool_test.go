package buffers

import "testing"

func TestSectorBufferRoundTrip(t *testing.T) {
	buf := GetSectorBuffer()
	if len(*buf) != 16*1024 {
		t.Fatalf("unexpected sector buffer length: %d", len(*buf))
	}
	(*buf)[0] = 0xAA
	PutSectorBuffer(buf)

	buf2 := GetSectorBuffer()
	if (*buf2)[0] != 0 {
		t.Errorf("expected pooled buffer to be cleared, got %x", (*buf2)[0])
	}
}

func TestStagingBufferSizing(t *testing.T) {
	sizes := []int{512, 131072, 4096}
	for _, size := range sizes {
		buf := GetStagingBuffer(size)
		if len(*buf) != size {
			t.Fatalf("size %d: got buffer of length %d", size, len(*buf))
		}
		(*buf)[size-1] = 0xFF
		PutStagingBuffer(buf)
	}

	buf := GetStagingBuffer(512)
	if (*buf)[511] != 0 {
		t.Errorf("expected staging buffer to be cleared on reuse")
	}
}
