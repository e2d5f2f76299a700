// Package buffers provides pooled byte buffers for the sector cipher's
// sliding encryption window and the tar staging buffer, avoiding a fresh
// heap allocation per sector during a backup run that may touch millions
// of them.
package buffers

import (
	"sync"

	"github.com/Stefan-Code/aestar/internal/constants"
)

var sectorPool = &sync.Pool{
	New: func() interface{} {
		buf := make([]byte, constants.EncryptionChunkSize)
		return &buf
	},
}

// GetSectorBuffer retrieves a pooled buffer sized for one encryption
// chunk. Callers must return it with PutSectorBuffer.
func GetSectorBuffer() *[]byte {
	return sectorPool.Get().(*[]byte)
}

// PutSectorBuffer clears and returns a buffer to the pool. Only buffers of
// the expected size are retained.
func PutSectorBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.EncryptionChunkSize {
		clear(*buf)
		sectorPool.Put(buf)
	}
}

// stagingPools holds one sync.Pool per distinct staging buffer size seen so
// far. EncryptedSink requests one buffer per Write, sized to that write's
// padded length, so this holds one pool per distinct write size seen; that
// is --bufsize for every full staging flush, plus whatever other lengths
// larger direct writes and final short writes produce.
var (
	stagingMu    sync.Mutex
	stagingPools = map[int]*sync.Pool{}
)

func stagingPool(size int) *sync.Pool {
	stagingMu.Lock()
	defer stagingMu.Unlock()
	p, ok := stagingPools[size]
	if !ok {
		p = &sync.Pool{New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		}}
		stagingPools[size] = p
	}
	return p
}

// GetStagingBuffer retrieves a pooled buffer of exactly size bytes, used by
// EncryptedSink.Write to hold one write's ciphertext before it reaches the
// medium.
func GetStagingBuffer(size int) *[]byte {
	return stagingPool(size).Get().(*[]byte)
}

// PutStagingBuffer clears and returns a staging buffer to its size-keyed pool.
func PutStagingBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	clear(*buf)
	stagingPool(len(*buf)).Put(buf)
}
