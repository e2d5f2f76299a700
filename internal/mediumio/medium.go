// Package mediumio implements the thin sequential-medium abstraction and
// the sector-encrypting sink that sits on top of it.
package mediumio

import (
	"errors"
	"fmt"
	"io"
)

// ErrEndOfMedium is raised when the underlying device signals it can accept
// no further bytes. The canonical signal from raw tape drivers is a
// completed write that reports zero bytes written with no error; some
// drivers instead report a zero-byte write paired with an error. Both
// surface here as ErrEndOfMedium so callers never need to special-case the
// driver. An error that comes with a non-zero byte count is returned as is.
var ErrEndOfMedium = errors.New("mediumio: end of medium")

// RawWriter is the capability MediumFile requires of the real device, file,
// or test double it wraps. It is intentionally narrower than io.Writer: a
// raw device is permitted to return (0, nil) to mean "no space left",
// which io.Writer's contract forbids but which tape drivers do in practice.
type RawWriter interface {
	Write(p []byte) (n int, err error)
}

// Syncer is implemented by writers that can force data to stable storage.
// *os.File satisfies it.
type Syncer interface {
	Sync() error
}

// MediumFile wraps a RawWriter and enforces the policy in spec §4.2: any
// write loop that produces a completed, error-free write of zero bytes is
// end-of-medium, not a no-op to retry. Short writes that made forward
// progress are resubmitted until the buffer drains or a real error occurs.
type MediumFile struct {
	w       RawWriter
	closer  io.Closer
	written int64
}

// Wrap constructs a MediumFile directly from an already-open RawWriter.
// If w also implements io.Closer, Close will close it.
func Wrap(w RawWriter) *MediumFile {
	mf := &MediumFile{w: w}
	if c, ok := w.(io.Closer); ok {
		mf.closer = c
	}
	return mf
}

// Write drains buf into the underlying device, translating a completed
// zero-byte write into ErrEndOfMedium per spec §4.2.
func (m *MediumFile) Write(buf []byte) (int, error) {
	total := 0
	for len(buf) > 0 {
		n, err := m.w.Write(buf)
		if n == 0 && err == nil {
			return total, ErrEndOfMedium
		}
		total += n
		m.written += int64(n)
		buf = buf[n:]
		if err != nil {
			if n == 0 {
				// Some drivers signal EOT as a zero-progress error rather
				// than (0, nil); treat ENOSPC-shaped errors the same way.
				return total, fmt.Errorf("%w: %v", ErrEndOfMedium, err)
			}
			return total, err
		}
	}
	return total, nil
}

// Sync forces any buffered bytes to the physical device, if the underlying
// writer supports it.
func (m *MediumFile) Sync() error {
	if s, ok := m.w.(Syncer); ok {
		return s.Sync()
	}
	return nil
}

// Close releases the underlying device.
func (m *MediumFile) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// BytesWritten returns the number of bytes successfully accepted by the
// device so far (ciphertext bytes, since MediumFile sits below the cipher).
func (m *MediumFile) BytesWritten() int64 {
	return m.written
}
