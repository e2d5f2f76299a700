package archive

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"

	"github.com/Stefan-Code/aestar/internal/mediumio"
)

// ErrWriterDead is returned by any ArchiveWriter operation called after the
// writer has hit end-of-medium or been cancelled. Per spec §4.4, the writer
// is dead the moment end-of-medium is observed.
var ErrWriterDead = errors.New("archive: writer is dead (end-of-medium or cancelled)")

// ErrSanityViolation is the fatal error raised by Close when num_committed
// does not equal num_files, per spec §4.4/§7.4.
var ErrSanityViolation = errors.New("archive: sanity violation: num_committed != num_files at close")

// Compression selects the optional streaming compressor piped between the
// tar encoder and the staging buffer.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gz"
)

// WriterConfig configures a new ArchiveWriter.
type WriterConfig struct {
	BufSize     int
	Compression Compression
	// FlushOnAdd forces a full flush of the staging buffer (and, if a
	// compressor is active, its internal window) after every Add call.
	// This trades compression ratio for a strict (non-conservative)
	// committability guarantee — see spec §9 open question (i).
	FlushOnAdd bool
}

// sinkWriter adapts *mediumio.EncryptedSink to io.Writer so bufio.Writer can
// sit directly above it.
type sinkWriter struct{ sink *mediumio.EncryptedSink }

func (w sinkWriter) Write(p []byte) (int, error) { return w.sink.Write(p) }

// flusher is implemented by compressors that support a mid-stream flush
// without terminating the stream (klauspost/compress/gzip.Writer does).
type flusher interface {
	Flush() error
}

// countingWriter tracks cumulative bytes written to the tar stream's
// logical (pre-compression) target, for PendingRecord.TarLogicalOffset.
type countingWriter struct {
	w   io.Writer
	off int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.off += int64(n)
	return n, err
}

// ArchiveWriter streams a POSIX ustar archive through an optional streaming
// compressor into an EncryptedSink, buffering writes in a staging buffer
// whose fill level is the public "current_staging_fill" spec §9 asks for.
type ArchiveWriter struct {
	sink       *mediumio.EncryptedSink
	staging    *bufio.Writer
	compressor flusher
	counter    *countingWriter
	tw         *tar.Writer
	pending    PendingTracker
	numFiles   int
	cfg        WriterConfig
	dead       atomic.Bool
}

// NewArchiveWriter constructs an ArchiveWriter over sink. bufSize should
// match the EncryptedSink's configured buffer size so the staging buffer
// and the sink's padding granularity agree.
func NewArchiveWriter(sink *mediumio.EncryptedSink, cfg WriterConfig) (*ArchiveWriter, error) {
	if cfg.BufSize <= 0 {
		cfg.BufSize = sink.SectorSize()
	}
	staging := bufio.NewWriterSize(sinkWriter{sink: sink}, cfg.BufSize)

	aw := &ArchiveWriter{sink: sink, staging: staging, cfg: cfg}

	var compressedTarget io.Writer = staging
	switch cfg.Compression {
	case CompressionNone:
		// no-op
	case CompressionGzip:
		gz := gzip.NewWriter(staging)
		aw.compressor = gz
		compressedTarget = gz
	default:
		return nil, fmt.Errorf("archive: unsupported compression %q", cfg.Compression)
	}
	aw.counter = &countingWriter{w: compressedTarget}
	aw.tw = tar.NewWriter(aw.counter)
	return aw, nil
}

// CurrentStagingFill returns the number of bytes currently buffered in the
// tar staging buffer, not yet flushed toward the sink. This is the public
// contract spec §9 calls for in place of reflecting into a library-private
// field.
func (aw *ArchiveWriter) CurrentStagingFill() int {
	return aw.staging.Buffered()
}

// NumCommitted returns the number of archive members confirmed durable.
func (aw *ArchiveWriter) NumCommitted() int { return aw.pending.NumCommitted() }

// NumFiles returns the total number of members ever added.
func (aw *ArchiveWriter) NumFiles() int { return aw.numFiles }

// BytesWritten returns the plaintext byte offset accepted by the sink so
// far, for progress reporting against a volume's (eventually discovered)
// capacity.
func (aw *ArchiveWriter) BytesWritten() int64 { return aw.sink.Tell() }

// Add appends one file to the archive, per spec §4.4. On end-of-medium it
// purges pending once more, kills the writer via closeEarly, and returns
// the end-of-medium error unchanged (errors.Is(err, mediumio.ErrEndOfMedium)
// holds). Any other error also kills the writer and is returned wrapped with
// the path. arcname defaults to path when empty.
func (aw *ArchiveWriter) Add(path, arcname string) error {
	if aw.dead.Load() {
		return ErrWriterDead
	}
	if arcname == "" {
		arcname = path
	}

	aw.pending.Purge(aw.sink.Tell())

	if err := aw.addMember(path, arcname); err != nil {
		aw.pending.Purge(aw.sink.Tell())
		if errors.Is(err, mediumio.ErrEndOfMedium) {
			_ = aw.closeEarly()
			return err
		}
		_ = aw.closeEarly()
		return fmt.Errorf("archive: add %q: %w", path, err)
	}

	aw.numFiles++
	aw.pending.Append(PendingRecord{
		Seq:             aw.numFiles,
		BufferFill:       aw.CurrentStagingFill(),
		SinkBytesAtTime:  aw.sink.Tell(),
		TarLogicalOffset: aw.counter.off,
	})

	if aw.cfg.FlushOnAdd {
		if aw.compressor != nil {
			if err := aw.compressor.Flush(); err != nil {
				return fmt.Errorf("archive: flush compressor after add: %w", err)
			}
		}
		if err := aw.staging.Flush(); err != nil {
			if errors.Is(err, mediumio.ErrEndOfMedium) {
				_ = aw.closeEarly()
			}
			return err
		}
	}
	return nil
}

func (aw *ArchiveWriter) addMember(path, arcname string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = arcname

	if err := aw.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.Mode().IsRegular() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(aw.tw, f); err != nil {
			return err
		}
	}
	return nil
}

// AddFromFS is the same as Add but reads file content and metadata through
// fsys instead of the OS filesystem, for testing without touching disk.
func (aw *ArchiveWriter) AddFromFS(fsys fs.FS, path, arcname string) error {
	if aw.dead.Load() {
		return ErrWriterDead
	}
	if arcname == "" {
		arcname = path
	}
	aw.pending.Purge(aw.sink.Tell())

	err := func() error {
		info, err := fs.Stat(fsys, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = arcname
		if err := aw.tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := fsys.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(aw.tw, f); err != nil {
				return err
			}
		}
		return nil
	}()

	if err != nil {
		aw.pending.Purge(aw.sink.Tell())
		_ = aw.closeEarly()
		if errors.Is(err, mediumio.ErrEndOfMedium) {
			return err
		}
		return fmt.Errorf("archive: add %q: %w", path, err)
	}

	aw.numFiles++
	aw.pending.Append(PendingRecord{
		Seq:             aw.numFiles,
		BufferFill:       aw.CurrentStagingFill(),
		SinkBytesAtTime:  aw.sink.Tell(),
		TarLogicalOffset: aw.counter.off,
	})
	return nil
}

// Close flushes the tar trailer and any compressor tail, closes the sink,
// purges pending one final time, and asserts every member committed.
func (aw *ArchiveWriter) Close() error {
	if aw.dead.Load() {
		return ErrWriterDead
	}
	if err := aw.tw.Close(); err != nil {
		return fmt.Errorf("archive: close tar trailer: %w", err)
	}
	if aw.compressor != nil {
		if c, ok := aw.compressor.(io.Closer); ok {
			if err := c.Close(); err != nil {
				return fmt.Errorf("archive: close compressor: %w", err)
			}
		}
	}
	if err := aw.staging.Flush(); err != nil {
		return fmt.Errorf("archive: final staging flush: %w", err)
	}
	if err := aw.sink.Close(); err != nil {
		return fmt.Errorf("archive: close sink: %w", err)
	}
	aw.dead.Store(true)

	aw.pending.Purge(aw.sink.Tell())
	if aw.pending.NumCommitted() != aw.numFiles {
		return fmt.Errorf("%w: committed %d of %d files", ErrSanityViolation, aw.pending.NumCommitted(), aw.numFiles)
	}
	return nil
}

// closeEarly closes the underlying medium directly without flushing the
// tar trailer or internal buffers, per spec §4.4: writing further bytes to
// a full medium would only fail again.
func (aw *ArchiveWriter) closeEarly() error {
	if aw.dead.Swap(true) {
		return nil
	}
	return aw.sink.Close()
}

// Cancel is the external-cancellation counterpart to closeEarly: it marks
// the writer dead without attempting any further write, matching spec §9
// open question (ii) rather than poking at tar-library internals.
func (aw *ArchiveWriter) Cancel() error {
	return aw.closeEarly()
}
