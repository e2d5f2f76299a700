// Package walker produces the filesystem-walker collaborator described in
// spec §6: it emits one FileInfo per entry under a root directory,
// carrying stat fields and (for regular files) a SHA-1 checksum, onto a
// channel the backup driver's RestartableQueue drains, closing the
// channel once the tree is exhausted (the Go idiom for the original's
// sentinel value).
package walker

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Stefan-Code/aestar/internal/logging"
)

// FileInfo mirrors the original FileInfo.from_file: stat fields plus a
// content checksum for regular files. Path() and Arcname() let it satisfy
// backupdriver.Item directly.
type FileInfo struct {
	SourcePath  string
	ArchiveName string

	Mode  uint32
	Dev   uint64
	Nlink uint64
	UID   uint32
	GID   uint32
	Size  int64
	Atime int64
	Mtime int64
	Ctime int64
	Ino   uint64

	IsDir bool
	SHA1  []byte // nil for directories and non-regular files
}

// Path satisfies backupdriver.Item.
func (fi FileInfo) Path() string { return fi.SourcePath }

// Arcname satisfies backupdriver.Item.
func (fi FileInfo) Arcname() string { return fi.ArchiveName }

// SHA1Hex returns the hex-encoded checksum, or "" if none was computed.
func (fi FileInfo) SHA1Hex() string {
	if fi.SHA1 == nil {
		return ""
	}
	return hex.EncodeToString(fi.SHA1)
}

// Options configures a Walk.
type Options struct {
	// IncludeHidden includes dotfiles and dot-directories.
	IncludeHidden bool
	// ComputeChecksums enables the SHA-1 pass over each regular file.
	// Disabling it trades catalogue dedup fidelity for walk speed.
	ComputeChecksums bool
	// ChannelBuffer sizes the output channel; 0 uses a sane default.
	ChannelBuffer int
	// Filter, when non-nil, is called for every candidate entry; returning
	// true excludes the entry (and, for a directory, its entire subtree),
	// mirroring the original FileFilter's drop-matching-items callback.
	Filter func(path string, d os.DirEntry) bool
}

const defaultChannelBuffer = 256

// Walk starts a background goroutine that walks root and sends a FileInfo
// for every included entry on the returned channel, closing it when the
// walk completes (successfully or with an error) and sending any error to
// errs (buffered, capacity 1). The caller should range over the channel
// and then check errs once it closes.
func Walk(ctx context.Context, root string, opts Options, log *logging.Logger) (<-chan FileInfo, <-chan error) {
	bufSize := opts.ChannelBuffer
	if bufSize <= 0 {
		bufSize = defaultChannelBuffer
	}
	out := make(chan FileInfo, bufSize)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				if log != nil {
					log.Warnf("walker: skipping %q: %v", path, err)
				}
				return nil
			}
			name := d.Name()
			if !opts.IncludeHidden && isHiddenName(name) && path != root {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if opts.Filter != nil && opts.Filter(path, d) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			fi, ferr := fromDirEntry(path, d, opts.ComputeChecksums)
			if ferr != nil {
				if log != nil {
					log.Warnf("walker: stat failed for %q: %v", path, ferr)
				}
				return nil
			}

			rel, rerr := filepath.Rel(root, path)
			if rerr == nil && rel != "." {
				fi.ArchiveName = filepath.ToSlash(rel)
			} else {
				fi.ArchiveName = filepath.ToSlash(filepath.Base(path))
			}

			select {
			case out <- fi:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		errs <- err
		close(errs)
	}()

	return out, errs
}

func isHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

func fromDirEntry(path string, d os.DirEntry, computeChecksum bool) (FileInfo, error) {
	info, err := d.Info()
	if err != nil {
		return FileInfo{}, err
	}
	fi := FileInfo{
		SourcePath: path,
		Size:       info.Size(),
		Mode:       uint32(info.Mode()),
		IsDir:      d.IsDir(),
		Mtime:      info.ModTime().Unix(),
	}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		fi.Dev = uint64(sys.Dev)
		fi.Ino = sys.Ino
		fi.Nlink = uint64(sys.Nlink)
		fi.UID = sys.Uid
		fi.GID = sys.Gid
		fi.Atime = sys.Atim.Sec
		fi.Ctime = sys.Ctim.Sec
	}
	if !d.IsDir() && info.Mode().IsRegular() && computeChecksum {
		sum, err := checksum(path)
		if err != nil {
			return FileInfo{}, err
		}
		fi.SHA1 = sum
	}
	return fi, nil
}

// checksum matches the original's chunked hashlib.sha1 read loop.
func checksum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
