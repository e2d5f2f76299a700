package mediumio

import (
	"errors"
	"fmt"

	"github.com/Stefan-Code/aestar/internal/sectorcipher"
	"github.com/Stefan-Code/aestar/internal/util/buffers"
)

// ErrUnalignedWrite is returned by EncryptedSink.Write when the supplied
// buffer is not a multiple of the sector size and pad is false.
var ErrUnalignedWrite = errors.New("mediumio: write length is not a multiple of the sector size and padding is disabled")

// SinkConfig configures a newly constructed EncryptedSink. SectorSize and
// BufSize mirror spec §3's EncryptedSink state; BufSize is the staging
// granularity the archive layer above the sink is expected to use and is
// validated here as a sector multiple, matching the original AESFile's
// `bufsize` constructor argument.
type SinkConfig struct {
	SectorSize int
	BufSize    int
	Pad        bool
	Sync       bool
}

// EncryptedSink is a single-writer byte sink that chunks, pads (optionally)
// and sector-encrypts its input before handing ciphertext to a MediumFile.
// It is the Go counterpart of the Python AESFile: one EncryptedSink is
// constructed per volume, and its sector index always starts at 0.
type EncryptedSink struct {
	medium     *MediumFile
	cipher     *sectorcipher.SectorCipher
	cfg        SinkConfig
	plainBytes int64
}

// NewEncryptedSink constructs a sink over an already-open MediumFile using a
// previously derived 16-byte key. Validates the sector-size/buffer-size
// relationship spec §9 calls for (sector size divides the buffer size).
func NewEncryptedSink(medium *MediumFile, key []byte, cfg SinkConfig) (*EncryptedSink, error) {
	if cfg.SectorSize <= 0 {
		cfg.SectorSize = sectorcipher.IVSize * 32 // 512, expressed without a magic literal
	}
	if cfg.BufSize <= 0 {
		cfg.BufSize = cfg.SectorSize
	}
	if cfg.BufSize%cfg.SectorSize != 0 {
		return nil, fmt.Errorf("mediumio: buffer size %d must be a multiple of sector size %d", cfg.BufSize, cfg.SectorSize)
	}
	sc, err := sectorcipher.New(key, cfg.SectorSize)
	if err != nil {
		return nil, err
	}
	return &EncryptedSink{medium: medium, cipher: sc, cfg: cfg}, nil
}

// Write accepts plaintext, pads it to a sector boundary if configured to do
// so, encrypts sector-by-sector and writes the ciphertext to the medium,
// flushing and (if configured) syncing afterward. It returns the number of
// plaintext bytes accepted — the pre-padding length, per spec §4.3 — not
// the number of ciphertext bytes written to the device.
func (s *EncryptedSink) Write(buf []byte) (int, error) {
	sectorSize := s.cfg.SectorSize
	plainLen := len(buf)

	var toEncrypt []byte
	if plainLen%sectorSize != 0 {
		if !s.cfg.Pad {
			return 0, ErrUnalignedWrite
		}
		padded := plainLen + (sectorSize - plainLen%sectorSize)
		toEncrypt = make([]byte, padded)
		copy(toEncrypt, buf)
	} else {
		toEncrypt = buf
	}

	cipherBuf := buffers.GetStagingBuffer(len(toEncrypt))
	defer buffers.PutStagingBuffer(cipherBuf)
	ciphertext := (*cipherBuf)[:len(toEncrypt)]

	if err := s.cipher.EncryptSectors(ciphertext, toEncrypt); err != nil {
		return 0, fmt.Errorf("mediumio: %w", err)
	}

	if _, err := s.medium.Write(ciphertext); err != nil {
		return 0, err
	}

	if s.cfg.Sync {
		if err := s.medium.Sync(); err != nil {
			return 0, fmt.Errorf("mediumio: sync failed: %w", err)
		}
	}

	s.plainBytes += int64(plainLen)
	return plainLen, nil
}

// Tell returns the total plaintext bytes accepted so far. Per spec §4.3 this
// equals durable bytes on the medium except after a padded final write,
// where durable bytes exceed Tell() by the pad length.
func (s *EncryptedSink) Tell() int64 {
	return s.plainBytes
}

// Close closes the underlying medium. No trailer or final padding is
// written here; the archive layer owns trailer semantics.
func (s *EncryptedSink) Close() error {
	return s.medium.Close()
}

// SectorSize returns the sink's configured sector size.
func (s *EncryptedSink) SectorSize() int {
	return s.cfg.SectorSize
}
