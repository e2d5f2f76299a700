// Package sectorcipher implements the aespipe single-key-mode compatible
// per-sector AES-128-CBC cipher used to encrypt tape volumes.
//
// Every sector is encrypted independently: the IV is the sector's index
// encoded as a 16-byte little-endian integer, and no ciphertext chains
// across sector boundaries. This matches aespipe's own construction
// (`AES.new(key, AES.MODE_CBC, IV=sector.to_bytes(16, 'little'))`) rather
// than the cross-part CBC chaining a generic streaming encryptor would use,
// because a tape volume must support restarting a backup mid-volume: any
// sector can be independently re-derived as long as its index is known.
package sectorcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
)

// KeySize is the AES-128 key size in bytes.
const KeySize = 16

// IVSize is the CBC block size used to build the per-sector IV.
const IVSize = aes.BlockSize

// MinPassphraseLength is the length below which aespipe's own
// documentation warns the derived key may be weaker than intended.
// aestar does not refuse short passphrases, only warns (see
// internal/config), matching the original implementation's behavior.
const MinPassphraseLength = 20

// DeriveKey derives the AES-128 key aespipe uses in single-key mode: the
// upper 16 bytes of the SHA-256 digest of the passphrase.
func DeriveKey(passphrase []byte) []byte {
	sum := sha256.Sum256(passphrase)
	key := make([]byte, KeySize)
	copy(key, sum[:KeySize])
	return key
}

// SectorCipher encrypts fixed-size sectors with a monotonically increasing
// sector index. It is not safe for concurrent use; callers serialize access
// through EncryptedSink.
type SectorCipher struct {
	block      cipher.Block
	sectorSize int
	sector     uint64
}

// New constructs a SectorCipher from a raw 16-byte key and the configured
// sector size (usually constants.SectorSize, but configurable so tests can
// use small sectors).
func New(key []byte, sectorSize int) (*SectorCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sectorcipher: key must be %d bytes, got %d", KeySize, len(key))
	}
	if sectorSize <= 0 || sectorSize%aes.BlockSize != 0 {
		return nil, fmt.Errorf("sectorcipher: sector size %d must be a positive multiple of %d", sectorSize, aes.BlockSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sectorcipher: %w", err)
	}
	return &SectorCipher{block: block, sectorSize: sectorSize}, nil
}

// NewFromPassphrase is a convenience constructor that derives the key first.
func NewFromPassphrase(passphrase []byte, sectorSize int) (*SectorCipher, error) {
	return New(DeriveKey(passphrase), sectorSize)
}

// SectorSize returns the configured sector size.
func (c *SectorCipher) SectorSize() int { return c.sectorSize }

// Sector returns the index of the next sector to be encrypted.
func (c *SectorCipher) Sector() uint64 { return c.sector }

// sectorIV builds the 16-byte little-endian IV for the given sector index,
// matching Python's `sector.to_bytes(16, byteorder='little')`.
func sectorIV(sector uint64) []byte {
	iv := make([]byte, IVSize)
	for i := 0; i < 8 && i < IVSize; i++ {
		iv[i] = byte(sector >> (8 * i))
	}
	return iv
}

// EncryptSector encrypts exactly one sector's worth of plaintext and
// advances the internal sector counter. dst and src may overlap exactly
// (in-place encryption) but dst must be at least len(src) long; src must be
// a multiple of the AES block size (callers pad at the tape layer, not here).
func (c *SectorCipher) EncryptSector(dst, src []byte) error {
	if len(src)%aes.BlockSize != 0 {
		return fmt.Errorf("sectorcipher: sector payload length %d is not a multiple of block size %d", len(src), aes.BlockSize)
	}
	if len(dst) < len(src) {
		return fmt.Errorf("sectorcipher: destination buffer too small")
	}
	mode := cipher.NewCBCEncrypter(c.block, sectorIV(c.sector))
	mode.CryptBlocks(dst[:len(src)], src)
	c.sector++
	return nil
}

// EncryptSectors encrypts a buffer whose length is an exact multiple of the
// configured sector size, re-keying the CBC IV at every sector boundary.
// It is the bulk counterpart to EncryptSector used by EncryptedSink.
func (c *SectorCipher) EncryptSectors(dst, src []byte) error {
	if len(src)%c.sectorSize != 0 {
		return fmt.Errorf("sectorcipher: buffer length %d is not a multiple of sector size %d", len(src), c.sectorSize)
	}
	if len(dst) < len(src) {
		return fmt.Errorf("sectorcipher: destination buffer too small")
	}
	for off := 0; off < len(src); off += c.sectorSize {
		if err := c.EncryptSector(dst[off:off+c.sectorSize], src[off:off+c.sectorSize]); err != nil {
			return err
		}
	}
	return nil
}
