package sectorcipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"testing"
)

func TestDeriveKeyMatchesAespipe(t *testing.T) {
	passphrase := []byte("correct horse battery staple!!!")
	key := DeriveKey(passphrase)
	if len(key) != KeySize {
		t.Fatalf("expected %d byte key, got %d", KeySize, len(key))
	}
	sum := sha256.Sum256(passphrase)
	if !bytes.Equal(key, sum[:KeySize]) {
		t.Errorf("key does not match upper %d bytes of SHA-256 digest", KeySize)
	}
}

func TestEncryptSectorMatchesReferenceCBC(t *testing.T) {
	key := DeriveKey([]byte("some passphrase"))
	sc, err := New(key, 512)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	plaintext := bytes.Repeat([]byte{0x42}, 512)
	got := make([]byte, 512)
	if err := sc.EncryptSector(got, plaintext); err != nil {
		t.Fatalf("EncryptSector() failed: %v", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher() failed: %v", err)
	}
	iv := make([]byte, IVSize) // sector 0 -> all-zero IV
	want := make([]byte, 512)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, plaintext)

	if !bytes.Equal(got, want) {
		t.Errorf("sector 0 ciphertext mismatch:\ngot  %x\nwant %x", got, want)
	}
	if sc.Sector() != 1 {
		t.Errorf("expected sector counter to advance to 1, got %d", sc.Sector())
	}
}

func TestSectorIVIsLittleEndianCounter(t *testing.T) {
	cases := []struct {
		sector uint64
		want   byte
	}{
		{0, 0x00},
		{1, 0x01},
		{255, 0xff},
		{256, 0x00}, // carries into the second byte
	}
	for _, c := range cases {
		iv := sectorIV(c.sector)
		if iv[0] != c.want {
			t.Errorf("sector %d: iv[0] = %#x, want %#x", c.sector, iv[0], c.want)
		}
	}
	// 256 must carry into the second byte.
	iv := sectorIV(256)
	if iv[1] != 0x01 {
		t.Errorf("sector 256: iv[1] = %#x, want 0x01", iv[1])
	}
}

func TestEncryptingTwoSectorsDoesNotChain(t *testing.T) {
	key := DeriveKey([]byte("another passphrase here"))
	sc, err := New(key, 512)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	plaintext := bytes.Repeat([]byte{0x11}, 512)
	first := make([]byte, 512)
	second := make([]byte, 512)
	if err := sc.EncryptSector(first, plaintext); err != nil {
		t.Fatalf("EncryptSector() sector 0 failed: %v", err)
	}
	if err := sc.EncryptSector(second, plaintext); err != nil {
		t.Fatalf("EncryptSector() sector 1 failed: %v", err)
	}

	// Re-derive sector 1 independently from a fresh cipher seeded directly
	// at sector 1: if sectors chained, this would not match `second`.
	sc2, err := New(key, 512)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	sc2.sector = 1
	independent := make([]byte, 512)
	if err := sc2.EncryptSector(independent, plaintext); err != nil {
		t.Fatalf("EncryptSector() independent sector 1 failed: %v", err)
	}
	if !bytes.Equal(second, independent) {
		t.Errorf("sector 1 ciphertext depends on prior sector 0 encryption, expected independence")
	}
}

func TestEncryptSectorsRejectsUnalignedInput(t *testing.T) {
	sc, err := New(DeriveKey([]byte("passphrase")), 512)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := sc.EncryptSectors(make([]byte, 512), make([]byte, 511)); err == nil {
		t.Errorf("expected error for buffer not a multiple of sector size")
	}
}

func TestNewRejectsBadSectorSize(t *testing.T) {
	key := DeriveKey([]byte("x"))
	if _, err := New(key, 0); err == nil {
		t.Errorf("expected error for zero sector size")
	}
	if _, err := New(key, 17); err == nil {
		t.Errorf("expected error for sector size not a multiple of the AES block size")
	}
}

func TestNewRejectsWrongKeySize(t *testing.T) {
	if _, err := New(make([]byte, 8), 512); err == nil {
		t.Errorf("expected error for short key")
	}
}
