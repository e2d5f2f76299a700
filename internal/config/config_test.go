package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Stefan-Code/aestar/internal/archive"
)

func validConfig(t *testing.T, dir string) BackupConfig {
	t.Helper()
	cfg := Defaults()
	cfg.Directory = dir
	cfg.ArchiveFile = filepath.Join(dir, "out.aes")
	cfg.PassphraseFile = filepath.Join(dir, "pw")
	cfg.DatabaseFile = filepath.Join(dir, "cat.sqlite")
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig(t, dir)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsRelativeDirectory(t *testing.T) {
	cfg := validConfig(t, t.TempDir())
	cfg.Directory = "relative/path"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for relative directory")
	}
}

func TestValidateRejectsUnalignedBufSize(t *testing.T) {
	cfg := validConfig(t, t.TempDir())
	cfg.BufSize = 513
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bufsize not a multiple of sector size")
	}
}

func TestValidateRejectsBadSectorSize(t *testing.T) {
	cfg := validConfig(t, t.TempDir())
	cfg.SectorSize = 15 // not a multiple of aes.BlockSize
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-block-aligned sector size")
	}
}

func TestValidateRejectsUnknownCompression(t *testing.T) {
	cfg := validConfig(t, t.TempDir())
	cfg.Compression = archive.Compression("xz")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported compression")
	}
}

func TestApplyIniDefaultsOverridesUnsetFields(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "aestar.ini")
	body := "[aestar]\nbufsize = 262144\nsync = false\ncompression = gz\n"
	if err := os.WriteFile(iniPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := ApplyIniDefaults(&cfg, iniPath); err != nil {
		t.Fatalf("ApplyIniDefaults: %v", err)
	}
	if cfg.BufSize != 262144 {
		t.Errorf("BufSize = %d, want 262144", cfg.BufSize)
	}
	if cfg.Sync {
		t.Error("Sync should have been overridden to false")
	}
	if cfg.Compression != archive.CompressionGzip {
		t.Errorf("Compression = %q, want gz", cfg.Compression)
	}
}

func TestApplyIniDefaultsEmptyPathIsNoOp(t *testing.T) {
	cfg := Defaults()
	before := cfg
	if err := ApplyIniDefaults(&cfg, ""); err != nil {
		t.Fatalf("ApplyIniDefaults: %v", err)
	}
	if cfg != before {
		t.Error("expected no changes for empty ini path")
	}
}

func TestReadPassphraseFileStripsTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pw")
	if err := os.WriteFile(path, []byte("correcthorsebatterystaple\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pw, err := ReadPassphraseFile(path)
	if err != nil {
		t.Fatalf("ReadPassphraseFile: %v", err)
	}
	if string(pw) != "correcthorsebatterystaple" {
		t.Errorf("passphrase = %q, want no trailing newline", pw)
	}
}

func TestReadPassphraseFileRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pw")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPassphraseFile(path); err == nil {
		t.Fatal("expected error for empty passphrase file")
	}
}

func TestPassphraseWarningShortPassphrase(t *testing.T) {
	if w := PassphraseWarning([]byte("short")); w == "" {
		t.Error("expected a warning for a short passphrase")
	}
	if w := PassphraseWarning([]byte("this-is-twenty-chars")); w != "" {
		t.Errorf("expected no warning for a 20-byte passphrase, got %q", w)
	}
}
