package config

import (
	"crypto/aes"
	"fmt"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/Stefan-Code/aestar/internal/archive"
	"github.com/Stefan-Code/aestar/internal/constants"
	"github.com/Stefan-Code/aestar/internal/validation"
)

// BackupConfig holds every flag the backup subcommand accepts, per spec §6
// ("CLI surface") plus the Go-native testability additions spec §9 calls
// for. It is populated by cmd/aestar's cobra flags, not read directly from
// argv, so it stays independent of any particular flag library.
type BackupConfig struct {
	Directory        string // positional, must be absolute
	ArchiveFile      string // --file/-f
	PassphraseFile   string // --passphrase-file/-P
	DatabaseFile     string // --database-file
	Compression      archive.Compression // --compression/-z
	Verbosity        int                 // -v count
	LogFile          string              // --logfile
	BufSize          int                 // --bufsize
	SectorSize       int                 // --sector-size
	Sync             bool                // --sync
	Pad              bool                // --pad
	ChangerDevice    string              // --changer-device
	FlushCompressOnAdd bool              // --flush-on-add, spec §9 open question (i)
}

// Defaults returns a BackupConfig with every non-required field set to its
// documented default, ready to be overlaid by INI then flag values.
func Defaults() BackupConfig {
	return BackupConfig{
		DatabaseFile: "aestar.sqlite",
		BufSize:      constants.DefaultBufSize,
		SectorSize:   constants.SectorSize,
		Sync:         true,
		Pad:          true,
	}
}

// ApplyIniDefaults overlays every key present in an aestar.ini file onto cfg,
// replacing the value cfg holds; it does not know which fields came from
// flags, so cmd/aestar sets command-line flags again afterwards. ini.v1 mirrors the
// teacher's own internal/config/apiconfig.go use of gopkg.in/ini.v1 for
// %USERPROFILE%\.config-style defaults; here it backs a single
// [aestar] section instead of the teacher's [rescale]/[interlink...] ones.
func ApplyIniDefaults(cfg *BackupConfig, path string) error {
	if path == "" {
		return nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("config: load ini %q: %w", path, err)
	}
	sec := f.Section("aestar")
	if sec.HasKey("bufsize") {
		cfg.BufSize = sec.Key("bufsize").MustInt(cfg.BufSize)
	}
	if sec.HasKey("sector_size") {
		cfg.SectorSize = sec.Key("sector_size").MustInt(cfg.SectorSize)
	}
	if sec.HasKey("sync") {
		cfg.Sync = sec.Key("sync").MustBool(cfg.Sync)
	}
	if sec.HasKey("pad") {
		cfg.Pad = sec.Key("pad").MustBool(cfg.Pad)
	}
	if sec.HasKey("compression") {
		cfg.Compression = archive.Compression(sec.Key("compression").String())
	}
	if sec.HasKey("changer_device") {
		cfg.ChangerDevice = sec.Key("changer_device").String()
	}
	if sec.HasKey("database_file") {
		cfg.DatabaseFile = sec.Key("database_file").String()
	}
	return nil
}

// Validate checks the configuration error kind 1 ("Configuration error")
// from spec §7: unaligned buffer size, non-absolute directory, missing
// required collaborators. These are all reported before any I/O begins and
// are never locally recoverable.
func (c BackupConfig) Validate() error {
	if err := validation.ValidateDirectoryPath(c.Directory); err != nil {
		return fmt.Errorf("config: directory: %w", err)
	}
	if !filepath.IsAbs(c.Directory) {
		return fmt.Errorf("config: directory %q must be absolute", c.Directory)
	}
	if err := validation.ValidateFilePath(c.ArchiveFile); err != nil {
		return fmt.Errorf("config: --file: %w", err)
	}
	if err := validation.ValidateFilePath(c.PassphraseFile); err != nil {
		return fmt.Errorf("config: --passphrase-file: %w", err)
	}
	if err := validation.ValidateFilePath(c.DatabaseFile); err != nil {
		return fmt.Errorf("config: --database-file: %w", err)
	}
	if c.SectorSize <= 0 || c.SectorSize%aes.BlockSize != 0 {
		return fmt.Errorf("config: --sector-size %d must be a positive multiple of %d", c.SectorSize, aes.BlockSize)
	}
	if c.BufSize < constants.MinBufSize || c.BufSize%c.SectorSize != 0 {
		return fmt.Errorf("config: --bufsize %d must be a multiple of --sector-size %d and at least %d", c.BufSize, c.SectorSize, constants.MinBufSize)
	}
	switch c.Compression {
	case archive.CompressionNone, archive.CompressionGzip:
	default:
		return fmt.Errorf("config: --compression %q is not supported", c.Compression)
	}
	return nil
}
