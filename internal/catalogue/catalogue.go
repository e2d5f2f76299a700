// Package catalogue is the transactional index described in spec §6: a
// small sqlite-backed store recording which source files are durably
// present on which volume. It is a direct translation of the original
// db.py's generic insert/select helpers plus the backup/partial_backup/
// backed_up_files bookkeeping tables.
package catalogue

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Stefan-Code/aestar/internal/walker"
)

// InsertMode selects SQLite's conflict-resolution clause, matching the
// cmd parameter threaded through the original's insert().
type InsertMode string

const (
	Insert          InsertMode = "INSERT"
	InsertOrIgnore  InsertMode = "INSERT OR IGNORE"
	InsertOrReplace InsertMode = "INSERT OR REPLACE"
)

// Catalogue owns one sqlite connection for the lifetime of a backup run.
// Spec §5 assigns it exclusively to the BackupDriver: no other component
// touches the database handle.
type Catalogue struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite catalogue at path and
// ensures its schema exists.
func Open(path string) (*Catalogue, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalogue: open %q: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalogue: create schema: %w", err)
	}
	return &Catalogue{db: db}, nil
}

// Close closes the underlying database handle.
func (c *Catalogue) Close() error { return c.db.Close() }

// Insert runs a generic parameterized insert, mirroring the original's
// insert(data, table, cursor, cmd) helper, and returns the new row id.
func (c *Catalogue) Insert(data map[string]any, table string, mode InsertMode) (int64, error) {
	keys := make([]string, 0, len(data))
	values := make([]any, 0, len(data))
	for k, v := range data {
		keys = append(keys, k)
		values = append(values, v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", mode, table, strings.Join(keys, ","), placeholders)
	res, err := c.db.Exec(query, values...)
	if err != nil {
		return 0, fmt.Errorf("catalogue: insert into %s: %w", table, err)
	}
	return res.LastInsertId()
}

// Select runs a generic AND-conjunction equality select, mirroring the
// original's select(data, table, cursor, selection) helper.
func (c *Catalogue) Select(data map[string]any, table, selection string) (*sql.Rows, error) {
	if selection == "" {
		selection = "*"
	}
	keys := make([]string, 0, len(data))
	values := make([]any, 0, len(data))
	for k, v := range data {
		keys = append(keys, k+"=?")
		values = append(values, v)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selection, table, strings.Join(keys, " AND "))
	rows, err := c.db.Query(query, values...)
	if err != nil {
		return nil, fmt.Errorf("catalogue: select from %s: %w", table, err)
	}
	return rows, nil
}

// CreateBackup records a new top-level backup run and returns its id.
func (c *Catalogue) CreateBackup(path, absolutePath, level string, timestamp int64) (int64, error) {
	return c.Insert(map[string]any{
		"path":          path,
		"absolute_path": absolutePath,
		"level":         level,
		"timestamp":     timestamp,
	}, "backup", Insert)
}

// CreatePartialBackup records the start of one volume's slice of a backup
// and returns its id.
func (c *Catalogue) CreatePartialBackup(backupID int64, volume string, tapeFileIndex int, timestamp int64) (int64, error) {
	return c.Insert(map[string]any{
		"parent_id":       backupID,
		"volume":          volume,
		"tape_file_index": tapeFileIndex,
		"timestamp":       timestamp,
	}, "partial_backup", Insert)
}

// CompletePartialBackup stamps a partial_backup row with its final file
// and byte counts once the volume is closed.
func (c *Catalogue) CompletePartialBackup(partialBackupID, numFiles, numBytes, completedAt int64) error {
	_, err := c.db.Exec(
		`UPDATE partial_backup SET num_files = ?, num_bytes = ?, timestamp_completed = ? WHERE id = ?`,
		numFiles, numBytes, completedAt, partialBackupID,
	)
	if err != nil {
		return fmt.Errorf("catalogue: complete partial backup %d: %w", partialBackupID, err)
	}
	return nil
}

// RecordBackedUpFile links a file record to the partial backup it landed
// in — the commit_hook's ultimate write, per spec §6.
func (c *Catalogue) RecordBackedUpFile(fileID, partialBackupID int64) error {
	_, err := c.Insert(map[string]any{
		"file_id":            fileID,
		"partial_backup_id":  partialBackupID,
	}, "backed_up_files", InsertOrIgnore)
	return err
}

// UpsertVolume records a volume's usage, creating the row on first sight.
func (c *Catalogue) UpsertVolume(voltag string, full bool, volBytes int64, numTapeFiles int) error {
	_, err := c.db.Exec(`
		INSERT INTO volumes (voltag, full, vol_bytes, num_tape_files) VALUES (?, ?, ?, ?)
		ON CONFLICT(voltag) DO UPDATE SET full = excluded.full, vol_bytes = excluded.vol_bytes, num_tape_files = excluded.num_tape_files
	`, voltag, boolToInt(full), volBytes, numTapeFiles)
	if err != nil {
		return fmt.Errorf("catalogue: upsert volume %q: %w", voltag, err)
	}
	return nil
}

// InsertFile records a walked file's identity and stat fields, matching
// the PreAddHook role in spec §4.7's pseudocode ("catalogue insert OR
// IGNORE"). It returns the file's row id, looking up an existing row via
// Select when the insert is ignored due to the (path, st_ino, sha1)
// uniqueness constraint.
func (c *Catalogue) InsertFile(fi walker.FileInfo) (int64, error) {
	data := map[string]any{
		"path":     fi.Path(),
		"st_ino":   int64(fi.Ino),
		"is_dir":   boolToInt(fi.IsDir),
		"st_mode":  int64(fi.Mode),
		"st_dev":   int64(fi.Dev),
		"st_nlink": int64(fi.Nlink),
		"st_uid":   int64(fi.UID),
		"st_gid":   int64(fi.GID),
		"st_size":  fi.Size,
		"st_atime": fi.Atime,
		"st_mtime": fi.Mtime,
		"st_ctime": fi.Ctime,
	}
	if fi.SHA1 != nil {
		data["sha1"] = fi.SHA1
	}

	id, err := c.Insert(data, "files", InsertOrIgnore)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	// The row already existed (ignored insert, LastInsertId 0): look it
	// up by the same uniqueness key.
	lookup := map[string]any{"path": fi.Path(), "st_ino": int64(fi.Ino)}
	if fi.SHA1 != nil {
		lookup["sha1"] = fi.SHA1
	}
	rows, err := c.Select(lookup, "files", "id")
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, errors.New("catalogue: inserted-or-ignored file row not found on lookup")
	}
	if err := rows.Scan(&id); err != nil {
		return 0, fmt.Errorf("catalogue: scan file id: %w", err)
	}
	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
