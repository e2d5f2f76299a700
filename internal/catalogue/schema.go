package catalogue

// StatFields lists the stat(2) fields persisted alongside every file
// record, matching the original db.py's stat_fields list.
var StatFields = []string{"mode", "dev", "nlink", "uid", "gid", "size", "atime", "mtime", "ctime"}

func schemaSQL() string {
	return `
CREATE TABLE IF NOT EXISTS files (
	id          INTEGER PRIMARY KEY,
	path        TEXT NOT NULL,
	st_ino      INTEGER NOT NULL,
	sha1        BLOB,
	is_dir      INTEGER,
	st_mode     INTEGER,
	st_dev      INTEGER,
	st_nlink    INTEGER,
	st_uid      INTEGER,
	st_gid      INTEGER,
	st_size     INTEGER,
	st_atime    INTEGER,
	st_mtime    INTEGER,
	st_ctime    INTEGER,
	UNIQUE(path, st_ino, sha1)
);
CREATE INDEX IF NOT EXISTS file_index ON files (sha1, path, st_ino);

CREATE TABLE IF NOT EXISTS volumes (
	voltag         TEXT PRIMARY KEY,
	full           INTEGER DEFAULT 0,
	error          INTEGER DEFAULT 0,
	access         INTEGER DEFAULT 1,
	vol_bytes      INTEGER DEFAULT 0,
	num_tape_files INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS backup (
	id            INTEGER PRIMARY KEY,
	path          TEXT NOT NULL,
	absolute_path TEXT,
	level         TEXT,
	timestamp     INTEGER
);

CREATE TABLE IF NOT EXISTS partial_backup (
	id                   INTEGER PRIMARY KEY,
	parent_id            INTEGER NOT NULL,
	volume               TEXT NOT NULL,
	tape_file_index      INTEGER,
	num_files            INTEGER,
	num_bytes            INTEGER,
	timestamp            INTEGER,
	timestamp_completed  INTEGER,
	FOREIGN KEY(parent_id) REFERENCES backup(id)
);

CREATE TABLE IF NOT EXISTS backed_up_files (
	file_id            INTEGER NOT NULL,
	partial_backup_id  INTEGER NOT NULL,
	FOREIGN KEY(partial_backup_id) REFERENCES partial_backup(id),
	FOREIGN KEY(file_id) REFERENCES files(id),
	PRIMARY KEY(file_id, partial_backup_id)
);
`
}
