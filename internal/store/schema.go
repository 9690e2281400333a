package store

import "database/sql"

// schemaV1 is the full current-version schema. Migrations beyond this
// point should be expressed as additive ALTER/CREATE statements guarded
// by the migrations table, not by editing this literal.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS migrations (
	version    INTEGER PRIMARY KEY,
	applied_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS libraries (
	id             TEXT PRIMARY KEY,
	identifier     TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	org            TEXT NOT NULL,
	project        TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	repository_url TEXT NOT NULL DEFAULT '',
	homepage_url   TEXT NOT NULL DEFAULT '',
	trust_score    INTEGER NOT NULL DEFAULT 5,
	keywords_json  TEXT NOT NULL DEFAULT '[]',
	topics_json    TEXT NOT NULL DEFAULT '[]',
	rules_json     TEXT NOT NULL DEFAULT '[]',
	source_path    TEXT NOT NULL DEFAULT '',
	metadata_json  TEXT NOT NULL DEFAULT '{}',
	created_ms     INTEGER NOT NULL,
	updated_ms     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_libraries_identifier ON libraries(identifier);

CREATE TABLE IF NOT EXISTS versions (
	id                 TEXT PRIMARY KEY,
	library_id         TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
	version_string     TEXT NOT NULL,
	version_normalized TEXT NOT NULL,
	is_latest          INTEGER NOT NULL DEFAULT 0,
	is_deprecated      INTEGER NOT NULL DEFAULT 0,
	document_count     INTEGER NOT NULL DEFAULT 0,
	git_commit_sha     TEXT NOT NULL DEFAULT '',
	release_date_ms    INTEGER NOT NULL DEFAULT 0,
	indexed_ms         INTEGER NOT NULL DEFAULT 0,
	updated_ms         INTEGER NOT NULL DEFAULT 0,
	UNIQUE(library_id, version_string)
);
CREATE INDEX IF NOT EXISTS idx_versions_library_id_version ON versions(library_id, version_string);
CREATE INDEX IF NOT EXISTS idx_versions_library_id_latest ON versions(library_id, is_latest) WHERE is_latest = 1;

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	library_id   TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
	version_id   TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	tokens       INTEGER NOT NULL DEFAULT 0,
	source_type  TEXT NOT NULL DEFAULT '',
	source_path  TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT 'en',
	indexed_ms   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_version_id ON documents(version_id);
CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);

CREATE TABLE IF NOT EXISTS snippets (
	id               TEXT PRIMARY KEY,
	library_id       TEXT NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
	version_id       TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL DEFAULT '',
	source_file      TEXT NOT NULL DEFAULT '',
	source_type      TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	code_blocks_json TEXT NOT NULL DEFAULT '[]',
	topics_json      TEXT NOT NULL DEFAULT '[]',
	has_code         INTEGER NOT NULL DEFAULT 0,
	code_block_count INTEGER NOT NULL DEFAULT 0,
	tokens           INTEGER NOT NULL DEFAULT 0,
	quality_score    REAL NOT NULL DEFAULT 0,
	updated_ms       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_snippets_library_id ON snippets(library_id);
CREATE INDEX IF NOT EXISTS idx_snippets_version_id ON snippets(version_id);

CREATE TABLE IF NOT EXISTS indexing_jobs (
	id                  TEXT PRIMARY KEY,
	library_id          TEXT NOT NULL,
	version_id          TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	total_documents     INTEGER NOT NULL DEFAULT 0,
	processed_documents INTEGER NOT NULL DEFAULT 0,
	failed_documents    INTEGER NOT NULL DEFAULT 0,
	error               TEXT NOT NULL DEFAULT '',
	started_ms          INTEGER NOT NULL DEFAULT 0,
	completed_ms        INTEGER NOT NULL DEFAULT 0,
	metadata_json       TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_indexing_jobs_library_id ON indexing_jobs(library_id);
`

// migrate brings db to CurrentSchemaVersion. With strategy
// MigrationManual it refuses to proceed when the database records a
// version below CurrentSchemaVersion; a database with no recorded
// version gets the schema applied under either strategy. With
// MigrationAuto (the default) it applies the schema idempotently, since
// schemaV1 is entirely `IF NOT EXISTS`.
func migrate(db *sql.DB, strategy MigrationStrategy) error {
	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM migrations`)
	// migrations table may not exist yet; ignore the error on first run.
	_ = row.Scan(&current)

	if strategy == MigrationManual && current != 0 && current < CurrentSchemaVersion {
		return errSchemaOutOfDate
	}

	if _, err := db.Exec(schemaV1); err != nil {
		return err
	}

	if current < CurrentSchemaVersion {
		if _, err := db.Exec(`INSERT OR REPLACE INTO migrations(version, applied_ms) VALUES (?, ?)`,
			CurrentSchemaVersion, nowMs()); err != nil {
			return err
		}
	}
	return nil
}
