package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/codex7/codex7/internal/model"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// errSchemaOutOfDate is returned by migrate() when MigrationManual finds
// a database below CurrentSchemaVersion.
var errSchemaOutOfDate = errors.New("database schema is out of date and migration_strategy is manual")

// SQLiteStore implements RelationalStore on top of modernc.org/sqlite in
// WAL mode. A single connection is used: SQLite serializes writers
// regardless of pool size, and per-library serialization is handled one
// layer up by the keyed mutex in locks.go.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

var _ RelationalStore = (*SQLiteStore)(nil)

// Open connects to the database at path (or an in-memory database when
// path is empty) and brings its schema to CurrentSchemaVersion per
// strategy.
func Open(path string, strategy MigrationStrategy) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, codex7err.StoragePermanent("failed to create database directory", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, codex7err.StoragePermanent("failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, codex7err.StoragePermanent("failed to configure database", err)
		}
	}

	if strategy == "" {
		strategy = MigrationAuto
	}
	if err := migrate(db, strategy); err != nil {
		_ = db.Close()
		if errors.Is(err, errSchemaOutOfDate) {
			return nil, codex7err.ConfigInvalid(err.Error(), err)
		}
		return nil, codex7err.StoragePermanent("failed to migrate schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// jsonMarshal serializes v for a *_json column. A marshal failure here
// means an invariant was broken upstream, so it degrades to "null"
// rather than propagating.
func jsonMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func jsonUnmarshalStrings(s string) []string {
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func jsonUnmarshalMap(s string) map[string]string {
	var out map[string]string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func jsonUnmarshalCodeBlocks(s string) []model.CodeBlock {
	var out []model.CodeBlock
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func classifyExecErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") {
		return codex7err.StoragePermanent("unique constraint violated", err)
	}
	return codex7err.StorageTransient("storage operation failed", err)
}

// --- Libraries ---

func (s *SQLiteStore) CreateLibrary(ctx context.Context, lib *model.Library) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO libraries (id, identifier, name, org, project, description, repository_url, homepage_url,
			trust_score, keywords_json, topics_json, rules_json, source_path, metadata_json, created_ms, updated_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lib.ID, lib.Identifier, lib.Name, lib.Org, lib.Project, lib.Description, lib.RepositoryURL, lib.HomepageURL,
		lib.TrustScore, jsonMarshal(lib.Keywords), jsonMarshal(lib.Topics), jsonMarshal(lib.Rules),
		lib.SourcePath, jsonMarshal(lib.Metadata), lib.CreatedMs, lib.UpdatedMs)
	return classifyExecErr(err)
}

func scanLibrary(row interface {
	Scan(dest ...any) error
}) (*model.Library, error) {
	var lib model.Library
	var keywords, topics, rules, metadata string
	err := row.Scan(&lib.ID, &lib.Identifier, &lib.Name, &lib.Org, &lib.Project, &lib.Description,
		&lib.RepositoryURL, &lib.HomepageURL, &lib.TrustScore, &keywords, &topics, &rules,
		&lib.SourcePath, &metadata, &lib.CreatedMs, &lib.UpdatedMs)
	if err != nil {
		return nil, err
	}
	lib.Keywords = jsonUnmarshalStrings(keywords)
	lib.Topics = jsonUnmarshalStrings(topics)
	lib.Rules = jsonUnmarshalStrings(rules)
	lib.Metadata = jsonUnmarshalMap(metadata)
	return &lib, nil
}

const librarySelectColumns = `id, identifier, name, org, project, description, repository_url, homepage_url,
	trust_score, keywords_json, topics_json, rules_json, source_path, metadata_json, created_ms, updated_ms`

func (s *SQLiteStore) GetLibrary(ctx context.Context, id string) (*model.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+librarySelectColumns+` FROM libraries WHERE id = ?`, id)
	lib, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("library not found", err).WithDetail("id", id)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load library", err)
	}
	return lib, nil
}

func (s *SQLiteStore) GetLibraryByIdentifier(ctx context.Context, identifier string) (*model.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+librarySelectColumns+` FROM libraries WHERE identifier = ?`, identifier)
	lib, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("library not found", err).WithDetail("identifier", identifier)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load library", err)
	}
	return lib, nil
}

func (s *SQLiteStore) ListLibraries(ctx context.Context, limit, offset int) ([]model.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+librarySelectColumns+` FROM libraries ORDER BY updated_ms DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, codex7err.StorageTransient("failed to list libraries", err)
	}
	defer rows.Close()

	var out []model.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, codex7err.StorageTransient("failed to scan library row", err)
		}
		out = append(out, *lib)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateLibrary(ctx context.Context, lib *model.Library) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE libraries SET name=?, org=?, project=?, description=?, repository_url=?, homepage_url=?,
			trust_score=?, keywords_json=?, topics_json=?, rules_json=?, source_path=?, metadata_json=?, updated_ms=?
		WHERE id=?`,
		lib.Name, lib.Org, lib.Project, lib.Description, lib.RepositoryURL, lib.HomepageURL,
		lib.TrustScore, jsonMarshal(lib.Keywords), jsonMarshal(lib.Topics), jsonMarshal(lib.Rules),
		lib.SourcePath, jsonMarshal(lib.Metadata), lib.UpdatedMs, lib.ID)
	if err != nil {
		return classifyExecErr(err)
	}
	return requireRowsAffected(res, "library", lib.ID)
}

func requireRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return codex7err.StorageTransient("failed to confirm write", err)
	}
	if n == 0 {
		return codex7err.NotFound(entity+" not found", nil).WithDetail("id", id)
	}
	return nil
}

// DeleteLibrary cascades through versions, documents, and snippets via
// ON DELETE CASCADE; callers needing the vector-store side of the
// index-replacement invariant must call DeleteLibraryVectors separately
// first, since the vector store is a distinct backend.
func (s *SQLiteStore) DeleteLibrary(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM libraries WHERE id = ?`, id)
	if err != nil {
		return classifyExecErr(err)
	}
	return requireRowsAffected(res, "library", id)
}

func (s *SQLiteStore) SearchLibraries(ctx context.Context, query string) ([]model.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+librarySelectColumns+` FROM libraries
		WHERE name LIKE ? ESCAPE '\' COLLATE NOCASE
			OR org LIKE ? ESCAPE '\' COLLATE NOCASE
			OR project LIKE ? ESCAPE '\' COLLATE NOCASE
			OR identifier LIKE ? ESCAPE '\' COLLATE NOCASE
		ORDER BY updated_ms DESC LIMIT 50`, like, like, like, like)
	if err != nil {
		return nil, codex7err.StorageTransient("failed to search libraries", err)
	}
	defer rows.Close()

	var out []model.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, codex7err.StorageTransient("failed to scan library row", err)
		}
		out = append(out, *lib)
	}
	return out, nil
}

// --- Versions ---

func (s *SQLiteStore) CreateVersion(ctx context.Context, v *model.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO versions (id, library_id, version_string, version_normalized, is_latest, is_deprecated,
			document_count, git_commit_sha, release_date_ms, indexed_ms, updated_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.LibraryID, v.VersionString, v.VersionNormalized, v.IsLatest, v.IsDeprecated,
		v.DocumentCount, v.GitCommitSHA, v.ReleaseDateMs, v.IndexedMs, v.UpdatedMs)
	return classifyExecErr(err)
}

const versionSelectColumns = `id, library_id, version_string, version_normalized, is_latest, is_deprecated,
	document_count, git_commit_sha, release_date_ms, indexed_ms, updated_ms`

func scanVersion(row interface{ Scan(dest ...any) error }) (*model.Version, error) {
	var v model.Version
	err := row.Scan(&v.ID, &v.LibraryID, &v.VersionString, &v.VersionNormalized, &v.IsLatest, &v.IsDeprecated,
		&v.DocumentCount, &v.GitCommitSHA, &v.ReleaseDateMs, &v.IndexedMs, &v.UpdatedMs)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) GetVersion(ctx context.Context, id string) (*model.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+versionSelectColumns+` FROM versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("version not found", err).WithDetail("id", id)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load version", err)
	}
	return v, nil
}

func (s *SQLiteStore) ListVersions(ctx context.Context, libraryID string) ([]model.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT `+versionSelectColumns+` FROM versions WHERE library_id = ? ORDER BY indexed_ms DESC`, libraryID)
	if err != nil {
		return nil, codex7err.StorageTransient("failed to list versions", err)
	}
	defer rows.Close()

	var out []model.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, codex7err.StorageTransient("failed to scan version row", err)
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *SQLiteStore) GetLatestVersion(ctx context.Context, libraryID string) (*model.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+versionSelectColumns+` FROM versions WHERE library_id = ? AND is_latest = 1 LIMIT 1`, libraryID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("no latest version", err).WithDetail("library_id", libraryID)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load latest version", err)
	}
	return v, nil
}

func (s *SQLiteStore) UpdateVersion(ctx context.Context, v *model.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE versions SET version_string=?, version_normalized=?, is_latest=?, is_deprecated=?,
			document_count=?, git_commit_sha=?, release_date_ms=?, indexed_ms=?, updated_ms=?
		WHERE id=?`,
		v.VersionString, v.VersionNormalized, v.IsLatest, v.IsDeprecated, v.DocumentCount,
		v.GitCommitSHA, v.ReleaseDateMs, v.IndexedMs, v.UpdatedMs, v.ID)
	if err != nil {
		return classifyExecErr(err)
	}
	return requireRowsAffected(res, "version", v.ID)
}

func (s *SQLiteStore) DeleteVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, id)
	if err != nil {
		return classifyExecErr(err)
	}
	return requireRowsAffected(res, "version", id)
}

// --- Documents ---

func (s *SQLiteStore) IndexDocument(ctx context.Context, doc *model.Document) error {
	return s.IndexDocuments(ctx, []model.Document{*doc})
}

func (s *SQLiteStore) IndexDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codex7err.StorageTransient("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, library_id, version_id, path, title, content, content_hash, tokens,
			source_type, source_path, source_url, language, indexed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return codex7err.StorageTransient("failed to prepare document insert", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.LibraryID, doc.VersionID, doc.Path, doc.Title,
			doc.Content, doc.ContentHash, doc.Tokens, string(doc.SourceType), doc.SourcePath, doc.SourceURL,
			doc.Language, doc.IndexedMs); err != nil {
			return classifyExecErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return codex7err.StorageTransient("failed to commit document insert", err)
	}
	return nil
}

func scanDocument(row interface{ Scan(dest ...any) error }) (*model.Document, error) {
	var d model.Document
	var sourceType string
	err := row.Scan(&d.ID, &d.LibraryID, &d.VersionID, &d.Path, &d.Title, &d.Content, &d.ContentHash,
		&d.Tokens, &sourceType, &d.SourcePath, &d.SourceURL, &d.Language, &d.IndexedMs)
	if err != nil {
		return nil, err
	}
	d.SourceType = model.SourceType(sourceType)
	return &d, nil
}

const documentSelectColumns = `id, library_id, version_id, path, title, content, content_hash, tokens,
	source_type, source_path, source_url, language, indexed_ms`

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+documentSelectColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("document not found", err).WithDetail("id", id)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load document", err)
	}
	return d, nil
}

func (s *SQLiteStore) GetDocumentByPath(ctx context.Context, libraryID, path string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+documentSelectColumns+` FROM documents WHERE library_id = ? AND path = ?`, libraryID, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("document not found", err).WithDetail("library_id", libraryID).WithDetail("path", path)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load document", err)
	}
	return d, nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return classifyExecErr(err)
	}
	return requireRowsAffected(res, "document", id)
}

func (s *SQLiteStore) DeleteDocumentsByVersion(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE version_id = ?`, versionID)
	return classifyExecErr(err)
}

func (s *SQLiteStore) DocumentExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE content_hash = ?`, contentHash).Scan(&count)
	if err != nil {
		return false, codex7err.StorageTransient("failed to check document existence", err)
	}
	return count > 0, nil
}

// --- Snippets ---

func (s *SQLiteStore) InsertSnippets(ctx context.Context, snippets []model.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codex7err.StorageTransient("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snippets (id, library_id, version_id, title, source_file, source_type, description,
			content, code_blocks_json, topics_json, has_code, code_block_count, tokens, quality_score, updated_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return codex7err.StorageTransient("failed to prepare snippet insert", err)
	}
	defer stmt.Close()

	for _, sn := range snippets {
		if _, err := stmt.ExecContext(ctx, sn.ID, sn.LibraryID, sn.VersionID, sn.Title, sn.SourceFile,
			string(sn.SourceType), sn.Description, sn.Content, jsonMarshal(sn.CodeBlocks), jsonMarshal(sn.Topics),
			sn.HasCode, sn.CodeBlockCount, sn.Tokens, sn.QualityScore, sn.UpdatedMs); err != nil {
			return classifyExecErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return codex7err.StorageTransient("failed to commit snippet insert", err)
	}
	return nil
}

const snippetSelectColumns = `id, library_id, version_id, title, source_file, source_type, description,
	content, code_blocks_json, topics_json, has_code, code_block_count, tokens, quality_score, updated_ms`

func scanSnippet(row interface{ Scan(dest ...any) error }) (*model.Snippet, error) {
	var sn model.Snippet
	var sourceType, codeBlocks, topics string
	err := row.Scan(&sn.ID, &sn.LibraryID, &sn.VersionID, &sn.Title, &sn.SourceFile, &sourceType,
		&sn.Description, &sn.Content, &codeBlocks, &topics, &sn.HasCode, &sn.CodeBlockCount, &sn.Tokens,
		&sn.QualityScore, &sn.UpdatedMs)
	if err != nil {
		return nil, err
	}
	sn.SourceType = model.SourceType(sourceType)
	sn.CodeBlocks = jsonUnmarshalCodeBlocks(codeBlocks)
	sn.Topics = jsonUnmarshalStrings(topics)
	return &sn, nil
}

func (s *SQLiteStore) GetSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+snippetSelectColumns+` FROM snippets WHERE id = ?`, id)
	sn, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("snippet not found", err).WithDetail("id", id)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load snippet", err)
	}
	return sn, nil
}

func (s *SQLiteStore) ListSnippetsByLibrary(ctx context.Context, libraryID string) ([]model.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT `+snippetSelectColumns+` FROM snippets WHERE library_id = ?`, libraryID)
	if err != nil {
		return nil, codex7err.StorageTransient("failed to list snippets", err)
	}
	defer rows.Close()

	var out []model.Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, codex7err.StorageTransient("failed to scan snippet row", err)
		}
		out = append(out, *sn)
	}
	return out, nil
}

// FullTextSearch matches Query case-insensitively against title and
// content, scoring 0.8 for a title match, 0.5 for a content-only match,
// dropping rows below MinScore, ordered by updated_ms desc.
func (s *SQLiteStore) FullTextSearch(ctx context.Context, opts FullTextOptions) ([]FullTextResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + opts.Query + "%"
	query := `SELECT ` + snippetSelectColumns + ` FROM snippets WHERE (title LIKE ? COLLATE NOCASE OR content LIKE ? COLLATE NOCASE)`
	args := []any{like, like}

	if opts.LibraryID != "" {
		query += ` AND library_id = ?`
		args = append(args, opts.LibraryID)
	}
	if opts.VersionID != "" {
		query += ` AND version_id = ?`
		args = append(args, opts.VersionID)
	}
	if opts.CodeOnly {
		query += ` AND has_code = 1`
	}
	query += ` ORDER BY updated_ms DESC`

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, codex7err.StorageTransient("failed to run full text search", err)
	}
	defer rows.Close()

	var out []FullTextResult
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, codex7err.StorageTransient("failed to scan full text result", err)
		}
		score := fullTextScore(opts.Query, *sn)
		if score < opts.MinScore {
			continue
		}
		out = append(out, FullTextResult{Snippet: *sn, Score: score})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func fullTextScore(query string, sn model.Snippet) float64 {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(sn.Title), q) {
		return 0.8
	}
	if strings.Contains(strings.ToLower(sn.Content), q) {
		return 0.5
	}
	return 0.3
}

// --- Indexing jobs ---

func (s *SQLiteStore) CreateIndexingJob(ctx context.Context, job *model.IndexingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexing_jobs (id, library_id, version_id, status, total_documents, processed_documents,
			failed_documents, error, started_ms, completed_ms, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.LibraryID, job.VersionID, string(job.Status), job.TotalDocuments, job.ProcessedDocuments,
		job.FailedDocuments, job.Error, job.StartedMs, job.CompletedMs, jsonMarshal(job.Metadata))
	return classifyExecErr(err)
}

const indexingJobSelectColumns = `id, library_id, version_id, status, total_documents, processed_documents,
	failed_documents, error, started_ms, completed_ms, metadata_json`

func scanIndexingJob(row interface{ Scan(dest ...any) error }) (*model.IndexingJob, error) {
	var job model.IndexingJob
	var status, metadata string
	err := row.Scan(&job.ID, &job.LibraryID, &job.VersionID, &status, &job.TotalDocuments,
		&job.ProcessedDocuments, &job.FailedDocuments, &job.Error, &job.StartedMs, &job.CompletedMs, &metadata)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	job.Metadata = jsonUnmarshalMap(metadata)
	return &job, nil
}

func (s *SQLiteStore) GetIndexingJob(ctx context.Context, id string) (*model.IndexingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT `+indexingJobSelectColumns+` FROM indexing_jobs WHERE id = ?`, id)
	job, err := scanIndexingJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codex7err.NotFound("indexing job not found", err).WithDetail("id", id)
	}
	if err != nil {
		return nil, codex7err.StorageTransient("failed to load indexing job", err)
	}
	return job, nil
}

func (s *SQLiteStore) UpdateIndexingJob(ctx context.Context, job *model.IndexingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE indexing_jobs SET status=?, total_documents=?, processed_documents=?, failed_documents=?,
			error=?, started_ms=?, completed_ms=?, metadata_json=?
		WHERE id=?`,
		string(job.Status), job.TotalDocuments, job.ProcessedDocuments, job.FailedDocuments,
		job.Error, job.StartedMs, job.CompletedMs, jsonMarshal(job.Metadata), job.ID)
	if err != nil {
		return classifyExecErr(err)
	}
	return requireRowsAffected(res, "indexing job", job.ID)
}

func (s *SQLiteStore) ListIndexingJobs(ctx context.Context, libraryID string) ([]model.IndexingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT `+indexingJobSelectColumns+` FROM indexing_jobs WHERE library_id = ? ORDER BY started_ms DESC`, libraryID)
	if err != nil {
		return nil, codex7err.StorageTransient("failed to list indexing jobs", err)
	}
	defer rows.Close()

	var out []model.IndexingJob
	for rows.Next() {
		job, err := scanIndexingJob(rows)
		if err != nil {
			return nil, codex7err.StorageTransient("failed to scan indexing job row", err)
		}
		out = append(out, *job)
	}
	return out, nil
}
