// Package index implements the Derived Index (C6): an embedded relational
// engine with an FTS5 shadow table and a sqlite-vec ANN virtual table that
// mirrors the vault. The index is a rebuildable cache; on any mismatch with
// the vault, a full reindex from vault.ListDocuments is always correct.
package index

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/mkb-project/mkb/internal/mkberr"
)

var registerVecOnce sync.Once

func init() {
	registerVecOnce.Do(func() {
		sqlite_vec.Auto()
	})
}

// EmbeddingDim is the system-wide fixed embedding dimension: every stored
// and queried vector must share it, or the vec0 table rejects the bind. It
// is a package variable rather than a constant purely so test fixtures can
// shrink it; production callers must leave it at 1536.
var EmbeddingDim = 1536

// DB is a handle onto exactly one database connection; closing happens on
// Close. Readers within the same process are safe to use concurrently;
// writers are serialized through mu, matching the single-process
// single-writer model in spec §5.
type DB struct {
	conn         *sql.DB
	mu           sync.Mutex
	ftsAvailable bool
}

// Open creates or opens the index database file at path with the schema
// applied idempotently.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=1", path)
	return openDSN(dsn)
}

// InMemory opens an in-memory index, useful for tests and ephemeral
// rebuilds. The DSN uses SQLite's shared cache, so InMemory handles that are
// open at the same time in one process see the same database.
func InMemory() (*DB, error) {
	return openDSN("file::memory:?cache=shared&_busy_timeout=5000&_foreign_keys=1")
}

func openDSN(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, mkberr.NewIndexError("failed to open database", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	db.ftsAvailable = db.probeFTS()
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying *sql.DB for callers outside this package that
// need to run their own queries, such as the graph builder's recursive CTEs.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			doc_type TEXT NOT NULL,
			title TEXT NOT NULL,
			observed_at TEXT NOT NULL,
			valid_until TEXT NOT NULL,
			temporal_precision TEXT NOT NULL,
			occurred_at TEXT,
			created_at TEXT NOT NULL,
			modified_at TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1.0,
			source TEXT,
			supersedes TEXT,
			superseded_by TEXT,
			tags TEXT,
			body TEXT NOT NULL DEFAULT '',
			fields_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(doc_type)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_observed_at ON documents(observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_valid_until ON documents(valid_until)`,
		`CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			rel TEXT NOT NULL,
			observed_at TEXT NOT NULL,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_rel ON links(rel)`,
		`CREATE TABLE IF NOT EXISTS document_embeddings (
			id TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
			embedding BLOB NOT NULL,
			model TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return mkberr.NewIndexError("migration failed", err)
		}
	}

	if err := db.migrateFTS(); err != nil {
		return err
	}
	if err := db.migrateVec(); err != nil {
		return err
	}
	return nil
}

func (db *DB) migrateFTS() error {
	_, err := db.conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		title, body, tags, content=documents, content_rowid=rowid
	)`)
	if err != nil {
		// FTS5 unavailable in this sqlite build; degrade gracefully.
		return nil
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts(rowid, title, body, tags) VALUES (new.rowid, new.title, new.body, new.tags);
		END`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, body, tags) VALUES('delete', old.rowid, old.title, old.body, old.tags);
		END`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, body, tags) VALUES('delete', old.rowid, old.title, old.body, old.tags);
			INSERT INTO documents_fts(rowid, title, body, tags) VALUES (new.rowid, new.title, new.body, new.tags);
		END`,
	}
	for _, t := range triggers {
		if _, err := db.conn.Exec(t); err != nil {
			return mkberr.NewIndexError("failed to create FTS sync triggers", err)
		}
	}
	return nil
}

func (db *DB) migrateVec() error {
	q := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_documents USING vec0(
		id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, EmbeddingDim)
	if _, err := db.conn.Exec(q); err != nil {
		return mkberr.NewIndexError("failed to create vec_documents virtual table", err)
	}
	return nil
}

func (db *DB) probeFTS() bool {
	var name string
	err := db.conn.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&name)
	return err == nil
}

// IntegrityCheck runs PRAGMA integrity_check.
func (db *DB) IntegrityCheck() (string, error) {
	var result string
	if err := db.conn.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return "", mkberr.NewIndexError("integrity check failed", err)
	}
	return result, nil
}

// RebuildFTS rebuilds the FTS5 shadow table from documents, a no-op if FTS
// is unavailable in this sqlite build.
func (db *DB) RebuildFTS() error {
	if !db.ftsAvailable {
		return nil
	}
	_, err := db.conn.Exec(`INSERT INTO documents_fts(documents_fts) VALUES('rebuild')`)
	if err != nil {
		return mkberr.NewIndexError("failed to rebuild FTS index", err)
	}
	return nil
}

// hasColumn reports whether table carries column, via PRAGMA table_info
// reflection; kept for future additive migrations.
func (db *DB) hasColumn(table, column string) bool {
	rows, err := db.conn.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}

// CheckEmbeddingMeta compares the stored embedding model/dimension metadata
// against the current configuration and errors with an actionable message on
// mismatch.
func (db *DB) CheckEmbeddingMeta(model string, dim int) error {
	storedModel, _ := db.getMeta("embedding_model")
	storedDimStr, _ := db.getMeta("embedding_dim")

	if storedModel == "" && storedDimStr == "" {
		_ = db.setMeta("embedding_model", model)
		_ = db.setMeta("embedding_dim", fmt.Sprintf("%d", dim))
		return nil
	}
	if storedModel != model {
		return mkberr.NewIndexError(
			fmt.Sprintf("embedding model mismatch: index has %q, config has %q; run a full reindex to rebuild", storedModel, model), nil)
	}
	if storedDimStr != fmt.Sprintf("%d", dim) {
		return mkberr.NewIndexError(
			fmt.Sprintf("embedding dimension mismatch: index has %s, config has %d; run a full reindex to rebuild", storedDimStr, dim), nil)
	}
	return nil
}

func (db *DB) getMeta(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM schema_meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (db *DB) setMeta(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO schema_meta(key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}
