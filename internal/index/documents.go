package index

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/mkberr"
)

const rfc3339 = time.RFC3339

// IndexDocument performs an INSERT-OR-REPLACE by id. The FTS shadow stays
// consistent via the insert/update triggers created at migration time.
// Embeddings are not touched here; they are set only via StoreEmbedding.
func (db *DB) IndexDocument(doc document.Document) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var occurredAt, source, supersedes, supersededBy sql.NullString
	if doc.Temporal.OccurredAt != nil {
		occurredAt = sql.NullString{String: doc.Temporal.OccurredAt.UTC().Format(rfc3339), Valid: true}
	}
	if doc.Source != "" {
		source = sql.NullString{String: doc.Source, Valid: true}
	}
	if doc.Supersedes != "" {
		supersedes = sql.NullString{String: doc.Supersedes, Valid: true}
	}
	if doc.SupersededBy != "" {
		supersededBy = sql.NullString{String: doc.SupersededBy, Valid: true}
	}

	fieldsAny := make(map[string]interface{}, len(doc.Fields))
	for k, v := range doc.Fields {
		fieldsAny[k] = v.ToAny()
	}
	fieldsJSON, err := json.Marshal(fieldsAny)
	if err != nil {
		return mkberr.NewIndexError("failed to encode fields for indexing", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO documents (
			id, doc_type, title, observed_at, valid_until, temporal_precision,
			occurred_at, created_at, modified_at, confidence, source,
			supersedes, superseded_by, tags, body, fields_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_type=excluded.doc_type, title=excluded.title,
			observed_at=excluded.observed_at, valid_until=excluded.valid_until,
			temporal_precision=excluded.temporal_precision, occurred_at=excluded.occurred_at,
			modified_at=excluded.modified_at, confidence=excluded.confidence,
			source=excluded.source, supersedes=excluded.supersedes,
			superseded_by=excluded.superseded_by, tags=excluded.tags, body=excluded.body,
			fields_json=excluded.fields_json
	`,
		doc.ID, doc.DocType, doc.Title,
		doc.Temporal.ObservedAt.UTC().Format(rfc3339), doc.Temporal.ValidUntil.UTC().Format(rfc3339),
		string(doc.Temporal.TemporalPrecision), occurredAt,
		doc.CreatedAt.UTC().Format(rfc3339), doc.ModifiedAt.UTC().Format(rfc3339),
		doc.Confidence, source, supersedes, supersededBy,
		strings.Join(doc.Tags, ","), doc.Body, string(fieldsJSON),
	)
	if err != nil {
		return mkberr.NewIndexError("failed to index document", err)
	}
	return nil
}

// RemoveDocument deletes the row; the FTS trigger cleans up the shadow
// table. document_embeddings and vec_documents are deleted explicitly rather
// than relied on via ON DELETE CASCADE, since FK enforcement is a
// per-connection SQLite pragma and cannot be assumed on by every caller.
func (db *DB) RemoveDocument(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return mkberr.NewIndexError("failed to remove document", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM vec_documents WHERE id = ?`, id); err != nil {
		return mkberr.NewIndexError("failed to remove vector entry", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM document_embeddings WHERE id = ?`, id); err != nil {
		return mkberr.NewIndexError("failed to remove embedding entry", err)
	}
	return nil
}

// Row is a lightweight projection of a documents row used by query helpers
// that do not need the full Document shape.
type Row struct {
	ID                string
	DocType           string
	Title             string
	ObservedAt        time.Time
	ValidUntil        time.Time
	TemporalPrecision string
	OccurredAt        *time.Time
	CreatedAt         time.Time
	ModifiedAt        time.Time
	Confidence        float64
	Source            string
	Supersedes        string
	SupersededBy      string
	Tags              []string
	Body              string
	Fields            map[string]interface{}
}

const selectColumns = `id, doc_type, title, observed_at, valid_until, temporal_precision,
	occurred_at, created_at, modified_at, confidence, source, supersedes, superseded_by, tags, body, fields_json`

func scanRow(scanner interface{ Scan(...interface{}) error }) (Row, error) {
	var r Row
	var observedAt, validUntil, createdAt, modifiedAt string
	var occurredAt, source, supersedes, supersededBy, tags sql.NullString
	var fieldsJSON string

	err := scanner.Scan(
		&r.ID, &r.DocType, &r.Title, &observedAt, &validUntil, &r.TemporalPrecision,
		&occurredAt, &createdAt, &modifiedAt, &r.Confidence, &source, &supersedes, &supersededBy, &tags, &r.Body,
		&fieldsJSON,
	)
	if err != nil {
		return Row{}, err
	}
	r.Fields = map[string]interface{}{}
	if fieldsJSON != "" {
		_ = json.Unmarshal([]byte(fieldsJSON), &r.Fields)
	}
	r.ObservedAt, _ = time.Parse(rfc3339, observedAt)
	r.ValidUntil, _ = time.Parse(rfc3339, validUntil)
	r.CreatedAt, _ = time.Parse(rfc3339, createdAt)
	r.ModifiedAt, _ = time.Parse(rfc3339, modifiedAt)
	if occurredAt.Valid {
		t, _ := time.Parse(rfc3339, occurredAt.String)
		r.OccurredAt = &t
	}
	r.Source = source.String
	r.Supersedes = supersedes.String
	r.SupersededBy = supersededBy.String
	if tags.Valid && tags.String != "" {
		r.Tags = strings.Split(tags.String, ",")
	}
	return r, nil
}

// QueryByType returns all documents of type, ordered by observed_at DESC.
func (db *DB) QueryByType(docType string) ([]Row, error) {
	rows, err := db.conn.Query(
		`SELECT `+selectColumns+` FROM documents WHERE doc_type = ? ORDER BY observed_at DESC`, docType)
	if err != nil {
		return nil, mkberr.NewIndexError("query_by_type failed", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// QueryAll returns every document, ordered by observed_at DESC.
func (db *DB) QueryAll() ([]Row, error) {
	rows, err := db.conn.Query(`SELECT ` + selectColumns + ` FROM documents ORDER BY observed_at DESC`)
	if err != nil {
		return nil, mkberr.NewIndexError("query_all failed", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// QueryByID returns a single document.
func (db *DB) QueryByID(id string) (Row, bool, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM documents WHERE id = ?`, id)
	r, err := scanRow(row)
	if err == sql.ErrNoRows {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, mkberr.NewIndexError("query_by_id failed", err)
	}
	return r, true, nil
}

// QueryByObservedAtRange is inclusive on both ends, ordered observed_at DESC.
func (db *DB) QueryByObservedAtRange(from, to time.Time) ([]Row, error) {
	rows, err := db.conn.Query(
		`SELECT `+selectColumns+` FROM documents WHERE observed_at >= ? AND observed_at <= ? ORDER BY observed_at DESC`,
		from.UTC().Format(rfc3339), to.UTC().Format(rfc3339))
	if err != nil {
		return nil, mkberr.NewIndexError("query_by_observed_at_range failed", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// QueryCurrentDocuments returns documents with superseded_by IS NULL AND
// valid_until >= at_time.
func (db *DB) QueryCurrentDocuments(atTime time.Time) ([]Row, error) {
	rows, err := db.conn.Query(
		`SELECT `+selectColumns+` FROM documents WHERE superseded_by IS NULL AND valid_until >= ? ORDER BY observed_at DESC`,
		atTime.UTC().Format(rfc3339))
	if err != nil {
		return nil, mkberr.NewIndexError("query_current_documents failed", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// StaleDocument is the minimal shape returned by StalenessSweep.
type StaleDocument struct {
	ID         string
	ValidUntil time.Time
}

// StalenessSweep returns ids with valid_until < at_time AND superseded_by IS
// NULL, ordered by valid_until ASC. Does not mutate.
func (db *DB) StalenessSweep(atTime time.Time) ([]StaleDocument, error) {
	rows, err := db.conn.Query(
		`SELECT id, valid_until FROM documents WHERE valid_until < ? AND superseded_by IS NULL ORDER BY valid_until ASC`,
		atTime.UTC().Format(rfc3339))
	if err != nil {
		return nil, mkberr.NewIndexError("staleness_sweep failed", err)
	}
	defer rows.Close()

	var out []StaleDocument
	for rows.Next() {
		var id, validUntil string
		if err := rows.Scan(&id, &validUntil); err != nil {
			return nil, mkberr.NewIndexError("staleness_sweep scan failed", err)
		}
		t, _ := time.Parse(rfc3339, validUntil)
		out = append(out, StaleDocument{ID: id, ValidUntil: t})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, mkberr.NewIndexError("count failed", err)
	}
	return n, nil
}

func collectRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, mkberr.NewIndexError("row scan failed", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
