package index

import (
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/mkb-project/mkb/internal/mkberr"
)

// StoreEmbedding writes both the typed embedding row and the ANN entry
// (upsert). Rejects when len(v) != EmbeddingDim.
func (db *DB) StoreEmbedding(id string, v []float32, model string) error {
	if len(v) != EmbeddingDim {
		return mkberr.NewIndexError(
			fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(v), EmbeddingDim), nil)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return mkberr.NewIndexError("failed to serialize embedding", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return mkberr.NewIndexError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO document_embeddings (id, embedding, model, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET embedding=excluded.embedding, model=excluded.model, created_at=excluded.created_at
	`, id, blob, model, time.Now().UTC().Format(rfc3339))
	if err != nil {
		return mkberr.NewIndexError("failed to store embedding row", err)
	}

	_, err = tx.Exec(`DELETE FROM vec_documents WHERE id = ?`, id)
	if err != nil {
		return mkberr.NewIndexError("failed to clear stale vector entry", err)
	}
	_, err = tx.Exec(`INSERT INTO vec_documents (id, embedding) VALUES (?, ?)`, id, blob)
	if err != nil {
		return mkberr.NewIndexError("failed to store vector entry", err)
	}

	if err := tx.Commit(); err != nil {
		return mkberr.NewIndexError("failed to commit embedding write", err)
	}
	return nil
}

// HasEmbedding reports whether id has a stored embedding.
func (db *DB) HasEmbedding(id string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM document_embeddings WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, mkberr.NewIndexError("has_embedding failed", err)
	}
	return n > 0, nil
}

// EmbeddingCount returns the number of stored embeddings.
func (db *DB) EmbeddingCount() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM document_embeddings`).Scan(&n); err != nil {
		return 0, mkberr.NewIndexError("embedding_count failed", err)
	}
	return n, nil
}

// ExecuteSQL executes a prepared statement with positional parameter
// binding and returns one map per row, column name -> value. Used only by
// the query executor (package query); never exposes a passthrough to raw
// user-supplied SQL text.
func (db *DB) ExecuteSQL(query string, params []interface{}) ([]map[string]interface{}, error) {
	rows, err := db.conn.Query(query, params...)
	if err != nil {
		return nil, mkberr.NewIndexError("execute_sql failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mkberr.NewIndexError("execute_sql failed to read columns", err)
	}

	var out []map[string]interface{}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mkberr.NewIndexError("execute_sql scan failed", err)
		}
		m := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			m[c] = normalizeSQLValue(raw[i])
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// normalizeSQLValue renders BLOBs as <blob:N bytes> per spec §4.8 and passes
// through everything else as database/sql already decoded it.
func normalizeSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return fmt.Sprintf("<blob:%d bytes>", len(val))
	case sql.NullString:
		if val.Valid {
			return val.String
		}
		return nil
	default:
		return val
	}
}
