package index

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/mkb-project/mkb/internal/mkberr"
)

// FTSResult is one row from SearchFTS, ranked ascending = more relevant.
type FTSResult struct {
	ID      string
	Title   string
	DocType string
	Rank    float64
}

// SearchFTS runs q against the FTS5 shadow table unchanged and returns
// matches ranked by FTS5 relevance (ascending rank = more relevant).
func (db *DB) SearchFTS(q string) ([]FTSResult, error) {
	if !db.ftsAvailable {
		return nil, mkberr.NewIndexError("full-text search is unavailable in this build", nil)
	}
	rows, err := db.conn.Query(`
		SELECT d.id, d.title, d.doc_type, documents_fts.rank
		FROM documents_fts
		JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE documents_fts MATCH ?
		ORDER BY documents_fts.rank
	`, q)
	if err != nil {
		return nil, mkberr.NewIndexError("search_fts failed", err)
	}
	defer rows.Close()

	var out []FTSResult
	for rows.Next() {
		var r FTSResult
		if err := rows.Scan(&r.ID, &r.Title, &r.DocType, &r.Rank); err != nil {
			return nil, mkberr.NewIndexError("search_fts scan failed", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SemanticResult is one row from SearchSemantic, ordered ascending by
// distance (closer = more similar).
type SemanticResult struct {
	ID       string
	Distance float64
	Title    string
	DocType  string
}

// SearchSemantic runs a KNN query over vec_documents for the top k nearest
// neighbors of v.
func (db *DB) SearchSemantic(v []float32, k int) ([]SemanticResult, error) {
	if len(v) != EmbeddingDim {
		return nil, mkberr.NewIndexError(
			"query embedding dimension mismatch", nil)
	}
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return nil, mkberr.NewIndexError("failed to serialize query embedding", err)
	}

	rows, err := db.conn.Query(`
		SELECT v.id, v.distance, d.title, d.doc_type
		FROM vec_documents v
		JOIN documents d ON d.id = v.id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, mkberr.NewIndexError("search_semantic failed", err)
	}
	defer rows.Close()

	var out []SemanticResult
	for rows.Next() {
		var r SemanticResult
		if err := rows.Scan(&r.ID, &r.Distance, &r.Title, &r.DocType); err != nil {
			return nil, mkberr.NewIndexError("search_semantic scan failed", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
