package index

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/mkberr"
)

// LinkRow is a link as stored in the index.
type LinkRow struct {
	SourceID   string
	TargetID   string
	Rel        string
	ObservedAt time.Time
	Metadata   map[string]interface{}
}

// StoreLinks atomically replaces source's outgoing links: delete-then-insert.
func (db *DB) StoreLinks(source string, links []document.Link) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return mkberr.NewIndexError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM links WHERE source_id = ?`, source); err != nil {
		return mkberr.NewIndexError("failed to clear existing links", err)
	}

	for _, l := range links {
		var metaJSON sql.NullString
		if l.Metadata != nil {
			b, err := json.Marshal(l.Metadata)
			if err != nil {
				return mkberr.NewSerializationError("failed to marshal link metadata", err)
			}
			metaJSON = sql.NullString{String: string(b), Valid: true}
		}
		observedAt := l.ObservedAt
		if observedAt.IsZero() {
			observedAt = time.Now().UTC()
		}
		_, err := tx.Exec(
			`INSERT INTO links (source_id, target_id, rel, observed_at, metadata) VALUES (?, ?, ?, ?, ?)`,
			source, l.Target, l.Rel, observedAt.UTC().Format(rfc3339), metaJSON,
		)
		if err != nil {
			return mkberr.NewIndexError("failed to insert link", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return mkberr.NewIndexError("failed to commit link replacement", err)
	}
	return nil
}

// QueryForwardLinks returns outgoing links from source, ordered by
// (rel, observed_at).
func (db *DB) QueryForwardLinks(source string) ([]LinkRow, error) {
	return db.queryLinks(`SELECT source_id, target_id, rel, observed_at, metadata FROM links WHERE source_id = ? ORDER BY rel, observed_at`, source)
}

// QueryReverseLinks returns incoming links to target, ordered by
// (rel, observed_at).
func (db *DB) QueryReverseLinks(target string) ([]LinkRow, error) {
	return db.queryLinks(`SELECT source_id, target_id, rel, observed_at, metadata FROM links WHERE target_id = ? ORDER BY rel, observed_at`, target)
}

func (db *DB) queryLinks(query, arg string) ([]LinkRow, error) {
	rows, err := db.conn.Query(query, arg)
	if err != nil {
		return nil, mkberr.NewIndexError("link query failed", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var l LinkRow
		var observedAt string
		var metaJSON sql.NullString
		if err := rows.Scan(&l.SourceID, &l.TargetID, &l.Rel, &observedAt, &metaJSON); err != nil {
			return nil, mkberr.NewIndexError("link row scan failed", err)
		}
		l.ObservedAt, _ = time.Parse(rfc3339, observedAt)
		if metaJSON.Valid {
			_ = json.Unmarshal([]byte(metaJSON.String), &l.Metadata)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
