package query

import (
	"time"

	"github.com/mkb-project/mkb/internal/index"
)

// StalenessReport runs the staleness sweep and formats it through the same
// QueryResult/Formatter path as an ordinary MKQL query, so a caller gets an
// "index freshness" view without hand-rolling a display routine. It never
// mutates the index: staleness_sweep is read-only per spec §4.5.
func StalenessReport(db *index.DB, atTime time.Time) (QueryResult, error) {
	stale, err := db.StalenessSweep(atTime)
	if err != nil {
		return QueryResult{}, err
	}
	rows := make([]map[string]interface{}, len(stale))
	for i, s := range stale {
		rows[i] = map[string]interface{}{
			"id":          s.ID,
			"valid_until": s.ValidUntil.UTC().Format(time.RFC3339),
		}
	}
	return QueryResult{Rows: rows, Total: len(rows)}, nil
}
