package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mkb-project/mkb/internal/embedding"
	"github.com/mkb-project/mkb/internal/index"
	"github.com/mkb-project/mkb/internal/mkberr"
	"github.com/mkb-project/mkb/internal/mkql"
)

// QueryResult is the executor's output: one map per matched row plus the
// row count, ready for any Formatter.
type QueryResult struct {
	Rows  []map[string]interface{} `json:"rows"`
	Total int                      `json:"total"`
}

// DefaultSemanticK is the ANN candidate-set size pulled before the
// similarity threshold is applied, matching the executor's two-phase
// design in spec §4.8 step 1.
const DefaultSemanticK = 100

const (
	nearPlaceholder = "1=1 /* NEAR */"
	effPlaceholder  = "1=1 /* EFF_CONFIDENCE */"
)

// Execute runs a compiled MKQL query to completion: a semantic pre-pass
// when the query used NEAR(), whose id list replaces the NEAR placeholder,
// then the EFF_CONFIDENCE placeholder is replaced with a confidence
// comparison, and finally the relational SQL runs with both already inside
// its WHERE clause.
//
// provider may be nil only when the compiled query does not use NEAR();
// a NEAR() query against a nil provider fails with an Index error rather
// than panicking.
func Execute(db *index.DB, provider embedding.Provider, semanticK int, cq mkql.CompiledQuery) (QueryResult, error) {
	if semanticK <= 0 {
		semanticK = DefaultSemanticK
	}

	sql := cq.SQL
	var nearOrder map[string]int // id -> rank by ascending distance

	for _, pf := range cq.PostFilters {
		near, ok := pf.(mkql.NearFn)
		if !ok {
			continue
		}
		ids, order, err := resolveNear(db, provider, semanticK, near)
		if err != nil {
			return QueryResult{}, err
		}
		if len(ids) == 0 {
			return QueryResult{}, nil
		}
		sql = strings.Replace(sql, nearPlaceholder, "id IN ("+quoteIDList(ids)+")", 1)
		nearOrder = order
	}

	for _, pf := range cq.PostFilters {
		eff, ok := pf.(mkql.EffConfidence)
		if !ok {
			continue
		}
		sql = strings.Replace(sql, effPlaceholder,
			fmt.Sprintf("confidence %s %s", eff.Op, strconv.FormatFloat(eff.Value, 'f', -1, 64)), 1)
	}

	finalSQL, err := buildSelectSQL(cq, sql)
	if err != nil {
		return QueryResult{}, err
	}

	rows, err := db.ExecuteSQL(finalSQL, cq.Args)
	if err != nil {
		return QueryResult{}, err
	}

	if nearOrder != nil && !cq.OrderByExplicit {
		sort.SliceStable(rows, func(i, j int) bool {
			idI, _ := rows[i]["id"].(string)
			idJ, _ := rows[j]["id"].(string)
			return nearOrder[idI] < nearOrder[idJ]
		})
	}

	return QueryResult{Rows: rows, Total: len(rows)}, nil
}

// resolveNear runs the semantic prefilter: embed the query text, fetch the
// top semanticK nearest neighbors, and keep only those within the
// caller-supplied similarity threshold. The chosen convention (documented
// in spec §9) is distance <= 1 - tau, treating distance as a cosine-style
// metric in [0,2] for unit-normalized embeddings; non-unit embeddings are
// outside this bound's guarantee.
func resolveNear(db *index.DB, provider embedding.Provider, k int, near mkql.NearFn) ([]string, map[string]int, error) {
	if provider == nil {
		return nil, nil, mkberr.NewIndexError("NEAR() requires an embedding provider, none configured", nil)
	}
	vec, err := provider.Embed(near.Text, embedding.PurposeQuery)
	if err != nil {
		return nil, nil, mkberr.NewIndexError("failed to embed NEAR() query text", err)
	}

	results, err := db.SearchSemantic(vec, k)
	if err != nil {
		return nil, nil, err
	}

	threshold := 1.0 - near.Tau
	var ids []string
	order := make(map[string]int, len(results))
	for _, r := range results {
		if r.Distance > threshold {
			continue
		}
		order[r.ID] = len(ids)
		ids = append(ids, r.ID)
	}
	return ids, order, nil
}

func quoteIDList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "'" + strings.ReplaceAll(id, "'", "''") + "'"
	}
	return strings.Join(quoted, ",")
}

// buildSelectSQL wraps the compiler's WHERE/ORDER-BY fragment with the
// SELECT list and FROM clause, and appends LIMIT/OFFSET (bound verbatim as
// integers straight from the grammar's integer token, never parameterized,
// per spec §4.7).
func buildSelectSQL(cq mkql.CompiledQuery, whereSQL string) (string, error) {
	cols, err := selectColumnsSQL(cq.Select)
	if err != nil {
		return "", err
	}
	sql := "SELECT " + cols + " FROM documents WHERE " + whereSQL
	if cq.Limit != nil {
		sql += fmt.Sprintf(" LIMIT %d", *cq.Limit)
	}
	if cq.Offset != nil {
		sql += fmt.Sprintf(" OFFSET %d", *cq.Offset)
	}
	return sql, nil
}

func selectColumnsSQL(sel mkql.SelectClause) (string, error) {
	if sel.Star {
		return "*", nil
	}
	if len(sel.Fields) == 0 {
		return "*", nil
	}
	parts := make([]string, 0, len(sel.Fields))
	for _, f := range sel.Fields {
		col, err := mkql.ResolveColumn(f.Name)
		if err != nil {
			return "", err
		}
		if f.Alias != "" {
			col += " AS " + f.Alias
		} else {
			col += " AS " + f.Name
		}
		parts = append(parts, col)
	}
	return strings.Join(parts, ", "), nil
}
