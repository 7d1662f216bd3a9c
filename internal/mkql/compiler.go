package mkql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkb-project/mkb/internal/mkberr"
)

// builtinColumns are the physical columns on the documents table. Any field
// name outside this set is assumed to be a per-type schema field and is
// reached through json_extract against fields_json.
var builtinColumns = map[string]string{
	"id":                 "id",
	"type":               "doc_type",
	"doc_type":           "doc_type",
	"title":              "title",
	"observed_at":        "observed_at",
	"valid_until":        "valid_until",
	"temporal_precision": "temporal_precision",
	"occurred_at":        "occurred_at",
	"created_at":         "created_at",
	"modified_at":        "modified_at",
	"confidence":         "confidence",
	"source":             "source",
	"supersedes":         "supersedes",
	"superseded_by":      "superseded_by",
	"tags":               "tags",
	"body":               "body",
}

// CompiledQuery is the result of compiling an MkqlQuery to SQL. SQL and Args
// are ready to bind against the documents table (selectColumns order, see
// package index). PostFilters holds the expression nodes the compiler
// emitted as placeholders (EFF_CONFIDENCE, NEAR); the executor replaces
// each placeholder in SQL before running the query.
type CompiledQuery struct {
	SQL         string
	Args        []interface{}
	PostFilters []Expr
	Select      SelectClause
	Limit       *int
	Offset      *int

	// OrderByExplicit is true when the query named its own ORDER BY. The
	// executor uses this to decide whether a NEAR() query's ascending-
	// distance ordering should override the SQL-level default.
	OrderByExplicit bool
}

// Compile turns a parsed MkqlQuery into a parameterized SQL WHERE/ORDER
// BY/LIMIT/OFFSET fragment plus any predicates that require post-SQL
// evaluation. The returned SQL is always safe to execute: identifiers are
// drawn only from the lexer's identifier charset or the fixed builtin
// column table, never interpolated from unescaped user text.
func Compile(q MkqlQuery) (CompiledQuery, error) {
	c := &compiler{}

	var clauses []string
	clauses = append(clauses, "doc_type = ?")
	c.args = append(c.args, q.From)

	if q.Where != nil {
		whereSQL, err := c.compileExpr(q.Where)
		if err != nil {
			return CompiledQuery{}, err
		}
		clauses = append(clauses, whereSQL)
	}

	sql := strings.Join(clauses, " AND ")

	if len(q.OrderBy) > 0 {
		var items []string
		for _, ob := range q.OrderBy {
			col, err := resolveColumnForOrder(ob.Field)
			if err != nil {
				return CompiledQuery{}, err
			}
			dir := "ASC"
			if ob.Desc {
				dir = "DESC"
			}
			items = append(items, col+" "+dir)
		}
		sql += " ORDER BY " + strings.Join(items, ", ")
	} else {
		// Spec default: most-recently-observed first when the query does
		// not request an explicit order.
		sql += " ORDER BY observed_at DESC"
	}

	return CompiledQuery{
		SQL:             sql,
		Args:            c.args,
		PostFilters:     c.postFilters,
		Select:          q.Select,
		Limit:           q.Limit,
		Offset:          q.Offset,
		OrderByExplicit: len(q.OrderBy) > 0,
	}, nil
}

type compiler struct {
	args        []interface{}
	postFilters []Expr
}

func (c *compiler) compileExpr(e Expr) (string, error) {
	switch n := e.(type) {
	case OrExpr:
		parts, err := c.compileAll(n.Clauses)
		if err != nil {
			return "", err
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case AndExpr:
		parts, err := c.compileAll(n.Clauses)
		if err != nil {
			return "", err
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case NotExpr:
		inner, err := c.compileExpr(n.Inner)
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil
	case ParenExpr:
		return c.compileExpr(n.Inner)
	case Comparison:
		return c.compileComparison(n)
	case InPred:
		return c.compileInPred(n)
	case LikePred:
		col, err := resolveColumn(n.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, n.Pattern)
		return col + " LIKE ?", nil
	case BodyContains:
		c.args = append(c.args, ftsPhrase(n.Text))
		return "id IN (SELECT d.id FROM documents_fts f JOIN documents d ON d.rowid = f.rowid WHERE f MATCH ?)", nil
	case TemporalFn:
		return c.compileTemporalFn(n)
	case LinkedFn:
		return c.compileLinkedFn(n)
	case EffConfidence:
		c.postFilters = append(c.postFilters, n)
		return "1=1 /* EFF_CONFIDENCE */", nil
	case NearFn:
		c.postFilters = append(c.postFilters, n)
		return "1=1 /* NEAR */", nil
	default:
		return "", mkberr.NewMkqlParseError(fmt.Sprintf("unsupported expression node %T", e), 0)
	}
}

func (c *compiler) compileAll(clauses []Expr) ([]string, error) {
	out := make([]string, 0, len(clauses))
	for _, cl := range clauses {
		s, err := c.compileExpr(cl)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *compiler) compileComparison(cmp Comparison) (string, error) {
	col, err := resolveColumn(cmp.Field)
	if err != nil {
		return "", err
	}
	arg, err := valueToArg(cmp.Value)
	if err != nil {
		return "", err
	}
	c.args = append(c.args, arg)
	return col + " " + cmp.Op + " ?", nil
}

func (c *compiler) compileInPred(in InPred) (string, error) {
	col, err := resolveColumn(in.Field)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, 0, len(in.Values))
	for _, v := range in.Values {
		arg, err := valueToArg(v)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, arg)
		placeholders = append(placeholders, "?")
	}
	return col + " IN (" + strings.Join(placeholders, ",") + ")", nil
}

func (c *compiler) compileTemporalFn(fn TemporalFn) (string, error) {
	switch fn.Name {
	case "FRESH":
		mod, err := durationModifier(fn.Arg)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, mod)
		return "observed_at >= datetime('now', ?)", nil
	case "STALE":
		mod, err := durationModifier(fn.Arg)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, mod)
		return "valid_until < datetime('now', ?)", nil
	case "EXPIRED":
		return "valid_until < datetime('now')", nil
	case "CURRENT":
		return "(superseded_by IS NULL AND valid_until >= datetime('now'))", nil
	case "LATEST":
		return "superseded_by IS NULL", nil
	case "AS_OF":
		c.args = append(c.args, fn.Arg, fn.Arg)
		return "(observed_at <= ? AND valid_until >= ?)", nil
	default:
		return "", mkberr.NewMkqlParseError(fmt.Sprintf("unknown temporal function %q", fn.Name), 0)
	}
}

func (c *compiler) compileLinkedFn(fn LinkedFn) (string, error) {
	if fn.Reverse {
		if fn.HasOther {
			c.args = append(c.args, fn.Rel, fn.Other)
			return "id IN (SELECT target_id FROM links WHERE rel = ? AND source_id = ?)", nil
		}
		c.args = append(c.args, fn.Rel)
		return "id IN (SELECT target_id FROM links WHERE rel = ?)", nil
	}
	if fn.HasOther {
		c.args = append(c.args, fn.Rel, fn.Other)
		return "id IN (SELECT source_id FROM links WHERE rel = ? AND target_id = ?)", nil
	}
	c.args = append(c.args, fn.Rel)
	return "id IN (SELECT source_id FROM links WHERE rel = ?)", nil
}

// ResolveColumn exposes the builtin-column-or-json_extract mapping used for
// WHERE/ORDER BY fields to callers outside the package (the executor's
// SELECT-list builder), so a named projection stays on the same safe path.
func ResolveColumn(field string) (string, error) { return resolveColumn(field) }

func resolveColumn(field string) (string, error) {
	if col, ok := builtinColumns[field]; ok {
		return col, nil
	}
	if !isSafeIdent(field) {
		return "", mkberr.NewMkqlParseError(fmt.Sprintf("invalid field name %q", field), 0)
	}
	return fmt.Sprintf("json_extract(fields_json, '$.%s')", field), nil
}

func resolveColumnForOrder(field string) (string, error) {
	return resolveColumn(field)
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func valueToArg(v Value) (interface{}, error) {
	switch v.Kind {
	case "string":
		return v.Str, nil
	case "integer":
		return v.Int, nil
	case "float":
		return v.Num, nil
	case "boolean":
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case "null":
		return nil, nil
	default:
		return nil, mkberr.NewMkqlParseError(fmt.Sprintf("unknown value kind %q", v.Kind), 0)
	}
}

// durationModifier converts a duration literal like "7d" or "-30d" into a
// SQLite datetime() modifier such as "-7 days". Only whole-day granularity
// is accepted, matching the FRESH/STALE grammar in the query language spec.
func durationModifier(lit string) (string, error) {
	s := strings.TrimPrefix(strings.TrimSpace(lit), "-")
	if !strings.HasSuffix(s, "d") {
		return "", mkberr.NewMkqlParseError(fmt.Sprintf("unsupported duration literal %q (expected Nd)", lit), 0)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil {
		return "", mkberr.NewMkqlParseError(fmt.Sprintf("unsupported duration literal %q", lit), 0)
	}
	return fmt.Sprintf("-%d days", n), nil
}

// ftsPhrase quotes text as an FTS5 phrase query, doubling internal quotes
// per the MATCH string-literal escaping rule.
func ftsPhrase(text string) string {
	escaped := strings.ReplaceAll(text, `"`, `""`)
	return `"` + escaped + `"`
}
