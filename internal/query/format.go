package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mkb-project/mkb/internal/mkberr"
)

// Format selects one of the result renderers.
type Format string

const (
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
)

// FormatResult renders a QueryResult in the requested format.
func FormatResult(res QueryResult, format Format) (string, error) {
	switch format {
	case FormatJSON, "":
		return formatJSON(res)
	case FormatTable:
		return formatTable(res), nil
	case FormatMarkdown:
		return formatMarkdown(res), nil
	default:
		return "", mkberr.NewIndexError(fmt.Sprintf("unknown result format %q", format), nil)
	}
}

func formatJSON(res QueryResult) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", mkberr.NewSerializationError("failed to marshal query result", err)
	}
	return string(data), nil
}

// columnsOf returns the sorted union of every row's keys.
func columnsOf(rows []map[string]interface{}) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// formatTable renders columns sorted alphabetically, with widths computed
// from the max of the header and every cell in that column, and a
// "-+-"-joined separator row.
func formatTable(res QueryResult) string {
	if len(res.Rows) == 0 {
		return "(no rows)\n"
	}
	cols := columnsOf(res.Rows)
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cells := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := cellString(row[c])
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRow := func(vals []string) {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = padRight(v, widths[i])
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	writeRow(cols)

	sepParts := make([]string, len(cols))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(sepParts, "-+-"))
	b.WriteString("\n")

	for _, row := range cells {
		writeRow(row)
	}
	return b.String()
}

// formatMarkdown renders a pipe-delimited table with a "---" header rule.
func formatMarkdown(res QueryResult) string {
	if len(res.Rows) == 0 {
		return "(no rows)\n"
	}
	cols := columnsOf(res.Rows)

	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")

	rule := make([]string, len(cols))
	for i := range cols {
		rule[i] = "---"
	}
	b.WriteString("| " + strings.Join(rule, " | ") + " |\n")

	for _, row := range res.Rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = cellString(row[c])
		}
		b.WriteString("| " + strings.Join(vals, " | ") + " |\n")
	}
	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
