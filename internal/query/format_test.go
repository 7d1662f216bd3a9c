package query

import (
	"strings"
	"testing"
)

func sampleResult() QueryResult {
	return QueryResult{
		Total: 2,
		Rows: []map[string]interface{}{
			{"id": "proj-a-001", "title": "Alpha", "confidence": 0.9},
			{"id": "proj-b-002", "title": "Beta", "confidence": 0.5},
		},
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatResult(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"total": 2`) {
		t.Errorf("json output missing total: %s", out)
	}
	if !strings.Contains(out, `"proj-a-001"`) {
		t.Errorf("json output missing row: %s", out)
	}
}

func TestFormatTable(t *testing.T) {
	out := formatTable(sampleResult())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 { // header, separator, 2 rows
		t.Fatalf("lines = %d, want 4: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "-+-") {
		t.Errorf("separator row = %q", lines[1])
	}
	// columns sorted alphabetically: confidence, id, title
	if !strings.HasPrefix(lines[0], "confidence") {
		t.Errorf("header = %q, want columns sorted alphabetically", lines[0])
	}
}

func TestFormatMarkdown(t *testing.T) {
	out := formatMarkdown(sampleResult())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("header rule = %q", lines[1])
	}
	if !strings.HasPrefix(lines[0], "| confidence") {
		t.Errorf("header row = %q", lines[0])
	}
}

func TestFormatEmptyResult(t *testing.T) {
	empty := QueryResult{}
	if got := formatTable(empty); got != "(no rows)\n" {
		t.Errorf("table empty = %q", got)
	}
	if got := formatMarkdown(empty); got != "(no rows)\n" {
		t.Errorf("markdown empty = %q", got)
	}
}

func TestFormatUnknownFormat(t *testing.T) {
	if _, err := FormatResult(sampleResult(), Format("bogus")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
