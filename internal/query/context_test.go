package query

import (
	"strings"
	"testing"
	"time"

	"github.com/mkb-project/mkb/internal/index"
)

func TestAssembleContextEmptyReturnsEmptyString(t *testing.T) {
	if got := AssembleContext(nil, 1000, true); got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}

func TestAssembleContextSortsByConfidenceDescending(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []index.Row{
		{ID: "low", DocType: "project", Title: "Low", Confidence: 0.3, ObservedAt: now, Body: "low body"},
		{ID: "high", DocType: "project", Title: "High", Confidence: 0.9, ObservedAt: now, Body: "high body"},
	}
	out := AssembleContext(rows, 100000, true)
	if strings.Index(out, "High") > strings.Index(out, "Low") {
		t.Errorf("expected High before Low in %q", out)
	}
}

func TestAssembleContextOverflowWithSummary(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []index.Row{
		{ID: "a", DocType: "project", Title: "A", Confidence: 0.9, ObservedAt: now, Body: strings.Repeat("x", 500)},
		{ID: "b", DocType: "project", Title: "B", Confidence: 0.5, ObservedAt: now, Body: strings.Repeat("y", 500)},
	}
	// budget large enough for one full section plus the summary bullet,
	// not a second full section.
	out := AssembleContext(rows, 200, true)
	if !strings.Contains(out, "## [project] A") {
		t.Errorf("expected first row in full form: %q", out)
	}
	if !strings.Contains(out, "Additional matches") {
		t.Errorf("expected summary header for overflow: %q", out)
	}
	if !strings.Contains(out, "**[project] B**") {
		t.Errorf("expected bullet for overflowed row: %q", out)
	}
}

func TestAssembleContextOverflowWithoutSummaryTruncates(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []index.Row{
		{ID: "a", DocType: "project", Title: "A", Confidence: 0.9, ObservedAt: now, Body: strings.Repeat("x", 500)},
		{ID: "b", DocType: "project", Title: "B", Confidence: 0.5, ObservedAt: now, Body: strings.Repeat("y", 500)},
	}
	out := AssembleContext(rows, 150, false)
	if strings.Contains(out, "Additional matches") {
		t.Errorf("did not expect summary section: %q", out)
	}
	if len(out) > 150*CharsPerToken {
		t.Errorf("output exceeds budget: %d chars", len(out))
	}
}

func TestAssembleContextTinyBudgetTruncatesWithinBudget(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []index.Row{
		{ID: "a", DocType: "project", Title: "A", Confidence: 0.9, ObservedAt: now, Body: strings.Repeat("x", 5000)},
	}
	out := AssembleContext(rows, 1, true)
	if len(out) > 1*CharsPerToken+200 { // small allowance for the summary header itself
		t.Errorf("tiny-budget output too large: %d chars: %q", len(out), out)
	}
}
