package frontmatter

import (
	"testing"
	"time"

	"github.com/mkb-project/mkb/internal/document"
)

func TestSplitMissingOpener(t *testing.T) {
	_, _, err := Split("no header here")
	if err == nil {
		t.Fatal("expected error for missing opener")
	}
}

func TestSplitMissingCloser(t *testing.T) {
	_, _, err := Split("---\nid: x\nno closer")
	if err == nil {
		t.Fatal("expected error for missing closer")
	}
}

func TestSplitOK(t *testing.T) {
	yamlStr, body, err := Split("---\nid: x\n---\n\nhello\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if yamlStr != "id: x" {
		t.Errorf("yamlStr = %q", yamlStr)
	}
	if body != "\nhello\n" {
		t.Errorf("body = %q", body)
	}
}

func TestRoundTrip(t *testing.T) {
	observed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	validUntil := observed.Add(90 * 24 * time.Hour)
	created := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	doc := document.Document{
		ID:         "proj-alpha-001",
		DocType:    "project",
		Title:      "Alpha",
		CreatedAt:  created,
		ModifiedAt: created,
		Temporal: document.TemporalFields{
			ObservedAt:        observed,
			ValidUntil:        validUntil,
			TemporalPrecision: document.PrecisionExact,
		},
		Confidence: 0.9,
		Tags:       []string{"a", "b"},
		Fields: map[string]document.TaggedValue{
			"status": {Kind: "string", String: "active"},
		},
		Body: "Some project body.\n",
	}

	text, err := WriteDocument(doc)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := ParseDocument(text)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if got.ID != doc.ID || got.DocType != doc.DocType || got.Title != doc.Title {
		t.Errorf("identity mismatch: %+v", got)
	}
	if !got.Temporal.ObservedAt.Equal(doc.Temporal.ObservedAt) {
		t.Errorf("observed_at mismatch: %v vs %v", got.Temporal.ObservedAt, doc.Temporal.ObservedAt)
	}
	if !got.Temporal.ValidUntil.Equal(doc.Temporal.ValidUntil) {
		t.Errorf("valid_until mismatch")
	}
	if got.Temporal.TemporalPrecision != doc.Temporal.TemporalPrecision {
		t.Errorf("precision mismatch: %v", got.Temporal.TemporalPrecision)
	}
	if got.Confidence != doc.Confidence {
		t.Errorf("confidence mismatch: %v", got.Confidence)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" {
		t.Errorf("tags mismatch: %v", got.Tags)
	}
	if got.Body != doc.Body {
		t.Errorf("body mismatch: %q vs %q", got.Body, doc.Body)
	}
	statusVal, ok := got.Fields["status"]
	if !ok || statusVal.String != "active" {
		t.Errorf("fields overflow mismatch: %+v", got.Fields)
	}
}

func TestParseLooseFallsBackOnError(t *testing.T) {
	title, _, body := ParseLoose("not frontmatter at all, just text")
	if title != "" {
		t.Errorf("expected empty title, got %q", title)
	}
	if body == "" {
		t.Errorf("expected body to fall back to original content")
	}
}
