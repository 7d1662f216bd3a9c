package query

import (
	"testing"
	"time"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/embedding"
	"github.com/mkb-project/mkb/internal/index"
	"github.com/mkb-project/mkb/internal/mkql"
)

func openTestDB(t *testing.T) *index.DB {
	t.Helper()
	old := index.EmbeddingDim
	index.EmbeddingDim = 4
	t.Cleanup(func() { index.EmbeddingDim = old })

	db, err := index.InMemory()
	if err != nil {
		t.Fatalf("InMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mkDoc(id, docType, title string, observed time.Time, confidence float64) document.Document {
	return document.Document{
		ID:         id,
		DocType:    docType,
		Title:      title,
		CreatedAt:  observed,
		ModifiedAt: observed,
		Confidence: confidence,
		Temporal: document.TemporalFields{
			ObservedAt:        observed,
			ValidUntil:        observed.Add(90 * 24 * time.Hour),
			TemporalPrecision: document.PrecisionExact,
		},
		Body: title + " body",
	}
}

// fakeProvider returns a deterministic, caller-assigned vector per text so
// NEAR() tests can control which candidates rank closest.
type fakeProvider struct {
	vectors map[string][]float32
	dim     int
}

func (f *fakeProvider) Embed(text string, _ embedding.Purpose) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}
func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Dimensions() int { return f.dim }

func TestExecuteSimpleComparison(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.IndexDocument(mkDoc("proj-a-001", "project", "A", now, 1.0)); err != nil {
		t.Fatal(err)
	}
	if err := db.IndexDocument(mkDoc("mtg-b-001", "meeting", "B", now, 1.0)); err != nil {
		t.Fatal(err)
	}

	q, err := mkql.Parse("SELECT * FROM project")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(db, nil, 0, cq)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("total = %d, want 1", res.Total)
	}
	if res.Rows[0]["id"] != "proj-a-001" {
		t.Errorf("id = %v", res.Rows[0]["id"])
	}
}

func TestExecuteDefaultOrderByObservedAtDesc(t *testing.T) {
	db := openTestDB(t)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := db.IndexDocument(mkDoc("proj-old-001", "project", "Old", older, 1.0)); err != nil {
		t.Fatal(err)
	}
	if err := db.IndexDocument(mkDoc("proj-new-001", "project", "New", newer, 1.0)); err != nil {
		t.Fatal(err)
	}

	q, err := mkql.Parse("SELECT * FROM project")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(db, nil, 0, cq)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 || res.Rows[0]["id"] != "proj-new-001" {
		t.Fatalf("rows = %+v, want newest first", res.Rows)
	}
}

func TestExecuteCurrentSemantics(t *testing.T) {
	// CURRENT() compiles to a literal datetime('now') comparison, so the
	// fixture dates are expressed relative to wall-clock time rather than
	// fixed calendar dates.
	db := openTestDB(t)
	observedAt := time.Now().UTC().AddDate(0, -6, 0)

	d1 := mkDoc("proj-d1-001", "project", "D1", observedAt, 1.0)
	d1.Temporal.ValidUntil = time.Now().UTC().AddDate(0, 6, 0)

	d2 := mkDoc("proj-d2-001", "project", "D2", observedAt, 1.0)
	d2.Temporal.ValidUntil = time.Now().UTC().AddDate(0, -1, 0)

	d3 := mkDoc("proj-d3-001", "project", "D3", observedAt, 1.0)
	d3.Temporal.ValidUntil = time.Now().UTC().AddDate(0, 6, 0)
	d3.SupersededBy = "proj-d1-001"

	for _, d := range []document.Document{d1, d2, d3} {
		if err := db.IndexDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	q, err := mkql.Parse("SELECT * FROM project WHERE CURRENT()")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(db, nil, 0, cq)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["id"] != "proj-d1-001" {
		t.Fatalf("CURRENT() rows = %+v, want only proj-d1-001", res.Rows)
	}
}

func TestExecuteNearFiltersByTypeAndDistance(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	close1 := mkDoc("proj-close-001", "project", "Close", now, 1.0)
	far := mkDoc("proj-far-001", "project", "Far", now, 1.0)
	meeting := mkDoc("mtg-close-001", "meeting", "MeetingClose", now, 1.0)

	for _, d := range []document.Document{close1, far, meeting} {
		if err := db.IndexDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	query := []float32{1, 0, 0, 0}
	if err := db.StoreEmbedding("proj-close-001", []float32{1, 0, 0, 0}, "fake"); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreEmbedding("proj-far-001", []float32{0, 1, 0, 0}, "fake"); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreEmbedding("mtg-close-001", []float32{1, 0, 0, 0}, "fake"); err != nil {
		t.Fatal(err)
	}

	provider := &fakeProvider{dim: 4, vectors: map[string][]float32{"systems programming": query}}

	q, err := mkql.Parse("SELECT * FROM project WHERE NEAR('systems programming', 0.0)")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(db, provider, 10, cq)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["id"] != "proj-close-001" {
		t.Fatalf("NEAR rows = %+v, want only proj-close-001 (meeting excluded by type, far excluded by distance)", res.Rows)
	}
}

func TestExecuteNearWithoutProviderFails(t *testing.T) {
	db := openTestDB(t)
	q, err := mkql.Parse("SELECT * FROM project WHERE NEAR('x', 0.5)")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Execute(db, nil, 0, cq); err == nil {
		t.Fatal("expected error for NEAR() without a provider")
	}
}

func TestExecuteEffConfidencePostFilter(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.IndexDocument(mkDoc("proj-hi-001", "project", "Hi", now, 0.9)); err != nil {
		t.Fatal(err)
	}
	if err := db.IndexDocument(mkDoc("proj-lo-001", "project", "Lo", now, 0.2)); err != nil {
		t.Fatal(err)
	}

	q, err := mkql.Parse("SELECT * FROM project WHERE EFF_CONFIDENCE(>= 0.5)")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(db, nil, 0, cq)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["id"] != "proj-hi-001" {
		t.Fatalf("rows = %+v, want only proj-hi-001", res.Rows)
	}
}

func TestExecuteEmptyResult(t *testing.T) {
	db := openTestDB(t)
	q, err := mkql.Parse("SELECT * FROM project")
	if err != nil {
		t.Fatal(err)
	}
	cq, err := mkql.Compile(q)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(db, nil, 0, cq)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || len(res.Rows) != 0 {
		t.Fatalf("res = %+v, want empty", res)
	}
}
