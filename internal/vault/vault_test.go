package vault

import (
	"errors"
	"testing"
	"time"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/mkberr"
	"github.com/mkb-project/mkb/internal/temporal"
)

func mkDoc(id, title string, observed time.Time) document.Document {
	return document.Document{
		ID:      id,
		DocType: "project",
		Title:   title,
		Temporal: document.TemporalFields{
			ObservedAt: observed,
		},
		Confidence: document.DefaultConfidence,
		Body:       "body text\n",
	}
}

func TestOpenFailsWithoutInit(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	if err == nil {
		t.Fatal("expected error opening uninitialized root")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := Init(dir); err != nil {
		t.Fatalf("second init should be idempotent: %v", err)
	}
}

func TestCreateReadUpdateDelete(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}

	observed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := mkDoc("proj-alpha-001", "Alpha", observed)

	path, err := v.Create(doc, temporal.ProfileDefault)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if path == "" {
		t.Fatal("expected non-empty path")
	}

	// duplicate create fails
	if _, err := v.Create(doc, temporal.ProfileDefault); err == nil {
		t.Fatal("expected duplicate create to fail")
	}

	got, err := v.Read("project", "proj-alpha-001")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Title != "Alpha" {
		t.Errorf("title = %q", got.Title)
	}

	got.Title = "Alpha Renamed"
	if _, err := v.Update(got, temporal.ProfileDefault); err != nil {
		t.Fatalf("update: %v", err)
	}
	reread, err := v.Read("project", "proj-alpha-001")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if reread.Title != "Alpha Renamed" {
		t.Errorf("title after update = %q", reread.Title)
	}
	if !reread.CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("created_at should be preserved across update")
	}

	if err := v.Delete("project", "proj-alpha-001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := v.Read("project", "proj-alpha-001"); err == nil {
		t.Fatal("expected read to fail after delete")
	}

	// recreate at the same id succeeds once archived
	if _, err := v.Create(doc, temporal.ProfileDefault); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestCreateRejectsMissingObservedAt(t *testing.T) {
	dir := t.TempDir()
	v, _ := Init(dir)
	doc := document.Document{ID: "proj-x-001", DocType: "project", Title: "X"}
	_, err := v.Create(doc, temporal.ProfileDefault)
	var terr *mkberr.TemporalError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TemporalError, got %v", err)
	}
}

func TestNextCounter(t *testing.T) {
	dir := t.TempDir()
	v, _ := Init(dir)
	observed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := v.NextCounter("project", "alpha-project")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("first counter = %d, want 1", n)
	}

	doc := mkDoc("proj-alpha-project-001", "Alpha Project", observed)
	if _, err := v.Create(doc, temporal.ProfileDefault); err != nil {
		t.Fatal(err)
	}

	n, err = v.NextCounter("project", "alpha-project")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("next counter = %d, want 2", n)
	}

	got := document.GenerateID("project", "Alpha Project", n)
	if got != "proj-alpha-project-002" {
		t.Errorf("generated id = %q", got)
	}
}

func TestListDocumentsSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	v, _ := Init(dir)
	observed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := mkDoc("proj-alpha-001", "Alpha", observed)
	if _, err := v.Create(doc, temporal.ProfileDefault); err != nil {
		t.Fatal(err)
	}

	docs, err := v.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d: %v", len(docs), docs)
	}
}

func TestSavedViews(t *testing.T) {
	dir := t.TempDir()
	v, _ := Init(dir)

	view := document.SavedView{Name: "active-projects", Query: "SELECT * FROM project WHERE CURRENT()"}
	if err := v.SaveView(view); err != nil {
		t.Fatal(err)
	}

	names, err := v.ListViews()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "active-projects" {
		t.Fatalf("views = %v", names)
	}

	got, err := v.LoadView("active-projects")
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != view.Query {
		t.Errorf("query mismatch: %q", got.Query)
	}

	if err := v.DeleteView("active-projects"); err != nil {
		t.Fatal(err)
	}
	if _, err := v.LoadView("active-projects"); err == nil {
		t.Fatal("expected load to fail after delete")
	}
}

func TestRejectionQuarantine(t *testing.T) {
	dir := t.TempDir()
	v, _ := Init(dir)

	n, err := v.RejectionCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rejections, got %d", n)
	}

	if err := v.WriteRejection("bad.md", "garbage content", errors.New("missing observed_at"), nil); err != nil {
		t.Fatal(err)
	}

	n, err = v.RejectionCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 rejection, got %d", n)
	}
}
