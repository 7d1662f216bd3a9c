package query

import (
	"strings"
	"testing"
	"time"

	"github.com/mkb-project/mkb/internal/document"
)

func TestGraphFromCenterBFSAndDedup(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	a := mkDoc("proj-a-001", "project", "A", now, 1.0)
	b := mkDoc("proj-b-001", "project", "B", now, 1.0)
	c := mkDoc("proj-c-001", "project", "C", now, 1.0)
	for _, d := range []document.Document{a, b, c} {
		if err := db.IndexDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.StoreLinks(a.ID, []document.Link{
		{Rel: "blocks", Target: b.ID, ObservedAt: now},
		{Rel: "blocks", Target: b.ID, ObservedAt: now}, // duplicate, should not double the edge
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreLinks(b.ID, []document.Link{
		{Rel: "blocks", Target: c.ID, ObservedAt: now},
	}); err != nil {
		t.Fatal(err)
	}

	builder := NewGraphBuilder(db.Conn())

	sub, err := builder.FromCenter(a.ID, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Nodes) != 2 || len(sub.Edges) != 1 {
		t.Fatalf("depth 1: nodes=%d edges=%d, want 2/1: %+v", len(sub.Nodes), len(sub.Edges), sub)
	}

	sub2, err := builder.FromCenter(a.ID, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sub2.Nodes) != 3 || len(sub2.Edges) != 2 {
		t.Fatalf("depth 2: nodes=%d edges=%d, want 3/2: %+v", len(sub2.Nodes), len(sub2.Edges), sub2)
	}
}

func TestGraphShortestPath(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"proj-a-001", "proj-b-001", "proj-c-001", "proj-d-001"} {
		if err := db.IndexDocument(mkDoc(id, "project", id, now, 1.0)); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.StoreLinks("proj-a-001", []document.Link{
		{Rel: "blocks", Target: "proj-b-001", ObservedAt: now},
		{Rel: "references", Target: "proj-d-001", ObservedAt: now},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreLinks("proj-b-001", []document.Link{{Rel: "blocks", Target: "proj-c-001", ObservedAt: now}}); err != nil {
		t.Fatal(err)
	}

	builder := NewGraphBuilder(db.Conn())

	path, err := builder.ShortestPath("proj-a-001", "proj-c-001")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"proj-a-001", "proj-b-001", "proj-c-001"}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}

	none, err := builder.ShortestPath("proj-c-001", "proj-a-001")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("expected no path for the reverse direction, got %v", none)
	}
}

func TestRenderDOTAndMermaid(t *testing.T) {
	sub := &Subgraph{
		Nodes: []GraphNode{{ID: "proj-a-001", DocType: "project", Title: "A"}},
		Edges: []GraphEdge{{Source: "proj-a-001", Target: "proj-b-001", Rel: "blocks"}},
	}
	dot := RenderDOT(sub)
	if !strings.Contains(dot, "digraph mkb") || !strings.Contains(dot, `"proj-a-001" -> "proj-b-001"`) {
		t.Errorf("dot output = %q", dot)
	}
	mermaid := RenderMermaid(sub)
	if !strings.Contains(mermaid, "graph LR") || !strings.Contains(mermaid, "proj_a_001") {
		t.Errorf("mermaid output = %q", mermaid)
	}

	js, err := RenderJSON(sub)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js, `"nodes"`) || !strings.Contains(js, `"proj-a-001"`) {
		t.Errorf("json output = %q", js)
	}
}
