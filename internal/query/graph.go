package query

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mkb-project/mkb/internal/mkberr"
)

// GraphNode is a document as it appears in a rendered subgraph.
type GraphNode struct {
	ID      string `json:"id"`
	DocType string `json:"doc_type"`
	Title   string `json:"title"`
}

// GraphEdge is one link between two documents.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Rel    string `json:"rel"`
}

// Subgraph is a node/edge set centered on a document, or built from a whole
// document type, ready to hand to a renderer.
type Subgraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphBuilder traverses the links table to build subgraphs for the
// Graph Builder component. It reads through the same *sql.DB the index
// package owns; it does not manage schema or writes.
type GraphBuilder struct {
	conn *sql.DB
}

// NewGraphBuilder wraps an open index connection for graph queries.
func NewGraphBuilder(conn *sql.DB) *GraphBuilder {
	return &GraphBuilder{conn: conn}
}

const maxGraphDepth = 6

// FromCenter performs a bidirectional breadth traversal from centerID out to
// depth hops (clamped to maxGraphDepth), optionally restricted to a single
// relationship type. Cycles are broken by tracking visited ids.
func (g *GraphBuilder) FromCenter(centerID string, depth int, rel string) (*Subgraph, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > maxGraphDepth {
		depth = maxGraphDepth
	}

	visited := map[string]bool{centerID: true}
	frontier := []string{centerID}
	sub := &Subgraph{}
	edgeSeen := map[string]bool{}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		next := []string{}
		for _, id := range frontier {
			rows, err := g.neighborEdges(id, rel)
			if err != nil {
				return nil, err
			}
			for _, e := range rows {
				key := e.Source + "\x00" + e.Target + "\x00" + e.Rel
				if !edgeSeen[key] {
					edgeSeen[key] = true
					sub.Edges = append(sub.Edges, e)
				}
				other := e.Target
				if other == id {
					other = e.Source
				}
				if !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	nodes, err := g.fetchNodes(ids)
	if err != nil {
		return nil, err
	}
	sub.Nodes = nodes
	return sub, nil
}

// FromType returns every document of docType as a node set, with edges
// between any two of them that carry a direct link.
func (g *GraphBuilder) FromType(docType string) (*Subgraph, error) {
	rows, err := g.conn.Query(`SELECT id, doc_type, title FROM documents WHERE doc_type = ?`, docType)
	if err != nil {
		return nil, mkberr.NewIndexError("from_type query failed", err)
	}
	defer rows.Close()

	sub := &Subgraph{}
	ids := map[string]bool{}
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.DocType, &n.Title); err != nil {
			return nil, mkberr.NewIndexError("from_type scan failed", err)
		}
		sub.Nodes = append(sub.Nodes, n)
		ids[n.ID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, mkberr.NewIndexError("from_type failed", err)
	}

	erows, err := g.conn.Query(`SELECT source_id, target_id, rel FROM links`)
	if err != nil {
		return nil, mkberr.NewIndexError("from_type link query failed", err)
	}
	defer erows.Close()
	for erows.Next() {
		var e GraphEdge
		if err := erows.Scan(&e.Source, &e.Target, &e.Rel); err != nil {
			return nil, mkberr.NewIndexError("from_type link scan failed", err)
		}
		if ids[e.Source] && ids[e.Target] {
			sub.Edges = append(sub.Edges, e)
		}
	}
	return sub, erows.Err()
}

// ShortestPath runs a breadth-first recursive CTE over links to find the
// minimum-hop path from -> to. Returns nil, nil if no path exists.
func (g *GraphBuilder) ShortestPath(from, to string) ([]string, error) {
	if from == to {
		return []string{from}, nil
	}

	const cte = `
	WITH RECURSIVE bfs(target_id, depth, path_ids) AS (
		SELECT target_id, 1, source_id || '|' || target_id
		FROM links
		WHERE source_id = ?

		UNION ALL

		SELECT l.target_id, b.depth + 1, b.path_ids || '|' || l.target_id
		FROM links l
		JOIN bfs b ON l.source_id = b.target_id
		WHERE b.depth < 20
		  AND instr('|' || b.path_ids || '|', '|' || l.target_id || '|') = 0
	)
	SELECT path_ids FROM bfs WHERE target_id = ? ORDER BY depth ASC LIMIT 1`

	var pathIDs string
	err := g.conn.QueryRow(cte, from, to).Scan(&pathIDs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mkberr.NewIndexError("shortest_path failed", err)
	}
	return strings.Split(pathIDs, "|"), nil
}

func (g *GraphBuilder) neighborEdges(id, rel string) ([]GraphEdge, error) {
	query := `SELECT source_id, target_id, rel FROM links WHERE (source_id = ? OR target_id = ?)`
	args := []interface{}{id, id}
	if rel != "" {
		query += ` AND rel = ?`
		args = append(args, rel)
	}
	rows, err := g.conn.Query(query, args...)
	if err != nil {
		return nil, mkberr.NewIndexError("neighbor query failed", err)
	}
	defer rows.Close()

	var out []GraphEdge
	for rows.Next() {
		var e GraphEdge
		if err := rows.Scan(&e.Source, &e.Target, &e.Rel); err != nil {
			return nil, mkberr.NewIndexError("neighbor scan failed", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (g *GraphBuilder) fetchNodes(ids []string) ([]GraphNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := "SELECT id, doc_type, title FROM documents WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := g.conn.Query(q, args...)
	if err != nil {
		return nil, mkberr.NewIndexError("fetch_nodes failed", err)
	}
	defer rows.Close()

	var out []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.DocType, &n.Title); err != nil {
			return nil, mkberr.NewIndexError("fetch_nodes scan failed", err)
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, rows.Err()
}

// RenderDOT renders a subgraph as a Graphviz DOT document.
func RenderDOT(sub *Subgraph) string {
	var b strings.Builder
	b.WriteString("digraph mkb {\n")
	for _, n := range sub.Nodes {
		fmt.Fprintf(&b, "  %q [label=%q];\n", n.ID, n.Title)
	}
	for _, e := range sub.Edges {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.Rel)
	}
	b.WriteString("}\n")
	return b.String()
}

// RenderMermaid renders a subgraph as a Mermaid flowchart definition.
func RenderMermaid(sub *Subgraph) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, e := range sub.Edges {
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", mermaidID(e.Source), e.Rel, mermaidID(e.Target))
	}
	for _, n := range sub.Nodes {
		fmt.Fprintf(&b, "  %s[%q]\n", mermaidID(n.ID), n.Title)
	}
	return b.String()
}

// RenderJSON renders a subgraph as pretty-printed {"nodes":[...],"edges":[...]}.
func RenderJSON(sub *Subgraph) (string, error) {
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return "", mkberr.NewSerializationError("failed to marshal subgraph", err)
	}
	return string(data), nil
}

func mermaidID(id string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(id)
}
