// Package vault implements the content-addressed filesystem store (C5):
// file layout, CRUD, soft-delete/archive, saved views, rejection quarantine,
// and counter-based id allocation. The vault is the source of truth; the
// index (package index) is a rebuildable cache over it.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/frontmatter"
	"github.com/mkb-project/mkb/internal/mkberr"
	"github.com/mkb-project/mkb/internal/temporal"
	"gopkg.in/yaml.v2"
)

// Vault is a handle onto an initialized vault root.
type Vault struct {
	Root string
}

const (
	mkbDir        = ".mkb"
	archiveDir    = ".archive"
	indexSubdir   = "index"
	viewsSubdir   = "views"
	ingestSubdir  = "ingestion"
	rejectedDir   = "rejected"
	indexFileName = "mkb.db"
)

// Init creates the full skeleton under root. Idempotent on an
// already-initialized root.
func Init(root string) (*Vault, error) {
	dirs := []string{
		filepath.Join(root, mkbDir, indexSubdir),
		filepath.Join(root, mkbDir, viewsSubdir),
		filepath.Join(root, mkbDir, ingestSubdir, rejectedDir),
		filepath.Join(root, archiveDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, mkberr.NewVaultError("failed to create vault skeleton", err)
		}
	}
	return &Vault{Root: root}, nil
}

// Open attaches to an existing vault root. It fails if root/.mkb is
// missing.
func Open(root string) (*Vault, error) {
	info, err := os.Stat(filepath.Join(root, mkbDir))
	if err != nil || !info.IsDir() {
		return nil, mkberr.NewVaultError(
			fmt.Sprintf("%s is not an MKB vault; run 'mkb init' first", root), nil)
	}
	return &Vault{Root: root}, nil
}

// IndexPath returns the path to the derived index database file.
func (v *Vault) IndexPath() string {
	return filepath.Join(v.Root, mkbDir, indexSubdir, indexFileName)
}

func (v *Vault) docPath(docType, id string) string {
	return filepath.Join(v.Root, document.TypeDir(docType), id+".md")
}

func (v *Vault) archivePath(docType, id string) string {
	return filepath.Join(v.Root, archiveDir, document.TypeDir(docType), id+".md")
}

// Create validates the document's temporal fields via the Gate, fails if
// the target path already exists, creates parent directories, and writes
// the document via the frontmatter codec. Returns the path written.
func (v *Vault) Create(doc document.Document, profile temporal.DecayProfile) (string, error) {
	fields, err := temporal.Validate(temporal.RawInput{
		ObservedAt:        nonZero(doc.Temporal.ObservedAt),
		ValidUntil:        nonZero(doc.Temporal.ValidUntil),
		TemporalPrecision: doc.Temporal.TemporalPrecision,
		OccurredAt:        doc.Temporal.OccurredAt,
	}, profile)
	if err != nil {
		return "", err
	}
	doc.Temporal = fields

	path := v.docPath(doc.DocType, doc.ID)
	if _, err := os.Stat(path); err == nil {
		return "", mkberr.NewVaultError(fmt.Sprintf("document already exists at %s", path), nil)
	}

	if doc.Confidence == 0 {
		doc.Confidence = document.DefaultConfidence
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", mkberr.NewVaultError("failed to create parent directory", err)
	}

	text, err := frontmatter.WriteDocument(doc)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", mkberr.NewVaultError("failed to write document", err)
	}
	return path, nil
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Read loads and parses a document by type and id.
func (v *Vault) Read(docType, id string) (document.Document, error) {
	path := v.docPath(docType, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, mkberr.NewVaultError(fmt.Sprintf("document not found: %s/%s", docType, id), err)
	}
	return frontmatter.ParseDocument(string(data))
}

// Update requires an existing file, preserves created_at from disk, sets
// modified_at to now, and re-runs the Gate.
func (v *Vault) Update(doc document.Document, profile temporal.DecayProfile) (string, error) {
	path := v.docPath(doc.DocType, doc.ID)
	existing, err := os.ReadFile(path)
	if err != nil {
		return "", mkberr.NewVaultError(fmt.Sprintf("document not found: %s/%s", doc.DocType, doc.ID), err)
	}
	old, err := frontmatter.ParseDocument(string(existing))
	if err != nil {
		return "", err
	}

	fields, err := temporal.Validate(temporal.RawInput{
		ObservedAt:        nonZero(doc.Temporal.ObservedAt),
		ValidUntil:        nonZero(doc.Temporal.ValidUntil),
		TemporalPrecision: doc.Temporal.TemporalPrecision,
		OccurredAt:        doc.Temporal.OccurredAt,
	}, profile)
	if err != nil {
		return "", err
	}

	doc.Temporal = fields
	doc.CreatedAt = old.CreatedAt
	doc.ModifiedAt = time.Now().UTC()

	text, err := frontmatter.WriteDocument(doc)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", mkberr.NewVaultError("failed to write document", err)
	}
	return path, nil
}

// Delete soft-deletes by moving the file under .archive/<type-plural>/.
func (v *Vault) Delete(docType, id string) error {
	src := v.docPath(docType, id)
	dst := v.archivePath(docType, id)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return mkberr.NewVaultError("failed to create archive directory", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return mkberr.NewVaultError(fmt.Sprintf("failed to archive %s/%s", docType, id), err)
	}
	return nil
}

// ListDocuments recursively enumerates every .md file under the vault root,
// skipping hidden directories (.archive, .mkb, ...).
func (v *Vault) ListDocuments() ([]string, error) {
	var out []string
	err := filepath.WalkDir(v.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != v.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".md") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, mkberr.NewVaultError("failed to list documents", err)
	}
	sort.Strings(out)
	return out, nil
}

// SaveView writes a named MKQL query to .mkb/views/<name>.yaml.
func (v *Vault) SaveView(view document.SavedView) error {
	if view.Name == "" {
		return mkberr.NewVaultError("view name is required", nil)
	}
	data, err := yaml.Marshal(view)
	if err != nil {
		return mkberr.NewSerializationError("failed to marshal saved view", err)
	}
	path := filepath.Join(v.Root, mkbDir, viewsSubdir, view.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return mkberr.NewVaultError("failed to write saved view", err)
	}
	return nil
}

// LoadView reads a named saved view.
func (v *Vault) LoadView(name string) (document.SavedView, error) {
	path := filepath.Join(v.Root, mkbDir, viewsSubdir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return document.SavedView{}, mkberr.NewVaultError(fmt.Sprintf("saved view not found: %s", name), err)
	}
	var view document.SavedView
	if err := yaml.Unmarshal(data, &view); err != nil {
		return document.SavedView{}, mkberr.NewSerializationError("failed to parse saved view", err)
	}
	return view, nil
}

// ListViews returns the names of all saved views.
func (v *Vault) ListViews() ([]string, error) {
	dir := filepath.Join(v.Root, mkbDir, viewsSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mkberr.NewVaultError("failed to list saved views", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// DeleteView removes a saved view.
func (v *Vault) DeleteView(name string) error {
	path := filepath.Join(v.Root, mkbDir, viewsSubdir, name+".yaml")
	if err := os.Remove(path); err != nil {
		return mkberr.NewVaultError(fmt.Sprintf("saved view not found: %s", name), err)
	}
	return nil
}

// WriteRejection quarantines a piece of content that failed ingestion,
// tagged with the timestamp, the error, and any extraction attempts.
func (v *Vault) WriteRejection(filename, content string, ingestErr error, attempts []string) error {
	ts := time.Now().UTC().Format("20060102-150405")
	name := fmt.Sprintf("%s-%s", ts, filepath.Base(filename))
	path := filepath.Join(v.Root, mkbDir, ingestSubdir, rejectedDir, name)

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("rejected_at: %q\n", time.Now().UTC().Format(time.RFC3339)))
	msg := ""
	if ingestErr != nil {
		msg = ingestErr.Error()
	}
	sb.WriteString(fmt.Sprintf("error: %q\n", msg))
	sb.WriteString(fmt.Sprintf("original_file: %q\n", filename))
	if len(attempts) > 0 {
		sb.WriteString("extraction_attempts:\n")
		for _, a := range attempts {
			sb.WriteString(fmt.Sprintf("  - %q\n", a))
		}
	}
	sb.WriteString("---\n")
	sb.WriteString(content)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return mkberr.NewVaultError("failed to write rejection", err)
	}
	return nil
}

// RejectionCount returns the number of quarantined entries.
func (v *Vault) RejectionCount() (int, error) {
	dir := filepath.Join(v.Root, mkbDir, ingestSubdir, rejectedDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, mkberr.NewVaultError("failed to read rejection directory", err)
	}
	return len(entries), nil
}

var counterSuffix = regexp.MustCompile(`-(\d+)$`)

// NextCounter scans <type-plural>/ for files whose stem matches
// <typePrefix>-<slug>-<NNN>, returning max(NNN)+1, or 1 if none exist.
func (v *Vault) NextCounter(docType, slug string) (int, error) {
	dir := filepath.Join(v.Root, document.TypeDir(docType))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, mkberr.NewVaultError("failed to scan type directory", err)
	}

	prefix := document.TypePrefix(docType) + "-" + slug + "-"
	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".md")
		if !strings.HasPrefix(stem, prefix) {
			continue
		}
		m := counterSuffix.FindStringSubmatch(stem)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Slugify is re-exported from package document for callers that only import
// package vault.
func Slugify(title string) string { return document.Slugify(title) }
