// Package frontmatter implements the document header codec (C3): splitting
// a vault file into its YAML header and markdown body, decoding the header
// into a Document, and emitting a Document back to the on-disk format.
//
// The round-trip law is parse(write(d)) == d for every field in the data
// model; unknown per-type keys in the header survive round-trips via an
// overflow map.
package frontmatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/mkberr"
	"gopkg.in/yaml.v2"
)

const (
	opener = "---\n"
	closer = "\n---\n"
)

// Split separates content into its raw YAML header text and trailing body.
// It fails with a *mkberr.ParseError if the opening or closing delimiter is
// missing.
func Split(content string) (yamlStr string, body string, err error) {
	if !strings.HasPrefix(content, opener) {
		return "", "", mkberr.NewParseError("missing opening --- delimiter")
	}
	rest := content[len(opener):]
	idx := strings.Index(rest, closer)
	if idx < 0 {
		// Tolerate a header that is the entire remaining content with no
		// trailing newline before the closer.
		if strings.HasSuffix(rest, "\n---") {
			yamlStr = rest[:len(rest)-len("\n---")]
			return yamlStr, "", nil
		}
		return "", "", mkberr.NewParseError("missing closing --- delimiter")
	}
	yamlStr = rest[:idx]
	body = rest[idx+len(closer):]
	return yamlStr, body, nil
}

// header is the typed header shape plus an overflow map for per-type
// schema fields that are not part of the well-known block.
type header struct {
	ID                string                 `yaml:"id"`
	Type              string                 `yaml:"type"`
	Title             string                 `yaml:"title"`
	CreatedAt         string                 `yaml:"_created_at"`
	ModifiedAt        string                 `yaml:"_modified_at"`
	ObservedAt        string                 `yaml:"observed_at"`
	ValidUntil        string                 `yaml:"valid_until"`
	TemporalPrecision string                 `yaml:"temporal_precision"`
	OccurredAt        string                 `yaml:"occurred_at,omitempty"`
	Confidence        *float64               `yaml:"confidence,omitempty"`
	Source            string                 `yaml:"source,omitempty"`
	SourceHash        string                 `yaml:"source_hash,omitempty"`
	Supersedes        string                 `yaml:"supersedes,omitempty"`
	SupersededBy      string                 `yaml:"superseded_by,omitempty"`
	Tags              []string               `yaml:"tags,omitempty"`
	Links             []linkYAML             `yaml:"links,omitempty"`
	Extra             map[string]interface{} `yaml:",inline"`
}

type linkYAML struct {
	Rel        string                 `yaml:"rel"`
	Target     string                 `yaml:"target"`
	ObservedAt string                 `yaml:"observed_at"`
	Metadata   map[string]interface{} `yaml:"metadata,omitempty"`
}

const rfc3339 = time.RFC3339

func parseTime(s string) (time.Time, error) {
	return time.Parse(rfc3339, s)
}

// ParseDocument parses the full on-disk text of a vault file into a
// Document. The body field is everything after the closing delimiter, less
// the one blank line WriteDocument puts after it.
func ParseDocument(content string) (document.Document, error) {
	yamlStr, body, err := Split(content)
	if err != nil {
		return document.Document{}, err
	}

	var h header
	if err := yaml.Unmarshal([]byte(yamlStr), &h); err != nil {
		return document.Document{}, mkberr.NewParseError(fmt.Sprintf("invalid header YAML: %v", err))
	}

	doc := document.Document{
		ID:           h.ID,
		DocType:      h.Type,
		Title:        h.Title,
		Source:       h.Source,
		SourceHash:   h.SourceHash,
		Supersedes:   h.Supersedes,
		SupersededBy: h.SupersededBy,
		Tags:         h.Tags,
		Body:         strings.TrimPrefix(body, "\n"),
		Confidence:   document.DefaultConfidence,
	}

	if h.Confidence != nil {
		doc.Confidence = *h.Confidence
	}

	if h.CreatedAt != "" {
		if t, err := parseTime(h.CreatedAt); err == nil {
			doc.CreatedAt = t
		}
	}
	if h.ModifiedAt != "" {
		if t, err := parseTime(h.ModifiedAt); err == nil {
			doc.ModifiedAt = t
		}
	}
	if h.ObservedAt != "" {
		if t, err := parseTime(h.ObservedAt); err == nil {
			doc.Temporal.ObservedAt = t
		}
	}
	if h.ValidUntil != "" {
		if t, err := parseTime(h.ValidUntil); err == nil {
			doc.Temporal.ValidUntil = t
		}
	}
	doc.Temporal.TemporalPrecision = document.Precision(h.TemporalPrecision)
	if h.OccurredAt != "" {
		if t, err := parseTime(h.OccurredAt); err == nil {
			doc.Temporal.OccurredAt = &t
		}
	}

	for _, l := range h.Links {
		link := document.Link{Rel: l.Rel, Target: l.Target, Metadata: l.Metadata}
		if l.ObservedAt != "" {
			if t, err := parseTime(l.ObservedAt); err == nil {
				link.ObservedAt = t
			}
		}
		doc.Links = append(doc.Links, link)
	}

	if len(h.Extra) > 0 {
		doc.Fields = make(map[string]document.TaggedValue, len(h.Extra))
		for k, v := range h.Extra {
			doc.Fields[k] = document.TaggedValueFromAny(normalizeYAML(v))
		}
	}

	return doc, nil
}

// normalizeYAML recursively converts yaml.v2's map[interface{}]interface{}
// nodes into map[string]interface{} so TaggedValueFromAny can handle them
// uniformly.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return val
	}
}

// WriteDocument emits the canonical on-disk representation: opener, YAML
// header, closer, a blank line, the body, and a trailing newline.
func WriteDocument(d document.Document) (string, error) {
	h := header{
		ID:                d.ID,
		Type:              d.DocType,
		Title:             d.Title,
		CreatedAt:         d.CreatedAt.UTC().Format(rfc3339),
		ModifiedAt:        d.ModifiedAt.UTC().Format(rfc3339),
		ObservedAt:        d.Temporal.ObservedAt.UTC().Format(rfc3339),
		ValidUntil:        d.Temporal.ValidUntil.UTC().Format(rfc3339),
		TemporalPrecision: string(d.Temporal.TemporalPrecision),
		Confidence:        &d.Confidence,
		Source:            d.Source,
		SourceHash:        d.SourceHash,
		Supersedes:        d.Supersedes,
		SupersededBy:      d.SupersededBy,
		Tags:              d.Tags,
	}
	if d.Temporal.OccurredAt != nil {
		h.OccurredAt = d.Temporal.OccurredAt.UTC().Format(rfc3339)
	}
	for _, l := range d.Links {
		h.Links = append(h.Links, linkYAML{
			Rel:        l.Rel,
			Target:     l.Target,
			ObservedAt: l.ObservedAt.UTC().Format(rfc3339),
			Metadata:   l.Metadata,
		})
	}
	if len(d.Fields) > 0 {
		h.Extra = make(map[string]interface{}, len(d.Fields))
		for k, v := range d.Fields {
			h.Extra[k] = v.ToAny()
		}
	}

	yamlBytes, err := yaml.Marshal(&h)
	if err != nil {
		return "", mkberr.NewSerializationError("failed to marshal header", err)
	}

	var sb strings.Builder
	sb.WriteString(opener)
	sb.Write(yamlBytes)
	sb.WriteString("---\n\n")
	sb.WriteString(d.Body)
	if !strings.HasSuffix(d.Body, "\n") {
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// looseMeta is the best-effort shape used by ParseLoose for malformed input
// that does not satisfy the strict Split contract, grounded on the same
// delimiter-split-then-decode idiom as ParseDocument but tolerant of
// partial/absent frontmatter.
type looseMeta struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// ParseLoose extracts whatever title/tags it can from arbitrary markdown
// text, even when the strict vault header grammar is not satisfied. When
// no header can be read it returns an empty title, nil tags and the
// original content as the body.
func ParseLoose(content string) (title string, tags []string, body string) {
	var meta looseMeta
	rest, err := frontmatter.Parse(strings.NewReader(content), &meta)
	if err != nil {
		return "", nil, content
	}
	return meta.Title, meta.Tags, string(rest)
}
