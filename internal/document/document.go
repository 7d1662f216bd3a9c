// Package document defines the core knowledge-unit types: Document, Link,
// and SavedView, plus id allocation helpers.
package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Precision is the granularity at which observed_at is known to be true.
type Precision string

const (
	PrecisionExact       Precision = "exact"
	PrecisionDay         Precision = "day"
	PrecisionWeek        Precision = "week"
	PrecisionMonth       Precision = "month"
	PrecisionQuarter     Precision = "quarter"
	PrecisionApproximate Precision = "approximate"
	PrecisionInferred    Precision = "inferred"
)

// TaggedValue is a sum type over the JSON-ish values a per-type field can
// hold. Exactly one of the typed fields is meaningful; Kind says which.
type TaggedValue struct {
	Kind   string // "null", "bool", "int", "float", "string", "array", "object"
	Bool   bool
	Int    int64
	Float  float64
	String string
	Array  []TaggedValue
	Object map[string]TaggedValue
}

// Link is a directed, typed, timestamped relation between two documents.
type Link struct {
	Rel        string                 `yaml:"rel" json:"rel"`
	Target     string                 `yaml:"target" json:"target"`
	ObservedAt time.Time              `yaml:"observed_at" json:"observed_at"`
	Metadata   map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// TemporalFields are the mandatory content-temporal fields enforced by the
// Temporal Gate.
type TemporalFields struct {
	ObservedAt        time.Time
	ValidUntil        time.Time
	TemporalPrecision Precision
	OccurredAt        *time.Time
}

// Document is the unit of knowledge stored in the vault and mirrored in the
// index.
type Document struct {
	ID      string
	DocType string
	Title   string

	CreatedAt  time.Time
	ModifiedAt time.Time

	Temporal TemporalFields

	Source       string
	SourceHash   string
	Confidence   float64
	Provenance   string
	Supersedes   string
	SupersededBy string
	SupersededAt *time.Time

	Fields map[string]TaggedValue
	Tags   []string
	Links  []Link

	Body string
}

// DefaultConfidence is used when a document does not specify one.
const DefaultConfidence = 1.0

// TaggedValueFromAny converts a decoded YAML/JSON value (as produced by
// gopkg.in/yaml.v2 or encoding/json into interface{}) into a TaggedValue.
func TaggedValueFromAny(v interface{}) TaggedValue {
	switch val := v.(type) {
	case nil:
		return TaggedValue{Kind: "null"}
	case bool:
		return TaggedValue{Kind: "bool", Bool: val}
	case int:
		return TaggedValue{Kind: "int", Int: int64(val)}
	case int64:
		return TaggedValue{Kind: "int", Int: val}
	case float64:
		if val == float64(int64(val)) {
			return TaggedValue{Kind: "float", Float: val}
		}
		return TaggedValue{Kind: "float", Float: val}
	case string:
		return TaggedValue{Kind: "string", String: val}
	case []interface{}:
		arr := make([]TaggedValue, 0, len(val))
		for _, item := range val {
			arr = append(arr, TaggedValueFromAny(item))
		}
		return TaggedValue{Kind: "array", Array: arr}
	case map[interface{}]interface{}:
		obj := make(map[string]TaggedValue, len(val))
		for k, item := range val {
			obj[fmt.Sprintf("%v", k)] = TaggedValueFromAny(item)
		}
		return TaggedValue{Kind: "object", Object: obj}
	case map[string]interface{}:
		obj := make(map[string]TaggedValue, len(val))
		for k, item := range val {
			obj[k] = TaggedValueFromAny(item)
		}
		return TaggedValue{Kind: "object", Object: obj}
	default:
		return TaggedValue{Kind: "string", String: fmt.Sprintf("%v", val)}
	}
}

// ToAny converts a TaggedValue back into a plain interface{} suitable for
// YAML/JSON re-encoding.
func (t TaggedValue) ToAny() interface{} {
	switch t.Kind {
	case "null":
		return nil
	case "bool":
		return t.Bool
	case "int":
		return t.Int
	case "float":
		return t.Float
	case "string":
		return t.String
	case "array":
		out := make([]interface{}, 0, len(t.Array))
		for _, item := range t.Array {
			out = append(out, item.ToAny())
		}
		return out
	case "object":
		out := make(map[string]interface{}, len(t.Object))
		for k, item := range t.Object {
			out[k] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title, collapses runs of non-alphanumerics to a single
// hyphen, and trims leading/trailing hyphens.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}

// TypePrefix returns the short prefix used in generated ids for a doc type.
// Known types use a fixed abbreviation; unknown types use the first four
// letters (or the whole string if shorter).
func TypePrefix(docType string) string {
	switch docType {
	case "project":
		return "proj"
	case "meeting":
		return "mtg"
	case "person":
		return "person"
	case "decision":
		return "dec"
	case "signal":
		return "sig"
	default:
		if len(docType) <= 4 {
			return docType
		}
		return docType[:4]
	}
}

// GenerateID builds the stable slug-style id <typePrefix>-<titleSlug>-<NNN>.
func GenerateID(docType, title string, counter int) string {
	return fmt.Sprintf("%s-%s-%03d", TypePrefix(docType), Slugify(title), counter)
}

// TypeDir maps a doc_type to its plural directory name under the vault root.
func TypeDir(docType string) string {
	switch docType {
	case "project":
		return "projects"
	case "meeting":
		return "meetings"
	case "person":
		return "people"
	case "decision":
		return "decisions"
	case "signal":
		return "signals"
	default:
		return docType + "s"
	}
}

// SavedView is a named MKQL query stored on disk.
type SavedView struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Query       string    `yaml:"query"`
	CreatedAt   time.Time `yaml:"created_at"`
}
