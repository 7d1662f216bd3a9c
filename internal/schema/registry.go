// Package schema implements the per-type field registry (C4): what fields a
// document type carries, their types, and the validation rules over them.
package schema

import (
	"fmt"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/mkberr"
)

// FieldType enumerates the kinds a FieldDef can declare.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldInteger  FieldType = "integer"
	FieldFloat    FieldType = "float"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldDuration FieldType = "duration"
	FieldEnum     FieldType = "enum"
	FieldRef      FieldType = "ref"
	FieldRefArray FieldType = "ref[]"
	FieldStrArray FieldType = "string[]"
	FieldMap      FieldType = "map"
	FieldJSON     FieldType = "json"
)

// FieldDef describes a single field contract within a SchemaDefinition.
type FieldDef struct {
	Name       string
	Type       FieldType
	Required   bool
	Indexed    bool
	Searchable bool
	Unique     bool
	Default    *document.TaggedValue
	Values     []string // for FieldEnum
	RefType    string   // for FieldRef / FieldRefArray
}

// SchemaDefinition is the field contract for one doc_type.
type SchemaDefinition struct {
	Name       string
	Version    int
	Fields     map[string]FieldDef
	Validation []func(fields map[string]document.TaggedValue) []error
}

// ValidationResult separates hard errors from non-fatal warnings.
type ValidationResult struct {
	Errors   []error
	Warnings []error
}

func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Registry holds one SchemaDefinition per known doc_type.
type Registry struct {
	schemas map[string]SchemaDefinition
}

// NewRegistry returns a registry pre-populated with the four built-in
// schemas (project, meeting, decision, signal) plus person, the implicit
// referent type of project.owner.
func NewRegistry() *Registry {
	r := &Registry{schemas: map[string]SchemaDefinition{}}
	for _, def := range builtins() {
		r.schemas[def.Name] = def
	}
	return r
}

// Register adds or replaces a schema definition.
func (r *Registry) Register(def SchemaDefinition) {
	r.schemas[def.Name] = def
}

// Get returns the schema for a doc_type, if registered.
func (r *Registry) Get(docType string) (SchemaDefinition, bool) {
	def, ok := r.schemas[docType]
	return def, ok
}

// Validate checks the supplied field bag against the registered schema for
// doc_type. Unknown optional fields are ignored. An unregistered doc_type is
// not itself an error here (schemas are opt-in); callers that require a
// known type should check Get first and raise UnknownType themselves.
func (r *Registry) Validate(docType string, fields map[string]document.TaggedValue) ValidationResult {
	def, ok := r.schemas[docType]
	if !ok {
		return ValidationResult{}
	}

	var result ValidationResult
	for name, fd := range def.Fields {
		val, present := fields[name]
		if !present {
			if fd.Required {
				result.Errors = append(result.Errors, &mkberr.SchemaError{
					Reason: mkberr.MissingRequiredField,
					Field:  name,
					Msg:    fmt.Sprintf("%s.%s is required", docType, name),
				})
			}
			continue
		}
		if err := checkType(name, fd, val); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}
	for _, rule := range def.Validation {
		result.Errors = append(result.Errors, rule(fields)...)
	}
	return result
}

func checkType(name string, fd FieldDef, val document.TaggedValue) error {
	switch fd.Type {
	case FieldEnum:
		if val.Kind != "string" {
			return &mkberr.SchemaError{Reason: mkberr.InvalidFieldType, Field: name, Msg: "enum value must be a string"}
		}
		for _, allowed := range fd.Values {
			if val.String == allowed {
				return nil
			}
		}
		return &mkberr.SchemaError{
			Reason: mkberr.InvalidEnumValue, Field: name,
			Msg: fmt.Sprintf("%q is not one of %v", val.String, fd.Values),
		}
	case FieldString, FieldRef, FieldDate, FieldDatetime, FieldDuration:
		if val.Kind != "string" {
			return &mkberr.SchemaError{Reason: mkberr.InvalidFieldType, Field: name, Msg: "expected string"}
		}
	case FieldInteger:
		if val.Kind != "int" {
			return &mkberr.SchemaError{Reason: mkberr.InvalidFieldType, Field: name, Msg: "expected integer"}
		}
	case FieldFloat:
		if val.Kind != "float" && val.Kind != "int" {
			return &mkberr.SchemaError{Reason: mkberr.InvalidFieldType, Field: name, Msg: "expected float"}
		}
	case FieldBoolean:
		if val.Kind != "bool" {
			return &mkberr.SchemaError{Reason: mkberr.InvalidFieldType, Field: name, Msg: "expected boolean"}
		}
	case FieldStrArray, FieldRefArray:
		if val.Kind != "array" {
			return &mkberr.SchemaError{Reason: mkberr.InvalidFieldType, Field: name, Msg: "expected array"}
		}
	case FieldMap, FieldJSON:
		// accept any shape
	}
	return nil
}

func builtins() []SchemaDefinition {
	return []SchemaDefinition{
		{
			Name:    "project",
			Version: 1,
			Fields: map[string]FieldDef{
				"status": {Name: "status", Type: FieldEnum, Required: true,
					Values: []string{"active", "paused", "completed", "cancelled"}, Indexed: true},
				"owner": {Name: "owner", Type: FieldRef, RefType: "person"},
			},
		},
		{
			Name:    "meeting",
			Version: 1,
			Fields: map[string]FieldDef{
				"attendees": {Name: "attendees", Type: FieldStrArray},
			},
		},
		{
			Name:    "decision",
			Version: 1,
			Fields: map[string]FieldDef{
				"decision":  {Name: "decision", Type: FieldString, Required: true},
				"rationale": {Name: "rationale", Type: FieldString},
			},
		},
		{
			Name:    "signal",
			Version: 1,
			Fields: map[string]FieldDef{
				"sentiment": {Name: "sentiment", Type: FieldEnum,
					Values: []string{"positive", "neutral", "negative"}},
			},
		},
		{
			Name:    "person",
			Version: 1,
			Fields:  map[string]FieldDef{},
		},
	}
}
