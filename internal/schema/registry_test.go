package schema

import (
	"testing"

	"github.com/mkb-project/mkb/internal/document"
)

func TestBuiltinSchemas(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"project", "meeting", "decision", "signal", "person"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("expected built-in schema %q to be registered", name)
		}
	}
}

func TestValidateMissingRequired(t *testing.T) {
	r := NewRegistry()
	result := r.Validate("project", map[string]document.TaggedValue{})
	if result.OK() {
		t.Fatal("expected missing required field error")
	}
}

func TestValidateEnumMismatch(t *testing.T) {
	r := NewRegistry()
	result := r.Validate("project", map[string]document.TaggedValue{
		"status": {Kind: "string", String: "bogus"},
	})
	if result.OK() {
		t.Fatal("expected invalid enum value error")
	}
}

func TestValidateOK(t *testing.T) {
	r := NewRegistry()
	result := r.Validate("project", map[string]document.TaggedValue{
		"status": {Kind: "string", String: "active"},
	})
	if !result.OK() {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
}

func TestValidateUnregisteredTypePasses(t *testing.T) {
	r := NewRegistry()
	result := r.Validate("widget", map[string]document.TaggedValue{})
	if !result.OK() {
		t.Fatalf("unregistered type should not fail validation here, got %v", result.Errors)
	}
}
