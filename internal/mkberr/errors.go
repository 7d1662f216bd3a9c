// Package mkberr defines the typed error kinds returned across the core:
// one kind per distinct recovery regime, so callers can use errors.As to
// branch on how to react instead of matching error text.
package mkberr

import "fmt"

// TemporalReason names a specific admission-gate rejection.
type TemporalReason string

const (
	MissingObservedAt         TemporalReason = "missing_observed_at"
	MissingValidUntil         TemporalReason = "missing_valid_until"
	MissingPrecision          TemporalReason = "missing_precision"
	ValidUntilBeforeObservedAt TemporalReason = "valid_until_before_observed_at"
	OccurredAtAfterObservedAt TemporalReason = "occurred_at_after_observed_at"
)

// TemporalError is raised by the Temporal Gate. It is never recovered by the
// core; callers surface it verbatim with a REJECTED: prefix.
type TemporalError struct {
	Reason  TemporalReason
	Message string
}

func (e *TemporalError) Error() string {
	return fmt.Sprintf("REJECTED: %s", e.Message)
}

func NewTemporalError(reason TemporalReason, msg string) *TemporalError {
	return &TemporalError{Reason: reason, Message: msg}
}

// SchemaReason names a specific schema-registry validation failure.
type SchemaReason string

const (
	UnknownType        SchemaReason = "unknown_type"
	MissingRequiredField SchemaReason = "missing_required_field"
	InvalidFieldType   SchemaReason = "invalid_field_type"
	InvalidEnumValue   SchemaReason = "invalid_enum_value"
	SchemaParseError   SchemaReason = "parse"
)

// SchemaError is returned by the schema registry. Non-fatal: ingest callers
// may choose to store the document anyway or reject it.
type SchemaError struct {
	Reason SchemaReason
	Field  string
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: %s: %s (%s)", e.Reason, e.Field, e.Msg)
	}
	return fmt.Sprintf("schema: %s: %s", e.Reason, e.Msg)
}

// VaultError covers missing files, duplicate ids, and an uninitialized root.
type VaultError struct {
	Msg string
	Err error
}

func (e *VaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vault: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("vault: %s", e.Msg)
}

func (e *VaultError) Unwrap() error { return e.Err }

func NewVaultError(msg string, err error) *VaultError {
	return &VaultError{Msg: msg, Err: err}
}

// IndexError covers any storage-engine failure, including bind and prepare
// failures against the embedded relational/FTS/ANN engine.
type IndexError struct {
	Msg string
	Err error
}

func (e *IndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("index: %s", e.Msg)
}

func (e *IndexError) Unwrap() error { return e.Err }

func NewIndexError(msg string, err error) *IndexError {
	return &IndexError{Msg: msg, Err: err}
}

// ParseError covers frontmatter codec failures.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %s", e.Msg) }

func NewParseError(msg string) *ParseError { return &ParseError{Msg: msg} }

// MkqlParseError covers MKQL grammar failures. It carries the byte offset at
// which the parser gave up, where known.
type MkqlParseError struct {
	Msg    string
	Offset int
}

func (e *MkqlParseError) Error() string {
	return fmt.Sprintf("mkql parse: %s (at byte %d)", e.Msg, e.Offset)
}

func NewMkqlParseError(msg string, offset int) *MkqlParseError {
	return &MkqlParseError{Msg: msg, Offset: offset}
}

// SerializationError covers YAML/JSON encoding and decoding failures
// (document headers on write, saved views, link metadata, query results).
type SerializationError struct {
	Msg string
	Err error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialization: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("serialization: %s", e.Msg)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func NewSerializationError(msg string, err error) *SerializationError {
	return &SerializationError{Msg: msg, Err: err}
}
