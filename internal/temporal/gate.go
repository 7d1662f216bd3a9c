// Package temporal implements the admission gate that validates and
// completes the mandatory content-temporal fields on every document before
// it is allowed into the vault.
//
// The gate is the only place in the core that fabricates an invariant
// (filling valid_until, defaulting temporal_precision); everywhere else a
// violation fails hard.
package temporal

import (
	"time"

	"github.com/mkb-project/mkb/internal/document"
	"github.com/mkb-project/mkb/internal/mkberr"
)

// DecayProfile names a half-life used to derive valid_until when the caller
// does not supply one.
type DecayProfile struct {
	Name     string
	HalfLife time.Duration
}

// Built-in named profiles.
var (
	ProfileDefault       = DecayProfile{Name: "default", HalfLife: 90 * 24 * time.Hour}
	ProfileProjectStatus = DecayProfile{Name: "project_status", HalfLife: 14 * 24 * time.Hour}
	ProfileDecision      = DecayProfile{Name: "decision", HalfLife: 36500 * 24 * time.Hour}
	ProfileSignal        = DecayProfile{Name: "signal", HalfLife: 7 * 24 * time.Hour}
)

// Profiles is the built-in name -> profile table.
var Profiles = map[string]DecayProfile{
	ProfileDefault.Name:       ProfileDefault,
	ProfileProjectStatus.Name: ProfileProjectStatus,
	ProfileDecision.Name:      ProfileDecision,
	ProfileSignal.Name:        ProfileSignal,
}

// Lookup returns a named profile, falling back to ProfileDefault when the
// name is empty or unknown.
func Lookup(name string) DecayProfile {
	if p, ok := Profiles[name]; ok {
		return p
	}
	return ProfileDefault
}

// RawInput is the caller-supplied, possibly-incomplete set of temporal
// fields to be validated and completed.
type RawInput struct {
	ObservedAt        *time.Time
	ValidUntil        *time.Time
	TemporalPrecision document.Precision
	OccurredAt        *time.Time
}

// Validate applies the Gate rules in order, returning completed
// TemporalFields or a *mkberr.TemporalError.
func Validate(in RawInput, profile DecayProfile) (document.TemporalFields, error) {
	if in.ObservedAt == nil {
		return document.TemporalFields{}, mkberr.NewTemporalError(
			mkberr.MissingObservedAt, "observed_at is required")
	}
	observedAt := *in.ObservedAt

	validUntil := in.ValidUntil
	if validUntil == nil {
		derived := observedAt.Add(2 * profile.HalfLife)
		validUntil = &derived
	}

	precision := in.TemporalPrecision
	if precision == "" {
		precision = document.PrecisionInferred
	}

	if validUntil.Before(observedAt) {
		return document.TemporalFields{}, mkberr.NewTemporalError(
			mkberr.ValidUntilBeforeObservedAt, "valid_until must not be before observed_at")
	}

	if in.OccurredAt != nil && in.OccurredAt.After(observedAt) {
		return document.TemporalFields{}, mkberr.NewTemporalError(
			mkberr.OccurredAtAfterObservedAt, "occurred_at must not be after observed_at")
	}

	return document.TemporalFields{
		ObservedAt:        observedAt,
		ValidUntil:        *validUntil,
		TemporalPrecision: precision,
		OccurredAt:        in.OccurredAt,
	}, nil
}

// ValidateFields re-checks rules 4-5 on an already-complete set of temporal
// fields, for documents reloaded from the vault or index.
func ValidateFields(f document.TemporalFields) error {
	if f.ValidUntil.Before(f.ObservedAt) {
		return mkberr.NewTemporalError(
			mkberr.ValidUntilBeforeObservedAt, "valid_until must not be before observed_at")
	}
	if f.OccurredAt != nil && f.OccurredAt.After(f.ObservedAt) {
		return mkberr.NewTemporalError(
			mkberr.OccurredAtAfterObservedAt, "occurred_at must not be after observed_at")
	}
	return nil
}
