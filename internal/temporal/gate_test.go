package temporal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mkb-project/mkb/internal/mkberr"
)

func TestValidateMissingObservedAt(t *testing.T) {
	_, err := Validate(RawInput{}, ProfileDefault)
	var terr *mkberr.TemporalError
	if !errors.As(err, &terr) || terr.Reason != mkberr.MissingObservedAt {
		t.Fatalf("expected MissingObservedAt, got %v", err)
	}
	if err == nil || !containsAll(err.Error(), "REJECTED", "observed_at") {
		t.Fatalf("message should contain REJECTED and observed_at, got %q", err.Error())
	}
}

func TestValidateFillsValidUntil(t *testing.T) {
	observed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := Validate(RawInput{ObservedAt: &observed}, ProfileDefault)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := observed.Add(180 * 24 * time.Hour)
	if !f.ValidUntil.Equal(want) {
		t.Errorf("valid_until = %v, want %v", f.ValidUntil, want)
	}
	if f.TemporalPrecision != "inferred" {
		t.Errorf("precision = %v, want inferred", f.TemporalPrecision)
	}
}

func TestValidateUntilBeforeObserved(t *testing.T) {
	observed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	before := observed.Add(-time.Hour)
	_, err := Validate(RawInput{ObservedAt: &observed, ValidUntil: &before}, ProfileDefault)
	var terr *mkberr.TemporalError
	if !errors.As(err, &terr) || terr.Reason != mkberr.ValidUntilBeforeObservedAt {
		t.Fatalf("expected ValidUntilBeforeObservedAt, got %v", err)
	}
}

func TestValidateOccurredAfterObserved(t *testing.T) {
	observed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	after := observed.Add(time.Hour)
	_, err := Validate(RawInput{ObservedAt: &observed, OccurredAt: &after}, ProfileDefault)
	var terr *mkberr.TemporalError
	if !errors.As(err, &terr) || terr.Reason != mkberr.OccurredAtAfterObservedAt {
		t.Fatalf("expected OccurredAtAfterObservedAt, got %v", err)
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	if Lookup("does-not-exist") != ProfileDefault {
		t.Errorf("expected fallback to default profile")
	}
	if Lookup("signal") != ProfileSignal {
		t.Errorf("expected signal profile")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
