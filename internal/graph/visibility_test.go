package graph

import (
	"testing"
	"time"
)

func TestVisible_EventTimeWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := base
	end := base.Add(2 * time.Hour)

	tests := []struct {
		name string
		eT   time.Time
		want bool
	}{
		{"before window", base.Add(-time.Minute), false},
		{"at start", base, true},
		{"inside window", base.Add(time.Hour), true},
		{"at end (exclusive)", end, false},
		{"after window", end.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Visible(&start, &end, base, nil, nil, tt.eT, base.Add(24*time.Hour))
			if got != tt.want {
				t.Errorf("Visible(eT=%v) = %v, want %v", tt.eT, got, tt.want)
			}
		})
	}
}

func TestVisible_IngestTimeGate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ingestedAt := base.Add(time.Hour)

	if Visible(nil, nil, ingestedAt, nil, nil, base, base) {
		t.Error("edge ingested after iT must not be visible")
	}
	if !Visible(nil, nil, ingestedAt, nil, nil, base, ingestedAt) {
		t.Error("edge ingested exactly at iT must be visible")
	}
}

func TestVisible_NullWindowsAreUnbounded(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !Visible(nil, nil, base, nil, nil, base.Add(10000*time.Hour), base.Add(10000*time.Hour)) {
		t.Error("nil event/valid windows should never bound visibility")
	}
}

func TestVisible_ValidWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	validFrom := base
	validTo := base.Add(time.Hour)

	if !Visible(nil, nil, base, &validFrom, &validTo, base.Add(30*time.Minute), base.Add(time.Hour)) {
		t.Error("expected visible inside valid window")
	}
	if Visible(nil, nil, base, &validFrom, &validTo, base.Add(2*time.Hour), base.Add(3*time.Hour)) {
		t.Error("expected not visible after valid_to")
	}
}

func TestVisibilitySQL_IsSingleSourceOfTruth(t *testing.T) {
	a := VisibilitySQL("e")
	b := VisibilitySQL("e")
	if a != b {
		t.Error("VisibilitySQL must be deterministic for the same alias")
	}
	if VisibilitySQL("x") == a {
		t.Error("alias substitution must change the generated predicate")
	}
}
