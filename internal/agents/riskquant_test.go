/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agents

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestConfidenceBreakdown_CreditsValidSourcesMinusPenalties(t *testing.T) {
	rc := &RunContext{
		Belief: &model.BeliefState{
			ValidEvidenceIDs:  []uuid.UUID{uuid.New(), uuid.New()}, // 2 * 0.2 = 0.4
			ContradictionRefs: []uuid.UUID{uuid.New()},             // 1 * 0.1 = 0.1
			Uncertainties:     []model.Uncertainty{{Resolved: false}},
		},
	}
	b := confidenceBreakdown(rc)
	want := 0.4 - 0.05 - 0.1 // 0.25
	if b.finalScore < want-1e-9 || b.finalScore > want+1e-9 {
		t.Errorf("finalScore = %f, want %f", b.finalScore, want)
	}
}

func TestConfidenceBreakdown_ClampsAtZero(t *testing.T) {
	rc := &RunContext{
		Belief: &model.BeliefState{
			ContradictionRefs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()},
		},
	}
	b := confidenceBreakdown(rc)
	if b.finalScore != 0 {
		t.Errorf("finalScore = %f, want 0 (clamped)", b.finalScore)
	}
}

func TestConfidenceBreakdown_ClampsAtOne(t *testing.T) {
	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
	}
	rc := &RunContext{
		Belief: &model.BeliefState{ValidEvidenceIDs: ids}, // 10 * 0.2 = 2.0, clamp to 1
	}
	b := confidenceBreakdown(rc)
	if b.finalScore != 1 {
		t.Errorf("finalScore = %f, want 1 (clamped)", b.finalScore)
	}
}

func TestConfidenceBreakdown_IgnoresResolvedUncertainties(t *testing.T) {
	rc := &RunContext{
		Belief: &model.BeliefState{
			Uncertainties: []model.Uncertainty{{Resolved: true}, {Resolved: true}},
		},
	}
	b := confidenceBreakdown(rc)
	if b.uncertaintyPenalty != 0 {
		t.Errorf("uncertaintyPenalty = %f, want 0 for all-resolved uncertainties", b.uncertaintyPenalty)
	}
}

func TestErrString(t *testing.T) {
	if got := errString(nil); got != "" {
		t.Errorf("errString(nil) = %q, want empty", got)
	}
	if got := errString(errors.New("boom")); got != "boom" {
		t.Errorf("errString = %q, want boom", got)
	}
}
