/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package playbook

import (
	"testing"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestJaccard_BothEmptyIsOne(t *testing.T) {
	if got := jaccard(nil, nil); got != 1 {
		t.Errorf("jaccard(nil, nil) = %f, want 1", got)
	}
}

func TestJaccard_PartialOverlap(t *testing.T) {
	a := []string{"airport", "case_type"}
	b := []string{"airport", "lane"}
	want := 1.0 / 3.0
	if got := jaccard(a, b); got != want {
		t.Errorf("jaccard(a, b) = %f, want %f", got, want)
	}
}

func TestMatchScore_CombinesScopeAndSignalEvenly(t *testing.T) {
	pb := model.Playbook{
		ScopeKeys:       []string{"airport"},
		SignalSignature: []string{"GROUND_STOP"},
	}
	scope := map[string]string{"airport": "KJFK"}
	signals := []string{"GROUND_STOP"}

	got := matchScore(pb, scope, signals)
	if got != 1.0 {
		t.Errorf("matchScore = %f, want 1.0 for identical scope keys and signals", got)
	}
}

func TestMatchScore_NoOverlapScoresZero(t *testing.T) {
	pb := model.Playbook{
		ScopeKeys:       []string{"lane"},
		SignalSignature: []string{"CONGESTION"},
	}
	scope := map[string]string{"airport": "KJFK"}
	signals := []string{"GROUND_STOP"}

	got := matchScore(pb, scope, signals)
	if got != 0 {
		t.Errorf("matchScore = %f, want 0 for disjoint scope keys and signals", got)
	}
}

func TestMatchScore_BelowThresholdWhenOnlyOneDimensionMatches(t *testing.T) {
	pb := model.Playbook{
		ScopeKeys:       []string{"airport"},
		SignalSignature: []string{"CONGESTION"},
	}
	scope := map[string]string{"airport": "KJFK"}
	signals := []string{"GROUND_STOP"}

	got := matchScore(pb, scope, signals)
	if got >= MatchThreshold {
		t.Errorf("matchScore = %f, want below threshold %f when only scope matches", got, MatchThreshold)
	}
}

func TestLoadFromYAML_ParsesPlaybookLibrary(t *testing.T) {
	data := []byte(`
- name: ground-stop-hold-cargo
  version: 1.2.0
  case_type: AIRPORT_DISRUPTION
  scope_keys: [airport]
  signal_signature: [GROUND_STOP]
  action_template:
    - type: HOLD_CARGO
      default_args:
        reason: ground stop
      requires_approval: true
`)
	pbs, err := LoadFromYAML(data)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if len(pbs) != 1 {
		t.Fatalf("len(pbs) = %d, want 1", len(pbs))
	}
	pb := pbs[0]
	if pb.Name != "ground-stop-hold-cargo" || pb.Version != "1.2.0" {
		t.Errorf("pb = %+v, unexpected name/version", pb)
	}
	if len(pb.ActionTemplate) != 1 || pb.ActionTemplate[0].Type != model.ActionHoldCargo {
		t.Fatalf("ActionTemplate = %+v, want one HOLD_CARGO entry", pb.ActionTemplate)
	}
	if !pb.ActionTemplate[0].RequiresApproval {
		t.Error("expected RequiresApproval true")
	}
}

func TestLoadFromYAML_InvalidYAMLErrors(t *testing.T) {
	if _, err := LoadFromYAML([]byte("not: [valid yaml")); err == nil {
		t.Fatal("expected error parsing invalid yaml")
	}
}
