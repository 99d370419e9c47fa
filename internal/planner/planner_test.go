/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package planner

import (
	"testing"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestPlan_EmptyLibraryReturnsNil(t *testing.T) {
	got := Plan(nil, model.BeliefState{}, model.PostureAccept, model.RiskLow)
	if got != nil {
		t.Errorf("Plan(nil library) = %+v, want nil", got)
	}
}

func TestPlan_PicksHighestValueInterventionForHighRisk(t *testing.T) {
	library := []Candidate{
		{Type: model.ActionSetPosture, Cost: 1},
		{Type: model.ActionHoldCargo, Cost: 1},
		{Type: model.ActionNotifyCustomer, Cost: 1},
	}
	plan := Plan(library, model.BeliefState{}, model.PostureHold, model.RiskHigh)
	if len(plan) == 0 {
		t.Fatal("expected a non-empty plan")
	}
	// SET_POSTURE (base 10) ties HOLD_CARGO (7+3=10) for the highest value
	// under HIGH risk, well above NOTIFY_CUSTOMER (3); the plan must include it.
	found := false
	for _, c := range plan {
		if c.Type == model.ActionSetPosture {
			found = true
		}
	}
	if !found {
		t.Errorf("plan = %+v, expected SET_POSTURE to be selected", plan)
	}
}

func TestPlan_IsDeterministicAcrossRuns(t *testing.T) {
	library := []Candidate{
		{Type: model.ActionSetPosture, Cost: 1},
		{Type: model.ActionHoldCargo, Cost: 2},
		{Type: model.ActionPublishGatewayAdvisory, Cost: 1},
		{Type: model.ActionEscalateOps, Cost: 3},
	}
	belief := model.BeliefState{
		Uncertainties: []model.Uncertainty{{Source: model.SourceFAA, Resolved: false}},
	}

	first := Plan(library, belief, model.PostureRestrict, model.RiskMedium)
	for i := 0; i < 5; i++ {
		again := Plan(library, belief, model.PostureRestrict, model.RiskMedium)
		if len(again) != len(first) {
			t.Fatalf("run %d: len = %d, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j].Type != first[j].Type {
				t.Fatalf("run %d: plan[%d] = %s, want %s (non-deterministic)", i, j, again[j].Type, first[j].Type)
			}
		}
	}
}

func TestPlan_NeverProposesTheSameActionTypeTwice(t *testing.T) {
	library := []Candidate{
		{Type: model.ActionSetPosture, Cost: 1},
		{Type: model.ActionHoldCargo, Cost: 1},
	}
	plan := Plan(library, model.BeliefState{}, model.PostureHold, model.RiskHigh)
	seen := map[model.ActionType]bool{}
	for _, c := range plan {
		if seen[c.Type] {
			t.Fatalf("plan = %+v, duplicate action type %s", plan, c.Type)
		}
		seen[c.Type] = true
	}
}

func TestCandidateValue_InvestigationScoresPerResolvedUncertainty(t *testing.T) {
	c := Candidate{IsInvestigation: true, ResolvesUncertainty: []model.Source{model.SourceFAA, model.SourceMETAR}}
	open := []model.Uncertainty{
		{Source: model.SourceFAA, Resolved: false},
		{Source: model.SourceMETAR, Resolved: false},
		{Source: model.SourceNWS, Resolved: false},
	}
	got := candidateValue(c, open, model.PostureAccept, model.RiskLow)
	want := 2 * uncertaintyValue
	if got != want {
		t.Errorf("candidateValue = %f, want %f", got, want)
	}
}

func TestRiskPenalty_AppliesOnlyToHighRiskActionsUnderLowerCaseRisk(t *testing.T) {
	if got := riskPenalty(model.ActionHoldCargo, model.RiskLow); got != 2 {
		t.Errorf("riskPenalty(HOLD_CARGO, LOW) = %f, want 2", got)
	}
	if got := riskPenalty(model.ActionHoldCargo, model.RiskCritical); got != 0 {
		t.Errorf("riskPenalty(HOLD_CARGO, CRITICAL) = %f, want 0", got)
	}
	if got := riskPenalty(model.ActionSetPosture, model.RiskLow); got != 0 {
		t.Errorf("riskPenalty(SET_POSTURE, LOW) = %f, want 0 (not a high-risk action type)", got)
	}
}

func TestMergeWithPlaybook_BaseWinsOnTypeConflict(t *testing.T) {
	base := []Candidate{{Type: model.ActionSetPosture, Cost: 1}}
	template := []model.PlaybookActionTemplate{
		{Type: model.ActionSetPosture, RequiresApproval: true},
		{Type: model.ActionHoldCargo, RequiresApproval: true},
	}
	merged, guided := MergeWithPlaybook(base, template)

	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	for _, c := range merged {
		if c.Type == model.ActionSetPosture && c.RequiresApproval {
			t.Error("base SET_POSTURE candidate should win over the playbook's, keeping RequiresApproval=false")
		}
	}
	if guided[model.ActionSetPosture] {
		t.Error("SET_POSTURE came from base, should not be marked playbook-guided")
	}
	if !guided[model.ActionHoldCargo] {
		t.Error("HOLD_CARGO only came from the playbook template, should be marked playbook-guided")
	}
}

func TestMergeWithPlaybook_EmptyTemplateReturnsBaseUnchanged(t *testing.T) {
	base := []Candidate{{Type: model.ActionSetPosture, Cost: 1}}
	merged, guided := MergeWithPlaybook(base, nil)
	if len(merged) != 1 || merged[0].Type != model.ActionSetPosture {
		t.Errorf("merged = %+v, want unchanged base", merged)
	}
	if len(guided) != 0 {
		t.Errorf("guided = %+v, want empty", guided)
	}
}
