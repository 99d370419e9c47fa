/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package orchestrator

import (
	"context"
	"testing"

	"github.com/marcus-qen/gatewayposture/internal/agents"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/policy"
)

// next's branches that never dereference e.Store are exercisable with a
// zero-value Engine and fake RunContext; the store-touching branches
// (blocked/resolved case updates) are left to a live-Postgres integration
// test, matching internal/graph's testcontainers pattern.

func newRunContext() *agents.RunContext {
	return &agents.RunContext{
		Case:   model.Case{},
		Belief: &model.BeliefState{IterationBudget: 10, ToolCallBudget: 10},
	}
}

func TestNext_InitAlwaysGoesToInvestigate(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()

	got, err := e.next(context.Background(), StateInit, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateInvestigate {
		t.Errorf("next = %s, want %s", got, StateInvestigate)
	}
}

func TestNext_QuantifyRiskAlwaysGoesToCritique(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()

	got, err := e.next(context.Background(), StateQuantifyRisk, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateCritique {
		t.Errorf("next = %s, want %s", got, StateCritique)
	}
}

func TestNext_CritiqueLoopsBackWhenEvidenceInsufficientAndBudgetRemains(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.CriticVerdict.Verdict = "INSUFFICIENT_EVIDENCE"
	rc.Belief.InvestigationRounds = 0

	got, err := e.next(context.Background(), StateCritique, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateInvestigate {
		t.Errorf("next = %s, want %s", got, StateInvestigate)
	}
}

func TestNext_CritiqueProceedsWhenInvestigationRoundsExhausted(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.CriticVerdict.Verdict = "INSUFFICIENT_EVIDENCE"
	rc.Belief.InvestigationRounds = maxInvestigationRounds

	got, err := e.next(context.Background(), StateCritique, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateEvaluatePolicy {
		t.Errorf("next = %s, want %s", got, StateEvaluatePolicy)
	}
}

func TestNext_CritiqueSetsBudgetExceededStopCondition(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.Belief.IterationsUsed = rc.Belief.IterationBudget // budget exhausted

	got, err := e.next(context.Background(), StateCritique, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateEvaluatePolicy {
		t.Errorf("next = %s, want %s", got, StateEvaluatePolicy)
	}
	if rc.Belief.StopCondition != model.StopBudgetExceeded {
		t.Errorf("StopCondition = %s, want %s", rc.Belief.StopCondition, model.StopBudgetExceeded)
	}
}

func TestNext_EvaluatePolicyLoopsBackOnNeedsEvidence(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.PolicyResult.Verdict = policy.VerdictNeedsEvidence
	rc.Belief.InvestigationRounds = 0

	got, err := e.next(context.Background(), StateEvaluatePolicy, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateInvestigate {
		t.Errorf("next = %s, want %s", got, StateInvestigate)
	}
}

func TestNext_EvaluatePolicyDefaultsToPlanActions(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.PolicyResult.Verdict = policy.VerdictCompliant

	got, err := e.next(context.Background(), StateEvaluatePolicy, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StatePlanActions {
		t.Errorf("next = %s, want %s", got, StatePlanActions)
	}
}

func TestNext_PlanActionsRoutesThroughDraftCommsForNotifyingActions(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.ProposedActions = []model.Action{{Type: model.ActionHoldCargo}}

	got, err := e.next(context.Background(), StatePlanActions, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateDraftComms {
		t.Errorf("next = %s, want %s", got, StateDraftComms)
	}
}

func TestNext_PlanActionsSkipsDraftCommsForSilentActions(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()
	rc.ProposedActions = []model.Action{{Type: model.ActionSetPosture}}

	got, err := e.next(context.Background(), StatePlanActions, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateExecute {
		t.Errorf("next = %s, want %s", got, StateExecute)
	}
}

func TestNext_DraftCommsAlwaysGoesToExecute(t *testing.T) {
	e := &Engine{}
	rc := newRunContext()

	got, err := e.next(context.Background(), StateDraftComms, rc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != StateExecute {
		t.Errorf("next = %s, want %s", got, StateExecute)
	}
}
