/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package narrative

import (
	"context"
	"errors"
	"testing"

	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/provider"
)

func TestAssessRisk_ParsesValidResponse(t *testing.T) {
	e := New(provider.NewMockProviderSimple(
		`{"risk_level":"HIGH","recommended_posture":"ESCALATE","confidence":0.8,"rationale":"ground stop","risk_factors":["weather"]}`,
	), "test-model")

	v, err := e.AssessRisk(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if v.RiskLevel != model.RiskHigh || v.RecommendedPosture != model.PostureEscalate {
		t.Errorf("v = %+v, unexpected", v)
	}
}

func TestAssessRisk_FailsClosedOnProviderError(t *testing.T) {
	e := New(provider.NewMockProvider(nil, []error{errors.New("upstream unavailable")}), "test-model")

	v, err := e.AssessRisk(context.Background(), "system", "user")
	if !errors.Is(err, model.ErrLLMUnavailable) {
		t.Fatalf("err = %v, want wrapping model.ErrLLMUnavailable", err)
	}
	if v != FailClosedRisk() {
		t.Errorf("v = %+v, want FailClosedRisk()", v)
	}
}

func TestAssessRisk_FailsClosedOnMalformedJSON(t *testing.T) {
	e := New(provider.NewMockProviderSimple("not json"), "test-model")

	v, err := e.AssessRisk(context.Background(), "system", "user")
	if !errors.Is(err, model.ErrLLMUnavailable) {
		t.Fatalf("err = %v, want wrapping model.ErrLLMUnavailable", err)
	}
	if v != FailClosedRisk() {
		t.Errorf("v = %+v, want FailClosedRisk()", v)
	}
}

func TestCritique_FailsClosedOnProviderError(t *testing.T) {
	e := New(provider.NewMockProvider(nil, []error{errors.New("timeout")}), "test-model")

	v, err := e.Critique(context.Background(), "system", "user")
	if !errors.Is(err, model.ErrLLMUnavailable) {
		t.Fatalf("err = %v, want wrapping model.ErrLLMUnavailable", err)
	}
	if v != FailClosedCritic() {
		t.Errorf("v = %+v, want FailClosedCritic()", v)
	}
}

func TestEvaluatePolicy_ParsesValidResponse(t *testing.T) {
	e := New(provider.NewMockProviderSimple(
		`{"verdict":"COMPLIANT","verdict_rationale":"ok","violated_policies":[]}`,
	), "test-model")

	v, err := e.EvaluatePolicy(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("EvaluatePolicy: %v", err)
	}
	if v.Verdict != "COMPLIANT" {
		t.Errorf("Verdict = %s, want COMPLIANT", v.Verdict)
	}
}

func TestEvaluatePolicy_FailsClosedOnProviderError(t *testing.T) {
	e := New(provider.NewMockProvider(nil, []error{errors.New("rate limited")}), "test-model")

	v, err := e.EvaluatePolicy(context.Background(), "system", "user")
	if !errors.Is(err, model.ErrLLMUnavailable) {
		t.Fatalf("err = %v, want wrapping model.ErrLLMUnavailable", err)
	}
	if v != FailClosedPolicy() {
		t.Errorf("v = %+v, want FailClosedPolicy()", v)
	}
}
