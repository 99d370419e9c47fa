/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package narrative wraps a provider.Provider with the fail-closed JSON
// contract the orchestrator's RiskQuant, Critic, and PolicyJudge role agents
// all share: a 30s ceiling, temperature=0, and a strict decode-or-degrade
// rule rather than retries — each caller already has a conservative default
// to fall back to.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/metrics"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/provider"
	"github.com/marcus-qen/gatewayposture/internal/telemetry"
)

const callTimeout = 30 * time.Second

// Engine is the narrative-engine handle injected into role agents. It is
// created once at process startup and passed by capability, not reached for
// ambiently.
type Engine struct {
	p     provider.Provider
	model string
}

// New wraps an already-constructed provider.
func New(p provider.Provider, model string) *Engine {
	return &Engine{p: p, model: model}
}

// RiskVerdict is the JSON shape RiskQuant expects back from the engine. Its
// Confidence field is advisory only — the caller overwrites it with a
// deterministic per-source breakdown.
type RiskVerdict struct {
	RiskLevel           model.RiskLevel `json:"risk_level"`
	RecommendedPosture  model.Posture   `json:"recommended_posture"`
	Confidence          float64         `json:"confidence"`
	Rationale           string          `json:"rationale"`
	RiskFactors         []string        `json:"risk_factors"`
}

// CriticVerdict is the JSON shape Critic expects back.
type CriticVerdict struct {
	Verdict          string   `json:"verdict"` // ACCEPTABLE | INSUFFICIENT_EVIDENCE
	VerdictRationale string   `json:"verdict_rationale"`
	CriticalGaps     []string `json:"critical_gaps"`
}

// PolicyVerdict is the JSON shape PolicyJudge expects back.
type PolicyVerdict struct {
	Verdict          string   `json:"verdict"` // COMPLIANT | NEEDS_EVIDENCE | BLOCKED
	VerdictRationale string   `json:"verdict_rationale"`
	ViolatedPolicies []string `json:"violated_policies"`
}

// FailClosedRisk is the conservative default RiskQuant falls back to when
// the engine is unavailable or returns malformed JSON.
func FailClosedRisk() RiskVerdict {
	return RiskVerdict{
		RiskLevel:          model.RiskHigh,
		RecommendedPosture: model.PostureEscalate,
		Confidence:         0.25,
		Rationale:          "narrative engine unavailable; fail-closed to ESCALATE",
	}
}

// FailClosedCritic is Critic's conservative default.
func FailClosedCritic() CriticVerdict {
	return CriticVerdict{
		Verdict:          "INSUFFICIENT_EVIDENCE",
		VerdictRationale: "narrative engine unavailable; fail-closed to INSUFFICIENT_EVIDENCE",
	}
}

// FailClosedPolicy is PolicyJudge's conservative default.
func FailClosedPolicy() PolicyVerdict {
	return PolicyVerdict{
		Verdict:          "NEEDS_EVIDENCE",
		VerdictRationale: "narrative engine unavailable; fail-closed to NEEDS_EVIDENCE",
	}
}

// AssessRisk calls the engine for a risk verdict. On any failure — timeout,
// transport error, or malformed JSON — it returns FailClosedRisk and a
// wrapped model.ErrLLMUnavailable rather than propagating the raw error, so
// callers can log once and proceed with the conservative default.
func (e *Engine) AssessRisk(ctx context.Context, systemPrompt, userContext string) (RiskVerdict, error) {
	var v RiskVerdict
	if err := e.completeJSON(ctx, "RiskQuant", systemPrompt, userContext, &v); err != nil {
		return FailClosedRisk(), err
	}
	return v, nil
}

// Critique calls the engine for a critique verdict.
func (e *Engine) Critique(ctx context.Context, systemPrompt, userContext string) (CriticVerdict, error) {
	var v CriticVerdict
	if err := e.completeJSON(ctx, "Critic", systemPrompt, userContext, &v); err != nil {
		return FailClosedCritic(), err
	}
	return v, nil
}

// EvaluatePolicy calls the engine for a policy verdict.
func (e *Engine) EvaluatePolicy(ctx context.Context, systemPrompt, userContext string) (PolicyVerdict, error) {
	var v PolicyVerdict
	if err := e.completeJSON(ctx, "PolicyJudge", systemPrompt, userContext, &v); err != nil {
		return FailClosedPolicy(), err
	}
	return v, nil
}

var zeroTemperature = float64(0)

func (e *Engine) completeJSON(ctx context.Context, agent, systemPrompt, userContext string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	start := time.Now()
	_, span := telemetry.StartNarrativeCallSpan(ctx, agent, e.model, e.p.Name())

	resp, err := e.p.Complete(ctx, &provider.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []provider.Message{
			{Role: "user", Content: userContext},
		},
		Model:       e.model,
		MaxTokens:   1024,
		Temperature: &zeroTemperature,
	})
	if err != nil {
		telemetry.EndNarrativeCallSpan(span, 0, 0, true)
		metrics.RecordNarrativeCall(agent, "fail_closed", time.Since(start))
		return fmt.Errorf("%s completion: %w: %w", e.p.Name(), model.ErrLLMUnavailable, err)
	}
	if err := json.Unmarshal([]byte(resp.Content), out); err != nil {
		telemetry.EndNarrativeCallSpan(span, resp.Usage.InputTokens, resp.Usage.OutputTokens, true)
		metrics.RecordNarrativeCall(agent, "fail_closed", time.Since(start))
		return fmt.Errorf("decode %s verdict: %w: %w", e.p.Name(), model.ErrLLMUnavailable, err)
	}
	telemetry.EndNarrativeCallSpan(span, resp.Usage.InputTokens, resp.Usage.OutputTokens, false)
	metrics.RecordNarrativeCall(agent, "ok", time.Since(start))
	return nil
}
