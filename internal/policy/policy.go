/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package policy evaluates PolicyJudge's declarative rules with CEL, plus
// the two hard guardrails that no CEL rule or narrative-engine verdict may
// override: a CRITICAL-risk ACCEPT posture is always blocked, and any
// shipment-level action requires bound BOOKING evidence on the case.
package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/narrative"
)

// Verdict is the policy evaluation outcome.
type Verdict string

const (
	VerdictCompliant    Verdict = "COMPLIANT"
	VerdictNeedsEvidence Verdict = "NEEDS_EVIDENCE"
	VerdictBlocked      Verdict = "BLOCKED"
)

// Rule is one declarative policy rule: a CEL boolean expression over the
// evaluation Input. A rule that evaluates false blocks the case.
type Rule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// Input is the evaluation context a rule or the narrative engine sees.
type Input struct {
	RiskLevel           model.RiskLevel
	RecommendedPosture  model.Posture
	ShipmentActions     bool
	HasBookingEvidence  bool
	ContradictionCount  int
}

func (i Input) toCELMap() map[string]any {
	return map[string]any{
		"risk_level":           string(i.RiskLevel),
		"recommended_posture":  string(i.RecommendedPosture),
		"shipment_actions":     i.ShipmentActions,
		"has_booking_evidence": i.HasBookingEvidence,
		"contradiction_count":  int64(i.ContradictionCount),
	}
}

// Result is the outcome of Evaluate.
type Result struct {
	Verdict          Verdict
	VerdictRationale string
	ViolatedPolicies []string
}

// Evaluator runs hard guardrails, then declarative CEL rules, then — if both
// pass — the narrative engine's own judgment, applying the safety override
// from §4.4 at the end.
type Evaluator struct {
	env      *cel.Env
	rules    []Rule
	mu       sync.RWMutex
	programs map[string]cel.Program
	engine   *narrative.Engine
}

// New builds an Evaluator with the given rule set.
func New(rules []Rule, engine *narrative.Engine) (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("risk_level", cel.StringType),
		cel.Variable("recommended_posture", cel.StringType),
		cel.Variable("shipment_actions", cel.BoolType),
		cel.Variable("has_booking_evidence", cel.BoolType),
		cel.Variable("contradiction_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("build CEL env: %w", err)
	}
	return &Evaluator{env: env, rules: rules, programs: make(map[string]cel.Program), engine: engine}, nil
}

// LoadRulesFromYAML parses a YAML policy file into rules.
func LoadRulesFromYAML(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}
	return rules, nil
}

// Evaluate runs the full PolicyJudge gauntlet for one case.
func (e *Evaluator) Evaluate(ctx context.Context, in Input, systemPrompt, userContext string) (Result, error) {
	if in.RiskLevel == model.RiskCritical && in.RecommendedPosture == model.PostureAccept {
		return Result{
			Verdict:          VerdictBlocked,
			VerdictRationale: "CRITICAL risk cannot resolve to ACCEPT posture",
			ViolatedPolicies: []string{"hard-veto: critical-risk-accept"},
		}, nil
	}
	if in.ShipmentActions && !in.HasBookingEvidence {
		return Result{
			Verdict:          VerdictBlocked,
			VerdictRationale: "shipment-level action proposed without bound BOOKING evidence",
			ViolatedPolicies: []string{"hard-veto: shipment-requires-booking-evidence"},
		}, nil
	}

	var violated []string
	for _, r := range e.rules {
		ok, err := e.evalRule(r, in)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate policy rule %q: %w", r.Name, err)
		}
		if !ok {
			violated = append(violated, r.Name)
		}
	}
	if len(violated) > 0 {
		return Result{
			Verdict:          VerdictBlocked,
			VerdictRationale: fmt.Sprintf("%d declarative policy rule(s) violated", len(violated)),
			ViolatedPolicies: violated,
		}, nil
	}

	nv, err := e.engine.EvaluatePolicy(ctx, systemPrompt, userContext)
	if err != nil {
		return Result{
			Verdict:          VerdictNeedsEvidence,
			VerdictRationale: nv.VerdictRationale,
			ViolatedPolicies: nv.ViolatedPolicies,
		}, nil
	}

	result := Result{
		Verdict:          Verdict(nv.Verdict),
		VerdictRationale: nv.VerdictRationale,
		ViolatedPolicies: nv.ViolatedPolicies,
	}

	// Safety override: the engine cannot veto on booking-evidence grounds for
	// non-shipment actions — if it blocks but no shipment actions are
	// proposed, downgrade to COMPLIANT.
	if result.Verdict == VerdictBlocked && !in.ShipmentActions {
		result.Verdict = VerdictCompliant
		result.VerdictRationale = "engine block downgraded: no shipment actions proposed"
		result.ViolatedPolicies = nil
	}

	return result, nil
}

func (e *Evaluator) evalRule(r Rule, in Input) (bool, error) {
	e.mu.RLock()
	prg, hit := e.programs[r.Expression]
	e.mu.RUnlock()

	if !hit {
		e.mu.Lock()
		if prg, hit = e.programs[r.Expression]; !hit {
			ast, issues := e.env.Compile(r.Expression)
			if issues != nil && issues.Err() != nil {
				e.mu.Unlock()
				return false, fmt.Errorf("compile: %w", issues.Err())
			}
			p, err := e.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
			if err != nil {
				e.mu.Unlock()
				return false, fmt.Errorf("program: %w", err)
			}
			e.programs[r.Expression] = p
			prg = p
		}
		e.mu.Unlock()
	}

	out, _, err := prg.Eval(in.toCELMap())
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q did not evaluate to bool", r.Name)
	}
	return val, nil
}
