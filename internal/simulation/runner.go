/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/narrative"
	"github.com/marcus-qen/gatewayposture/internal/orchestrator"
	"github.com/marcus-qen/gatewayposture/internal/playbook"
	"github.com/marcus-qen/gatewayposture/internal/policy"
	"github.com/marcus-qen/gatewayposture/internal/provider"
)

// wholeRunCeiling is the 90s ceiling SPEC_FULL.md places on a whole
// simulation run, independent of the 30s per-source fetch ceiling the real
// ingestion fanout enforces.
const wholeRunCeiling = 90 * time.Second

// Outcome is one scenario's actual result, for comparison against the
// Scenario's Expected* fields by the caller (tests or a replay sweep).
type Outcome struct {
	Scenario   Scenario
	CaseID     uuid.UUID
	Result     orchestrator.Result
	Err        error
	Mismatches []string
}

// RunScenario wires a fresh orchestrator.Engine over a fake ingestion
// registry and a canned narrative-engine provider, then drives sc's case
// through the full state loop with the evidence cache bypassed, per
// SPEC_FULL.md §4.2 ("simulation runs bypass it"). store is real — cascade
// traversal and playbook matching still read the persisted operational
// subgraph the caller seeded, only the five external sources are faked.
func RunScenario(ctx context.Context, store *graph.Store, sc Scenario) Outcome {
	ctx, cancel := context.WithTimeout(ctx, wholeRunCeiling)
	defer cancel()

	registry := newFakeRegistry(sc.Results)
	fanout := ingestion.NewFanout(registry)

	mock := provider.NewMockProvider(sc.LLMResponses, nil)
	narr := narrative.New(mock, "simulation")

	pol, err := policy.New(nil, narr)
	if err != nil {
		return Outcome{Scenario: sc, Err: fmt.Errorf("build policy evaluator: %w", err)}
	}

	eng := orchestrator.New(store, fanout, narr, playbook.New(store.Pool()), pol)

	c, err := eng.CreateCase(ctx, sc.CaseType, map[string]string{"airport": sc.Airport})
	if err != nil {
		return Outcome{Scenario: sc, Err: fmt.Errorf("create case: %w", err)}
	}

	result, err := eng.Run(ctx, c.ID, true)
	out := Outcome{Scenario: sc, CaseID: c.ID, Result: result, Err: err}
	if err == nil {
		out.Mismatches = compare(sc, result)
	}
	return out
}

// compare checks the actual run against the scenario's expected fields,
// returning a human-readable mismatch per divergence rather than failing
// fast, so a replay sweep reports everything wrong in one pass.
func compare(sc Scenario, result orchestrator.Result) []string {
	var mismatches []string
	if sc.ExpectedStatus != "" && result.Case.Status != sc.ExpectedStatus {
		mismatches = append(mismatches, fmt.Sprintf("status: want %s, got %s", sc.ExpectedStatus, result.Case.Status))
	}
	if sc.ExpectedPosture != "" && result.Belief.CurrentPosture != sc.ExpectedPosture {
		mismatches = append(mismatches, fmt.Sprintf("posture: want %s, got %s", sc.ExpectedPosture, result.Belief.CurrentPosture))
	}
	if sc.ExpectedRiskLevel != "" && result.Belief.RiskLevel != sc.ExpectedRiskLevel {
		mismatches = append(mismatches, fmt.Sprintf("risk_level: want %s, got %s", sc.ExpectedRiskLevel, result.Belief.RiskLevel))
	}
	return mismatches
}

// RunAll executes every named scenario in order against the given store;
// the scheduled replay Sweeper calls it on each tick.
func RunAll(ctx context.Context, store *graph.Store) []Outcome {
	scenarios := Scenarios()
	outcomes := make([]Outcome, 0, len(scenarios))
	for _, sc := range scenarios {
		outcomes = append(outcomes, RunScenario(ctx, store, sc))
	}
	return outcomes
}

// Sweeper periodically replays every named scenario against a store and
// reports drift — a scenario whose actual outcome no longer matches its
// recorded expectation signals a regression in the orchestrator or signal
// derivation logic, the same role the teacher's jobs/scheduler.go periodic
// job runner plays for background reconciliation sweeps.
type Sweeper struct {
	store  *graph.Store
	cron   *cron.Cron
	onDone func([]Outcome)
}

// NewSweeper builds a Sweeper that runs on the given cron schedule (e.g.
// "@every 1h"), invoking onDone with the full outcome set after each sweep.
func NewSweeper(store *graph.Store, schedule string, onDone func([]Outcome)) (*Sweeper, error) {
	c := cron.New()
	s := &Sweeper{store: store, cron: c, onDone: onDone}
	if _, err := c.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("schedule replay sweep: %w", err)
	}
	return s, nil
}

func (s *Sweeper) runOnce() {
	outcomes := RunAll(context.Background(), s.store)
	if s.onDone != nil {
		s.onDone(outcomes)
	}
}

// Start begins the background cron schedule.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }
