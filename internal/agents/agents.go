/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package agents implements the seven role agents the orchestrator
// dispatches through a capability-set interface rather than by string
// lookup: Investigator, RiskQuant, Critic, PolicyJudge, Planner, Comms,
// Executor.
package agents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/governance"
	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/narrative"
	"github.com/marcus-qen/gatewayposture/internal/planner"
	"github.com/marcus-qen/gatewayposture/internal/playbook"
	"github.com/marcus-qen/gatewayposture/internal/policy"
)

// RunContext is the capability bundle every role agent receives. It carries
// the case, the live belief state, and handles into the stores and engines
// each agent needs — no agent reaches for a global.
type RunContext struct {
	Case       model.Case
	Belief     *model.BeliefState
	Store      *graph.Store
	Fanout     *ingestion.Fanout
	Narrative  *narrative.Engine
	Playbooks  *playbook.Matcher
	Policies   *policy.Evaluator
	Governance *governance.Manager
	BypassCache bool

	// Populated across role invocations within one orchestrator run.
	RiskVerdict      narrative.RiskVerdict
	CriticVerdict    narrative.CriticVerdict
	PolicyResult     policy.Result
	MatchedPlaybook  *model.Playbook
	ProposedActions  []model.Action
	ExecutedActions  []model.Action
	CommsDrafts      []CommsDraft
	CascadeAirportID uuid.UUID
}

// CommsDraft is one templated notification Comms produces.
type CommsDraft struct {
	Kind    string // customer_notification | gateway_advisory | ops_escalation
	Subject string
	Body    string
}

// AgentOutcome is the uniform return value every role agent produces: a
// short human-readable note and structured metadata for the trace event the
// orchestrator writes around the call.
type AgentOutcome struct {
	Note string
	Meta map[string]any
}

// Agent is the capability set every role implements.
type Agent interface {
	Run(ctx context.Context, rc *RunContext) (AgentOutcome, error)
}

// now is a seam for tests; production always uses time.Now().UTC().
var now = func() time.Time { return time.Now().UTC() }
