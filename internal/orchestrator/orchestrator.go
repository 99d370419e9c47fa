/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package orchestrator drives one case through the nine-state loop — INIT,
// INVESTIGATE, QUANTIFY_RISK, CRITIQUE, EVALUATE_POLICY, PLAN_ACTIONS,
// DRAFT_COMMS, EXECUTE, COMPLETE — dispatching the role agent bound to each
// state from a fixed table, the way the teacher's controllers run a fixed
// sequence of phase checks per reconcile rather than a string-keyed lookup.
// INIT binds no agent; it exists only to give every run a STATE_ENTER/
// STATE_EXIT trace pair marking the start of the loop.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/agents"
	"github.com/marcus-qen/gatewayposture/internal/embedding"
	"github.com/marcus-qen/gatewayposture/internal/governance"
	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/metrics"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/narrative"
	"github.com/marcus-qen/gatewayposture/internal/playbook"
	"github.com/marcus-qen/gatewayposture/internal/policy"
	"github.com/marcus-qen/gatewayposture/internal/retrieval"
	"github.com/marcus-qen/gatewayposture/internal/telemetry"
)

// State is one step of the case-advancement loop.
type State string

const (
	// StateInit is the case's starting state. It binds no agent — it exists
	// so every run has a STATE_ENTER/STATE_EXIT trace pair recording the
	// start of the loop — and always advances to INVESTIGATE.
	StateInit           State = "INIT"
	StateInvestigate    State = "INVESTIGATE"
	StateQuantifyRisk   State = "QUANTIFY_RISK"
	StateCritique       State = "CRITIQUE"
	StateEvaluatePolicy State = "EVALUATE_POLICY"
	StatePlanActions    State = "PLAN_ACTIONS"
	StateDraftComms     State = "DRAFT_COMMS"
	StateExecute        State = "EXECUTE"
	StateComplete       State = "COMPLETE"
)

// maxInvestigationRounds bounds the CRITIQUE->INVESTIGATE loop independent
// of the critic's own rejection-count guardrail, so a case that keeps
// finding new contradictions can't run investigation forever.
const maxInvestigationRounds = 2

// agentFor is the fixed state-to-agent dispatch table. Agents are selected
// by this table, never by a string-keyed registry.
var agentFor = map[State]agents.Agent{
	StateInvestigate:    agents.Investigator{},
	StateQuantifyRisk:   agents.RiskQuant{},
	StateCritique:       agents.Critic{},
	StateEvaluatePolicy: agents.PolicyJudge{},
	StatePlanActions:    agents.Planner{},
	StateDraftComms:     agents.Comms{},
	StateExecute:        agents.Executor{},
}

// Engine owns the capability bundle every run wires into agents.RunContext.
type Engine struct {
	Store      *graph.Store
	Fanout     *ingestion.Fanout
	Narrative  *narrative.Engine
	Playbooks  *playbook.Matcher
	Policies   *policy.Evaluator
	Governance *governance.Manager
	Tracer     *Tracer
	Log        logr.Logger

	// Retriever and Embedder back the hybrid-search index: every resolved
	// or blocked case is indexed on exit so the playbook/replay layer can
	// find similar prior cases. Both are nil-safe — WithRetrieval is
	// optional, and indexing is skipped silently when unset or when the
	// configured Embedder has no backend (embedding.NoopProvider).
	Retriever *retrieval.Retriever
	Embedder  embedding.Provider
}

// WithRetrieval attaches the hybrid-search indexer. Passing nil for either
// argument disables post-run indexing.
func (e *Engine) WithRetrieval(r *retrieval.Retriever, emb embedding.Provider) *Engine {
	e.Retriever = r
	e.Embedder = emb
	return e
}

// New wires an Engine over the supplied capabilities, building the
// governance manager over the same tracer so every action transition and
// every state transition land in the same trace_event sequence. The logger
// defaults to logr.Discard() — callers that want observability call
// WithLogger, matching the teacher's own capability-injection style for
// internal/runner.Runner rather than reaching for a package-global.
func New(store *graph.Store, fanout *ingestion.Fanout, eng *narrative.Engine, pb *playbook.Matcher, pol *policy.Evaluator) *Engine {
	tracer := &Tracer{store: store}
	return &Engine{
		Store:      store,
		Fanout:     fanout,
		Narrative:  eng,
		Playbooks:  pb,
		Policies:   pol,
		Governance: governance.New(store, tracer),
		Tracer:     tracer,
		Log:        logr.Discard(),
	}
}

// WithLogger attaches a logger and returns the same Engine for chaining.
func (e *Engine) WithLogger(log logr.Logger) *Engine {
	e.Log = log
	return e
}

// Result summarizes one Run invocation for the control surface.
type Result struct {
	Case   model.Case
	Belief model.BeliefState
}

// Run advances a case through the full state loop, starting fresh each
// call. bypassCache forces the investigator to skip the evidence cache.
func (e *Engine) Run(ctx context.Context, caseID uuid.UUID, bypassCache bool) (Result, error) {
	c, err := e.Store.GetCase(ctx, caseID)
	if err != nil {
		return Result{}, fmt.Errorf("load case: %w", err)
	}

	belief := &model.BeliefState{
		CaseID:          caseID,
		CurrentPosture:  model.PostureAccept,
		IterationBudget: 10,
		ToolCallBudget:  50,
	}

	rc := &agents.RunContext{
		Case:        c,
		Belief:      belief,
		Store:       e.Store,
		Fanout:      e.Fanout,
		Narrative:   e.Narrative,
		Playbooks:   e.Playbooks,
		Policies:    e.Policies,
		Governance:  e.Governance,
		BypassCache: bypassCache,
	}

	log := e.Log.WithValues("case_id", caseID, "case_type", c.CaseType)
	log.Info("run started", "bypass_cache", bypassCache)

	metrics.ActiveCases.Inc()
	defer metrics.ActiveCases.Dec()
	ctx, caseSpan := telemetry.StartCaseSpan(ctx, caseID.String(), string(c.CaseType))

	state := StateInit
	for state != StateComplete {
		next, err := e.step(ctx, state, rc)
		if err != nil {
			log.Error(err, "case run aborted", "state", state)
			telemetry.EndCaseSpan(caseSpan, string(model.CaseStatusBlocked), string(model.StopBlocked))
			return Result{}, err
		}
		log.V(1).Info("state transition", "from", state, "to", next)
		state = next
	}

	if rc.Belief.StopCondition == model.StopBudgetExceeded {
		metrics.RecordBudgetExceeded(string(c.CaseType))
	}

	final, err := e.Store.GetCase(ctx, caseID)
	if err != nil {
		telemetry.EndCaseSpan(caseSpan, "unknown", string(rc.Belief.StopCondition))
		return Result{}, fmt.Errorf("reload case after run: %w", err)
	}
	rc.Case = final
	telemetry.EndCaseSpan(caseSpan, string(final.Status), string(rc.Belief.StopCondition))
	metrics.RecordCaseComplete(string(c.CaseType), string(final.Status))

	e.indexForRetrieval(ctx, rc)

	log.Info("run complete", "stop_condition", rc.Belief.StopCondition, "posture", rc.Belief.CurrentPosture)
	return Result{Case: rc.Case, Belief: *rc.Belief}, nil
}

// indexForRetrieval upserts the case's hybrid-search row so later cases can
// be matched against it. Best-effort: an embedding failure (most commonly
// embedding.ErrNoProvider when no backend is configured) or indexing error
// only logs, it never fails the run the case itself already completed.
func (e *Engine) indexForRetrieval(ctx context.Context, rc *agents.RunContext) {
	if e.Retriever == nil || e.Embedder == nil {
		return
	}
	text := fmt.Sprintf("%s %s %s", rc.Case.CaseType, rc.Case.Airport(), strings.Join(rc.Belief.Hypotheses, " "))
	vec, err := e.Embedder.Embed(ctx, text)
	if err != nil {
		e.Log.V(1).Info("skipping retrieval index: embed failed", "case_id", rc.Case.ID, "error", err.Error())
		return
	}
	if err := e.Retriever.IndexCase(ctx, rc.Case.ID, text, vec, nil); err != nil {
		e.Log.Error(err, "index case for retrieval", "case_id", rc.Case.ID)
	}
}

// step runs the agent bound to state, emits its STATE_ENTER/STATE_EXIT
// trace pair, and decides the next state. StateInit binds no agent: it
// emits its trace pair and falls straight through to next(), which always
// sends it to INVESTIGATE.
func (e *Engine) step(ctx context.Context, state State, rc *agents.RunContext) (State, error) {
	if state == StateInit {
		ctx, span := telemetry.StartStateSpan(ctx, string(state))
		defer span.End()

		if err := e.Tracer.Emit(ctx, rc.Case.ID, model.TraceStateEnter, "state", string(state), rc.Belief.Summary()); err != nil {
			return StateComplete, err
		}
		if err := e.Tracer.Emit(ctx, rc.Case.ID, model.TraceStateExit, "state", string(state), rc.Belief.Summary()); err != nil {
			return StateComplete, err
		}
		return e.next(ctx, state, rc)
	}

	agent, ok := agentFor[state]
	if !ok {
		return StateComplete, fmt.Errorf("no agent bound to state %s", state)
	}

	ctx, span := telemetry.StartStateSpan(ctx, string(state))
	defer span.End()

	if err := e.Tracer.Emit(ctx, rc.Case.ID, model.TraceStateEnter, "state", string(state), rc.Belief.Summary()); err != nil {
		return StateComplete, err
	}

	rc.Belief.IterationsUsed++
	outcome, err := agent.Run(ctx, rc)

	exitMeta := rc.Belief.Summary()
	if outcome.Meta != nil {
		for k, v := range outcome.Meta {
			exitMeta[k] = v
		}
	}
	exitMeta["note"] = outcome.Note
	if err != nil {
		exitMeta["error"] = err.Error()
	}
	if traceErr := e.Tracer.Emit(ctx, rc.Case.ID, model.TraceStateExit, "state", string(state), exitMeta); traceErr != nil {
		return StateComplete, traceErr
	}
	if err != nil {
		rc.Belief.StopCondition = model.StopBlocked
		if stErr := e.Store.UpdateCaseStatus(ctx, rc.Case.ID, model.CaseStatusBlocked); stErr != nil {
			return StateComplete, fmt.Errorf("mark case blocked after agent error: %w", stErr)
		}
		return StateComplete, fmt.Errorf("state %s: %w", state, err)
	}

	return e.next(ctx, state, rc)
}

// next implements the transition table: INIT always opens onto
// INVESTIGATE, the CRITIQUE loop runs back to INVESTIGATE while evidence is
// insufficient and budget/round limits allow it, and EVALUATE_POLICY hard
// stops on a BLOCKED verdict.
func (e *Engine) next(ctx context.Context, state State, rc *agents.RunContext) (State, error) {
	switch state {
	case StateInit:
		return StateInvestigate, nil

	case StateInvestigate:
		blocking, err := e.Store.UnresolvedBlocking(ctx, rc.Case.ID)
		if err != nil {
			return StateComplete, fmt.Errorf("check unresolved blocking evidence: %w", err)
		}
		if len(blocking) > 0 {
			rc.Belief.StopCondition = model.StopBlocked
			if err := e.Store.UpdateCaseStatus(ctx, rc.Case.ID, model.CaseStatusBlocked); err != nil {
				return StateComplete, fmt.Errorf("mark case blocked on missing required evidence: %w", err)
			}
			return StateComplete, nil
		}

		rc.Belief.InvestigationRounds++
		if rc.Belief.OpenUncertainties() > 0 &&
			rc.Belief.BudgetRemaining() &&
			rc.Belief.InvestigationRounds < maxInvestigationRounds {
			return StateInvestigate, nil
		}
		return StateQuantifyRisk, nil

	case StateQuantifyRisk:
		return StateCritique, nil

	case StateCritique:
		if rc.CriticVerdict.Verdict == "INSUFFICIENT_EVIDENCE" &&
			rc.Belief.InvestigationRounds < maxInvestigationRounds &&
			rc.Belief.BudgetRemaining() {
			metrics.RecordInvestigationRound(string(rc.Case.CaseType))
			return StateInvestigate, nil
		}
		if !rc.Belief.BudgetRemaining() {
			rc.Belief.StopCondition = model.StopBudgetExceeded
		}
		return StateEvaluatePolicy, nil

	case StateEvaluatePolicy:
		if rc.PolicyResult.Verdict == policy.VerdictBlocked {
			rc.Belief.StopCondition = model.StopBlocked
			if err := e.Store.UpdateCaseStatus(ctx, rc.Case.ID, model.CaseStatusBlocked); err != nil {
				return StateComplete, fmt.Errorf("mark case blocked on policy verdict: %w", err)
			}
			return StateComplete, nil
		}
		if rc.PolicyResult.Verdict == policy.VerdictNeedsEvidence &&
			rc.Belief.InvestigationRounds < maxInvestigationRounds &&
			rc.Belief.BudgetRemaining() {
			metrics.RecordInvestigationRound(string(rc.Case.CaseType))
			return StateInvestigate, nil
		}
		return StatePlanActions, nil

	case StatePlanActions:
		if len(rc.ProposedActions) == 0 {
			rc.Belief.StopCondition = model.StopMet
			if err := e.Store.UpdateCaseStatus(ctx, rc.Case.ID, model.CaseStatusResolved); err != nil {
				return StateComplete, fmt.Errorf("mark case resolved with no proposed actions: %w", err)
			}
			return StateComplete, nil
		}
		if agents.RequiresNotification(rc.ProposedActions) {
			return StateDraftComms, nil
		}
		return StateExecute, nil

	case StateDraftComms:
		return StateExecute, nil

	case StateExecute:
		blocked, err := e.resolveOrHold(ctx, rc)
		if err != nil {
			return StateComplete, err
		}
		if blocked {
			rc.Belief.StopCondition = model.StopBlocked
		} else {
			rc.Belief.StopCondition = model.StopMet
		}
		return StateComplete, nil

	default:
		return StateComplete, nil
	}
}

// resolveOrHold flips the case to RESOLVED once every proposed action has
// reached a terminal state; a case with an action still awaiting human
// approval is marked BLOCKED instead, so it surfaces the same way a missing-
// evidence or policy hard-stop case does until the control surface's
// approveAction call (governance.Manager.maybeResolveCase) moves it on. It
// reports whether the case was left BLOCKED so the caller can set the
// matching stop_condition.
func (e *Engine) resolveOrHold(ctx context.Context, rc *agents.RunContext) (bool, error) {
	for _, a := range rc.ExecutedActions {
		if a.State == model.ActionPendingApproval {
			return true, e.Store.UpdateCaseStatus(ctx, rc.Case.ID, model.CaseStatusBlocked)
		}
	}
	return false, e.Store.UpdateCaseStatus(ctx, rc.Case.ID, model.CaseStatusResolved)
}
