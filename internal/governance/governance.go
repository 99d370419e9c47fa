/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package governance implements the action lifecycle state machine from
// §4.5: the enumerated PROPOSED→PENDING_APPROVAL→APPROVED→EXECUTING→
// COMPLETED/FAILED→ROLLED_BACK transitions, the single reject path back to
// PROPOSED, and the typed-confirmation-token idiom carried over from the
// teacher's approval package.
package governance

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/metrics"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/telemetry"
)

// rollbackAllowed is the set of action types whose FAILED outcome may be
// compensated via Rollback.
var rollbackAllowed = map[model.ActionType]bool{
	model.ActionSetPosture:             true,
	model.ActionPublishGatewayAdvisory: true,
	model.ActionHoldCargo:              true,
}

// allowedNext enumerates the one-way transition table plus the single
// PENDING_APPROVAL → PROPOSED reject path.
var allowedNext = map[model.ActionState][]model.ActionState{
	model.ActionProposed:        {model.ActionPendingApproval, model.ActionApproved},
	model.ActionPendingApproval: {model.ActionApproved, model.ActionProposed},
	model.ActionApproved:       {model.ActionExecuting},
	model.ActionExecuting:      {model.ActionCompleted, model.ActionFailed},
	model.ActionFailed:         {model.ActionRolledBack},
	model.ActionCompleted:      {},
	model.ActionRolledBack:     {},
}

// Manager advances actions through the governed lifecycle and writes both
// the action row and a STATE_ENTER trace event for every transition.
type Manager struct {
	store *graph.Store
	trace TraceWriter
}

// TraceWriter is the narrow capability governance needs from the
// orchestrator's trace writer — kept as an interface so this package never
// imports internal/orchestrator.
type TraceWriter interface {
	Emit(ctx context.Context, caseID uuid.UUID, eventType model.TraceEventType, refType, refID string, meta map[string]any) error
}

// New builds a Manager over the graph store and a trace writer capability.
func New(store *graph.Store, trace TraceWriter) *Manager {
	return &Manager{store: store, trace: trace}
}

// transition validates and persists a --> next move, writing the trace entry.
func (m *Manager) transition(ctx context.Context, a model.Action, next model.ActionState, reason, actor string) (model.Action, error) {
	allowed := allowedNext[a.State]
	ok := false
	for _, s := range allowed {
		if s == next {
			ok = true
			break
		}
	}
	if !ok {
		return model.Action{}, fmt.Errorf("action %s: %s -> %s not allowed (allowed: %v): %w",
			a.ID, a.State, next, allowed, model.ErrInvalidTransition)
	}

	from := a.State
	_, span := telemetry.StartActionSpan(ctx, string(a.Type), string(from), string(next))

	a.State = next
	if err := m.store.UpdateActionState(ctx, a); err != nil {
		telemetry.EndActionSpan(span, false, err.Error())
		return model.Action{}, err
	}
	if err := m.trace.Emit(ctx, a.CaseID, model.TraceStateEnter, "action", a.ID.String(), map[string]any{
		"from_state": string(from),
		"to_state":   string(next),
		"reason":     reason,
		"actor":      actor,
	}); err != nil {
		telemetry.EndActionSpan(span, false, err.Error())
		return model.Action{}, fmt.Errorf("emit action transition trace: %w", err)
	}
	telemetry.EndActionSpan(span, true, reason)

	switch next {
	case model.ActionCompleted, model.ActionFailed, model.ActionRolledBack:
		metrics.RecordAction(string(a.Type), string(next))
	}
	return a, nil
}

// Propose creates a new action in PROPOSED state. requiresApproval decides
// whether Dispatch routes it to PENDING_APPROVAL or straight to execution.
func (m *Manager) Propose(ctx context.Context, a model.Action) (model.Action, error) {
	return m.store.CreateAction(ctx, a)
}

// Dispatch is the Executor role's entry point: it honors requires_approval
// by transitioning to PENDING_APPROVAL and returning without executing, or
// else drives the action straight through APPROVED → EXECUTING → terminal.
func (m *Manager) Dispatch(ctx context.Context, a model.Action, execute ActionExecutor) (model.Action, error) {
	if a.RequiresApproval {
		return m.transition(ctx, a, model.ActionPendingApproval, "requires_approval", "executor")
	}
	a, err := m.transition(ctx, a, model.ActionApproved, "auto-approved: no approval required", "executor")
	if err != nil {
		return model.Action{}, err
	}
	return m.execute(ctx, a, execute)
}

// ActionExecutor performs the type-specific side effect for an action and
// reports whether it succeeded. The core ships a stub per §4.5 — real
// side effects are out of scope.
type ActionExecutor func(ctx context.Context, a model.Action) (success bool, detail string)

func (m *Manager) execute(ctx context.Context, a model.Action, execute ActionExecutor) (model.Action, error) {
	a, err := m.transition(ctx, a, model.ActionExecuting, "dispatch", "executor")
	if err != nil {
		return model.Action{}, err
	}

	success, detail := execute(ctx, a)
	next := model.ActionCompleted
	if !success {
		next = model.ActionFailed
	}
	a, err = m.transition(ctx, a, next, detail, "executor")
	if err != nil {
		return model.Action{}, err
	}

	if _, err := m.store.CreateOutcome(ctx, model.Outcome{
		ActionID:   a.ID,
		Success:    success,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return model.Action{}, fmt.Errorf("record outcome: %w", err)
	}
	return a, nil
}

// Approve transitions a PENDING_APPROVAL action to APPROVED and, if
// autoExecute is set, immediately drives it to a terminal state. On
// all-actions-terminal it flips the case to RESOLVED.
func (m *Manager) Approve(ctx context.Context, actionID uuid.UUID, actor string, autoExecute bool, execute ActionExecutor) (model.Action, error) {
	a, err := m.store.GetAction(ctx, actionID)
	if err != nil {
		return model.Action{}, err
	}
	a.ApprovedBy = actor
	now := time.Now().UTC()
	a.ApprovedAt = &now

	a, err = m.transition(ctx, a, model.ActionApproved, "approved", actor)
	if err != nil {
		return model.Action{}, err
	}
	if autoExecute {
		a, err = m.execute(ctx, a, execute)
		if err != nil {
			return model.Action{}, err
		}
	}
	if err := m.maybeResolveCase(ctx, a.CaseID); err != nil {
		return model.Action{}, err
	}
	return a, nil
}

// Reject returns a PENDING_APPROVAL action to PROPOSED and records the
// rejection reason in args.
func (m *Manager) Reject(ctx context.Context, actionID uuid.UUID, actor, reason string) (model.Action, error) {
	a, err := m.store.GetAction(ctx, actionID)
	if err != nil {
		return model.Action{}, err
	}
	if a.Args == nil {
		a.Args = map[string]any{}
	}
	a.Args["rejected"] = true
	a.Args["rejected_reason"] = reason
	a.Args["rejected_by"] = actor
	return m.transition(ctx, a, model.ActionProposed, reason, actor)
}

// Rollback compensates a FAILED action whose type is in the allowed set.
// The compensating side effect is type-specific and stubbed in the core.
func (m *Manager) Rollback(ctx context.Context, actionID uuid.UUID, actor string, compensate ActionExecutor) (model.Action, error) {
	a, err := m.store.GetAction(ctx, actionID)
	if err != nil {
		return model.Action{}, err
	}
	if !rollbackAllowed[a.Type] {
		return model.Action{}, fmt.Errorf("action type %s is not rollback-eligible: %w", a.Type, model.ErrInvalidTransition)
	}
	success, detail := compensate(ctx, a)
	a, err = m.transition(ctx, a, model.ActionRolledBack, detail, actor)
	if err != nil {
		return model.Action{}, err
	}
	if _, err := m.store.CreateOutcome(ctx, model.Outcome{
		ActionID:   a.ID,
		Success:    success,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
		RolledBack: true,
	}); err != nil {
		return model.Action{}, fmt.Errorf("record rollback outcome: %w", err)
	}
	return a, nil
}

// maybeResolveCase flips a case to RESOLVED once every action it owns sits
// in a terminal state (COMPLETED, FAILED, or ROLLED_BACK).
func (m *Manager) maybeResolveCase(ctx context.Context, caseID uuid.UUID) error {
	actions, err := m.store.ListActionsByCase(ctx, caseID)
	if err != nil {
		return fmt.Errorf("list actions for case resolution check: %w", err)
	}
	for _, a := range actions {
		switch a.State {
		case model.ActionCompleted, model.ActionFailed, model.ActionRolledBack:
		default:
			return nil
		}
	}
	return m.store.UpdateCaseStatus(ctx, caseID, model.CaseStatusResolved)
}

// GenerateTypedConfirmationToken produces an 8-hex-character confirmation
// token for high-risk actions, matching the teacher's approval package idiom.
func GenerateTypedConfirmationToken() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirmation token: %w", err)
	}
	return "CONFIRM-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// ValidateTypedConfirmation compares a provided token to the expected one.
func ValidateTypedConfirmation(expected, provided string) error {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return fmt.Errorf("typed confirmation required")
	}
	if provided != strings.TrimSpace(expected) {
		return fmt.Errorf("typed confirmation mismatch")
	}
	return nil
}
