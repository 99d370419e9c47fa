package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/packet"
)

// CreateCase opens a new case for the orchestrator to advance. It is the
// only way a case comes into existence — cases are never created implicitly
// by a Run call.
func (e *Engine) CreateCase(ctx context.Context, caseType model.CaseType, scope map[string]string) (model.Case, error) {
	return e.Store.CreateCase(ctx, caseType, scope)
}

// RunCase is the control surface's entry point for advancing an existing
// case through the full state loop.
func (e *Engine) RunCase(ctx context.Context, caseID uuid.UUID, bypassCache bool) (Result, error) {
	return e.Run(ctx, caseID, bypassCache)
}

// ApproveAction approves a PENDING_APPROVAL action and, when autoExecute is
// set, drives it straight through to a terminal state, then re-checks
// whether the owning case can now resolve.
func (e *Engine) ApproveAction(ctx context.Context, actionID uuid.UUID, actor string, autoExecute bool) (model.Action, error) {
	return e.Governance.Approve(ctx, actionID, actor, autoExecute, executeByTypeFallback)
}

// RejectAction returns a PENDING_APPROVAL action to PROPOSED.
func (e *Engine) RejectAction(ctx context.Context, actionID uuid.UUID, actor, reason string) (model.Action, error) {
	return e.Governance.Reject(ctx, actionID, actor, reason)
}

// GetPacket assembles the decision packet for a completed case. Callers
// treat packet.ErrCaseNotComplete as the control surface's 404.
func (e *Engine) GetPacket(ctx context.Context, caseID uuid.UUID) (packet.DecisionPacket, error) {
	return packet.New(e.Store).Build(ctx, caseID)
}

// executeByTypeFallback mirrors agents.executeByType for actions approved
// out-of-band from a Run call, where no RunContext-scoped executor exists.
func executeByTypeFallback(ctx context.Context, a model.Action) (bool, string) {
	switch a.Type {
	case model.ActionSetPosture, model.ActionPublishGatewayAdvisory, model.ActionEscalateOps,
		model.ActionHoldCargo, model.ActionRebookFlight, model.ActionNotifyCustomer:
		return true, fmt.Sprintf("%s executed on approval", a.Type)
	default:
		return false, fmt.Sprintf("unknown action type %s", a.Type)
	}
}
