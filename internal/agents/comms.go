package agents

import (
	"context"
	"fmt"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// Comms drafts templated notifications for each proposed action, one draft
// per audience. It never calls the narrative engine — wording is fixed by
// action type and posture, not generated.
type Comms struct{}

// notifyingActionTypes are the action types PLAN_ACTIONS treats as requiring
// a drafted notification before EXECUTE; SET_POSTURE alone never does.
var notifyingActionTypes = map[model.ActionType]bool{
	model.ActionPublishGatewayAdvisory: true,
	model.ActionEscalateOps:            true,
	model.ActionHoldCargo:              true,
	model.ActionRebookFlight:           true,
	model.ActionNotifyCustomer:         true,
}

// RequiresNotification reports whether any of the given actions needs a
// Comms draft before the case may proceed to EXECUTE.
func RequiresNotification(actions []model.Action) bool {
	for _, a := range actions {
		if notifyingActionTypes[a.Type] {
			return true
		}
	}
	return false
}

func (Comms) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	airport := rc.Case.Airport()
	posture := rc.Belief.CurrentPosture

	for _, a := range rc.ProposedActions {
		switch a.Type {
		case model.ActionPublishGatewayAdvisory:
			rc.CommsDrafts = append(rc.CommsDrafts, CommsDraft{
				Kind:    "gateway_advisory",
				Subject: fmt.Sprintf("Gateway posture advisory: %s", airport),
				Body:    fmt.Sprintf("%s gateway posture set to %s. Risk level: %s.", airport, posture, rc.Belief.RiskLevel),
			})
		case model.ActionEscalateOps:
			rc.CommsDrafts = append(rc.CommsDrafts, CommsDraft{
				Kind:    "ops_escalation",
				Subject: fmt.Sprintf("Ops escalation: %s", airport),
				Body:    fmt.Sprintf("%s requires operations attention. Risk level: %s. Open contradictions: %d.", airport, rc.Belief.RiskLevel, len(rc.Belief.ContradictionRefs)),
			})
		case model.ActionHoldCargo, model.ActionRebookFlight, model.ActionNotifyCustomer:
			rc.CommsDrafts = append(rc.CommsDrafts, CommsDraft{
				Kind:    "customer_notification",
				Subject: fmt.Sprintf("Shipment update: %s", airport),
				Body:    fmt.Sprintf("Action %s proposed for shipments routed through %s due to %s risk.", a.Type, airport, rc.Belief.RiskLevel),
			})
		}
	}

	return AgentOutcome{
		Note: fmt.Sprintf("drafted %d communication(s)", len(rc.CommsDrafts)),
		Meta: map[string]any{"draft_count": len(rc.CommsDrafts)},
	}, nil
}
