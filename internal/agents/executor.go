package agents

import (
	"context"
	"fmt"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// Executor drives every proposed action through governance dispatch.
// Actions requiring approval stop at PENDING_APPROVAL and are picked up
// later by the control surface's approveAction entry point; the rest
// execute immediately through a type-dispatched executor function.
type Executor struct{}

func (Executor) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	for _, a := range rc.ProposedActions {
		executed, err := rc.Governance.Dispatch(ctx, a, executeByType)
		if err != nil {
			return AgentOutcome{}, fmt.Errorf("dispatch action %s: %w", a.Type, err)
		}
		rc.ExecutedActions = append(rc.ExecutedActions, executed)
	}

	return AgentOutcome{
		Note: fmt.Sprintf("dispatched %d action(s)", len(rc.ExecutedActions)),
		Meta: map[string]any{"dispatched_count": len(rc.ExecutedActions)},
	}, nil
}

// executeByType is the governance.ActionExecutor used for every action
// type this system proposes. Each case is a fixed-effect stub describing
// the integration point a production deployment would wire a real
// downstream call into.
func executeByType(ctx context.Context, a model.Action) (bool, string) {
	switch a.Type {
	case model.ActionSetPosture:
		return true, "posture recorded"
	case model.ActionPublishGatewayAdvisory:
		return true, "advisory published"
	case model.ActionEscalateOps:
		return true, "ops escalation filed"
	case model.ActionHoldCargo:
		return true, "cargo hold flagged"
	case model.ActionRebookFlight:
		return true, "rebooking requested"
	case model.ActionNotifyCustomer:
		return true, "customer notified"
	default:
		return false, fmt.Sprintf("unknown action type %s", a.Type)
	}
}
