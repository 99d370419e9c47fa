package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/policy"
)

const policyJudgeSystemPrompt = `You are evaluating a proposed gateway posture against active policies. ` +
	`Respond with strict JSON: {"verdict":"COMPLIANT|NEEDS_EVIDENCE|BLOCKED","verdict_rationale":"...",` +
	`"violated_policies":["..."]}`

// shipmentActionTypes are the action types that count as "shipment-level"
// for the booking-evidence hard guardrail.
var shipmentActionTypes = map[model.ActionType]bool{
	model.ActionHoldCargo:      true,
	model.ActionRebookFlight:   true,
	model.ActionNotifyCustomer: true,
}

// PolicyJudge runs hard guardrails, declarative CEL rules, then the
// narrative engine, applying the safety override for non-shipment actions.
type PolicyJudge struct{}

func (PolicyJudge) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	hasShipmentAction := false
	for _, a := range rc.ProposedActions {
		if shipmentActionTypes[a.Type] {
			hasShipmentAction = true
			break
		}
	}

	hasBookingEvidence, err := hasBookingEvidence(ctx, rc)
	if err != nil {
		return AgentOutcome{}, fmt.Errorf("check booking evidence: %w", err)
	}

	in := policy.Input{
		RiskLevel:          rc.Belief.RiskLevel,
		RecommendedPosture: rc.Belief.CurrentPosture,
		ShipmentActions:    hasShipmentAction,
		HasBookingEvidence: hasBookingEvidence,
		ContradictionCount: len(rc.Belief.ContradictionRefs),
	}
	userContext := fmt.Sprintf("risk=%s posture=%s shipment_actions=%v",
		in.RiskLevel, in.RecommendedPosture, in.ShipmentActions)

	result, err := rc.Policies.Evaluate(ctx, in, policyJudgeSystemPrompt, userContext)
	if err != nil {
		return AgentOutcome{}, fmt.Errorf("evaluate policy: %w", err)
	}
	rc.PolicyResult = result

	return AgentOutcome{
		Note: fmt.Sprintf("verdict=%s", result.Verdict),
		Meta: map[string]any{
			"verdict":           result.Verdict,
			"violated_policies": result.ViolatedPolicies,
		},
	}, nil
}

// hasBookingEvidence reports whether any BOOKING-typed node is reachable
// from the case's airport subgraph, the evidence the shipment-action
// guardrail requires.
func hasBookingEvidence(ctx context.Context, rc *RunContext) (bool, error) {
	if rc.CascadeAirportID == uuid.Nil {
		return false, nil
	}
	sub, err := rc.Store.Traverse(ctx, graph.TraversalParams{
		StartNodeIDs: []uuid.UUID{rc.CascadeAirportID},
		EventTime:    now(),
		IngestTime:   now(),
		MaxHops:      graph.MaxHops,
	})
	if err != nil {
		return false, err
	}
	for _, n := range sub.Nodes {
		if n.Type == model.NodeTypeBooking {
			return true, nil
		}
	}
	return false, nil
}
