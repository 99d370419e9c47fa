package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/planner"
)

// actionLibrary is the fixed set of candidates the beam search chooses from.
// Every entry is an intervention scored by posture/risk; the library holds
// no investigation candidates (IsInvestigation is false throughout).
var actionLibrary = []planner.Candidate{
	{Type: model.ActionSetPosture, Cost: 1},
	{Type: model.ActionPublishGatewayAdvisory, Cost: 2, RequiresApproval: false},
	{Type: model.ActionEscalateOps, Cost: 2, RequiresApproval: true},
	{Type: model.ActionHoldCargo, Cost: 3, RequiresApproval: true},
	{Type: model.ActionRebookFlight, Cost: 3, RequiresApproval: true},
	{Type: model.ActionNotifyCustomer, Cost: 1, RequiresApproval: false},
}

// Planner runs the deterministic beam search over the action library,
// merges in the matched playbook's template when present, and proposes the
// resulting actions through the governance manager.
type Planner struct{}

func (Planner) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	library := actionLibrary
	guided := map[model.ActionType]bool{}
	if rc.MatchedPlaybook != nil {
		library, guided = planner.MergeWithPlaybook(library, rc.MatchedPlaybook.ActionTemplate)
	}

	chosen := planner.Plan(library, *rc.Belief, rc.Belief.CurrentPosture, rc.Belief.RiskLevel)

	for _, c := range chosen {
		if c.IsInvestigation {
			continue
		}
		action, err := rc.Governance.Propose(ctx, model.Action{
			CaseID:           rc.Case.ID,
			Type:             c.Type,
			Args:             c.DefaultArgs,
			RiskLevel:        rc.Belief.RiskLevel,
			RequiresApproval: c.RequiresApproval,
			PlaybookGuided:   guided[c.Type],
		})
		if err != nil {
			return AgentOutcome{}, fmt.Errorf("propose action %s: %w", c.Type, err)
		}
		rc.ProposedActions = append(rc.ProposedActions, action)
	}

	if rc.MatchedPlaybook != nil {
		rc.Belief.MatchedPlaybookID = &rc.MatchedPlaybook.ID
	}

	// Stamped unconditionally, even when the chosen plan contains no
	// SET_POSTURE action (the posture was already correct) — PDL must not
	// keep growing while an unread packet sits waiting.
	nanos := time.Now().UTC().UnixNano()
	rc.Belief.PostureEmittedAt = &nanos

	return AgentOutcome{
		Note: fmt.Sprintf("proposed %d action(s)", len(rc.ProposedActions)),
		Meta: map[string]any{
			"proposed_count": len(rc.ProposedActions),
			"playbook_guided": rc.MatchedPlaybook != nil,
		},
	}, nil
}
