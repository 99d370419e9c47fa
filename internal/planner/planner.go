/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package planner runs a deterministic beam search over an action library
// per §4.6: beam width 4, max depth 4, pure value-cost-risk scoring with no
// narrative-engine call. Given the same BeliefState, scores are bit-identical
// across runs.
package planner

import (
	"github.com/google/btree"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

const (
	beamWidth = 4
	maxDepth  = 4
)

// Candidate is one action the library offers the planner, with its
// deterministic cost and the uncertainty types it resolves (for investigations)
// or nil (for interventions, whose value comes from posture/risk directly).
type Candidate struct {
	Type                model.ActionType
	Cost                float64
	IsInvestigation     bool
	ResolvesUncertainty []model.Source
	DefaultArgs         map[string]any
	RequiresApproval    bool
}

// uncertaintyValue is the fixed value an investigation candidate earns for
// resolving one open uncertainty tied to its source.
const uncertaintyValue = 5.0

// interventionValue gives the fixed value of proposing an intervention
// given the current posture and risk level — higher when the intervention
// matches the risk severity, so the beam search doesn't propose HOLD_CARGO
// for a LOW-risk ACCEPT case.
func interventionValue(actionType model.ActionType, posture model.Posture, risk model.RiskLevel) float64 {
	base := map[model.ActionType]float64{
		model.ActionSetPosture:             10,
		model.ActionPublishGatewayAdvisory: 6,
		model.ActionEscalateOps:            5,
		model.ActionHoldCargo:              7,
		model.ActionRebookFlight:           4,
		model.ActionNotifyCustomer:         3,
	}[actionType]

	switch risk {
	case model.RiskHigh, model.RiskCritical:
		if actionType == model.ActionHoldCargo || actionType == model.ActionPublishGatewayAdvisory || actionType == model.ActionEscalateOps {
			base += 3
		}
	case model.RiskLow:
		if actionType == model.ActionSetPosture && posture == model.PostureAccept {
			base += 2
		}
	}
	return base
}

// riskPenalty discourages proposing an action whose own risk exceeds the
// case's assessed risk level — e.g. REBOOK_FLIGHT during a LOW-risk case.
func riskPenalty(actionType model.ActionType, risk model.RiskLevel) float64 {
	highRiskActions := map[model.ActionType]bool{
		model.ActionHoldCargo:     true,
		model.ActionRebookFlight:  true,
		model.ActionEscalateOps:   true,
	}
	if highRiskActions[actionType] && (risk == model.RiskLow || risk == model.RiskMedium) {
		return 2
	}
	return 0
}

// sequence is one partial beam-search path: the actions chosen so far and
// the cumulative score. ord breaks ties between equal-score sequences so the
// frontier btree never silently collapses two distinct candidates that
// happen to score the same.
type sequence struct {
	actions []Candidate
	score   float64
	ord     int
}

// sequenceLess orders the beam frontier ascending by score (ties broken by
// insertion order), so DeleteMin always evicts the worst candidate once the
// frontier exceeds beamWidth.
func sequenceLess(a, b sequence) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.ord < b.ord
}

// Plan runs beam search over the library for one belief state and returns
// the highest-scoring sequence of the deepest layer reached (at most maxDepth
// actions). Entries carry no playbook_guided mark; MergeWithPlaybook's guided
// set records which types came from the playbook template.
func Plan(library []Candidate, belief model.BeliefState, posture model.Posture, risk model.RiskLevel) []Candidate {
	if len(library) == 0 {
		return nil
	}

	open := openUncertainties(belief)
	beam := []sequence{{actions: nil, score: 0}}
	ord := 0

	for depth := 0; depth < maxDepth; depth++ {
		frontier := btree.NewG(8, sequenceLess)
		for _, seq := range beam {
			used := usedTypes(seq.actions)
			for _, c := range library {
				if used[c.Type] {
					continue
				}
				value := candidateValue(c, open, posture, risk)
				delta := value - c.Cost - riskPenalty(c.Type, risk)
				cand := sequence{
					actions: append(append([]Candidate{}, seq.actions...), c),
					score:   seq.score + delta,
					ord:     ord,
				}
				ord++
				frontier.ReplaceOrInsert(cand)
				if frontier.Len() > beamWidth {
					frontier.DeleteMin()
				}
			}
		}
		if frontier.Len() == 0 {
			break
		}
		next := make([]sequence, 0, frontier.Len())
		frontier.Descend(func(s sequence) bool {
			next = append(next, s)
			return true
		})
		beam = next
	}

	if len(beam) == 0 {
		return nil
	}
	return beam[0].actions
}

func openUncertainties(b model.BeliefState) []model.Uncertainty {
	var out []model.Uncertainty
	for _, u := range b.Uncertainties {
		if !u.Resolved {
			out = append(out, u)
		}
	}
	return out
}

func candidateValue(c Candidate, open []model.Uncertainty, posture model.Posture, risk model.RiskLevel) float64 {
	if c.IsInvestigation {
		var total float64
		for _, src := range c.ResolvesUncertainty {
			for _, u := range open {
				if u.Source == src {
					total += uncertaintyValue
				}
			}
		}
		return total
	}
	return interventionValue(c.Type, posture, risk)
}

func usedTypes(actions []Candidate) map[model.ActionType]bool {
	out := make(map[model.ActionType]bool, len(actions))
	for _, a := range actions {
		out[a.Type] = true
	}
	return out
}

// MergeWithPlaybook overlays a playbook's action template onto the base
// library: base candidates win on type conflict, the playbook's defaults are
// used only for types the base library didn't already propose. Returns the
// merged library plus a set marking which types came from the playbook.
func MergeWithPlaybook(base []Candidate, template []model.PlaybookActionTemplate) ([]Candidate, map[model.ActionType]bool) {
	present := make(map[model.ActionType]bool, len(base))
	for _, c := range base {
		present[c.Type] = true
	}
	guided := make(map[model.ActionType]bool)
	merged := append([]Candidate{}, base...)
	for _, t := range template {
		if present[t.Type] {
			continue
		}
		merged = append(merged, Candidate{
			Type:             t.Type,
			Cost:             1,
			DefaultArgs:      t.DefaultArgs,
			RequiresApproval: t.RequiresApproval,
		})
		guided[t.Type] = true
	}
	return merged, guided
}
