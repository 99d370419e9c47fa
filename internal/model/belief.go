package model

import "github.com/google/uuid"

// Uncertainty is an open question the investigator has not yet resolved.
type Uncertainty struct {
	ID          string
	Description string
	Source      Source
	Resolved    bool
}

// StopCondition records why the orchestrator stopped advancing a case.
type StopCondition string

const (
	StopNone          StopCondition = ""
	StopMet           StopCondition = "MET"
	StopBudgetExceeded StopCondition = "BUDGET_EXCEEDED"
	StopBlocked        StopCondition = "BLOCKED"
)

// BeliefState is the in-memory per-case scratchpad. It is never persisted
// whole; a summary is emitted to the trace on every state transition.
type BeliefState struct {
	CaseID              uuid.UUID
	Hypotheses          []string
	Uncertainties       []Uncertainty
	ContradictionRefs   []uuid.UUID
	ValidEvidenceIDs    []uuid.UUID
	ErrorEvidenceIDs    []uuid.UUID
	CurrentPosture      Posture
	InvestigationRounds int
	IterationsUsed      int
	ToolCallsUsed       int
	IterationBudget     int
	ToolCallBudget      int
	StopCondition       StopCondition
	MatchedPlaybookID   *uuid.UUID
	RiskLevel           RiskLevel
	RiskConfidence      float64
	CriticRejections    int
	PostureEmittedAt    *int64 // unix nanos, stamped at PLAN_ACTIONS exit
}

// OpenUncertainties returns the count of unresolved uncertainties.
func (b *BeliefState) OpenUncertainties() int {
	n := 0
	for _, u := range b.Uncertainties {
		if !u.Resolved {
			n++
		}
	}
	return n
}

// BudgetRemaining reports whether either budget still has headroom.
func (b *BeliefState) BudgetRemaining() bool {
	return b.IterationsUsed < b.IterationBudget && b.ToolCallsUsed < b.ToolCallBudget
}

// Summary produces a compact map suitable for trace-event meta payloads.
func (b *BeliefState) Summary() map[string]any {
	m := map[string]any{
		"hypotheses_count":    len(b.Hypotheses),
		"open_uncertainties":  b.OpenUncertainties(),
		"contradictions":      len(b.ContradictionRefs),
		"valid_evidence":      len(b.ValidEvidenceIDs),
		"error_evidence":      len(b.ErrorEvidenceIDs),
		"posture":             b.CurrentPosture,
		"investigation_round": b.InvestigationRounds,
		"stop_condition":      b.StopCondition,
	}
	if b.PostureEmittedAt != nil {
		m["posture_emitted_at"] = *b.PostureEmittedAt
	}
	return m
}
