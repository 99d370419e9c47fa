package agents

import (
	"context"
	"fmt"
)

// RiskQuant calls the narrative engine for a risk verdict, then overwrites
// its confidence with a deterministic per-source breakdown computed from
// evidence counts and penalties for uncertainties/contradictions.
type RiskQuant struct{}

const riskQuantSystemPrompt = `You are a gateway operations risk assessor. Given a compact evidence ` +
	`summary, contradictions, cascade impact, and open uncertainties, respond with strict JSON: ` +
	`{"risk_level":"LOW|MEDIUM|HIGH|CRITICAL","recommended_posture":"ACCEPT|RESTRICT|HOLD|ESCALATE",` +
	`"confidence":0.0,"rationale":"...","risk_factors":["..."]}`

func (RiskQuant) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	userContext := fmt.Sprintf(
		"valid_evidence=%d error_evidence=%d contradictions=%d open_uncertainties=%d",
		len(rc.Belief.ValidEvidenceIDs), len(rc.Belief.ErrorEvidenceIDs),
		len(rc.Belief.ContradictionRefs), rc.Belief.OpenUncertainties())

	verdict, err := rc.Narrative.AssessRisk(ctx, riskQuantSystemPrompt, userContext)
	rc.RiskVerdict = verdict

	breakdown := confidenceBreakdown(rc)
	if err == nil {
		// Fail-closed verdicts keep their fixed 0.25 confidence; only a real
		// engine response has its confidence overwritten by the breakdown.
		rc.RiskVerdict.Confidence = breakdown.finalScore
	}
	rc.Belief.RiskLevel = rc.RiskVerdict.RiskLevel
	rc.Belief.RiskConfidence = rc.RiskVerdict.Confidence
	rc.Belief.CurrentPosture = rc.RiskVerdict.RecommendedPosture

	return AgentOutcome{
		Note: fmt.Sprintf("risk=%s posture=%s confidence=%.2f", rc.RiskVerdict.RiskLevel, rc.RiskVerdict.RecommendedPosture, rc.RiskVerdict.Confidence),
		Meta: map[string]any{
			"risk_level":           rc.RiskVerdict.RiskLevel,
			"recommended_posture":  rc.RiskVerdict.RecommendedPosture,
			"confidence":           rc.RiskVerdict.Confidence,
			"rationale":            rc.RiskVerdict.Rationale,
			"engine_error":         errString(err),
			"per_source_credit":    breakdown.perSourceCredit,
			"uncertainty_penalty":  breakdown.uncertaintyPenalty,
			"contradiction_penalty": breakdown.contradictionPenalty,
		},
	}, nil
}

type riskConfidenceBreakdown struct {
	perSourceCredit      float64
	uncertaintyPenalty   float64
	contradictionPenalty float64
	finalScore           float64
}

// confidenceBreakdown computes credit per valid source minus penalties for
// uncertainties and contradictions, clamped to [0,1].
func confidenceBreakdown(rc *RunContext) riskConfidenceBreakdown {
	const perSourceCredit = 0.2
	const uncertaintyPenalty = 0.05
	const contradictionPenalty = 0.1

	b := riskConfidenceBreakdown{
		perSourceCredit:      float64(len(rc.Belief.ValidEvidenceIDs)) * perSourceCredit,
		uncertaintyPenalty:   float64(rc.Belief.OpenUncertainties()) * uncertaintyPenalty,
		contradictionPenalty: float64(len(rc.Belief.ContradictionRefs)) * contradictionPenalty,
	}
	score := b.perSourceCredit - b.uncertaintyPenalty - b.contradictionPenalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	b.finalScore = score
	return b
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
