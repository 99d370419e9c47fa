package agents

import (
	"context"
	"fmt"
)

const (
	// maxPriorRejections is the hard guardrail's cap on repeated critic
	// rejections; once the prior-rejection count reaches it, the critic
	// accepts (ACCEPTABLE) instead of rejecting again, ending the loop.
	maxPriorRejections = 2
	minValidEvidence    = 2
)

const criticSystemPrompt = `You are reviewing a risk assessment for sufficiency before it reaches ` +
	`policy evaluation. Respond with strict JSON: {"verdict":"ACCEPTABLE|INSUFFICIENT_EVIDENCE",` +
	`"verdict_rationale":"...","critical_gaps":["..."]}`

// Critic applies two hard guardrails before ever consulting the narrative
// engine: a minimum valid-evidence count and a cap on prior rejections.
// Marginal evidence (exactly 2 valid sources) is accepted to unblock
// progress rather than looping indefinitely.
type Critic struct{}

func (Critic) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	validCount := len(rc.Belief.ValidEvidenceIDs)

	if validCount < minValidEvidence {
		rc.Belief.CriticRejections++
		rc.CriticVerdict.Verdict = "INSUFFICIENT_EVIDENCE"
		rc.CriticVerdict.VerdictRationale = fmt.Sprintf("only %d valid evidence sources, need %d", validCount, minValidEvidence)
		return AgentOutcome{Note: rc.CriticVerdict.VerdictRationale, Meta: map[string]any{"verdict": rc.CriticVerdict.Verdict, "guardrail": "min_valid_evidence"}}, nil
	}

	if validCount == minValidEvidence {
		rc.CriticVerdict.Verdict = "ACCEPTABLE"
		rc.CriticVerdict.VerdictRationale = "marginal evidence (2 valid sources) accepted to unblock progress"
		return AgentOutcome{Note: rc.CriticVerdict.VerdictRationale, Meta: map[string]any{"verdict": rc.CriticVerdict.Verdict, "guardrail": "marginal_evidence_accept"}}, nil
	}

	if rc.Belief.CriticRejections >= maxPriorRejections {
		rc.CriticVerdict.Verdict = "ACCEPTABLE"
		rc.CriticVerdict.VerdictRationale = "prior rejection cap reached; force-accepted to prevent oscillation"
		return AgentOutcome{Note: rc.CriticVerdict.VerdictRationale, Meta: map[string]any{"verdict": rc.CriticVerdict.Verdict, "guardrail": "max_prior_rejections"}}, nil
	}

	userContext := fmt.Sprintf("valid_evidence=%d risk_level=%s contradictions_open=%d",
		validCount, rc.Belief.RiskLevel, len(rc.Belief.ContradictionRefs))

	verdict, err := rc.Narrative.Critique(ctx, criticSystemPrompt, userContext)
	rc.CriticVerdict = verdict
	if verdict.Verdict == "INSUFFICIENT_EVIDENCE" {
		rc.Belief.CriticRejections++
	}

	return AgentOutcome{
		Note: fmt.Sprintf("verdict=%s", verdict.Verdict),
		Meta: map[string]any{
			"verdict":       verdict.Verdict,
			"critical_gaps": verdict.CriticalGaps,
			"engine_error":  errString(err),
		},
	}, nil
}
