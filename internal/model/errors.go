package model

import "errors"

// Sentinel errors for the taxonomy in SPEC_FULL.md §7. Transient source and
// LLM failures never reach this layer as Go errors — they degrade to
// first-class MissingEvidenceRequest rows or fail-closed verdicts instead.
// These sentinels mark programmer-visible invariant violations.
var (
	ErrEvidenceWithoutBinding  = errors.New("edge or claim cannot be promoted to FACT without bound evidence")
	ErrInvalidTransition       = errors.New("disallowed state transition")
	ErrLLMUnavailable          = errors.New("narrative engine unavailable")
	ErrBudgetExceeded          = errors.New("orchestrator iteration or tool-call budget exceeded")
	ErrBlockingMissingEvidence = errors.New("unresolved blocking missing-evidence request")
	ErrPolicyBlock             = errors.New("policy judge vetoed the case")
	ErrNodeNotFound            = errors.New("node not found")
	ErrPacketNotFound          = errors.New("decision packet not found")
	ErrCaseNotFound            = errors.New("case not found")
)
