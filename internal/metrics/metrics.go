/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics defines the Prometheus instrumentation for the posture
// decision engine.
//
// Metric naming follows Prometheus conventions:
//   - gpde_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration/latency histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CasesTotal counts orchestrator runs by case type and terminal status.
	CasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_cases_total",
			Help: "Total number of cases run to completion, by case type and terminal status.",
		},
		[]string{"case_type", "status"},
	)

	// PDLSeconds is a histogram of posture decision latency: seconds between
	// first_signal_at and posture_emitted_at for a resolved case.
	PDLSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpde_pdl_seconds",
			Help:    "Posture decision latency in seconds (first signal to posture emitted).",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)

	// InvestigationRoundsTotal counts CRITIQUE/EVALUATE_POLICY -> INVESTIGATE
	// loop re-entries, by case type.
	InvestigationRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_investigation_rounds_total",
			Help: "Total re-investigation rounds triggered by critic or policy verdicts.",
		},
		[]string{"case_type"},
	)

	// ContradictionsTotal counts detected contradictions by type.
	ContradictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_contradictions_total",
			Help: "Total contradictions detected by signal derivation, by contradiction type.",
		},
		[]string{"contradiction_type"},
	)

	// BudgetExceededTotal counts cases forced to COMPLETE by iteration or
	// tool-call budget exhaustion.
	BudgetExceededTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_budget_exceeded_total",
			Help: "Total cases that hit BUDGET_EXCEEDED, by case type.",
		},
		[]string{"case_type"},
	)

	// IngestionFetchTotal counts source fetch attempts by source and outcome.
	IngestionFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_ingestion_fetch_total",
			Help: "Total ingestion fetches, by source and evidence status.",
		},
		[]string{"source", "status"},
	)

	// IngestionFetchDurationSeconds is a histogram of per-source fetch
	// latency, including retries.
	IngestionFetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpde_ingestion_fetch_duration_seconds",
			Help:    "Duration of a single source fetch (including retries) in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"source"},
	)

	// MissingEvidenceTotal counts MissingEvidenceRequest rows created, by
	// source and criticality.
	MissingEvidenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_missing_evidence_total",
			Help: "Total missing-evidence requests created, by source and criticality.",
		},
		[]string{"source", "criticality"},
	)

	// NarrativeCallTotal counts narrative-engine calls by role agent and
	// outcome (ok | fail_closed).
	NarrativeCallTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_narrative_call_total",
			Help: "Total narrative-engine calls, by role agent and outcome.",
		},
		[]string{"agent", "outcome"},
	)

	// NarrativeCallDurationSeconds is a histogram of narrative-engine call
	// latency by role agent.
	NarrativeCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpde_narrative_call_duration_seconds",
			Help:    "Duration of narrative-engine calls in seconds, by role agent.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"agent"},
	)

	// ActionsTotal counts actions reaching a terminal state, by type and
	// final state.
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpde_actions_total",
			Help: "Total actions reaching a terminal state, by action type and final state.",
		},
		[]string{"action_type", "final_state"},
	)

	// ActiveCases is the number of cases currently being advanced by an
	// orchestrator Run invocation.
	ActiveCases = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpde_active_cases",
			Help: "Number of cases currently executing an orchestrator run.",
		},
	)
)

// Registry is the metrics registry the engine registers against. Callers
// that expose a /metrics endpoint serve this registry rather than reaching
// for the global default, matching the capability-injection style the rest
// of the core uses for the graph store and narrative-engine handles.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		CasesTotal,
		PDLSeconds,
		InvestigationRoundsTotal,
		ContradictionsTotal,
		BudgetExceededTotal,
		IngestionFetchTotal,
		IngestionFetchDurationSeconds,
		MissingEvidenceTotal,
		NarrativeCallTotal,
		NarrativeCallDurationSeconds,
		ActionsTotal,
		ActiveCases,
	)
}

// RecordCaseComplete records the terminal status of one case run.
func RecordCaseComplete(caseType, status string) {
	CasesTotal.WithLabelValues(caseType, status).Inc()
}

// RecordPDL observes one posture-decision-latency reading. Callers pass this
// only when both first_signal_at and posture_emitted_at were available
// (packet.Build computes pdl_seconds; cases that never reached PLAN_ACTIONS
// have nothing to observe).
func RecordPDL(pdlSeconds float64) {
	PDLSeconds.Observe(pdlSeconds)
}

// RecordInvestigationRound records one CRITIQUE/EVALUATE_POLICY re-entry
// into INVESTIGATE.
func RecordInvestigationRound(caseType string) {
	InvestigationRoundsTotal.WithLabelValues(caseType).Inc()
}

// RecordContradiction records one detected contradiction.
func RecordContradiction(contradictionType string) {
	ContradictionsTotal.WithLabelValues(contradictionType).Inc()
}

// RecordBudgetExceeded records a case forced to COMPLETE on budget exhaustion.
func RecordBudgetExceeded(caseType string) {
	BudgetExceededTotal.WithLabelValues(caseType).Inc()
}

// RecordIngestionFetch records one source fetch attempt's terminal status
// and wall-clock duration (including retries).
func RecordIngestionFetch(source, status string, duration time.Duration) {
	IngestionFetchTotal.WithLabelValues(source, status).Inc()
	IngestionFetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordMissingEvidence records one MissingEvidenceRequest creation.
func RecordMissingEvidence(source, criticality string) {
	MissingEvidenceTotal.WithLabelValues(source, criticality).Inc()
}

// RecordNarrativeCall records one narrative-engine call's outcome and
// duration for a role agent.
func RecordNarrativeCall(agent, outcome string, duration time.Duration) {
	NarrativeCallTotal.WithLabelValues(agent, outcome).Inc()
	NarrativeCallDurationSeconds.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordAction records one action reaching a terminal state.
func RecordAction(actionType, finalState string) {
	ActionsTotal.WithLabelValues(actionType, finalState).Inc()
}
