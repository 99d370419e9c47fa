/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package packet assembles the immutable DecisionPacket a completed case
// exposes through getPacket. PDL and the other timestamps are read back
// from persisted rows, never recomputed against wall-clock-at-read time.
package packet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/metrics"
	"github.com/marcus-qen/gatewayposture/internal/model"
)

// PostureDecision is the packet's headline verdict.
type PostureDecision struct {
	Posture     model.Posture `json:"posture"`
	Airport     string        `json:"airport"`
	EffectiveAt time.Time     `json:"effective_at"`
	Reason      string        `json:"reason"`
}

// Metrics carries the latency and count figures derived from persisted
// timestamps — never wall-clock at read time, so PDL is stable across reads.
type Metrics struct {
	FirstSignalAt    *time.Time `json:"first_signal_at,omitempty"`
	PostureEmittedAt *time.Time `json:"posture_emitted_at,omitempty"`
	PDLSeconds       *float64   `json:"pdl_seconds,omitempty"`
	EvidenceCount    int        `json:"evidence_count"`
	ContradictionCount int      `json:"contradiction_count"`
	ActionCount      int        `json:"action_count"`
}

// ConfidenceBreakdown mirrors RiskQuant's deterministic scoring so the
// packet reader can audit how the final confidence was reached.
type ConfidenceBreakdown struct {
	PerSourceCredit     float64 `json:"per_source_credit"`
	UncertaintyPenalty  float64 `json:"uncertainty_penalty"`
	ContradictionPenalty float64 `json:"contradiction_penalty"`
	FinalScore          float64 `json:"final_score"`
}

// BlockedSection is present only when the case ended BLOCKED.
type BlockedSection struct {
	Reason                   string                          `json:"reason"`
	UnresolvedMissingEvidence []model.MissingEvidenceRequest `json:"unresolved_missing_evidence"`
}

// CascadeImpact summarizes the operational subgraph reachable from the
// case's airport node at read time, using the canonical visibility
// predicate with eT = iT = now. Computation is best-effort: a traversal
// failure populates Error and leaves the counts zero rather than failing
// the whole packet.
type CascadeImpact struct {
	FlightCount   int    `json:"flight_count"`
	ShipmentCount int    `json:"shipment_count"`
	BookingCount  int    `json:"booking_count"`
	CarrierCount  int    `json:"carrier_count"`
	Error         string `json:"error,omitempty"`
}

// DecisionPacket is the immutable audit artifact produced after COMPLETE.
type DecisionPacket struct {
	CaseID             uuid.UUID              `json:"case_id"`
	Scope              map[string]string      `json:"scope"`
	CreatedAt          time.Time              `json:"created_at"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	PostureDecision    PostureDecision        `json:"posture_decision"`
	TopClaims          []model.Claim          `json:"top_claims"`
	EvidenceBySource   map[string][]model.Evidence `json:"evidence_list"`
	Contradictions     []model.Contradiction  `json:"contradictions"`
	PoliciesApplied    []string               `json:"policies_applied"`
	ActionsProposed    []model.Action         `json:"actions_proposed"`
	ActionsExecuted    []model.Action         `json:"actions_executed"`
	BlockedSection     *BlockedSection        `json:"blocked_section,omitempty"`
	Metrics            Metrics                `json:"metrics"`
	WorkflowTrace      []model.TraceEvent     `json:"workflow_trace"`
	ConfidenceBreakdown ConfidenceBreakdown   `json:"confidence_breakdown"`
	CascadeImpact      CascadeImpact          `json:"cascade_impact"`
}

// ErrCaseNotComplete is returned when a packet is requested for a case
// still in progress — getPacket's 404 at the control-surface layer.
var ErrCaseNotComplete = fmt.Errorf("case has not reached a terminal status")

// Builder assembles DecisionPackets from the persisted graph.
type Builder struct {
	store *graph.Store
}

// New builds a Builder over the graph store.
func New(store *graph.Store) *Builder {
	return &Builder{store: store}
}

// Build assembles the packet for a case that has reached RESOLVED or
// BLOCKED. It never re-derives timestamps from time.Now — every metric
// comes from a persisted row.
func (b *Builder) Build(ctx context.Context, caseID uuid.UUID) (DecisionPacket, error) {
	c, err := b.store.GetCase(ctx, caseID)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("load case: %w", err)
	}
	if c.Status == model.CaseStatusOpen {
		return DecisionPacket{}, fmt.Errorf("case %s: %w", caseID, ErrCaseNotComplete)
	}

	trace, err := b.store.ListTrace(ctx, caseID)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("load trace: %w", err)
	}

	actions, err := b.store.ListActionsByCase(ctx, caseID)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("load actions: %w", err)
	}

	airportNodeID, err := b.airportNodeID(ctx, c)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("resolve airport node: %w", err)
	}

	evidence, err := b.evidenceForNode(ctx, airportNodeID)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("load evidence: %w", err)
	}

	claims, err := b.claimsForNode(ctx, airportNodeID)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("load claims: %w", err)
	}

	contradictions, err := b.contradictionsForClaims(ctx, claims)
	if err != nil {
		return DecisionPacket{}, fmt.Errorf("load contradictions: %w", err)
	}

	pkt := DecisionPacket{
		CaseID:           c.ID,
		Scope:            c.Scope,
		CreatedAt:        c.CreatedAt,
		TopClaims:        claims,
		EvidenceBySource: groupBySource(evidence),
		Contradictions:   contradictions,
		ActionsProposed:  actions,
		ActionsExecuted:  terminalActions(actions),
	}

	pkt.PoliciesApplied = policiesFromTrace(trace)
	pkt.WorkflowTrace = trace
	pkt.PostureDecision = postureDecision(c, trace, actions)
	pkt.Metrics = computeMetrics(evidence, trace, contradictions, actions)
	pkt.ConfidenceBreakdown = confidenceBreakdown(trace)
	pkt.CompletedAt = completedAt(trace)

	if pkt.Metrics.PDLSeconds != nil {
		metrics.RecordPDL(*pkt.Metrics.PDLSeconds)
	}

	if c.Status == model.CaseStatusBlocked {
		unresolved, err := b.store.UnresolvedBlocking(ctx, caseID)
		if err != nil {
			return DecisionPacket{}, fmt.Errorf("load unresolved missing evidence: %w", err)
		}
		pkt.BlockedSection = &BlockedSection{
			Reason:                    "case ended BLOCKED before planning completed",
			UnresolvedMissingEvidence: unresolved,
		}
	}

	cascade, cascadeErr := b.cascadeImpact(ctx, airportNodeID)
	pkt.CascadeImpact = foldCascadeImpact(cascade, cascadeErr)

	return pkt, nil
}

// foldCascadeImpact applies the best-effort contract: a traversal failure
// degrades to a populated Error field on an otherwise-zero CascadeImpact
// rather than aborting the packet build.
func foldCascadeImpact(cascade CascadeImpact, err error) CascadeImpact {
	if err != nil {
		return CascadeImpact{Error: err.Error()}
	}
	return cascade
}

func (b *Builder) airportNodeID(ctx context.Context, c model.Case) (uuid.UUID, error) {
	row := b.store.Pool().QueryRow(ctx,
		`SELECT id FROM node WHERE type = $1 AND identifier = $2`, model.NodeTypeAirport, c.Airport())
	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, nil // case never reached investigation; no airport node yet
	}
	return id, nil
}

func (b *Builder) evidenceForNode(ctx context.Context, nodeID uuid.UUID) ([]model.Evidence, error) {
	if nodeID == uuid.Nil {
		return nil, nil
	}
	rows, err := b.store.Pool().Query(ctx, `
		SELECT DISTINCT ev.id, ev.source_system, ev.source_ref, ev.retrieved_at, ev.content_type,
			ev.payload_sha256, ev.raw_path, ev.excerpt, ev.status, ev.meta
		FROM evidence ev
		JOIN edge_evidence ee ON ee.evidence_id = ev.id
		JOIN edge e ON e.id = ee.edge_id
		WHERE e.src = $1 OR e.dst = $1
		ORDER BY ev.retrieved_at ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var out []model.Evidence
	for rows.Next() {
		var ev model.Evidence
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.SourceSystem, &ev.SourceRef, &ev.RetrievedAt, &ev.ContentType,
			&ev.PayloadSHA256, &ev.RawPath, &ev.Excerpt, &ev.Status, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal evidence meta: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (b *Builder) claimsForNode(ctx context.Context, nodeID uuid.UUID) ([]model.Claim, error) {
	if nodeID == uuid.Nil {
		return nil, nil
	}
	rows, err := b.store.Pool().Query(ctx, `
		SELECT id, text, subject_node_id, confidence, status, supersedes_claim_id,
			event_time_start, event_time_end, ingested_at
		FROM claim WHERE subject_node_id = $1 ORDER BY confidence DESC, ingested_at ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var out []model.Claim
	for rows.Next() {
		var cl model.Claim
		if err := rows.Scan(&cl.ID, &cl.Text, &cl.SubjectNodeID, &cl.Confidence, &cl.Status,
			&cl.SupersedesClaimID, &cl.EventTimeStart, &cl.EventTimeEnd, &cl.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

func (b *Builder) contradictionsForClaims(ctx context.Context, claims []model.Claim) ([]model.Contradiction, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(claims))
	for i, cl := range claims {
		ids[i] = cl.ID
	}
	return b.store.OpenContradictions(ctx, ids)
}

func (b *Builder) cascadeImpact(ctx context.Context, airportNodeID uuid.UUID) (CascadeImpact, error) {
	if airportNodeID == uuid.Nil {
		return CascadeImpact{}, nil
	}
	now := time.Now().UTC()
	sub, err := b.store.Traverse(ctx, graph.TraversalParams{
		StartNodeIDs: []uuid.UUID{airportNodeID},
		AllowedTypes: []model.EdgeType{
			model.EdgeTypeFlightDepartsFrom, model.EdgeTypeShipmentOnFlight,
			model.EdgeTypeBookingForShipment, model.EdgeTypeBookingWithCarrier,
		},
		EventTime:  now,
		IngestTime: now,
		MaxHops:    graph.MaxHops,
	})
	if err != nil {
		return CascadeImpact{}, err
	}
	impact := CascadeImpact{}
	for _, n := range sub.Nodes {
		switch n.Type {
		case model.NodeTypeFlight:
			impact.FlightCount++
		case model.NodeTypeShipment:
			impact.ShipmentCount++
		case model.NodeTypeBooking:
			impact.BookingCount++
		case model.NodeTypeCarrier:
			impact.CarrierCount++
		}
	}
	return impact, nil
}

func groupBySource(evidence []model.Evidence) map[string][]model.Evidence {
	out := map[string][]model.Evidence{}
	for _, ev := range evidence {
		out[ev.SourceSystem] = append(out[ev.SourceSystem], ev)
	}
	return out
}

func terminalActions(actions []model.Action) []model.Action {
	var out []model.Action
	for _, a := range actions {
		switch a.State {
		case model.ActionCompleted, model.ActionFailed, model.ActionRolledBack:
			out = append(out, a)
		}
	}
	return out
}

func policiesFromTrace(trace []model.TraceEvent) []string {
	var out []string
	for _, ev := range trace {
		if ev.RefID != string(orchestratorStateEvaluatePolicy) {
			continue
		}
		if violated, ok := ev.Meta["violated_policies"].([]any); ok {
			for _, v := range violated {
				if s, ok := v.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// orchestratorStateEvaluatePolicy mirrors orchestrator.StateEvaluatePolicy's
// string value. Duplicated here rather than imported to avoid a cyclic
// dependency between orchestrator and packet.
const orchestratorStateEvaluatePolicy = "EVALUATE_POLICY"

func postureDecision(c model.Case, trace []model.TraceEvent, actions []model.Action) PostureDecision {
	pd := PostureDecision{Airport: c.Airport()}
	for i := len(trace) - 1; i >= 0; i-- {
		ev := trace[i]
		if ev.EventType != model.TraceStateExit || ev.RefID != string(orchestratorStateQuantifyRisk) {
			continue
		}
		if p, ok := ev.Meta["recommended_posture"]; ok {
			if s, ok := p.(string); ok {
				pd.Posture = model.Posture(s)
			}
		}
		if r, ok := ev.Meta["rationale"]; ok {
			if s, ok := r.(string); ok {
				pd.Reason = s
			}
		}
		break
	}
	for _, a := range actions {
		if a.Type == model.ActionSetPosture {
			pd.EffectiveAt = a.CreatedAt
		}
	}
	return pd
}

const orchestratorStateQuantifyRisk = "QUANTIFY_RISK"

func computeMetrics(evidence []model.Evidence, trace []model.TraceEvent, contradictions []model.Contradiction, actions []model.Action) Metrics {
	m := Metrics{
		EvidenceCount:      len(evidence),
		ContradictionCount: len(contradictions),
		ActionCount:        len(actions),
	}

	for _, ev := range evidence {
		if m.FirstSignalAt == nil || ev.RetrievedAt.Before(*m.FirstSignalAt) {
			t := ev.RetrievedAt
			m.FirstSignalAt = &t
		}
	}

	for _, ev := range trace {
		if ev.EventType != model.TraceStateExit || ev.RefID != "PLAN_ACTIONS" {
			continue
		}
		if nanos, ok := ev.Meta["posture_emitted_at"]; ok {
			if f, ok := nanos.(float64); ok {
				t := time.Unix(0, int64(f)).UTC()
				m.PostureEmittedAt = &t
			}
		}
	}

	if m.FirstSignalAt != nil && m.PostureEmittedAt != nil {
		pdl := m.PostureEmittedAt.Sub(*m.FirstSignalAt).Seconds()
		m.PDLSeconds = &pdl
	}

	return m
}

func confidenceBreakdown(trace []model.TraceEvent) ConfidenceBreakdown {
	var cb ConfidenceBreakdown
	for i := len(trace) - 1; i >= 0; i-- {
		ev := trace[i]
		if ev.EventType != model.TraceStateExit || ev.RefID != "QUANTIFY_RISK" {
			continue
		}
		if v, ok := ev.Meta["confidence"].(float64); ok {
			cb.FinalScore = v
		}
		if v, ok := ev.Meta["per_source_credit"].(float64); ok {
			cb.PerSourceCredit = v
		}
		if v, ok := ev.Meta["uncertainty_penalty"].(float64); ok {
			cb.UncertaintyPenalty = v
		}
		if v, ok := ev.Meta["contradiction_penalty"].(float64); ok {
			cb.ContradictionPenalty = v
		}
		break
	}
	return cb
}

func completedAt(trace []model.TraceEvent) *time.Time {
	for i := len(trace) - 1; i >= 0; i-- {
		ev := trace[i]
		if ev.EventType == model.TraceStateExit && ev.RefID == "EXECUTE" {
			t := ev.CreatedAt
			return &t
		}
	}
	return nil
}
