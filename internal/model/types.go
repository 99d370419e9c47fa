/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package model holds the core domain types shared across the graph store,
// ingestion, signal derivation, orchestrator, governance, and packet layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// CaseType distinguishes the two shapes of work unit the engine handles.
type CaseType string

const (
	CaseTypeAirportDisruption CaseType = "AIRPORT_DISRUPTION"
	CaseTypeLaneDisruption    CaseType = "LANE_DISRUPTION"
)

// CaseStatus is the case's terminal/non-terminal lifecycle marker.
type CaseStatus string

const (
	CaseStatusOpen     CaseStatus = "OPEN"
	CaseStatusResolved CaseStatus = "RESOLVED"
	CaseStatusBlocked  CaseStatus = "BLOCKED"
)

// Case is the unit of work advanced by exactly one orchestrator run.
type Case struct {
	ID        uuid.UUID
	CaseType  CaseType
	Scope     map[string]string
	Status    CaseStatus
	CreatedAt time.Time
}

// Airport returns the scope's airport key, or "" if unset.
func (c Case) Airport() string {
	return c.Scope["airport"]
}

// NodeType enumerates the graph vertex kinds in play.
type NodeType string

const (
	NodeTypeAirport  NodeType = "AIRPORT"
	NodeTypeFlight   NodeType = "FLIGHT"
	NodeTypeShipment NodeType = "SHIPMENT"
	NodeTypeBooking  NodeType = "BOOKING"
	NodeTypeCarrier  NodeType = "CARRIER"
	NodeTypeDocument NodeType = "DOCUMENT"
	NodeTypeEvidence NodeType = "EVIDENCE"
)

// Node is an immutable graph vertex. (type, identifier) is globally unique.
type Node struct {
	ID         uuid.UUID
	Type       NodeType
	Identifier string
	CreatedAt  time.Time
}

// NodeVersion is the mutable attribute layer for a Node.
type NodeVersion struct {
	ID           uuid.UUID
	NodeID       uuid.UUID
	Attrs        map[string]any
	ValidFrom    time.Time
	ValidTo      *time.Time
	SupersedesID *uuid.UUID
}

// EdgeStatus is the evidence-binding lifecycle of an Edge or Claim.
type EdgeStatus string

const (
	EdgeStatusDraft     EdgeStatus = "DRAFT"
	EdgeStatusFact      EdgeStatus = "FACT"
	EdgeStatusRetracted EdgeStatus = "RETRACTED"
)

// EdgeType enumerates the derived and structural edge kinds.
type EdgeType string

const (
	EdgeTypeAirportHasFAADisruption EdgeType = "AIRPORT_HAS_FAA_DISRUPTION"
	EdgeTypeAirportWeatherRisk      EdgeType = "AIRPORT_WEATHER_RISK"
	EdgeTypeAirportHasNWSAlert      EdgeType = "AIRPORT_HAS_NWS_ALERT"
	EdgeTypeAirportMovementCollapse EdgeType = "AIRPORT_MOVEMENT_COLLAPSE"
	EdgeTypeFlightDepartsFrom       EdgeType = "FLIGHT_DEPARTS_FROM"
	EdgeTypeBookingForShipment      EdgeType = "BOOKING_FOR_SHIPMENT"
	EdgeTypeShipmentOnFlight        EdgeType = "SHIPMENT_ON_FLIGHT"
	EdgeTypeBookingWithCarrier      EdgeType = "BOOKING_WITH_CARRIER"
)

// Edge is a bi-temporal, evidence-bound graph edge.
type Edge struct {
	ID               uuid.UUID
	Src              uuid.UUID
	Dst              uuid.UUID
	Type             EdgeType
	Attrs            map[string]any
	Status           EdgeStatus
	SupersedesEdgeID *uuid.UUID
	EventTimeStart   *time.Time
	EventTimeEnd     *time.Time
	IngestedAt       time.Time
	ValidFrom        *time.Time
	ValidTo          *time.Time
	SourceSystem     string
	Confidence       float64
}

// Source identifies one of the five external disruption-signal feeds.
type Source string

const (
	SourceFAA   Source = "FAA"
	SourceMETAR Source = "METAR"
	SourceTAF   Source = "TAF"
	SourceNWS   Source = "NWS"
	SourceADSB  Source = "ADSB"
)

// AllSources lists the five sources fanned out to per case, in a fixed order.
var AllSources = []Source{SourceFAA, SourceMETAR, SourceTAF, SourceNWS, SourceADSB}

// EvidenceStatus discriminates what an ingestion attempt actually observed.
type EvidenceStatus string

const (
	EvidenceStatusHasData          EvidenceStatus = "has_data"
	EvidenceStatusNormalOperations EvidenceStatus = "normal_operations"
	EvidenceStatusNoData           EvidenceStatus = "no_data"
	EvidenceStatusAPIError         EvidenceStatus = "api_error"
	EvidenceStatusNotFetched       EvidenceStatus = "not_fetched"
)

// Evidence is a content-addressed byte record from a single ingestion attempt.
type Evidence struct {
	ID            uuid.UUID
	SourceSystem  string
	SourceRef     string
	RetrievedAt   time.Time
	ContentType   string
	PayloadSHA256 string
	RawPath       string
	Excerpt       string
	Status        EvidenceStatus
	Meta          map[string]any
}

// ClaimStatus mirrors EdgeStatus for propositions rather than edges.
type ClaimStatus string

const (
	ClaimStatusDraft      ClaimStatus = "DRAFT"
	ClaimStatusHypothesis ClaimStatus = "HYPOTHESIS"
	ClaimStatusFact       ClaimStatus = "FACT"
	ClaimStatusRetracted  ClaimStatus = "RETRACTED"
)

// Claim is a proposition subject to evidence binding.
type Claim struct {
	ID                uuid.UUID
	Text              string
	SubjectNodeID     uuid.UUID
	Confidence        float64
	Status            ClaimStatus
	SupersedesClaimID *uuid.UUID
	EventTimeStart    *time.Time
	EventTimeEnd      *time.Time
	IngestedAt        time.Time
}

// ContradictionType enumerates the four pairwise checks §4.3 runs.
type ContradictionType string

const (
	ContradictionFAAWeatherMismatch     ContradictionType = "FAA_WEATHER_MISMATCH"
	ContradictionFAAMovementMismatch    ContradictionType = "FAA_MOVEMENT_MISMATCH"
	ContradictionWeatherMovementMismatch ContradictionType = "WEATHER_MOVEMENT_MISMATCH"
	ContradictionNWSFAAMismatch         ContradictionType = "NWS_FAA_MISMATCH"
)

// ResolutionStatus tracks whether a Contradiction has been addressed.
type ResolutionStatus string

const (
	ResolutionOpen     ResolutionStatus = "OPEN"
	ResolutionResolved ResolutionStatus = "RESOLVED"
)

// Contradiction records a detected conflict between two claims.
type Contradiction struct {
	ID               uuid.UUID
	ClaimA           uuid.UUID
	ClaimB           uuid.UUID
	DetectedAt       time.Time
	ResolutionStatus ResolutionStatus
	Type             ContradictionType
	Narrative        string
}

// Criticality controls whether missing evidence blocks case progress.
type Criticality string

const (
	CriticalityBlocking      Criticality = "BLOCKING"
	CriticalityDegraded      Criticality = "DEGRADED"
	CriticalityInformational Criticality = "INFORMATIONAL"
)

// MissingEvidenceRequest is a first-class "we know we don't know" row.
type MissingEvidenceRequest struct {
	ID                   uuid.UUID
	CaseID               *uuid.UUID
	SourceSystem         string
	RequestType          string
	RequestParams        map[string]any
	Reason               string
	Criticality          Criticality
	CreatedAt            time.Time
	ResolvedAt           *time.Time
	ResolvedByEvidenceID *uuid.UUID
}

// ActionType enumerates the interventions the planner may propose.
type ActionType string

const (
	ActionSetPosture            ActionType = "SET_POSTURE"
	ActionPublishGatewayAdvisory ActionType = "PUBLISH_GATEWAY_ADVISORY"
	ActionEscalateOps           ActionType = "ESCALATE_OPS"
	ActionHoldCargo             ActionType = "HOLD_CARGO"
	ActionRebookFlight          ActionType = "REBOOK_FLIGHT"
	ActionNotifyCustomer        ActionType = "NOTIFY_CUSTOMER"
)

// ActionState is the governed action lifecycle state per §4.5.
type ActionState string

const (
	ActionProposed        ActionState = "PROPOSED"
	ActionPendingApproval ActionState = "PENDING_APPROVAL"
	ActionApproved        ActionState = "APPROVED"
	ActionExecuting       ActionState = "EXECUTING"
	ActionCompleted       ActionState = "COMPLETED"
	ActionFailed          ActionState = "FAILED"
	ActionRolledBack      ActionState = "ROLLED_BACK"
)

// RiskLevel is the RiskQuant/Critic/PolicyJudge shared risk vocabulary.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Posture is the decision output emitted by the orchestrator.
type Posture string

const (
	PostureAccept   Posture = "ACCEPT"
	PostureRestrict Posture = "RESTRICT"
	PostureHold     Posture = "HOLD"
	PostureEscalate Posture = "ESCALATE"
)

// Action is a proposed or governed intervention.
type Action struct {
	ID               uuid.UUID
	CaseID           uuid.UUID
	Type             ActionType
	Args             map[string]any
	State            ActionState
	RiskLevel        RiskLevel
	RequiresApproval bool
	CreatedAt        time.Time
	ApprovedBy       string
	ApprovedAt       *time.Time
	PlaybookGuided   bool
}

// Outcome records the result of an executed or rolled-back Action.
type Outcome struct {
	ID          uuid.UUID
	ActionID    uuid.UUID
	Success     bool
	Detail      string
	OccurredAt  time.Time
	RolledBack  bool
}

// Playbook is a learned (pattern, action-template) pair used to guide planning.
type Playbook struct {
	ID             uuid.UUID
	Name           string
	Version        string
	CaseType       CaseType
	ScopeKeys      []string
	SignalSignature []string
	ActionTemplate []PlaybookActionTemplate
	UseCount       int
	SuccessCount   int
}

// SuccessRate returns SuccessCount/UseCount, or 0 when never used.
func (p Playbook) SuccessRate() float64 {
	if p.UseCount == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(p.UseCount)
}

// PlaybookActionTemplate is one ordered step of a Playbook's action template.
type PlaybookActionTemplate struct {
	Type         ActionType
	DefaultArgs  map[string]any
	RequiresApproval bool
}

// TraceEventType enumerates the audit-ledger event kinds.
type TraceEventType string

const (
	TraceStateEnter    TraceEventType = "STATE_ENTER"
	TraceStateExit     TraceEventType = "STATE_EXIT"
	TraceToolCall      TraceEventType = "TOOL_CALL"
	TraceToolResult    TraceEventType = "TOOL_RESULT"
	TraceHandoff       TraceEventType = "HANDOFF"
	TraceGuardrailFail TraceEventType = "GUARDRAIL_FAIL"
	TraceBlocked       TraceEventType = "BLOCKED"
)

// TraceEvent is one append-only audit-ledger row.
type TraceEvent struct {
	ID        uuid.UUID
	CaseID    uuid.UUID
	Seq       int64
	EventType TraceEventType
	RefType   string
	RefID     string
	Meta      map[string]any
	CreatedAt time.Time
}

// EmbeddingCase is the persisted hybrid-retrieval row for one case.
type EmbeddingCase struct {
	CaseID     uuid.UUID
	Text       string
	Embedding  [384]float32
	EdgeTypes  []string
	CreatedAt  time.Time
}
