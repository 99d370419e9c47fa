package simulation

import (
	"time"

	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/provider"
)

// Scenario is a named, coordinated signal-payload bundle driving one case
// through the full orchestrator loop, plus the packet values a correct run
// is expected to produce. The six scenarios here are the ones named by the
// end-to-end test properties; original_source/simulation/scenarios defines
// many more (this core ports only the six that are load-bearing test
// properties, not the full Python scenario catalogue).
type Scenario struct {
	ID          string
	Name        string
	Airport     string
	CaseType    model.CaseType
	Results     map[model.Source]ingestion.IngestionResult
	LLMResponses []*provider.CompletionResponse

	ExpectedPosture   model.Posture
	ExpectedRiskLevel model.RiskLevel
	ExpectedStatus    model.CaseStatus
	Notes             string
}

func jsonResponse(content string) *provider.CompletionResponse {
	return &provider.CompletionResponse{Content: content, StopReason: "end_turn"}
}

// Scenarios returns the six named end-to-end scenarios in a fixed order.
func Scenarios() []Scenario {
	return []Scenario{
		kjfkGroundStop(),
		klaxNormalOperations(),
		contradictorySignals(),
		missingRequiredSource(),
		hybridRetrievalSeedScenario(),
		approvalGatedShipmentAction(),
	}
}

// kjfkGroundStop is scenario 1: full evidence, unambiguous HOLD.
func kjfkGroundStop() Scenario {
	now := time.Now().UTC()
	return Scenario{
		ID:       "kjfk_ground_stop",
		Name:     "KJFK ground stop, full evidence",
		Airport:  "KJFK",
		CaseType: model.CaseTypeAirportDisruption,
		Results: map[model.Source]ingestion.IngestionResult{
			model.SourceFAA: {
				Source: model.SourceFAA, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"delay":true,"delay_type":"Ground Stop","reason":"WX","avg_delay_minutes":90}`),
				Data: ingestion.FAAStatus{Delay: true, DelayType: "Ground Stop", Reason: "WX", AvgDelayMinutes: 90},
			},
			model.SourceMETAR: {
				Source: model.SourceMETAR, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"flight_category":"IFR","visibility_miles":0.5,"wind_speed_kt":25,"wind_gust_kt":35}`),
				Data: ingestion.METARObservation{FlightCategory: "IFR", VisibilityMiles: 0.5, WindSpeedKt: 25, WindGustKt: 35, ObservedAt: now},
			},
			model.SourceTAF: {
				Source: model.SourceTAF, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"flight_category":"IFR","visibility_miles":0.5}`),
				Data: ingestion.TAFForecast{FlightCategory: "IFR", VisibilityMiles: 0.5, ValidFrom: now, ValidTo: now.Add(6 * time.Hour)},
			},
			model.SourceNWS: {
				Source: model.SourceNWS, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`[{"event":"Severe Thunderstorm Warning","severity":"Severe"}]`),
				Data: []ingestion.NWSAlert{{Event: "Severe Thunderstorm Warning", Severity: "Severe", Certainty: "Observed", Urgency: "Immediate", Expires: now.Add(2 * time.Hour)}},
			},
			model.SourceADSB: {
				Source: model.SourceADSB, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"aircraft_count":8}`),
				Data: ingestion.MovementObservation{AircraftCount: 8, ObservedAt: now},
			},
		},
		LLMResponses: []*provider.CompletionResponse{
			jsonResponse(`{"risk_level":"HIGH","recommended_posture":"HOLD","confidence":0.9,"rationale":"ground stop with IFR weather and severe thunderstorm warning","risk_factors":["ground_stop","ifr","severe_weather"]}`),
			jsonResponse(`{"verdict":"ACCEPTABLE","verdict_rationale":"all five sources present and consistent","critical_gaps":[]}`),
			jsonResponse(`{"verdict":"COMPLIANT","verdict_rationale":"HOLD posture matches HIGH risk with no shipment action pending booking evidence","violated_policies":[]}`),
		},
		ExpectedPosture:   model.PostureHold,
		ExpectedRiskLevel: model.RiskHigh,
		ExpectedStatus:    model.CaseStatusResolved,
		Notes:             "actions_proposed includes SET_POSTURE:HOLD and PUBLISH_GATEWAY_ADVISORY; pdl_seconds < 60",
	}
}

// klaxNormalOperations is scenario 2: no disruption anywhere, ACCEPT.
func klaxNormalOperations() Scenario {
	now := time.Now().UTC()
	return Scenario{
		ID:       "klax_normal_operations",
		Name:     "KLAX normal operations",
		Airport:  "KLAX",
		CaseType: model.CaseTypeAirportDisruption,
		Results: map[model.Source]ingestion.IngestionResult{
			model.SourceFAA: {
				Source: model.SourceFAA, Success: true, Status: model.EvidenceStatusNormalOperations,
				RetrievedAt: now, RawPayload: []byte(`{"delay":false}`),
				Data: ingestion.FAAStatus{Delay: false},
			},
			model.SourceMETAR: {
				Source: model.SourceMETAR, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"flight_category":"VFR","visibility_miles":10,"wind_speed_kt":8}`),
				Data: ingestion.METARObservation{FlightCategory: "VFR", VisibilityMiles: 10, WindSpeedKt: 8, ObservedAt: now},
			},
			model.SourceTAF: {
				Source: model.SourceTAF, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"flight_category":"VFR","visibility_miles":10}`),
				Data: ingestion.TAFForecast{FlightCategory: "VFR", VisibilityMiles: 10, ValidFrom: now, ValidTo: now.Add(6 * time.Hour)},
			},
			model.SourceNWS: {
				Source: model.SourceNWS, Success: true, Status: model.EvidenceStatusNormalOperations,
				RetrievedAt: now, RawPayload: []byte(`[]`),
				Data: []ingestion.NWSAlert{},
			},
			model.SourceADSB: {
				Source: model.SourceADSB, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"aircraft_count":120}`),
				Data: ingestion.MovementObservation{AircraftCount: 120, ObservedAt: now},
			},
		},
		LLMResponses: []*provider.CompletionResponse{
			jsonResponse(`{"risk_level":"LOW","recommended_posture":"ACCEPT","confidence":0.9,"rationale":"no disruption reported across any source","risk_factors":[]}`),
			jsonResponse(`{"verdict":"ACCEPTABLE","verdict_rationale":"all five sources present, no gaps","critical_gaps":[]}`),
			jsonResponse(`{"verdict":"COMPLIANT","verdict_rationale":"ACCEPT posture matches LOW risk","violated_policies":[]}`),
		},
		ExpectedPosture:   model.PostureAccept,
		ExpectedRiskLevel: model.RiskLow,
		ExpectedStatus:    model.CaseStatusResolved,
		Notes:             "0 contradictions, 1 action (SET_POSTURE:ACCEPT)",
	}
}

// contradictorySignals is scenario 3: FAA says normal while METAR/NWS/ADS-B
// together describe a severe event, forcing exactly one re-investigation
// round before the critic accepts.
func contradictorySignals() Scenario {
	now := time.Now().UTC()
	return Scenario{
		ID:       "contradictory_signals",
		Name:     "Contradictory signals",
		Airport:  "KORD",
		CaseType: model.CaseTypeAirportDisruption,
		Results: map[model.Source]ingestion.IngestionResult{
			model.SourceFAA: {
				Source: model.SourceFAA, Success: true, Status: model.EvidenceStatusNormalOperations,
				RetrievedAt: now, RawPayload: []byte(`{"delay":false}`),
				Data: ingestion.FAAStatus{Delay: false},
			},
			model.SourceMETAR: {
				Source: model.SourceMETAR, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"flight_category":"LIFR","visibility_miles":0.25}`),
				Data: ingestion.METARObservation{FlightCategory: "LIFR", VisibilityMiles: 0.25, ObservedAt: now},
			},
			model.SourceTAF: {
				Source: model.SourceTAF, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"flight_category":"LIFR","visibility_miles":0.25}`),
				Data: ingestion.TAFForecast{FlightCategory: "LIFR", VisibilityMiles: 0.25, ValidFrom: now, ValidTo: now.Add(6 * time.Hour)},
			},
			model.SourceNWS: {
				Source: model.SourceNWS, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`[{"event":"Severe Winter Storm Warning","severity":"Severe"}]`),
				Data: []ingestion.NWSAlert{{Event: "Severe Winter Storm Warning", Severity: "Severe", Certainty: "Likely", Urgency: "Expected", Expires: now.Add(12 * time.Hour)}},
			},
			model.SourceADSB: {
				Source: model.SourceADSB, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, RawPayload: []byte(`{"aircraft_count":15}`),
				Data: ingestion.MovementObservation{AircraftCount: 15, ObservedAt: now},
			},
		},
		LLMResponses: []*provider.CompletionResponse{
			// First pass: risk assessed before the critic sees the FAA/weather
			// mismatch.
			jsonResponse(`{"risk_level":"MEDIUM","recommended_posture":"RESTRICT","confidence":0.6,"rationale":"weather signals conflict with FAA normal-operations status","risk_factors":["faa_weather_mismatch"]}`),
			jsonResponse(`{"verdict":"INSUFFICIENT_EVIDENCE","verdict_rationale":"FAA_WEATHER_MISMATCH unresolved, re-investigate before accepting","critical_gaps":["faa_weather_mismatch"]}`),
			// Second pass after the forced re-investigation round.
			jsonResponse(`{"risk_level":"HIGH","recommended_posture":"HOLD","confidence":0.75,"rationale":"LIFR conditions and severe winter storm warning outweigh stale FAA status","risk_factors":["lifr","severe_weather","movement_collapse"]}`),
			jsonResponse(`{"verdict":"ACCEPTABLE","verdict_rationale":"contradiction narrated and resolved in favor of the weather sources","critical_gaps":[]}`),
			jsonResponse(`{"verdict":"COMPLIANT","verdict_rationale":"HOLD posture matches HIGH risk","violated_policies":[]}`),
		},
		ExpectedPosture:   model.PostureHold,
		ExpectedRiskLevel: model.RiskHigh,
		ExpectedStatus:    model.CaseStatusResolved,
		Notes:             "expects >=1 FAA_WEATHER_MISMATCH contradiction and exactly one forced re-investigation round",
	}
}

// missingRequiredSource is scenario 4: METAR (a BLOCKING-criticality source)
// times out on every attempt; the case cannot proceed past investigation.
func missingRequiredSource() Scenario {
	now := time.Now().UTC()
	return Scenario{
		ID:       "missing_required_source",
		Name:     "Missing required source",
		Airport:  "KDEN",
		CaseType: model.CaseTypeAirportDisruption,
		Results: map[model.Source]ingestion.IngestionResult{
			model.SourceFAA: {
				Source: model.SourceFAA, Success: true, Status: model.EvidenceStatusNormalOperations,
				RetrievedAt: now, RawPayload: []byte(`{"delay":false}`),
				Data: ingestion.FAAStatus{Delay: false},
			},
			model.SourceMETAR: {
				Source: model.SourceMETAR, Success: false, Status: model.EvidenceStatusAPIError,
				RetrievedAt: now,
				Missing: &model.MissingEvidenceRequest{
					SourceSystem: string(model.SourceMETAR),
					RequestType:  "fetch_timeout",
					Reason:       "METAR fetch timed out repeatedly",
					Criticality:  model.CriticalityBlocking,
				},
			},
			model.SourceTAF: {
				Source: model.SourceTAF, Success: true, Status: model.EvidenceStatusNormalOperations,
				RetrievedAt: now, Data: ingestion.TAFForecast{FlightCategory: "VFR", VisibilityMiles: 10, ValidFrom: now, ValidTo: now.Add(6 * time.Hour)},
			},
			model.SourceNWS: {
				Source: model.SourceNWS, Success: true, Status: model.EvidenceStatusNormalOperations,
				RetrievedAt: now, Data: []ingestion.NWSAlert{},
			},
			model.SourceADSB: {
				Source: model.SourceADSB, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, Data: ingestion.MovementObservation{AircraftCount: 95, ObservedAt: now},
			},
		},
		LLMResponses: []*provider.CompletionResponse{
			jsonResponse(`{"risk_level":"MEDIUM","recommended_posture":"RESTRICT","confidence":0.4,"rationale":"METAR unavailable, weather posture uncertain","risk_factors":["missing_metar"]}`),
			jsonResponse(`{"verdict":"INSUFFICIENT_EVIDENCE","verdict_rationale":"blocking source METAR is unavailable","critical_gaps":["metar_missing"]}`),
			jsonResponse(`{"risk_level":"MEDIUM","recommended_posture":"RESTRICT","confidence":0.4,"rationale":"METAR still unavailable after re-investigation","risk_factors":["missing_metar"]}`),
			jsonResponse(`{"verdict":"INSUFFICIENT_EVIDENCE","verdict_rationale":"blocking source METAR remains unavailable at round limit","critical_gaps":["metar_missing"]}`),
			jsonResponse(`{"verdict":"NEEDS_EVIDENCE","verdict_rationale":"cannot evaluate policy without the blocking METAR source","violated_policies":[]}`),
		},
		ExpectedStatus: model.CaseStatusBlocked,
		Notes:          "blocked_section.missing_evidence_requests has one {source_system:METAR, criticality:BLOCKING} entry; no SET_POSTURE executed",
	}
}

// hybridRetrievalSeedScenario isn't itself a posture-decision case and has no
// case type, so the orchestrator-driven scenario test skips it; no test in
// this repository runs the retrieval determinism check its Notes describe.
// Kept here so Scenarios() enumerates all six named end-to-end properties in
// one place.
func hybridRetrievalSeedScenario() Scenario {
	return Scenario{
		ID:     "hybrid_retrieval_determinism",
		Name:   "Hybrid retrieval determinism",
		Notes:  "two identical Search calls against a fixed 5-case corpus return identical id order and final_score to >=4 decimal places; not an orchestrator case",
	}
}

// approvalGatedShipmentAction is scenario 6: a HIGH-risk, HOLD-posture case
// whose planner proposes a shipment-level action that requires approval.
func approvalGatedShipmentAction() Scenario {
	now := time.Now().UTC()
	return Scenario{
		ID:       "approval_gated_shipment_action",
		Name:     "Approval-gated shipment action",
		Airport:  "KMIA",
		CaseType: model.CaseTypeAirportDisruption,
		Results: map[model.Source]ingestion.IngestionResult{
			model.SourceFAA: {
				Source: model.SourceFAA, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, Data: ingestion.FAAStatus{Delay: true, DelayType: "Ground Stop", Reason: "WX", AvgDelayMinutes: 120},
			},
			model.SourceMETAR: {
				Source: model.SourceMETAR, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, Data: ingestion.METARObservation{FlightCategory: "LIFR", VisibilityMiles: 0.2, WindGustKt: 40, ObservedAt: now},
			},
			model.SourceTAF: {
				Source: model.SourceTAF, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, Data: ingestion.TAFForecast{FlightCategory: "LIFR", VisibilityMiles: 0.2, ValidFrom: now, ValidTo: now.Add(6 * time.Hour)},
			},
			model.SourceNWS: {
				Source: model.SourceNWS, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, Data: []ingestion.NWSAlert{{Event: "Hurricane Warning", Severity: "Extreme", Certainty: "Observed", Urgency: "Immediate", Expires: now.Add(24 * time.Hour)}},
			},
			model.SourceADSB: {
				Source: model.SourceADSB, Success: true, Status: model.EvidenceStatusHasData,
				RetrievedAt: now, Data: ingestion.MovementObservation{AircraftCount: 3, ObservedAt: now},
			},
		},
		LLMResponses: []*provider.CompletionResponse{
			jsonResponse(`{"risk_level":"HIGH","recommended_posture":"HOLD","confidence":0.92,"rationale":"hurricane warning, LIFR conditions, ground stop and movement collapse","risk_factors":["hurricane","ground_stop","movement_collapse"]}`),
			jsonResponse(`{"verdict":"ACCEPTABLE","verdict_rationale":"all five sources present and consistent","critical_gaps":[]}`),
			jsonResponse(`{"verdict":"COMPLIANT","verdict_rationale":"HOLD posture with HOLD_CARGO gated behind approval per policy","violated_policies":[]}`),
		},
		ExpectedPosture:   model.PostureHold,
		ExpectedRiskLevel: model.RiskHigh,
		ExpectedStatus:    model.CaseStatusBlocked,
		Notes:             "HOLD_CARGO proposed with requires_approval=true; case completes BLOCKED with the action PENDING_APPROVAL until an external approveAction call resolves it",
	}
}
