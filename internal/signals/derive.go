/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package signals derives typed graph edges from ingestion results and
// detects pairwise contradictions between the most recent per-source edges.
package signals

import (
	"time"

	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/model"
)

// Severity is the weather/movement severity vocabulary used by derived
// edges. It is distinct from model.RiskLevel, which is the orchestrator's
// risk vocabulary.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// DerivedEdge is a signal edge ready for the graph store: attrs plus the
// metadata the store needs to create, bind, and promote it.
type DerivedEdge struct {
	Type           model.EdgeType
	Attrs          map[string]any
	SourceSystem   string
	EventTimeStart time.Time
	Confidence     float64
}

// DeriveFAA always emits an edge, even when FAA reports normal operations —
// the contradiction checks need to see "confirmed normal", not absence.
func DeriveFAA(r ingestion.IngestionResult, observedAt time.Time) (DerivedEdge, bool) {
	status, ok := r.Data.(ingestion.FAAStatus)
	if !r.Success || !ok {
		return DerivedEdge{}, false
	}
	disruptionStatus := "NORMAL"
	if status.Delay || status.Closure {
		disruptionStatus = "DISRUPTED"
	}
	return DerivedEdge{
		Type:         model.EdgeTypeAirportHasFAADisruption,
		SourceSystem: string(model.SourceFAA),
		EventTimeStart: observedAt,
		Confidence:   0.95,
		Attrs: map[string]any{
			"delay":             status.Delay,
			"delay_type":        status.DelayType,
			"reason":            status.Reason,
			"avg_delay_minutes": status.AvgDelayMinutes,
			"closure":           status.Closure,
			"status":            disruptionStatus,
		},
	}, true
}

// WeatherSeverity applies the rule table from SPEC_FULL.md §4.3: IFR/LIFR is
// always HIGH; gust ≥ 35kt or sustained wind ≥ 25kt is HIGH; MVFR or
// visibility < 3mi or ceiling < 1000ft is MEDIUM; otherwise LOW.
func WeatherSeverity(obs ingestion.METARObservation) Severity {
	switch obs.FlightCategory {
	case "IFR", "LIFR":
		return SeverityHigh
	}
	if obs.WindGustKt >= 35 || obs.WindSpeedKt >= 25 {
		return SeverityHigh
	}
	if obs.FlightCategory == "MVFR" || obs.VisibilityMiles < 3 || obs.CeilingFeet < 1000 {
		return SeverityMedium
	}
	return SeverityLow
}

// DeriveWeather builds the AIRPORT_WEATHER_RISK edge from a METAR observation.
func DeriveWeather(r ingestion.IngestionResult) (DerivedEdge, bool) {
	obs, ok := r.Data.(ingestion.METARObservation)
	if !r.Success || !ok {
		return DerivedEdge{}, false
	}
	sev := WeatherSeverity(obs)
	observedAt := obs.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}
	return DerivedEdge{
		Type:         model.EdgeTypeAirportWeatherRisk,
		SourceSystem: string(model.SourceMETAR),
		EventTimeStart: observedAt,
		Confidence:   0.9,
		Attrs: map[string]any{
			"flight_category":  obs.FlightCategory,
			"wind_speed":       obs.WindSpeedKt,
			"wind_gust":        obs.WindGustKt,
			"visibility_miles": obs.VisibilityMiles,
			"ceiling_feet":     obs.CeilingFeet,
			"weather":          obs.Weather,
			"severity":         string(sev),
		},
	}, true
}

// DeriveNWSAlerts builds one AIRPORT_HAS_NWS_ALERT edge per alert.
func DeriveNWSAlerts(r ingestion.IngestionResult) []DerivedEdge {
	alerts, ok := r.Data.([]ingestion.NWSAlert)
	if !r.Success || !ok {
		return nil
	}
	out := make([]DerivedEdge, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, DerivedEdge{
			Type:         model.EdgeTypeAirportHasNWSAlert,
			SourceSystem: string(model.SourceNWS),
			EventTimeStart: time.Now().UTC(),
			Confidence:   0.9,
			Attrs: map[string]any{
				"event":     a.Event,
				"severity":  a.Severity,
				"certainty": a.Certainty,
				"urgency":   a.Urgency,
				"headline":  a.Headline,
				"expires":   a.Expires,
			},
		})
	}
	return out
}

// MovementBaseline is a per-airport typical aircraft-count figure used to
// compute the delta the movement-collapse edge reports.
type MovementBaseline map[string]int

// DeriveMovement builds the AIRPORT_MOVEMENT_COLLAPSE edge. An aircraft
// count under 10 is always HIGH severity regardless of baseline delta.
func DeriveMovement(r ingestion.IngestionResult, airport string, baseline MovementBaseline) (DerivedEdge, bool) {
	obs, ok := r.Data.(ingestion.MovementObservation)
	if !r.Success || !ok {
		return DerivedEdge{}, false
	}
	base, known := baseline[airport]
	deltaPct := 0.0
	if known && base > 0 {
		deltaPct = (float64(obs.AircraftCount) - float64(base)) / float64(base) * 100
	}

	sev := SeverityLow
	switch {
	case obs.AircraftCount < 10:
		sev = SeverityHigh
	case deltaPct <= -50:
		sev = SeverityHigh
	case deltaPct <= -25:
		sev = SeverityMedium
	}

	return DerivedEdge{
		Type:         model.EdgeTypeAirportMovementCollapse,
		SourceSystem: string(model.SourceADSB),
		EventTimeStart: obs.ObservedAt,
		Confidence:   0.8,
		Attrs: map[string]any{
			"aircraft_count": obs.AircraftCount,
			"delta_percent":  deltaPct,
			"severity":       string(sev),
		},
	}, true
}
