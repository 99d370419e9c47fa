/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agents

import (
	"testing"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/signals"
)

func TestDeriveEdges_FAADispatchesToDeriveFAA(t *testing.T) {
	r := ingestion.IngestionResult{
		Source:      model.SourceFAA,
		Success:     true,
		Data:        ingestion.FAAStatus{Delay: true},
		RetrievedAt: time.Now().UTC(),
	}
	edges, ok := deriveEdges(r, "KJFK")
	if !ok || len(edges) != 1 {
		t.Fatalf("deriveEdges(FAA) = %+v, %v, want 1 edge", edges, ok)
	}
	if edges[0].Type != model.EdgeTypeAirportHasFAADisruption {
		t.Errorf("edge type = %s, want %s", edges[0].Type, model.EdgeTypeAirportHasFAADisruption)
	}
}

func TestDeriveEdges_METARDispatchesToDeriveWeather(t *testing.T) {
	r := ingestion.IngestionResult{
		Source:  model.SourceMETAR,
		Success: true,
		Data:    ingestion.METARObservation{FlightCategory: "VFR"},
	}
	edges, ok := deriveEdges(r, "KJFK")
	if !ok || len(edges) != 1 || edges[0].Type != model.EdgeTypeAirportWeatherRisk {
		t.Fatalf("deriveEdges(METAR) = %+v, %v, want 1 AIRPORT_WEATHER_RISK edge", edges, ok)
	}
}

func TestDeriveEdges_NWSReturnsOneEdgePerAlert(t *testing.T) {
	r := ingestion.IngestionResult{
		Source:  model.SourceNWS,
		Success: true,
		Data: []ingestion.NWSAlert{
			{Event: "Tornado Warning", Severity: "Extreme"},
			{Event: "Wind Advisory", Severity: "Moderate"},
		},
	}
	edges, ok := deriveEdges(r, "KJFK")
	if !ok || len(edges) != 2 {
		t.Fatalf("deriveEdges(NWS) = %+v, %v, want 2 edges", edges, ok)
	}
}

func TestDeriveEdges_ADSBDispatchesToDeriveMovement(t *testing.T) {
	r := ingestion.IngestionResult{
		Source:  model.SourceADSB,
		Success: true,
		Data:    ingestion.MovementObservation{AircraftCount: 5},
	}
	edges, ok := deriveEdges(r, "KJFK")
	if !ok || len(edges) != 1 || edges[0].Type != model.EdgeTypeAirportMovementCollapse {
		t.Fatalf("deriveEdges(ADS-B) = %+v, %v, want 1 AIRPORT_MOVEMENT_COLLAPSE edge", edges, ok)
	}
}

func TestDeriveEdges_FailedFetchReturnsNoEdges(t *testing.T) {
	r := ingestion.IngestionResult{Source: model.SourceFAA, Success: false}
	edges, ok := deriveEdges(r, "KJFK")
	if ok || edges != nil {
		t.Errorf("deriveEdges(failed fetch) = %+v, %v, want nil, false", edges, ok)
	}
}

func TestDeriveEdges_UnknownSourceReturnsNoEdges(t *testing.T) {
	r := ingestion.IngestionResult{Source: model.Source("UNKNOWN"), Success: true}
	edges, ok := deriveEdges(r, "KJFK")
	if ok || edges != nil {
		t.Errorf("deriveEdges(unknown source) = %+v, %v, want nil, false", edges, ok)
	}
}

func TestApplySignal_FAAUpdatesStatusAndDelayType(t *testing.T) {
	var latest signals.LatestSignals
	applySignal(&latest, signals.DerivedEdge{
		Type:  model.EdgeTypeAirportHasFAADisruption,
		Attrs: map[string]any{"status": "DISRUPTED", "delay_type": "GROUND_STOP"},
	})
	if latest.FAAStatus != "DISRUPTED" || latest.FAADelayType != "GROUND_STOP" {
		t.Errorf("latest = %+v, unexpected", latest)
	}
}

func TestApplySignal_NWSKeepsTheHighestSeveritySeen(t *testing.T) {
	var latest signals.LatestSignals
	applySignal(&latest, signals.DerivedEdge{
		Type:  model.EdgeTypeAirportHasNWSAlert,
		Attrs: map[string]any{"severity": "Moderate"},
	})
	applySignal(&latest, signals.DerivedEdge{
		Type:  model.EdgeTypeAirportHasNWSAlert,
		Attrs: map[string]any{"severity": "Extreme"},
	})
	if latest.NWSMaxSeverity != "Extreme" {
		t.Errorf("NWSMaxSeverity = %s, want Extreme (the higher-ranked severity)", latest.NWSMaxSeverity)
	}
	applySignal(&latest, signals.DerivedEdge{
		Type:  model.EdgeTypeAirportHasNWSAlert,
		Attrs: map[string]any{"severity": "Minor"},
	})
	if latest.NWSMaxSeverity != "Extreme" {
		t.Errorf("NWSMaxSeverity = %s, want Extreme (a lower severity must not overwrite it)", latest.NWSMaxSeverity)
	}
}

func TestApplySignal_MovementUpdatesSeverityAndCount(t *testing.T) {
	var latest signals.LatestSignals
	applySignal(&latest, signals.DerivedEdge{
		Type:  model.EdgeTypeAirportMovementCollapse,
		Attrs: map[string]any{"severity": "HIGH", "aircraft_count": 3},
	})
	if latest.MovementSeverity != "HIGH" || latest.MovementCount != 3 {
		t.Errorf("latest = %+v, unexpected", latest)
	}
}

func TestRank_OrdersSeverityWordsMonotonically(t *testing.T) {
	if !(rank("Minor") < rank("Moderate") && rank("Moderate") < rank("Severe") && rank("Severe") < rank("Extreme")) {
		t.Error("rank should be strictly increasing: Minor < Moderate < Severe < Extreme")
	}
	if rank("") != 0 || rank("garbage") != 0 {
		t.Error("rank of an unrecognized severity should be 0")
	}
}
