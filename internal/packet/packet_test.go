/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package packet

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestComputeMetrics_PDLComputedFromFirstSignalAndPostureEmitted(t *testing.T) {
	firstSignal := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	evidence := []model.Evidence{
		{SourceSystem: "METAR", RetrievedAt: firstSignal.Add(30 * time.Second)},
		{SourceSystem: "FAA", RetrievedAt: firstSignal},
	}
	trace := []model.TraceEvent{
		{
			EventType: model.TraceStateExit,
			RefType:   "state",
			RefID:     "PLAN_ACTIONS",
			Meta:      map[string]any{"posture_emitted_at": float64(later.UnixNano())},
		},
	}

	m := computeMetrics(evidence, trace, nil, nil)

	if m.FirstSignalAt == nil || !m.FirstSignalAt.Equal(firstSignal) {
		t.Fatalf("FirstSignalAt = %v, want %v", m.FirstSignalAt, firstSignal)
	}
	if m.PostureEmittedAt == nil || !m.PostureEmittedAt.Equal(later) {
		t.Fatalf("PostureEmittedAt = %v, want %v", m.PostureEmittedAt, later)
	}
	if m.PDLSeconds == nil {
		t.Fatal("PDLSeconds should be set when both timestamps are present")
	}
	if *m.PDLSeconds != 300 {
		t.Errorf("PDLSeconds = %f, want 300", *m.PDLSeconds)
	}
	if m.EvidenceCount != 2 {
		t.Errorf("EvidenceCount = %d, want 2", m.EvidenceCount)
	}
}

func TestComputeMetrics_NoPDLWithoutPostureEmitted(t *testing.T) {
	evidence := []model.Evidence{{RetrievedAt: time.Now()}}
	m := computeMetrics(evidence, nil, nil, nil)

	if m.PostureEmittedAt != nil {
		t.Error("PostureEmittedAt should be nil when no PLAN_ACTIONS exit trace exists")
	}
	if m.PDLSeconds != nil {
		t.Error("PDLSeconds should be nil when posture was never emitted")
	}
}

func TestComputeMetrics_IgnoresNonPlanActionsTraceEvents(t *testing.T) {
	trace := []model.TraceEvent{
		{EventType: model.TraceStateExit, RefType: "state", RefID: "INVESTIGATE", Meta: map[string]any{"posture_emitted_at": float64(123)}},
		{EventType: model.TraceStateEnter, RefType: "state", RefID: "PLAN_ACTIONS", Meta: map[string]any{"posture_emitted_at": float64(456)}},
	}
	m := computeMetrics(nil, trace, nil, nil)

	if m.PostureEmittedAt != nil {
		t.Error("expected no posture_emitted_at: neither event is a PLAN_ACTIONS STATE_EXIT")
	}
}

func TestFoldCascadeImpact_PassesThroughOnSuccess(t *testing.T) {
	cascade := CascadeImpact{FlightCount: 3, ShipmentCount: 1}
	got := foldCascadeImpact(cascade, nil)
	if got != cascade {
		t.Errorf("foldCascadeImpact(ok) = %+v, want %+v unchanged", got, cascade)
	}
}

func TestFoldCascadeImpact_DegradesToErrorFieldRatherThanAborting(t *testing.T) {
	got := foldCascadeImpact(CascadeImpact{FlightCount: 99}, errors.New("traversal timed out"))
	want := CascadeImpact{Error: "traversal timed out"}
	if got != want {
		t.Errorf("foldCascadeImpact(err) = %+v, want %+v (counts dropped, error populated)", got, want)
	}
}

func TestComputeMetrics_CountsContradictionsAndActions(t *testing.T) {
	contradictions := []model.Contradiction{{}, {}}
	actions := []model.Action{{}, {}, {}}

	m := computeMetrics(nil, nil, contradictions, actions)

	if m.ContradictionCount != 2 {
		t.Errorf("ContradictionCount = %d, want 2", m.ContradictionCount)
	}
	if m.ActionCount != 3 {
		t.Errorf("ActionCount = %d, want 3", m.ActionCount)
	}
}
