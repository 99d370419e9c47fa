package signals

import (
	"testing"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/model"
)

func TestWeatherSeverity_Rules(t *testing.T) {
	tests := []struct {
		name string
		obs  ingestion.METARObservation
		want Severity
	}{
		{"IFR is high", ingestion.METARObservation{FlightCategory: "IFR"}, SeverityHigh},
		{"LIFR is high", ingestion.METARObservation{FlightCategory: "LIFR"}, SeverityHigh},
		{"high gust is high", ingestion.METARObservation{FlightCategory: "VFR", WindGustKt: 40}, SeverityHigh},
		{"high sustained wind is high", ingestion.METARObservation{FlightCategory: "VFR", WindSpeedKt: 30}, SeverityHigh},
		{"MVFR is medium", ingestion.METARObservation{FlightCategory: "MVFR"}, SeverityMedium},
		{"low visibility is medium", ingestion.METARObservation{FlightCategory: "VFR", VisibilityMiles: 2}, SeverityMedium},
		{"low ceiling is medium", ingestion.METARObservation{FlightCategory: "VFR", CeilingFeet: 800}, SeverityMedium},
		{"clear VFR is low", ingestion.METARObservation{FlightCategory: "VFR", VisibilityMiles: 10, CeilingFeet: 5000, WindSpeedKt: 8}, SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeatherSeverity(tt.obs); got != tt.want {
				t.Errorf("WeatherSeverity(%+v) = %v, want %v", tt.obs, got, tt.want)
			}
		})
	}
}

func TestDeriveFAA_EmittedEvenWhenNormal(t *testing.T) {
	r := ingestion.IngestionResult{Success: true, Data: ingestion.FAAStatus{Delay: false, Closure: false}}
	edge, ok := DeriveFAA(r, r.RetrievedAt)
	if !ok {
		t.Fatal("expected an edge even for normal FAA status")
	}
	if edge.Attrs["status"] != "NORMAL" {
		t.Errorf("expected status NORMAL, got %v", edge.Attrs["status"])
	}
}

func TestDeriveMovement_LowCountIsAlwaysHigh(t *testing.T) {
	r := ingestion.IngestionResult{Success: true, Data: ingestion.MovementObservation{AircraftCount: 8}}
	edge, ok := DeriveMovement(r, "KJFK", MovementBaseline{"KJFK": 120})
	if !ok {
		t.Fatal("expected a movement edge")
	}
	if edge.Attrs["severity"] != string(SeverityHigh) {
		t.Errorf("expected HIGH severity below 10 aircraft, got %v", edge.Attrs["severity"])
	}
}

func TestDetectContradictions_FAAWeatherMismatch(t *testing.T) {
	sigs := LatestSignals{FAAStatus: "NORMAL", WeatherCategory: "LIFR", WeatherSeverity: SeverityHigh}
	cs := DetectContradictions(mustUUID(), sigs)
	if len(cs) != 1 || cs[0].Type != model.ContradictionFAAWeatherMismatch {
		t.Fatalf("expected exactly one FAA_WEATHER_MISMATCH, got %+v", cs)
	}
}

func TestDetectContradictions_NoneWhenConsistent(t *testing.T) {
	sigs := LatestSignals{FAAStatus: "DISRUPTED", FAADelayType: "Ground Stop", WeatherCategory: "LIFR", WeatherSeverity: SeverityHigh, MovementCount: 8, MovementSeverity: SeverityHigh, NWSMaxSeverity: "Severe"}
	cs := DetectContradictions(mustUUID(), sigs)
	if len(cs) != 0 {
		t.Errorf("expected no contradictions for a fully consistent disruption, got %+v", cs)
	}
}

func mustUUID() (u [16]byte) { return }
