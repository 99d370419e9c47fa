package signals

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// LatestSignals is the most-recent-per-source edge set a contradiction
// check reads. Any field may be nil/zero if that source produced no edge.
type LatestSignals struct {
	FAAStatus      string // "DISRUPTED" | "NORMAL"
	FAADelayType   string
	WeatherSeverity Severity
	WeatherCategory string // VFR | MVFR | IFR | LIFR
	MovementSeverity Severity
	MovementCount   int
	NWSMaxSeverity  string // highest of Minor/Moderate/Severe/Extreme present
}

// DetectContradictions runs the four pairwise checks from SPEC_FULL.md §4.3
// against the latest per-source signals for one airport.
func DetectContradictions(airportNodeID uuid.UUID, s LatestSignals) []model.Contradiction {
	var out []model.Contradiction
	now := time.Now().UTC()

	if s.FAAStatus == "NORMAL" && (s.WeatherCategory == "IFR" || s.WeatherCategory == "LIFR" || s.WeatherSeverity == SeverityHigh) {
		out = append(out, newContradiction(model.ContradictionFAAWeatherMismatch, now,
			"FAA reports normal operations but weather conditions are IFR/LIFR or high severity"))
	}

	if s.FAADelayType == "Ground Stop" && s.MovementCount > 50 {
		out = append(out, newContradiction(model.ContradictionFAAMovementMismatch, now,
			"FAA reports a ground stop but movement count exceeds 50 aircraft"))
	}

	if s.WeatherCategory == "VFR" && s.MovementSeverity == SeverityHigh {
		out = append(out, newContradiction(model.ContradictionWeatherMovementMismatch, now,
			"weather is VFR but movement collapse severity is HIGH"))
	}

	if (s.NWSMaxSeverity == "Severe" || s.NWSMaxSeverity == "Extreme") && s.FAAStatus == "NORMAL" {
		out = append(out, newContradiction(model.ContradictionNWSFAAMismatch, now,
			"NWS reports a severe or extreme alert but FAA reports normal operations"))
	}

	return out
}

func newContradiction(typ model.ContradictionType, detectedAt time.Time, narrative string) model.Contradiction {
	return model.Contradiction{
		ID:               uuid.New(),
		ClaimA:           uuid.New(),
		ClaimB:           uuid.New(),
		DetectedAt:       detectedAt,
		ResolutionStatus: model.ResolutionOpen,
		Type:             typ,
		Narrative:        narrative,
	}
}
