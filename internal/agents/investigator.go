package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/metrics"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/signals"
)

// Investigator runs the ingestion fan-out, persists evidence and derived
// edges, links missing-evidence requests, identifies uncertainties by
// source presence rather than edge presence, and detects contradictions.
type Investigator struct{}

func (Investigator) Run(ctx context.Context, rc *RunContext) (AgentOutcome, error) {
	airport := rc.Case.Airport()

	if rc.Belief.InvestigationRounds == 0 && rc.Playbooks != nil {
		if cand, ok, err := rc.Playbooks.Match(ctx, rc.Case.CaseType, rc.Case.Scope, nil); err == nil && ok {
			pb := cand.Playbook
			rc.MatchedPlaybook = &pb
			rc.Belief.MatchedPlaybookID = &pb.ID
		}
	}

	results := rc.Fanout.Run(ctx, airport, rc.BypassCache)

	airportNode, err := rc.Store.CreateNode(ctx, model.NodeTypeAirport, airport, nil)
	if err != nil {
		return AgentOutcome{}, fmt.Errorf("create airport node: %w", err)
	}
	rc.CascadeAirportID = airportNode.ID

	var latest signals.LatestSignals
	bySource := map[model.Source]bool{}

	for _, r := range results {
		bySource[r.Source] = true

		if !r.Success {
			rc.Belief.ErrorEvidenceIDs = append(rc.Belief.ErrorEvidenceIDs, uuid.New())
			if r.Missing != nil {
				m := *r.Missing
				m.CaseID = &rc.Case.ID
				m.SourceSystem = string(r.Source)
				m.Criticality = ingestion.Criticality(r.Source)
				if _, err := rc.Store.CreateMissingEvidenceRequest(ctx, m); err != nil {
					return AgentOutcome{}, fmt.Errorf("persist missing evidence request: %w", err)
				}
				metrics.RecordMissingEvidence(m.SourceSystem, string(m.Criticality))
			}
			rc.Belief.Uncertainties = append(rc.Belief.Uncertainties, model.Uncertainty{
				ID:          fmt.Sprintf("source-missing-%s", r.Source),
				Description: fmt.Sprintf("%s source unavailable", r.Source),
				Source:      r.Source,
				Resolved:    false,
			})
			continue
		}

		ev, err := rc.Store.InsertEvidence(ctx, model.Evidence{
			SourceSystem: string(r.Source),
			SourceRef:    airport,
			RetrievedAt:  r.RetrievedAt,
			Status:       r.Status,
		}, r.RawPayload)
		if err != nil {
			return AgentOutcome{}, fmt.Errorf("persist evidence for %s: %w", r.Source, err)
		}
		rc.Belief.ValidEvidenceIDs = append(rc.Belief.ValidEvidenceIDs, ev.ID)

		// "no disruption" is valid evidence, not absence — the uncertainty
		// this source addresses is always marked resolved on success.
		rc.Belief.Uncertainties = append(rc.Belief.Uncertainties, model.Uncertainty{
			ID:          fmt.Sprintf("source-present-%s", r.Source),
			Description: fmt.Sprintf("%s evidence collected", r.Source),
			Source:      r.Source,
			Resolved:    true,
		})

		derived, ok := deriveEdges(r, airport)
		if !ok {
			continue
		}
		for _, d := range derived {
			edge, err := rc.Store.CreateEdge(ctx, model.Edge{
				Src:            airportNode.ID,
				Dst:            airportNode.ID,
				Type:           d.Type,
				Attrs:          d.Attrs,
				EventTimeStart: &d.EventTimeStart,
				SourceSystem:   d.SourceSystem,
				Confidence:     d.Confidence,
			})
			if err != nil {
				return AgentOutcome{}, fmt.Errorf("create derived edge: %w", err)
			}
			if err := rc.Store.BindEvidenceToEdge(ctx, edge.ID, ev.ID); err != nil {
				return AgentOutcome{}, fmt.Errorf("bind evidence to edge: %w", err)
			}
			if err := rc.Store.PromoteEdgeToFact(ctx, edge.ID); err != nil {
				return AgentOutcome{}, fmt.Errorf("promote edge to fact: %w", err)
			}
			applySignal(&latest, d)
		}
	}

	contradictions := signals.DetectContradictions(airportNode.ID, latest)
	for _, c := range contradictions {
		if _, err := rc.Store.CreateClaim(ctx, model.Claim{ID: c.ClaimA, Text: string(c.Type) + ": side A", SubjectNodeID: airportNode.ID, Confidence: 0.5}); err != nil {
			return AgentOutcome{}, fmt.Errorf("persist contradiction claim A: %w", err)
		}
		if _, err := rc.Store.CreateClaim(ctx, model.Claim{ID: c.ClaimB, Text: string(c.Type) + ": side B", SubjectNodeID: airportNode.ID, Confidence: 0.5}); err != nil {
			return AgentOutcome{}, fmt.Errorf("persist contradiction claim B: %w", err)
		}
		if _, err := rc.Store.CreateContradiction(ctx, c); err != nil {
			return AgentOutcome{}, fmt.Errorf("persist contradiction: %w", err)
		}
		rc.Belief.ContradictionRefs = append(rc.Belief.ContradictionRefs, c.ID)
		metrics.RecordContradiction(string(c.Type))
	}

	return AgentOutcome{
		Note: fmt.Sprintf("investigated %s: %d sources, %d contradictions", airport, len(results), len(contradictions)),
		Meta: map[string]any{
			"sources_fetched": len(results),
			"contradictions":  len(contradictions),
			"round":           rc.Belief.InvestigationRounds,
		},
	}, nil
}

func deriveEdges(r ingestion.IngestionResult, airport string) ([]signals.DerivedEdge, bool) {
	switch r.Source {
	case model.SourceFAA:
		if e, ok := signals.DeriveFAA(r, r.RetrievedAt); ok {
			return []signals.DerivedEdge{e}, true
		}
	case model.SourceMETAR:
		if e, ok := signals.DeriveWeather(r); ok {
			return []signals.DerivedEdge{e}, true
		}
	case model.SourceNWS:
		return signals.DeriveNWSAlerts(r), true
	case model.SourceADSB:
		if e, ok := signals.DeriveMovement(r, airport, nil); ok {
			return []signals.DerivedEdge{e}, true
		}
	}
	return nil, false
}

func applySignal(latest *signals.LatestSignals, d signals.DerivedEdge) {
	switch d.Type {
	case model.EdgeTypeAirportHasFAADisruption:
		if status, ok := d.Attrs["status"].(string); ok {
			latest.FAAStatus = status
		}
		if dt, ok := d.Attrs["delay_type"].(string); ok {
			latest.FAADelayType = dt
		}
	case model.EdgeTypeAirportWeatherRisk:
		if sev, ok := d.Attrs["severity"].(string); ok {
			latest.WeatherSeverity = signals.Severity(sev)
		}
		if cat, ok := d.Attrs["flight_category"].(string); ok {
			latest.WeatherCategory = cat
		}
	case model.EdgeTypeAirportHasNWSAlert:
		if sev, ok := d.Attrs["severity"].(string); ok {
			if rank(sev) > rank(latest.NWSMaxSeverity) {
				latest.NWSMaxSeverity = sev
			}
		}
	case model.EdgeTypeAirportMovementCollapse:
		if sev, ok := d.Attrs["severity"].(string); ok {
			latest.MovementSeverity = signals.Severity(sev)
		}
		if count, ok := d.Attrs["aircraft_count"].(int); ok {
			latest.MovementCount = count
		}
	}
}

func rank(severity string) int {
	switch severity {
	case "Minor":
		return 1
	case "Moderate":
		return 2
	case "Severe":
		return 3
	case "Extreme":
		return 4
	default:
		return 0
	}
}
