package ingestion

import (
	"context"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// FAAStatus is the typed payload extracted from the FAA NAS status source.
type FAAStatus struct {
	Delay            bool
	DelayType        string
	Reason           string
	AvgDelayMinutes  int
	Closure          bool
}

// METARObservation is the typed payload extracted from an airport METAR.
type METARObservation struct {
	FlightCategory  string // VFR | MVFR | IFR | LIFR
	WindSpeedKt     int
	WindGustKt      int
	VisibilityMiles float64
	CeilingFeet     int
	Weather         []string
	ObservedAt      time.Time
}

// TAFForecast is the typed payload extracted from a terminal aerodrome forecast.
type TAFForecast struct {
	FlightCategory  string
	VisibilityMiles float64
	CeilingFeet     int
	ValidFrom       time.Time
	ValidTo         time.Time
}

// NWSAlert is one severe-weather alert extracted from the NWS feed.
type NWSAlert struct {
	Event     string
	Severity  string // Minor | Moderate | Severe | Extreme
	Certainty string
	Urgency   string
	Headline  string
	Expires   time.Time
}

// MovementObservation is the typed payload extracted from ADS-B/OpenSky.
type MovementObservation struct {
	AircraftCount int
	ObservedAt    time.Time
}

// IngestionResult is the uniform envelope for a single source's fetch
// attempt, regardless of outcome.
type IngestionResult struct {
	Source      model.Source
	Success     bool
	Data        any
	Err         error
	RetrievedAt time.Time
	Missing     *model.MissingEvidenceRequest
	Status      model.EvidenceStatus
	RawPayload  []byte
}

// SourceAdapter fetches and decodes one source's payload for one airport.
type SourceAdapter interface {
	Source() model.Source
	Fetch(ctx context.Context, airport string) IngestionResult
}

// Registry resolves a SourceAdapter by Source. It is injected as a capability
// parameter into a Fanout, which the Investigator reaches through its
// RunContext (resolving SPEC_FULL.md §9's
// simulation-registry open question) rather than replaced via monkey-patch.
type Registry interface {
	Adapter(s model.Source) (SourceAdapter, bool)
	Sources() []model.Source
}

// StaticRegistry is the production registry: a fixed map of adapters built
// once at startup.
type StaticRegistry struct {
	adapters map[model.Source]SourceAdapter
}

// NewStaticRegistry builds a registry from the given adapters, keyed by each
// adapter's own Source().
func NewStaticRegistry(adapters ...SourceAdapter) *StaticRegistry {
	m := make(map[model.Source]SourceAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Source()] = a
	}
	return &StaticRegistry{adapters: m}
}

func (r *StaticRegistry) Adapter(s model.Source) (SourceAdapter, bool) {
	a, ok := r.adapters[s]
	return a, ok
}

func (r *StaticRegistry) Sources() []model.Source {
	out := make([]model.Source, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	return out
}

// Criticality maps each source to its SPEC_FULL.md §4.2 criticality when
// missing.
func Criticality(s model.Source) model.Criticality {
	switch s {
	case model.SourceFAA, model.SourceMETAR:
		return model.CriticalityBlocking
	case model.SourceTAF, model.SourceNWS:
		return model.CriticalityDegraded
	default:
		return model.CriticalityInformational
	}
}
