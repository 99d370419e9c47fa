package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// httpAdapter is shared scaffolding for all five sources, ADS-B included;
// each source differs only in its decode function.
type httpAdapter struct {
	source    model.Source
	fetcher   *HTTPFetcher
	baseURL   string
	decode    func([]byte) (any, error)
}

func (a *httpAdapter) Source() model.Source { return a.source }

func (a *httpAdapter) Fetch(ctx context.Context, airport string) IngestionResult {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s?airport=%s", a.baseURL, airport)
	body, retrievedAt, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return IngestionResult{
			Source: a.source, Success: false, Err: err, RetrievedAt: retrievedAt,
			Status: model.EvidenceStatusAPIError,
			Missing: &model.MissingEvidenceRequest{
				SourceSystem: string(a.source),
				RequestType:  "fetch",
				Reason:       err.Error(),
				Criticality:  Criticality(a.source),
				CreatedAt:    time.Now().UTC(),
			},
		}
	}

	data, err := a.decode(body)
	if err != nil {
		return IngestionResult{
			Source: a.source, Success: false, Err: err, RetrievedAt: retrievedAt,
			Status: model.EvidenceStatusAPIError, RawPayload: body,
			Missing: &model.MissingEvidenceRequest{
				SourceSystem: string(a.source),
				RequestType:  "decode",
				Reason:       err.Error(),
				Criticality:  Criticality(a.source),
				CreatedAt:    time.Now().UTC(),
			},
		}
	}

	status := model.EvidenceStatusHasData
	if isNormal(a.source, data) {
		status = model.EvidenceStatusNormalOperations
	}

	return IngestionResult{
		Source: a.source, Success: true, Data: data, RetrievedAt: retrievedAt,
		Status: status, RawPayload: body,
	}
}

func isNormal(s model.Source, data any) bool {
	switch v := data.(type) {
	case FAAStatus:
		return !v.Delay && !v.Closure
	case []NWSAlert:
		return len(v) == 0
	default:
		return false
	}
}

// NewFAAAdapter builds the FAA NAS status source adapter.
func NewFAAAdapter(baseURL string, fetcher *HTTPFetcher) SourceAdapter {
	return &httpAdapter{source: model.SourceFAA, fetcher: fetcher, baseURL: baseURL, decode: decodeFAA}
}

// NewMETARAdapter builds the METAR observation source adapter.
func NewMETARAdapter(baseURL string, fetcher *HTTPFetcher) SourceAdapter {
	return &httpAdapter{source: model.SourceMETAR, fetcher: fetcher, baseURL: baseURL, decode: decodeMETAR}
}

// NewTAFAdapter builds the TAF forecast source adapter.
func NewTAFAdapter(baseURL string, fetcher *HTTPFetcher) SourceAdapter {
	return &httpAdapter{source: model.SourceTAF, fetcher: fetcher, baseURL: baseURL, decode: decodeTAF}
}

// NewNWSAdapter builds the NWS severe-weather alert source adapter.
func NewNWSAdapter(baseURL string, fetcher *HTTPFetcher) SourceAdapter {
	return &httpAdapter{source: model.SourceNWS, fetcher: fetcher, baseURL: baseURL, decode: decodeNWS}
}

// NewADSBAdapter builds the ADS-B/OpenSky movement source adapter.
func NewADSBAdapter(baseURL string, fetcher *HTTPFetcher) SourceAdapter {
	return &httpAdapter{source: model.SourceADSB, fetcher: fetcher, baseURL: baseURL, decode: decodeADSB}
}

type faaWire struct {
	Delay           bool   `json:"delay"`
	DelayType       string `json:"delay_type"`
	Reason          string `json:"reason"`
	AvgDelayMinutes int    `json:"avg_delay_minutes"`
	Closure         bool   `json:"closure"`
}

func decodeFAA(body []byte) (any, error) {
	var w faaWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode FAA status: %w", err)
	}
	return FAAStatus{Delay: w.Delay, DelayType: w.DelayType, Reason: w.Reason, AvgDelayMinutes: w.AvgDelayMinutes, Closure: w.Closure}, nil
}

type metarWire struct {
	FlightCategory  string   `json:"flight_category"`
	WindSpeedKt     int      `json:"wind_speed_kt"`
	WindGustKt      int      `json:"wind_gust_kt"`
	VisibilityMiles float64  `json:"visibility_miles"`
	CeilingFeet     int      `json:"ceiling_feet"`
	Weather         []string `json:"weather"`
	ObservedAt      time.Time `json:"observed_at"`
}

func decodeMETAR(body []byte) (any, error) {
	var w metarWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode METAR: %w", err)
	}
	return METARObservation{
		FlightCategory: w.FlightCategory, WindSpeedKt: w.WindSpeedKt, WindGustKt: w.WindGustKt,
		VisibilityMiles: w.VisibilityMiles, CeilingFeet: w.CeilingFeet, Weather: w.Weather, ObservedAt: w.ObservedAt,
	}, nil
}

type tafWire struct {
	FlightCategory  string    `json:"flight_category"`
	VisibilityMiles float64   `json:"visibility_miles"`
	CeilingFeet     int       `json:"ceiling_feet"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidTo         time.Time `json:"valid_to"`
}

func decodeTAF(body []byte) (any, error) {
	var w tafWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode TAF: %w", err)
	}
	return TAFForecast{FlightCategory: w.FlightCategory, VisibilityMiles: w.VisibilityMiles, CeilingFeet: w.CeilingFeet, ValidFrom: w.ValidFrom, ValidTo: w.ValidTo}, nil
}

type nwsWire struct {
	Alerts []struct {
		Event     string    `json:"event"`
		Severity  string    `json:"severity"`
		Certainty string    `json:"certainty"`
		Urgency   string    `json:"urgency"`
		Headline  string    `json:"headline"`
		Expires   time.Time `json:"expires"`
	} `json:"alerts"`
}

func decodeNWS(body []byte) (any, error) {
	var w nwsWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode NWS alerts: %w", err)
	}
	out := make([]NWSAlert, 0, len(w.Alerts))
	for _, a := range w.Alerts {
		out = append(out, NWSAlert{Event: a.Event, Severity: a.Severity, Certainty: a.Certainty, Urgency: a.Urgency, Headline: a.Headline, Expires: a.Expires})
	}
	return out, nil
}

type adsbWire struct {
	States [][]any `json:"states"`
}

func decodeADSB(body []byte) (any, error) {
	var w adsbWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode ADS-B states: %w", err)
	}
	return MovementObservation{AircraftCount: len(w.States), ObservedAt: time.Now().UTC()}, nil
}
