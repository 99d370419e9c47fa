package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

type fakeAdapter struct {
	source model.Source
	result IngestionResult
	delay  time.Duration
}

func (f *fakeAdapter) Source() model.Source { return f.source }

func (f *fakeAdapter) Fetch(ctx context.Context, airport string) IngestionResult {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return IngestionResult{Source: f.source, Success: false, Status: model.EvidenceStatusAPIError, Err: ctx.Err()}
		}
	}
	return f.result
}

func TestFanout_PartialFailureDoesNotBlockOthers(t *testing.T) {
	reg := NewStaticRegistry(
		&fakeAdapter{source: model.SourceFAA, result: IngestionResult{Source: model.SourceFAA, Success: true, Status: model.EvidenceStatusNormalOperations}},
		&fakeAdapter{source: model.SourceMETAR, result: IngestionResult{Source: model.SourceMETAR, Success: false, Status: model.EvidenceStatusAPIError,
			Missing: &model.MissingEvidenceRequest{SourceSystem: "METAR", Criticality: model.CriticalityBlocking}}},
		&fakeAdapter{source: model.SourceTAF, result: IngestionResult{Source: model.SourceTAF, Success: true, Status: model.EvidenceStatusHasData}},
		&fakeAdapter{source: model.SourceNWS, result: IngestionResult{Source: model.SourceNWS, Success: true, Status: model.EvidenceStatusNormalOperations}},
		&fakeAdapter{source: model.SourceADSB, result: IngestionResult{Source: model.SourceADSB, Success: true, Status: model.EvidenceStatusHasData}},
	)

	fo := NewFanout(reg)
	results := fo.Run(context.Background(), "KJFK", true)

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	var metarFailed bool
	for _, r := range results {
		if r.Source == model.SourceMETAR {
			metarFailed = !r.Success
			if r.Missing == nil || r.Missing.Criticality != model.CriticalityBlocking {
				t.Error("expected METAR missing-evidence request with BLOCKING criticality")
			}
		} else if !r.Success {
			t.Errorf("source %s unexpectedly failed", r.Source)
		}
	}
	if !metarFailed {
		t.Error("expected METAR to have failed")
	}
}

func TestEvidenceCache_TTLExpiry(t *testing.T) {
	c := NewEvidenceCache(10 * time.Millisecond)
	c.Put("KJFK", []IngestionResult{{Source: model.SourceFAA, Success: true}})

	if _, ok := c.Get("KJFK"); !ok {
		t.Fatal("expected fresh cache hit")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("KJFK"); ok {
		t.Error("expected cache entry to expire")
	}
}

func TestFanout_BypassCacheAlwaysRefetches(t *testing.T) {
	calls := 0
	reg := NewStaticRegistry(&countingAdapter{source: model.SourceFAA, calls: &calls})
	fo := NewFanout(reg)

	fo.Run(context.Background(), "KLAX", true)
	fo.Run(context.Background(), "KLAX", true)

	if calls != 2 {
		t.Errorf("expected 2 fetches with cache bypassed, got %d", calls)
	}
}

type countingAdapter struct {
	source model.Source
	calls  *int
}

func (c *countingAdapter) Source() model.Source { return c.source }
func (c *countingAdapter) Fetch(ctx context.Context, airport string) IngestionResult {
	*c.calls++
	return IngestionResult{Source: c.source, Success: true, Status: model.EvidenceStatusHasData}
}
