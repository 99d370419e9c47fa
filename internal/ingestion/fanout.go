package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/marcus-qen/gatewayposture/internal/metrics"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/telemetry"
)

// Fanout fetches all sources in a Registry concurrently for one airport. A
// slow or failed source never blocks the others: each source gets its own
// derived context with a 30s ceiling, and failures are collected rather than
// propagated to sibling fetches.
type Fanout struct {
	Registry Registry
	Cache    *EvidenceCache
	Log      logr.Logger
}

// NewFanout builds a Fanout over the given registry with a fresh 5-minute
// evidence cache.
func NewFanout(reg Registry) *Fanout {
	return &Fanout{Registry: reg, Cache: NewEvidenceCache(5 * time.Minute), Log: logr.Discard()}
}

// WithLogger attaches a logger and returns the same Fanout for chaining.
func (f *Fanout) WithLogger(log logr.Logger) *Fanout {
	f.Log = log
	return f
}

// Run fetches every source the registry knows about for airport, honoring
// the evidence cache unless bypassCache is set (simulation runs bypass it).
func (f *Fanout) Run(ctx context.Context, airport string, bypassCache bool) []IngestionResult {
	if !bypassCache {
		if cached, ok := f.Cache.Get(airport); ok {
			f.Log.V(1).Info("evidence cache hit", "airport", airport)
			return cached
		}
	}

	sources := f.Registry.Sources()
	results := make([]IngestionResult, len(sources))

	g, gctx := errgroup.WithContext(context.Background())
	_ = gctx // each source gets its own independent sub-context, not gctx.

	var mu sync.Mutex
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			fetchCtx, span := telemetry.StartFetchSpan(ctx, string(src), airport)
			start := time.Now()

			adapter, ok := f.Registry.Adapter(src)
			if !ok {
				res := IngestionResult{Source: src, Success: false, Status: model.EvidenceStatusNotFetched}
				telemetry.EndFetchSpan(span, string(res.Status), false, 0)
				metrics.RecordIngestionFetch(string(src), string(res.Status), time.Since(start))
				mu.Lock()
				results[i] = res
				mu.Unlock()
				return nil
			}
			sourceCtx, cancel := context.WithTimeout(fetchCtx, 30*time.Second)
			defer cancel()
			res := adapter.Fetch(sourceCtx, airport)
			telemetry.EndFetchSpan(span, string(res.Status), res.Success, 0)
			metrics.RecordIngestionFetch(string(src), string(res.Status), time.Since(start))
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // adapters never return error; fetch failures are encoded in IngestionResult.

	for _, r := range results {
		if !r.Success {
			f.Log.Info("source fetch failed", "airport", airport, "source", r.Source, "status", r.Status)
		}
	}

	if !bypassCache && allPresent(results) {
		f.Cache.Put(airport, results)
	}

	return results
}

func allPresent(results []IngestionResult) bool {
	if len(results) != len(model.AllSources) {
		return false
	}
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
