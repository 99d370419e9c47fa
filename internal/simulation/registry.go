/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package simulation drives the orchestrator end to end with canned
// ingestion results instead of live source fetches. It supplies the
// deterministic harness `original_source/simulation/*` covered under HTTP
// surface in the distilled spec but which the core still needs in-process
// to exercise the named disruption scenarios. It does not seed the
// operational subgraph cascade-impact traversal reads; the caller seeds it
// into the store it passes to RunScenario.
package simulation

import (
	"context"

	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/model"
)

// fakeAdapter replays one fixed IngestionResult regardless of the airport
// asked for, the same shape internal/ingestion's own fanout_test.go uses for
// fan-out unit tests.
type fakeAdapter struct {
	source model.Source
	result ingestion.IngestionResult
}

func (f fakeAdapter) Source() model.Source { return f.source }

func (f fakeAdapter) Fetch(_ context.Context, _ string) ingestion.IngestionResult {
	return f.result
}

// fakeRegistry is the simulation-time ingestion.Registry: a fixed map of
// canned results, injected into a Fanout the same way a StaticRegistry of
// real adapters would be — the capability-injection shape resolves §9's
// simulation-registry open question without monkey-patching anything.
type fakeRegistry struct {
	adapters map[model.Source]ingestion.SourceAdapter
	sources  []model.Source
}

// newFakeRegistry builds a registry from one canned IngestionResult per
// source named in results. A source with no entry is simply absent from
// Sources(), reproducing a source the simulation never wired rather than a
// source that failed to fetch.
func newFakeRegistry(results map[model.Source]ingestion.IngestionResult) *fakeRegistry {
	r := &fakeRegistry{adapters: make(map[model.Source]ingestion.SourceAdapter, len(results))}
	for src, res := range results {
		r.adapters[src] = fakeAdapter{source: src, result: res}
		r.sources = append(r.sources, src)
	}
	return r
}

func (r *fakeRegistry) Adapter(s model.Source) (ingestion.SourceAdapter, bool) {
	a, ok := r.adapters[s]
	return a, ok
}

func (r *fakeRegistry) Sources() []model.Source {
	return r.sources
}

var _ ingestion.Registry = (*fakeRegistry)(nil)
