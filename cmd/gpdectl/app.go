/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/marcus-qen/gatewayposture/internal/config"
	"github.com/marcus-qen/gatewayposture/internal/embedding"
	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/ingestion"
	"github.com/marcus-qen/gatewayposture/internal/narrative"
	"github.com/marcus-qen/gatewayposture/internal/orchestrator"
	"github.com/marcus-qen/gatewayposture/internal/playbook"
	"github.com/marcus-qen/gatewayposture/internal/policy"
	"github.com/marcus-qen/gatewayposture/internal/provider"
	"github.com/marcus-qen/gatewayposture/internal/retrieval"
	"github.com/marcus-qen/gatewayposture/internal/telemetry"
)

// app bundles the wired core every subcommand operates against.
type app struct {
	cfg           config.Config
	store         *graph.Store
	engine        *orchestrator.Engine
	retriever     *retrieval.Retriever
	shutdownTrace func(context.Context) error
}

// newApp opens the graph store, builds the narrative-engine provider (a
// fail-closed mock when no real LLM is configured), wires the ingestion
// fanout over the five live source adapters, and assembles an
// orchestrator.Engine the same way the core's simulation runner does, with
// the live registry in place of the fake one, plus a logger and post-run
// retrieval indexing that the simulation runner does not attach.
func newApp(ctx context.Context, cfg config.Config, log logr.Logger) (*app, error) {
	shutdownTrace, err := telemetry.InitTraceProvider(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		return nil, fmt.Errorf("init trace provider: %w", err)
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, log)
	}

	store, err := graph.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var llm provider.Provider
	if cfg.HasLLM() {
		llm, err = provider.NewProvider(provider.ProviderConfig{
			Type:     cfg.LLM.Provider,
			Endpoint: cfg.LLM.BaseURL,
			APIKey:   cfg.LLM.APIKey,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("build llm provider: %w", err)
		}
	} else {
		log.Info("no llm provider configured, narrative engine will fail closed")
		llm = provider.NewMockProvider(nil, nil)
	}
	narr := narrative.New(llm, cfg.LLM.Model)

	fetcher := ingestion.NewHTTPFetcher()
	registry := ingestion.NewStaticRegistry(
		ingestion.NewFAAAdapter(cfg.Sources.FAA, fetcher),
		ingestion.NewMETARAdapter(cfg.Sources.METAR, fetcher),
		ingestion.NewTAFAdapter(cfg.Sources.TAF, fetcher),
		ingestion.NewNWSAdapter(cfg.Sources.NWS, fetcher),
		ingestion.NewADSBAdapter(cfg.Sources.ADSB, fetcher),
	)
	fanout := ingestion.NewFanout(registry).WithLogger(log)

	pol, err := policy.New(nil, narr)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build policy evaluator: %w", err)
	}

	eng := orchestrator.New(store, fanout, narr, playbook.New(store.Pool()), pol).WithLogger(log)

	retriever := retrieval.New(store.Pool())
	var embedder embedding.Provider = embedding.NoopProvider{}
	if cfg.HasEmbedding() {
		embedder = embedding.NewHTTPProvider(cfg.Embedding.Endpoint, cfg.Embedding.APIKey, cfg.Embedding.Model)
	}
	eng = eng.WithRetrieval(retriever, embedder)

	return &app{cfg: cfg, store: store, engine: eng, retriever: retriever, shutdownTrace: shutdownTrace}, nil
}

func (a *app) Close() {
	if a.shutdownTrace != nil {
		_ = a.shutdownTrace(context.Background())
	}
	a.store.Close()
}
