/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package config loads gpdectl/gpded configuration in the teacher's own
// three-tier order: defaults, then an optional JSON file, then environment
// variables, each overlay overriding the one before it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds everything a process wiring the core needs: the Postgres
// DSN the graph store opens, the narrative-engine provider settings, and
// the orchestrator's default budgets.
type Config struct {
	// ListenAddr is unused by the core itself; kept for a future API
	// collaborator that embeds this config (SPEC_FULL.md §6 non-goal).
	ListenAddr string `json:"listen_addr"`

	// PostgresDSN is the graph store's connection string.
	PostgresDSN string `json:"postgres_dsn"`

	// BlobDir is the content-addressed evidence blob store root.
	BlobDir string `json:"blob_dir"`

	LLM LLMConfig `json:"llm,omitempty"`

	// Embedding configures the hybrid-retrieval index's vector backend.
	// Left at its zero value, the orchestrator skips post-run indexing.
	Embedding EmbeddingConfig `json:"embedding,omitempty"`

	// IterationBudget and ToolCallBudget are loaded and overlaid like every
	// other field, but the orchestrator does not read them: each run uses its
	// own fixed budgets of 10 iterations and 50 tool calls.
	IterationBudget int `json:"iteration_budget"`
	ToolCallBudget  int `json:"tool_call_budget"`

	// LogLevel controls the zap production logger's level (debug, info,
	// warn, error).
	LogLevel string `json:"log_level"`

	// Sources gives the base URL for each of the five ingestion adapters.
	Sources SourceURLs `json:"sources,omitempty"`

	// MetricsAddr, if non-empty, serves internal/metrics.Registry as
	// Prometheus text exposition on this address (e.g. ":9090").
	MetricsAddr string `json:"metrics_addr,omitempty"`

	// OTLPEndpoint, if non-empty, is the OTLP/gRPC collector internal/telemetry
	// exports orchestrator and ingestion spans to.
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"`
}

// EmbeddingConfig configures the internal/embedding provider backing
// internal/retrieval's hybrid-search index.
type EmbeddingConfig struct {
	Endpoint string `json:"endpoint,omitempty"` // OpenAI-compatible /v1/embeddings base URL
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
}

// HasEmbedding reports whether a real embedding backend is configured.
func (c Config) HasEmbedding() bool {
	return c.Embedding.Endpoint != ""
}

// SourceURLs holds the base URL gpdectl's ingestion registry fetches each
// external disruption-signal source from.
type SourceURLs struct {
	FAA   string `json:"faa,omitempty"`
	METAR string `json:"metar,omitempty"`
	TAF   string `json:"taf,omitempty"`
	NWS   string `json:"nws,omitempty"`
	ADSB  string `json:"adsb,omitempty"`
}

// LLMConfig configures the narrative-engine provider.
type LLMConfig struct {
	Provider string `json:"provider,omitempty"` // anthropic | openai | mock
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Default returns configuration with sensible defaults for local runs.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		PostgresDSN:     "postgres://localhost:5432/gatewayposture?sslmode=disable",
		BlobDir:         "/var/lib/gpde/evidence",
		IterationBudget: 10,
		ToolCallBudget:  50,
		LogLevel:        "info",
		LLM:             LLMConfig{Provider: "mock"},
		Sources: SourceURLs{
			FAA:   "https://nasstatus.faa.gov/api/airport-status-information",
			METAR: "https://aviationweather.gov/api/data/metar",
			TAF:   "https://aviationweather.gov/api/data/taf",
			NWS:   "https://api.weather.gov/alerts/active",
			ADSB:  "https://opensky-network.org/api/states/all",
		},
	}
}

// Load reads configuration from a file when path is non-empty (a missing or
// unreadable file is an error), then overlays environment variables on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("GPDE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("GPDE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("GPDE_BLOB_DIR"); v != "" {
		cfg.BlobDir = v
	}
	if v := os.Getenv("GPDE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("GPDE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("GPDE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GPDE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GPDE_ITERATION_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IterationBudget = n
		}
	}
	if v := os.Getenv("GPDE_TOOL_CALL_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ToolCallBudget = n
		}
	}
	if v := os.Getenv("GPDE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GPDE_SOURCE_FAA_URL"); v != "" {
		cfg.Sources.FAA = v
	}
	if v := os.Getenv("GPDE_SOURCE_METAR_URL"); v != "" {
		cfg.Sources.METAR = v
	}
	if v := os.Getenv("GPDE_SOURCE_TAF_URL"); v != "" {
		cfg.Sources.TAF = v
	}
	if v := os.Getenv("GPDE_SOURCE_NWS_URL"); v != "" {
		cfg.Sources.NWS = v
	}
	if v := os.Getenv("GPDE_SOURCE_ADSB_URL"); v != "" {
		cfg.Sources.ADSB = v
	}
	if v := os.Getenv("GPDE_EMBEDDING_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("GPDE_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("GPDE_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("GPDE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("GPDE_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}

	return cfg, nil
}

// Save writes configuration to a file, for `gpdectl config init`.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

// HasLLM reports whether a real narrative-engine provider is configured,
// as opposed to the fail-closed mock used in tests and simulation.
func (c Config) HasLLM() bool {
	return c.LLM.Provider != "" && c.LLM.Provider != "mock"
}
