/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package embedding generates the 384-dim case vectors internal/retrieval
// indexes and queries. The dimension matches all-MiniLM-L6-v2, the model the
// original Python implementation embedded cases with.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Dimensions is the embedding vector width, fixed by the all-MiniLM-L6-v2
// model the original implementation standardized on for both case rows and
// query text, so cosine distance is meaningful across the whole table.
const Dimensions = 384

// ErrNoProvider signals that no embedding backend is configured. Callers
// skip indexing/search rather than persist a zero vector.
var ErrNoProvider = errors.New("embedding: no provider configured (noop)")

// Provider turns text into a fixed-width vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([Dimensions]float32, error)
}

// NoopProvider is the default when no embedding endpoint is configured.
type NoopProvider struct{}

func (NoopProvider) Embed(context.Context, string) ([Dimensions]float32, error) {
	var zero [Dimensions]float32
	return zero, ErrNoProvider
}

// HTTPProvider calls an OpenAI-compatible /v1/embeddings endpoint (OpenAI
// itself, or a local sentence-transformers server exposing the same
// contract, as original_source's all-MiniLM-L6-v2 deployment did).
type HTTPProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPProvider builds a Provider against an OpenAI-compatible embeddings
// endpoint. apiKey may be empty for local servers that don't require one.
func NewHTTPProvider(endpoint, apiKey, model string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([Dimensions]float32, error) {
	var out [Dimensions]float32

	reqBody, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: p.model})
	if err != nil {
		return out, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return out, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return out, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("embedding: endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return out, fmt.Errorf("embedding: unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return out, fmt.Errorf("embedding: endpoint error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return out, fmt.Errorf("embedding: empty response data")
	}
	vec := parsed.Data[0].Embedding
	if len(vec) != Dimensions {
		return out, fmt.Errorf("embedding: got %d dims, want %d", len(vec), Dimensions)
	}
	copy(out[:], vec)
	return out, nil
}
