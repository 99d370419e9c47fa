/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNoopProvider_ReturnsErrNoProvider(t *testing.T) {
	var p NoopProvider
	_, err := p.Embed(context.Background(), "KJFK ground stop")
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("err = %v, want ErrNoProvider", err)
	}
}

func TestHTTPProvider_ParsesEmbeddingResponse(t *testing.T) {
	var gotReq embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		vec := make([]float32, Dimensions)
		vec[0] = 0.5
		resp := embeddingResponse{}
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: vec, Index: 0})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "", "test-model")
	vec, err := p.Embed(context.Background(), "KJFK ground stop")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vec[0] != 0.5 {
		t.Errorf("vec[0] = %f, want 0.5", vec[0])
	}
	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if len(gotReq.Input) != 1 || gotReq.Input[0] != "KJFK ground stop" {
		t.Errorf("request input = %v, want [\"KJFK ground stop\"]", gotReq.Input)
	}
}

func TestHTTPProvider_WrongDimensionIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{}
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{1, 2, 3}, Index: 0})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "", "test-model")
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error for wrong dimension count")
	}
}

func TestHTTPProvider_UpstreamErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "key", "test-model")
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
