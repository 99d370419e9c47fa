/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package ingestion fans out to the five disruption-signal sources
// concurrently, retries transient failures, and produces typed
// IngestionResults plus MissingEvidenceRequests for the graph store to
// persist.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20 // 1MiB cap on any single source payload.

// defaultSourceRPS bounds how hard a single source adapter may hammer its
// upstream endpoint across retries and repeated case ingestion, independent
// of the per-attempt backoff delay.
const defaultSourceRPS = 5

// HTTPFetcher performs a retried GET with exponential backoff, matching the
// spec's base 1s / cap 10s / max 3 attempts policy. Retries apply only to
// timeouts and 5xx/408/429 responses; other 4xx responses fail immediately.
type HTTPFetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewHTTPFetcher builds a fetcher with a sane default client timeout and a
// conservative per-source request ceiling; the per-call context ceiling is
// still enforced by the caller's context.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(defaultSourceRPS), defaultSourceRPS),
	}
}

// FetchError distinguishes timeout from non-2xx status for callers that need
// to classify the failure (e.g. for MissingEvidenceRequest.reason).
type FetchError struct {
	Timeout    bool
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("fetch timeout: %v", e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch status %d", e.StatusCode)
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

func retryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500
}

// Fetch performs the retried GET and returns the response body and a
// best-effort request timestamp. ctx should already carry the per-source
// timeout ceiling.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, time.Time, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.MaxInterval = 10 * time.Second
	policy.Multiplier = 2.0
	policy.MaxElapsedTime = 0 // bounded by MaxRetries below, not wall-clock.
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx) // base attempt + 2 retries = 3 total.

	var body []byte
	retrievedAt := time.Now().UTC()

	op := func() error {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return backoff.Permanent(&FetchError{Timeout: true, Err: err})
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(&FetchError{Timeout: true, Err: err})
			}
			return &FetchError{Timeout: true, Err: err}
		}
		defer resp.Body.Close()

		retrievedAt = time.Now().UTC()
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = b
			return nil
		}

		fe := &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("status %d", resp.StatusCode)}
		if retryableStatus(resp.StatusCode) {
			return fe
		}
		return backoff.Permanent(fe)
	}

	if err := backoff.Retry(op, bo); err != nil {
		return nil, retrievedAt, err
	}
	return body, retrievedAt, nil
}
