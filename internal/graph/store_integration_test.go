//go:build integration

/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package graph_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/model"
)

// testStore holds a shared connection to a containerized Postgres for every
// test in this file, the same one-container-per-package shape as the
// pack's own storage_test.go.
var testStore *graph.Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "gpde",
			"POSTGRES_PASSWORD": "gpde",
			"POSTGRES_DB":       "gpde",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://gpde:gpde@%s:%s/gpde?sslmode=disable", host, port.Port())

	testStore, err = graph.Open(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open graph store: %v\n", err)
		os.Exit(1)
	}
	if err := testStore.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to apply schema: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testStore.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestCreateNode_IsIdempotentOnTypeAndIdentifier(t *testing.T) {
	ctx := context.Background()

	first, err := testStore.CreateNode(ctx, model.NodeTypeAirport, "KJFK", map[string]any{"tz": "America/New_York"})
	require.NoError(t, err)

	second, err := testStore.CreateNode(ctx, model.NodeTypeAirport, "KJFK", map[string]any{"tz": "ignored"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestPromoteEdgeToFact_RequiresBoundEvidence(t *testing.T) {
	ctx := context.Background()

	airport, err := testStore.CreateNode(ctx, model.NodeTypeAirport, "KLAX", nil)
	require.NoError(t, err)
	flight, err := testStore.CreateNode(ctx, model.NodeTypeFlight, "UA100-"+uuid.NewString(), nil)
	require.NoError(t, err)

	edge, err := testStore.CreateEdge(ctx, model.Edge{
		Src: flight.ID, Dst: airport.ID, Type: model.EdgeTypeFlightDepartsFrom,
		SourceSystem: "FAA", Confidence: 0.9,
	})
	require.NoError(t, err)

	err = testStore.PromoteEdgeToFact(ctx, edge.ID)
	assert.ErrorIs(t, err, model.ErrEvidenceWithoutBinding)

	ev, err := testStore.InsertEvidence(ctx, model.Evidence{
		SourceSystem: "FAA", SourceRef: uuid.NewString(), ContentType: "application/json",
	}, []byte(`{"delay":false}`))
	require.NoError(t, err)

	require.NoError(t, testStore.BindEvidenceToEdge(ctx, edge.ID, ev.ID))
	assert.NoError(t, testStore.PromoteEdgeToFact(ctx, edge.ID))
}

func TestInsertEvidence_DedupesOnSourceRefAndHash(t *testing.T) {
	ctx := context.Background()

	payload := []byte(`{"station":"KJFK","flight_category":"VFR"}`)
	ref := uuid.NewString()

	first, err := testStore.InsertEvidence(ctx, model.Evidence{SourceSystem: "METAR", SourceRef: ref}, payload)
	require.NoError(t, err)

	second, err := testStore.InsertEvidence(ctx, model.Evidence{SourceSystem: "METAR", SourceRef: ref}, payload)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "identical (source_system, source_ref, payload_sha256) must not create a new row")
}

func TestNextTraceSeq_IsContiguousUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	c, err := testStore.CreateCase(ctx, model.CaseTypeAirportDisruption, map[string]string{"airport": "KORD"})
	require.NoError(t, err)

	const n = 20
	seqs := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			ev, err := testStore.InsertTraceEvent(ctx, c.ID, model.TraceStateEnter, "state", "TEST", nil)
			if err != nil {
				errs <- err
				return
			}
			seqs <- ev.Seq
		}()
	}

	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("concurrent trace seq allocation failed: %v", err)
		case seq := <-seqs:
			require.False(t, seen[seq], "duplicate trace seq %d", seq)
			seen[seq] = true
		}
	}
	assert.Len(t, seen, n)
	for s := int64(1); s <= n; s++ {
		assert.True(t, seen[s], "trace seq %d missing", s)
	}
}

func TestTraverse_RespectsCanonicalVisibilityPredicate(t *testing.T) {
	ctx := context.Background()

	airport, err := testStore.CreateNode(ctx, model.NodeTypeAirport, "KSEA-"+uuid.NewString(), nil)
	require.NoError(t, err)
	flight, err := testStore.CreateNode(ctx, model.NodeTypeFlight, "DL"+uuid.NewString(), nil)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	_, err = testStore.CreateEdge(ctx, model.Edge{
		Src: flight.ID, Dst: airport.ID, Type: model.EdgeTypeFlightDepartsFrom,
		SourceSystem: "FAA", Confidence: 1,
		EventTimeStart: &past,
	})
	require.NoError(t, err)

	sub, err := testStore.Traverse(ctx, graph.TraversalParams{
		StartNodeIDs: []uuid.UUID{flight.ID}, AllowedTypes: []model.EdgeType{model.EdgeTypeFlightDepartsFrom},
		EventTime: time.Now(), IngestTime: time.Now(), MaxHops: 1,
	})
	require.NoError(t, err)
	assert.Len(t, sub.Edges, 1)

	// At an event time before the edge started, it must not be visible.
	subBefore, err := testStore.Traverse(ctx, graph.TraversalParams{
		StartNodeIDs: []uuid.UUID{flight.ID}, AllowedTypes: []model.EdgeType{model.EdgeTypeFlightDepartsFrom},
		EventTime: past.Add(-time.Hour), IngestTime: time.Now(), MaxHops: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, subBefore.Edges)
}
