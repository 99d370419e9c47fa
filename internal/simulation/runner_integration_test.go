//go:build integration

/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package simulation_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/simulation"
)

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
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}
	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
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

// TestScenarios_MatchExpectedOutcome drives each of the six named end-to-end
// scenarios (SPEC_FULL.md §8) through a real orchestrator.Engine with a fake
// ingestion registry and canned narrative-engine responses, and checks the
// actual posture/status/risk-level against what each Scenario expects.
func TestScenarios_MatchExpectedOutcome(t *testing.T) {
	for _, sc := range simulation.Scenarios() {
		sc := sc
		if sc.CaseType == "" {
			// hybrid_retrieval_determinism isn't an orchestrator case (it has
			// no CaseType), so it is not run here.
			continue
		}
		t.Run(sc.ID, func(t *testing.T) {
			out := simulation.RunScenario(context.Background(), testStore, sc)
			require.NoError(t, out.Err, sc.Notes)
			assert.Empty(t, out.Mismatches, "scenario %s diverged: %v", sc.ID, out.Mismatches)
		})
	}
}

func TestRunScenario_MissingRequiredSourceBlocksTheCase(t *testing.T) {
	var missing simulation.Scenario
	for _, sc := range simulation.Scenarios() {
		if sc.ID == "missing_required_source" {
			missing = sc
		}
	}
	require.NotEmpty(t, missing.ID, "fixture scenario missing_required_source must exist")

	out := simulation.RunScenario(context.Background(), testStore, missing)
	require.NoError(t, out.Err)
	assert.Equal(t, model.CaseStatusBlocked, out.Result.Case.Status)
}
