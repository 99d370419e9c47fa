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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/config"
	"github.com/marcus-qen/gatewayposture/internal/model"
	"github.com/marcus-qen/gatewayposture/internal/simulation"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCase(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gpdectl case create|run ...")
	}
	switch args[0] {
	case "create":
		return runCaseCreate(ctx, a, args[1:])
	case "run":
		return runCaseRun(ctx, a, args[1:])
	default:
		return fmt.Errorf("unknown case subcommand: %s", args[0])
	}
}

func runCaseCreate(ctx context.Context, a *app, args []string) error {
	caseType := ""
	airport := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--type":
			if i+1 >= len(args) {
				return fmt.Errorf("--type requires a value")
			}
			caseType = args[i+1]
			i++
		case "--airport":
			if i+1 >= len(args) {
				return fmt.Errorf("--airport requires a value")
			}
			airport = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	if caseType == "" || airport == "" {
		return fmt.Errorf("usage: gpdectl case create --type <airport_disruption|lane_disruption> --airport <code>")
	}

	var ct model.CaseType
	switch caseType {
	case "airport_disruption":
		ct = model.CaseTypeAirportDisruption
	case "lane_disruption":
		ct = model.CaseTypeLaneDisruption
	default:
		return fmt.Errorf("unknown case type: %s", caseType)
	}

	c, err := a.engine.CreateCase(ctx, ct, map[string]string{"airport": airport})
	if err != nil {
		return err
	}
	return printJSON(c)
}

func runCaseRun(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gpdectl case run <case_id> [--bypass-cache]")
	}
	caseID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid case id: %w", err)
	}
	bypassCache := false
	for _, f := range args[1:] {
		if f == "--bypass-cache" {
			bypassCache = true
			continue
		}
		return fmt.Errorf("unknown flag: %s", f)
	}

	result, err := a.engine.RunCase(ctx, caseID, bypassCache)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runAction(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gpdectl action approve|reject ...")
	}
	switch args[0] {
	case "approve":
		return runActionApprove(ctx, a, args[1:])
	case "reject":
		return runActionReject(ctx, a, args[1:])
	default:
		return fmt.Errorf("unknown action subcommand: %s", args[0])
	}
}

func runActionApprove(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gpdectl action approve <action_id> [--actor <name>] [--auto-execute]")
	}
	actionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid action id: %w", err)
	}
	actor := "gpdectl"
	autoExecute := false
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--actor":
			if i+1 >= len(args) {
				return fmt.Errorf("--actor requires a value")
			}
			actor = args[i+1]
			i++
		case "--auto-execute":
			autoExecute = true
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	action, err := a.engine.ApproveAction(ctx, actionID, actor, autoExecute)
	if err != nil {
		return err
	}
	return printJSON(action)
}

func runActionReject(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gpdectl action reject <action_id> --reason <text> [--actor <name>]")
	}
	actionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid action id: %w", err)
	}
	actor := "gpdectl"
	reason := ""
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--actor":
			if i+1 >= len(args) {
				return fmt.Errorf("--actor requires a value")
			}
			actor = args[i+1]
			i++
		case "--reason":
			if i+1 >= len(args) {
				return fmt.Errorf("--reason requires a value")
			}
			reason = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	if reason == "" {
		return fmt.Errorf("--reason is required")
	}

	action, err := a.engine.RejectAction(ctx, actionID, actor, reason)
	if err != nil {
		return err
	}
	return printJSON(action)
}

func runPacket(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 || args[0] != "get" {
		return fmt.Errorf("usage: gpdectl packet get <case_id>")
	}
	caseID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid case id: %w", err)
	}
	pkt, err := a.engine.GetPacket(ctx, caseID)
	if err != nil {
		return err
	}
	return printJSON(pkt)
}

// runSearch drives the hybrid-retrieval index directly, for operators
// looking up similar prior cases outside the orchestrator's own
// index-on-complete path.
func runSearch(ctx context.Context, a *app, args []string) error {
	limit := 10
	var terms []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--limit" {
			if i+1 >= len(args) {
				return fmt.Errorf("--limit requires a value")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return fmt.Errorf("invalid --limit: %w", err)
			}
			limit = n
			i++
			continue
		}
		terms = append(terms, args[i])
	}
	query := strings.Join(terms, " ")
	if query == "" {
		return fmt.Errorf("usage: gpdectl search <query text> [--limit N]")
	}
	if a.engine.Embedder == nil {
		return fmt.Errorf("no embedding backend configured (set embedding.endpoint)")
	}

	vec, err := a.engine.Embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	results, err := a.retriever.Search(ctx, query, vec, nil, limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return printJSON(results)
}

func runSimulate(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] != "run" {
		return fmt.Errorf("usage: gpdectl simulate run [scenario_id]")
	}

	var scenarios []simulation.Scenario
	if len(args) > 1 {
		id := args[1]
		for _, sc := range simulation.Scenarios() {
			if sc.ID == id {
				scenarios = append(scenarios, sc)
			}
		}
		if len(scenarios) == 0 {
			return fmt.Errorf("no such scenario: %s", id)
		}
	} else {
		scenarios = simulation.Scenarios()
	}

	failed := false
	for _, sc := range scenarios {
		if sc.CaseType == "" {
			fmt.Printf("%-32s SKIPPED (%s)\n", sc.ID, sc.Notes)
			continue
		}
		out := simulation.RunScenario(ctx, a.store, sc)
		if out.Err != nil {
			failed = true
			fmt.Printf("%-32s ERROR %v\n", sc.ID, out.Err)
			continue
		}
		if len(out.Mismatches) > 0 {
			failed = true
			fmt.Printf("%-32s MISMATCH %v\n", sc.ID, out.Mismatches)
			continue
		}
		fmt.Printf("%-32s OK\n", sc.ID)
	}
	if failed {
		return fmt.Errorf("one or more scenarios diverged from their expected outcome")
	}
	return nil
}

func runConfig(args []string) error {
	if len(args) != 2 || args[0] != "init" {
		return fmt.Errorf("usage: gpdectl config init <path>")
	}
	path := args[1]
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("wrote default config to %s\n", path)
	return nil
}
