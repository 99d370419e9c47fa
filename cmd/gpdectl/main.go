/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Command gpdectl is the inbound control surface for the posture decision
// engine: create and run cases, approve or reject proposed actions, fetch a
// completed case's decision packet, and replay the named simulation
// scenarios. It hand-rolls os.Args subcommand parsing rather than reaching
// for a flag-parsing library, the same shape as the teacher's own CLI
// binaries.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/marcus-qen/gatewayposture/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var errShowUsage = errors.New("show usage")

func main() {
	cfgPath, command, args, err := parseGlobalArgs(os.Args[1:])
	if errors.Is(err, errShowUsage) {
		printUsage()
		if len(os.Args) == 1 {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if command == "version" {
		fmt.Printf("gpdectl %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	if command == "" || command == "help" {
		printUsage()
		if command == "" {
			os.Exit(1)
		}
		return
	}

	if command == "config" {
		if err := runConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}

	zapLevel := zap.NewAtomicLevel()
	if err := zapLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zapLevel
	zapLogger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: build logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapr.NewLogger(zapLogger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		zapLogger.Fatal("failed to wire engine", zap.Error(err))
	}
	defer app.Close()

	switch command {
	case "case":
		err = runCase(ctx, app, args)
	case "action":
		err = runAction(ctx, app, args)
	case "packet":
		err = runPacket(ctx, app, args)
	case "simulate":
		err = runSimulate(ctx, app, args)
	case "search":
		err = runSearch(ctx, app, args)
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseGlobalArgs(args []string) (cfgPath string, command string, rest []string, err error) {
	idx := 0
	for idx < len(args) {
		arg := args[idx]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		switch arg {
		case "--help", "-h":
			return "", "", nil, errShowUsage
		case "--config", "-c":
			if idx+1 >= len(args) {
				return "", "", nil, fmt.Errorf("--config requires a value")
			}
			cfgPath = args[idx+1]
			idx += 2
		default:
			return "", "", nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	if idx >= len(args) {
		return cfgPath, "", nil, errShowUsage
	}
	return cfgPath, args[idx], args[idx+1:], nil
}

func printUsage() {
	fmt.Print(`Usage: gpdectl [--config <path>] <command>

Commands:
  case create --type <airport_disruption|lane_disruption> --airport <code>
  case run <case_id> [--bypass-cache]
  action approve <action_id> [--actor <name>] [--auto-execute]
  action reject <action_id> --reason <text> [--actor <name>]
  packet get <case_id>
  simulate run [scenario_id]
  search <query text> [--limit N]
  config init <path>
  version                   Print build metadata
`)
}
