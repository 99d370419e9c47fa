/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package telemetry configures OpenTelemetry tracing for the posture
// decision engine.
//
// Spans follow the OTel GenAI semantic conventions for narrative-engine
// calls where applicable:
//   - gen_ai.system — the LLM provider
//   - gen_ai.request.model — the model name
//   - gen_ai.usage.input_tokens / gen_ai.usage.output_tokens — token counts
//
// Custom span attributes use the `gpde.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gatewayposture/orchestrator"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initializes the OTel trace provider with an OTLP gRPC
// exporter. If endpoint is empty, tracing is disabled (a no-op shutdown is
// returned and the global tracer stays the default no-op implementation).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("gateway-posture-decision-engine"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// --- Span helpers ---

// StartCaseSpan creates the parent span for one orchestrator.Run invocation.
func StartCaseSpan(ctx context.Context, caseID, caseType string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "case.run",
		trace.WithAttributes(
			attribute.String("gpde.case_id", caseID),
			attribute.String("gpde.case_type", caseType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndCaseSpan enriches the case span with the terminal state.
func EndCaseSpan(span trace.Span, status, stopCondition string) {
	span.SetAttributes(
		attribute.String("gpde.status", status),
		attribute.String("gpde.stop_condition", stopCondition),
	)
	span.End()
}

// StartStateSpan creates a child span for one orchestrator state-machine
// step (STATE_ENTER through STATE_EXIT).
func StartStateSpan(ctx context.Context, state string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "orchestrator.state",
		trace.WithAttributes(
			attribute.String("gpde.state", state),
		),
	)
}

// StartFetchSpan creates a child span for one ingestion source fetch.
func StartFetchSpan(ctx context.Context, source, airport string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "ingestion.fetch",
		trace.WithAttributes(
			attribute.String("gpde.source", source),
			attribute.String("gpde.airport", airport),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndFetchSpan enriches the fetch span with the outcome.
func EndFetchSpan(span trace.Span, status string, success bool, attempt int) {
	span.SetAttributes(
		attribute.String("gpde.evidence_status", status),
		attribute.Bool("gpde.success", success),
		attribute.Int("gpde.attempt", attempt),
	)
	span.End()
}

// StartNarrativeCallSpan creates a child span for a narrative-engine call,
// following GenAI conventions.
func StartNarrativeCallSpan(ctx context.Context, agent, model, provider string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gen_ai.chat",
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
			attribute.String("gen_ai.request.model", model),
			attribute.String("gpde.agent", agent),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndNarrativeCallSpan enriches the narrative-call span with usage data and
// whether the agent fell back to its fail-closed default.
func EndNarrativeCallSpan(span trace.Span, inputTokens, outputTokens int64, failClosed bool) {
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", inputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", outputTokens),
		attribute.Bool("gpde.fail_closed", failClosed),
	)
	span.End()
}

// StartActionSpan creates a child span for one action-state-machine
// transition.
func StartActionSpan(ctx context.Context, actionType, fromState, toState string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "governance.action_transition",
		trace.WithAttributes(
			attribute.String("gpde.action_type", actionType),
			attribute.String("gpde.from_state", fromState),
			attribute.String("gpde.to_state", toState),
		),
	)
}

// EndActionSpan enriches the action span with the transition outcome.
func EndActionSpan(span trace.Span, success bool, reason string) {
	span.SetAttributes(
		attribute.Bool("gpde.success", success),
	)
	if reason != "" {
		span.SetAttributes(attribute.String("gpde.reason", reason))
	}
	span.End()
}
