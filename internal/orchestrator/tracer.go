package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/graph"
	"github.com/marcus-qen/gatewayposture/internal/model"
)

// Tracer is the orchestrator's implementation of governance.TraceWriter: it
// appends to the same case trace_event sequence the orchestrator's own
// STATE_ENTER/STATE_EXIT events use, so action transitions and state
// transitions interleave in one replayable ledger.
type Tracer struct {
	store *graph.Store
}

func (t *Tracer) Emit(ctx context.Context, caseID uuid.UUID, eventType model.TraceEventType, refType, refID string, meta map[string]any) error {
	_, err := t.store.InsertTraceEvent(ctx, caseID, eventType, refType, refID, meta)
	return err
}
