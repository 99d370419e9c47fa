package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// InsertTraceEvent allocates the next sequence number under the case's
// advisory lock and writes the row in a single transaction, guaranteeing
// the contiguous-no-gaps invariant even under concurrent writers of the
// same case.
func (s *Store) InsertTraceEvent(ctx context.Context, caseID uuid.UUID, eventType model.TraceEventType, refType, refID string, meta map[string]any) (model.TraceEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.TraceEvent{}, fmt.Errorf("begin trace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	seq, err := s.NextTraceSeq(ctx, tx, caseID)
	if err != nil {
		return model.TraceEvent{}, err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return model.TraceEvent{}, fmt.Errorf("marshal trace meta: %w", err)
	}

	ev := model.TraceEvent{
		ID:        uuid.New(),
		CaseID:    caseID,
		Seq:       seq,
		EventType: eventType,
		RefType:   refType,
		RefID:     refID,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO trace_event (id, case_id, seq, event_type, ref_type, ref_id, meta, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ev.ID, ev.CaseID, ev.Seq, ev.EventType, ev.RefType, ev.RefID, metaJSON, ev.CreatedAt); err != nil {
		return model.TraceEvent{}, fmt.Errorf("insert trace_event: %w", err)
	}

	return ev, tx.Commit(ctx)
}

// ListTrace returns a case's full trace in sequence order, used by the
// packet builder's workflow_trace and by replay.
func (s *Store) ListTrace(ctx context.Context, caseID uuid.UUID) ([]model.TraceEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, seq, event_type, ref_type, ref_id, meta, created_at
		FROM trace_event WHERE case_id = $1 ORDER BY seq ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list trace: %w", err)
	}
	defer rows.Close()

	var out []model.TraceEvent
	for rows.Next() {
		var ev model.TraceEvent
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.CaseID, &ev.Seq, &ev.EventType, &ev.RefType, &ev.RefID, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trace_event: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal trace meta: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
