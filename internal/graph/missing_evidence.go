package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// CreateMissingEvidenceRequest persists a MissingEvidenceRequest as a
// first-class row rather than a transient in-memory marker, so a BLOCKING
// gap that outlives one orchestrator run is still visible on the next.
func (s *Store) CreateMissingEvidenceRequest(ctx context.Context, m model.MissingEvidenceRequest) (model.MissingEvidenceRequest, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	paramsJSON, err := json.Marshal(m.RequestParams)
	if err != nil {
		return model.MissingEvidenceRequest{}, fmt.Errorf("marshal request params: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO missing_evidence_request (id, case_id, source_system, request_type, request_params,
			reason, criticality, created_at, resolved_at, resolved_by_evidence_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,NULL)`,
		m.ID, m.CaseID, m.SourceSystem, m.RequestType, paramsJSON, m.Reason, m.Criticality, m.CreatedAt)
	if err != nil {
		return model.MissingEvidenceRequest{}, fmt.Errorf("insert missing_evidence_request: %w", err)
	}
	return m, nil
}

// ResolveMissingEvidenceRequest stamps a request resolved once the gap is
// filled by a later ingestion pass.
func (s *Store) ResolveMissingEvidenceRequest(ctx context.Context, id, evidenceID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE missing_evidence_request SET resolved_at = $1, resolved_by_evidence_id = $2 WHERE id = $3`,
		time.Now().UTC(), evidenceID, id)
	if err != nil {
		return fmt.Errorf("resolve missing_evidence_request: %w", err)
	}
	return nil
}

// UnresolvedBlocking lists unresolved BLOCKING-criticality requests for a
// case, the set the orchestrator must clear before it may leave INVESTIGATE.
func (s *Store) UnresolvedBlocking(ctx context.Context, caseID uuid.UUID) ([]model.MissingEvidenceRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, source_system, request_type, request_params, reason, criticality,
			created_at, resolved_at, resolved_by_evidence_id
		FROM missing_evidence_request
		WHERE case_id = $1 AND criticality = $2 AND resolved_at IS NULL`,
		caseID, model.CriticalityBlocking)
	if err != nil {
		return nil, fmt.Errorf("query unresolved blocking requests: %w", err)
	}
	defer rows.Close()

	var out []model.MissingEvidenceRequest
	for rows.Next() {
		var m model.MissingEvidenceRequest
		var paramsJSON []byte
		if err := rows.Scan(&m.ID, &m.CaseID, &m.SourceSystem, &m.RequestType, &paramsJSON, &m.Reason,
			&m.Criticality, &m.CreatedAt, &m.ResolvedAt, &m.ResolvedByEvidenceID); err != nil {
			return nil, fmt.Errorf("scan missing_evidence_request: %w", err)
		}
		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &m.RequestParams); err != nil {
				return nil, fmt.Errorf("unmarshal request params: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
