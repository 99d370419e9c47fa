package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// CreateCase inserts a new case in OPEN status. Cases are created externally
// (operator or scheduler) and advanced only by the orchestrator that owns them.
func (s *Store) CreateCase(ctx context.Context, caseType model.CaseType, scope map[string]string) (model.Case, error) {
	c := model.Case{
		ID:        uuid.New(),
		CaseType:  caseType,
		Scope:     scope,
		Status:    model.CaseStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	scopeJSON, err := json.Marshal(scope)
	if err != nil {
		return model.Case{}, fmt.Errorf("marshal case scope: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO "case" (id, case_type, scope, status, created_at) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.CaseType, scopeJSON, c.Status, c.CreatedAt)
	if err != nil {
		return model.Case{}, fmt.Errorf("insert case: %w", err)
	}
	return c, nil
}

// GetCase fetches a single case by id.
func (s *Store) GetCase(ctx context.Context, id uuid.UUID) (model.Case, error) {
	var c model.Case
	var scopeJSON []byte
	row := s.pool.QueryRow(ctx, `SELECT id, case_type, scope, status, created_at FROM "case" WHERE id = $1`, id)
	if err := row.Scan(&c.ID, &c.CaseType, &scopeJSON, &c.Status, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return model.Case{}, fmt.Errorf("get case %s: %w", id, model.ErrCaseNotFound)
		}
		return model.Case{}, fmt.Errorf("get case: %w", err)
	}
	if len(scopeJSON) > 0 {
		if err := json.Unmarshal(scopeJSON, &c.Scope); err != nil {
			return model.Case{}, fmt.Errorf("unmarshal case scope: %w", err)
		}
	}
	return c, nil
}

// UpdateCaseStatus transitions a case's status. The orchestrator is the only
// caller; it never writes status values outside model's CaseStatus vocabulary.
func (s *Store) UpdateCaseStatus(ctx context.Context, id uuid.UUID, status model.CaseStatus) error {
	if _, err := s.pool.Exec(ctx, `UPDATE "case" SET status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	return nil
}

// ListCases returns every case of the given status, newest first.
func (s *Store) ListCases(ctx context.Context, status model.CaseStatus) ([]model.Case, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_type, scope, status, created_at FROM "case" WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []model.Case
	for rows.Next() {
		var c model.Case
		var scopeJSON []byte
		if err := rows.Scan(&c.ID, &c.CaseType, &scopeJSON, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		if len(scopeJSON) > 0 {
			if err := json.Unmarshal(scopeJSON, &c.Scope); err != nil {
				return nil, fmt.Errorf("unmarshal case scope: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
