package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// CreateContradiction persists a detected contradiction row. The two
// opposing Claim rows it references must already exist; signals.DetectContradictions
// only allocates their ids, the caller is responsible for writing the claims
// themselves via CreateClaim before calling this.
func (s *Store) CreateContradiction(ctx context.Context, c model.Contradiction) (model.Contradiction, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ResolutionStatus == "" {
		c.ResolutionStatus = model.ResolutionOpen
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contradiction (id, claim_a, claim_b, detected_at, resolution_status, type, narrative)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.ClaimA, c.ClaimB, c.DetectedAt, c.ResolutionStatus, c.Type, c.Narrative)
	if err != nil {
		return model.Contradiction{}, fmt.Errorf("insert contradiction: %w", err)
	}
	return c, nil
}

// ResolveContradiction sets a contradiction's resolution_status. Only the
// status is written; which claim prevailed is not recorded.
func (s *Store) ResolveContradiction(ctx context.Context, id uuid.UUID, status model.ResolutionStatus) error {
	if _, err := s.pool.Exec(ctx, `UPDATE contradiction SET resolution_status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("resolve contradiction: %w", err)
	}
	return nil
}

// OpenContradictions lists unresolved contradictions touching either claim
// id in claimIDs, used by the packet builder to list a case's open
// contradictions.
func (s *Store) OpenContradictions(ctx context.Context, claimIDs []uuid.UUID) ([]model.Contradiction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, claim_a, claim_b, detected_at, resolution_status, type, narrative
		FROM contradiction
		WHERE resolution_status = $1 AND (claim_a = ANY($2) OR claim_b = ANY($2))`,
		model.ResolutionOpen, claimIDs)
	if err != nil {
		return nil, fmt.Errorf("query open contradictions: %w", err)
	}
	defer rows.Close()

	var out []model.Contradiction
	for rows.Next() {
		var c model.Contradiction
		if err := rows.Scan(&c.ID, &c.ClaimA, &c.ClaimB, &c.DetectedAt, &c.ResolutionStatus, &c.Type, &c.Narrative); err != nil {
			return nil, fmt.Errorf("scan contradiction: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
