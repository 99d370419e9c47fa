package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// CreateClaim inserts a new claim in DRAFT status, mirroring CreateEdge.
func (s *Store) CreateClaim(ctx context.Context, c model.Claim) (model.Claim, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Status = model.ClaimStatusDraft
	if c.IngestedAt.IsZero() {
		c.IngestedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO claim (id, text, subject_node_id, confidence, status, supersedes_claim_id,
			event_time_start, event_time_end, ingested_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Text, c.SubjectNodeID, c.Confidence, c.Status, c.SupersedesClaimID,
		c.EventTimeStart, c.EventTimeEnd, c.IngestedAt)
	if err != nil {
		return model.Claim{}, fmt.Errorf("insert claim: %w", err)
	}
	return c, nil
}

// RetractClaim moves a claim to RETRACTED, used when a contradiction
// resolves in favor of the opposing claim.
func (s *Store) RetractClaim(ctx context.Context, claimID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `UPDATE claim SET status = $1 WHERE id = $2`, model.ClaimStatusRetracted, claimID); err != nil {
		return fmt.Errorf("retract claim: %w", err)
	}
	return nil
}

// GetClaim fetches a single claim by id.
func (s *Store) GetClaim(ctx context.Context, claimID uuid.UUID) (model.Claim, error) {
	var c model.Claim
	row := s.pool.QueryRow(ctx, `
		SELECT id, text, subject_node_id, confidence, status, supersedes_claim_id,
			event_time_start, event_time_end, ingested_at
		FROM claim WHERE id = $1`, claimID)
	if err := row.Scan(&c.ID, &c.Text, &c.SubjectNodeID, &c.Confidence, &c.Status, &c.SupersedesClaimID,
		&c.EventTimeStart, &c.EventTimeEnd, &c.IngestedAt); err != nil {
		return model.Claim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}
