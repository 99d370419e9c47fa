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

// CreateAction inserts a new action in PROPOSED state. internal/governance
// owns all subsequent state transitions; Store only persists the rows.
func (s *Store) CreateAction(ctx context.Context, a model.Action) (model.Action, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.State = model.ActionProposed
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	argsJSON, err := json.Marshal(a.Args)
	if err != nil {
		return model.Action{}, fmt.Errorf("marshal action args: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO action (id, case_id, type, args, state, risk_level, requires_approval,
			created_at, approved_by, approved_at, playbook_guided)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'',NULL,$9)`,
		a.ID, a.CaseID, a.Type, argsJSON, a.State, a.RiskLevel, a.RequiresApproval,
		a.CreatedAt, a.PlaybookGuided)
	if err != nil {
		return model.Action{}, fmt.Errorf("insert action: %w", err)
	}
	return a, nil
}

// GetAction fetches a single action by id.
func (s *Store) GetAction(ctx context.Context, id uuid.UUID) (model.Action, error) {
	var a model.Action
	var argsJSON []byte
	row := s.pool.QueryRow(ctx, `
		SELECT id, case_id, type, args, state, risk_level, requires_approval,
			created_at, approved_by, approved_at, playbook_guided
		FROM action WHERE id = $1`, id)
	if err := row.Scan(&a.ID, &a.CaseID, &a.Type, &argsJSON, &a.State, &a.RiskLevel, &a.RequiresApproval,
		&a.CreatedAt, &a.ApprovedBy, &a.ApprovedAt, &a.PlaybookGuided); err != nil {
		if err == pgx.ErrNoRows {
			return model.Action{}, fmt.Errorf("get action %s: %w", id, model.ErrInvalidTransition)
		}
		return model.Action{}, fmt.Errorf("get action: %w", err)
	}
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &a.Args); err != nil {
			return model.Action{}, fmt.Errorf("unmarshal action args: %w", err)
		}
	}
	return a, nil
}

// ListActionsByCase returns every action for a case, oldest first.
func (s *Store) ListActionsByCase(ctx context.Context, caseID uuid.UUID) ([]model.Action, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, type, args, state, risk_level, requires_approval,
			created_at, approved_by, approved_at, playbook_guided
		FROM action WHERE case_id = $1 ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []model.Action
	for rows.Next() {
		var a model.Action
		var argsJSON []byte
		if err := rows.Scan(&a.ID, &a.CaseID, &a.Type, &argsJSON, &a.State, &a.RiskLevel, &a.RequiresApproval,
			&a.CreatedAt, &a.ApprovedBy, &a.ApprovedAt, &a.PlaybookGuided); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if len(argsJSON) > 0 {
			if err := json.Unmarshal(argsJSON, &a.Args); err != nil {
				return nil, fmt.Errorf("unmarshal action args: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateActionState persists a state transition governance has already
// validated. ApprovedBy/ApprovedAt are written from a on every call, so an
// approved action keeps them on its later transitions.
func (s *Store) UpdateActionState(ctx context.Context, a model.Action) error {
	argsJSON, err := json.Marshal(a.Args)
	if err != nil {
		return fmt.Errorf("marshal action args: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE action SET state = $1, args = $2, approved_by = $3, approved_at = $4
		WHERE id = $5`,
		a.State, argsJSON, a.ApprovedBy, a.ApprovedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update action state: %w", err)
	}
	return nil
}

// CreateOutcome records the result of an executed or rolled-back action.
func (s *Store) CreateOutcome(ctx context.Context, o model.Outcome) (model.Outcome, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OccurredAt.IsZero() {
		o.OccurredAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outcome (id, action_id, success, detail, occurred_at, rolled_back)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.ActionID, o.Success, o.Detail, o.OccurredAt, o.RolledBack)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("insert outcome: %w", err)
	}
	return o, nil
}

// OutcomeForAction returns the most recent outcome recorded for an action,
// used by the packet builder to read the SET_POSTURE outcome timestamp.
func (s *Store) OutcomeForAction(ctx context.Context, actionID uuid.UUID) (model.Outcome, error) {
	var o model.Outcome
	row := s.pool.QueryRow(ctx, `
		SELECT id, action_id, success, detail, occurred_at, rolled_back
		FROM outcome WHERE action_id = $1 ORDER BY occurred_at DESC LIMIT 1`, actionID)
	if err := row.Scan(&o.ID, &o.ActionID, &o.Success, &o.Detail, &o.OccurredAt, &o.RolledBack); err != nil {
		if err == pgx.ErrNoRows {
			return model.Outcome{}, fmt.Errorf("outcome for action %s: %w", actionID, model.ErrInvalidTransition)
		}
		return model.Outcome{}, fmt.Errorf("get outcome: %w", err)
	}
	return o, nil
}
