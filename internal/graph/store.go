/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package graph implements the bi-temporal evidence graph store: nodes,
// versions, edges, claims, evidence binding, the canonical visibility
// predicate, and bounded multi-hop traversal. Store is the exclusive writer
// of node, node_version, edge, claim, and their join tables.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// advisoryLockKey folds a case UUID into the int64 key space pg_advisory_xact_lock
// expects.
func advisoryLockKey(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[:8]))
}

// Store persists the bi-temporal evidence graph over Postgres via pgx. It is
// the only component permitted to write node, node_version, edge, claim, and
// their join tables.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-configured pgxpool.Pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to Postgres using dsn and wraps the resulting pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// CreateNode returns the existing node for (type, identifier) if present,
// otherwise inserts a new node and optional initial version atomically.
func (s *Store) CreateNode(ctx context.Context, typ model.NodeType, identifier string, attrs map[string]any) (model.Node, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Node{}, fmt.Errorf("begin createNode tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var n model.Node
	row := tx.QueryRow(ctx, `SELECT id, type, identifier, created_at FROM node WHERE type = $1 AND identifier = $2`, typ, identifier)
	if err := row.Scan(&n.ID, &n.Type, &n.Identifier, &n.CreatedAt); err == nil {
		return n, tx.Commit(ctx)
	} else if err != pgx.ErrNoRows {
		return model.Node{}, fmt.Errorf("lookup node: %w", err)
	}

	n = model.Node{ID: uuid.New(), Type: typ, Identifier: identifier, CreatedAt: time.Now().UTC()}
	if _, err := tx.Exec(ctx, `INSERT INTO node (id, type, identifier, created_at) VALUES ($1,$2,$3,$4)`,
		n.ID, n.Type, n.Identifier, n.CreatedAt); err != nil {
		return model.Node{}, fmt.Errorf("insert node: %w", err)
	}

	if attrs != nil {
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return model.Node{}, fmt.Errorf("marshal attrs: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO node_version (id, node_id, attrs, valid_from, valid_to, supersedes_id) VALUES ($1,$2,$3,$4,NULL,NULL)`,
			uuid.New(), n.ID, attrsJSON, n.CreatedAt); err != nil {
			return model.Node{}, fmt.Errorf("insert initial node_version: %w", err)
		}
	}

	return n, tx.Commit(ctx)
}

// CreateNodeVersion closes out the prior current version (if any) and
// inserts the new one in a single transaction.
func (s *Store) CreateNodeVersion(ctx context.Context, nodeID uuid.UUID, attrs map[string]any, supersedes *uuid.UUID) (model.NodeVersion, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.NodeVersion{}, fmt.Errorf("begin createNodeVersion tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if supersedes != nil {
		if _, err := tx.Exec(ctx, `UPDATE node_version SET valid_to = $1 WHERE id = $2`, now, *supersedes); err != nil {
			return model.NodeVersion{}, fmt.Errorf("close prior node_version: %w", err)
		}
	}

	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return model.NodeVersion{}, fmt.Errorf("marshal attrs: %w", err)
	}

	nv := model.NodeVersion{ID: uuid.New(), NodeID: nodeID, Attrs: attrs, ValidFrom: now, SupersedesID: supersedes}
	if _, err := tx.Exec(ctx,
		`INSERT INTO node_version (id, node_id, attrs, valid_from, valid_to, supersedes_id) VALUES ($1,$2,$3,$4,NULL,$5)`,
		nv.ID, nv.NodeID, attrsJSON, nv.ValidFrom, nv.SupersedesID); err != nil {
		return model.NodeVersion{}, fmt.Errorf("insert node_version: %w", err)
	}

	return nv, tx.Commit(ctx)
}

// CreateEdge inserts a new edge in DRAFT status.
func (s *Store) CreateEdge(ctx context.Context, e model.Edge) (model.Edge, error) {
	e.ID = uuid.New()
	e.Status = model.EdgeStatusDraft
	if e.IngestedAt.IsZero() {
		e.IngestedAt = time.Now().UTC()
	}
	attrsJSON, err := json.Marshal(e.Attrs)
	if err != nil {
		return model.Edge{}, fmt.Errorf("marshal edge attrs: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO edge (id, src, dst, type, attrs, status, supersedes_edge_id,
			event_time_start, event_time_end, ingested_at, valid_from, valid_to,
			source_system, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		e.ID, e.Src, e.Dst, e.Type, attrsJSON, e.Status, e.SupersedesEdgeID,
		e.EventTimeStart, e.EventTimeEnd, e.IngestedAt, e.ValidFrom, e.ValidTo,
		e.SourceSystem, e.Confidence)
	if err != nil {
		return model.Edge{}, fmt.Errorf("insert edge: %w", err)
	}
	return e, nil
}

// BindEvidenceToEdge links an evidence row to an edge via edge_evidence.
func (s *Store) BindEvidenceToEdge(ctx context.Context, edgeID, evidenceID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO edge_evidence (edge_id, evidence_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		edgeID, evidenceID)
	if err != nil {
		return fmt.Errorf("bind evidence to edge: %w", err)
	}
	return nil
}

// BindEvidenceToClaim links an evidence row to a claim via claim_evidence.
func (s *Store) BindEvidenceToClaim(ctx context.Context, claimID, evidenceID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claim_evidence (claim_id, evidence_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		claimID, evidenceID)
	if err != nil {
		return fmt.Errorf("bind evidence to claim: %w", err)
	}
	return nil
}

// PromoteEdgeToFact rejects the promotion unless at least one edge_evidence
// row binds the edge, per the evidence-binding invariant.
func (s *Store) PromoteEdgeToFact(ctx context.Context, edgeID uuid.UUID) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM edge_evidence WHERE edge_id = $1`, edgeID).Scan(&count); err != nil {
		return fmt.Errorf("count edge_evidence: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("edge %s: %w", edgeID, model.ErrEvidenceWithoutBinding)
	}
	if _, err := s.pool.Exec(ctx, `UPDATE edge SET status = $1 WHERE id = $2`, model.EdgeStatusFact, edgeID); err != nil {
		return fmt.Errorf("promote edge: %w", err)
	}
	return nil
}

// PromoteClaimToFact mirrors PromoteEdgeToFact for claims.
func (s *Store) PromoteClaimToFact(ctx context.Context, claimID uuid.UUID) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM claim_evidence WHERE claim_id = $1`, claimID).Scan(&count); err != nil {
		return fmt.Errorf("count claim_evidence: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("claim %s: %w", claimID, model.ErrEvidenceWithoutBinding)
	}
	if _, err := s.pool.Exec(ctx, `UPDATE claim SET status = $1 WHERE id = $2`, model.ClaimStatusFact, claimID); err != nil {
		return fmt.Errorf("promote claim: %w", err)
	}
	return nil
}

// InsertEvidence is idempotent on (source_system, source_ref, payload_sha256).
// It returns the existing row when the content hash already exists.
func (s *Store) InsertEvidence(ctx context.Context, ev model.Evidence, payload []byte) (model.Evidence, error) {
	sum := sha256.Sum256(payload)
	ev.PayloadSHA256 = hex.EncodeToString(sum[:])
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.RetrievedAt.IsZero() {
		ev.RetrievedAt = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(ev.Meta)
	if err != nil {
		return model.Evidence{}, fmt.Errorf("marshal evidence meta: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO evidence (id, source_system, source_ref, retrieved_at, content_type,
			payload_sha256, raw_path, excerpt, status, meta)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (source_system, source_ref, payload_sha256) DO UPDATE SET source_system = evidence.source_system
		RETURNING id, retrieved_at`,
		ev.ID, ev.SourceSystem, ev.SourceRef, ev.RetrievedAt, ev.ContentType,
		ev.PayloadSHA256, ev.RawPath, ev.Excerpt, ev.Status, metaJSON)

	if err := row.Scan(&ev.ID, &ev.RetrievedAt); err != nil {
		return model.Evidence{}, fmt.Errorf("upsert evidence: %w", err)
	}
	return ev, nil
}

// NextTraceSeq allocates the next monotonic trace sequence number for a case
// under a per-case advisory lock held for the surrounding transaction.
func (s *Store) NextTraceSeq(ctx context.Context, tx pgx.Tx, caseID uuid.UUID) (int64, error) {
	lockKey := advisoryLockKey(caseID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return 0, fmt.Errorf("acquire case advisory lock: %w", err)
	}
	var maxSeq *int64
	if err := tx.QueryRow(ctx, `SELECT max(seq) FROM trace_event WHERE case_id = $1`, caseID).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("read max seq: %w", err)
	}
	if maxSeq == nil {
		return 1, nil
	}
	return *maxSeq + 1, nil
}

// BeginTx starts a transaction for callers that need multi-statement,
// single-commit writes (role handlers write evidence+edges atomically).
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// Pool exposes the underlying pool for packages (packet, retrieval) that
// need read-only cross-case queries outside the Store's write surface.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }
