package graph

import (
	"context"
	"fmt"
)

// schemaDDL creates every table named in SPEC_FULL.md §6, matching the
// teacher's own create-table-if-not-exists idiom in
// internal/controlplane/audit/store.go rather than a separate migration
// runner — this schema is small enough that inline DDL is the right size.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS "case" (
	id         uuid PRIMARY KEY,
	case_type  text NOT NULL,
	scope      jsonb NOT NULL DEFAULT '{}',
	status     text NOT NULL,
	created_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS node (
	id         uuid PRIMARY KEY,
	type       text NOT NULL,
	identifier text NOT NULL,
	created_at timestamptz NOT NULL,
	UNIQUE (type, identifier)
);

CREATE TABLE IF NOT EXISTS node_version (
	id            uuid PRIMARY KEY,
	node_id       uuid NOT NULL REFERENCES node(id),
	attrs         jsonb NOT NULL DEFAULT '{}',
	valid_from    timestamptz NOT NULL,
	valid_to      timestamptz,
	supersedes_id uuid
);

CREATE TABLE IF NOT EXISTS edge (
	id                  uuid PRIMARY KEY,
	src                 uuid NOT NULL REFERENCES node(id),
	dst                 uuid NOT NULL REFERENCES node(id),
	type                text NOT NULL,
	attrs               jsonb NOT NULL DEFAULT '{}',
	status              text NOT NULL,
	supersedes_edge_id  uuid,
	event_time_start    timestamptz,
	event_time_end      timestamptz,
	ingested_at         timestamptz NOT NULL,
	valid_from          timestamptz,
	valid_to            timestamptz,
	source_system       text NOT NULL,
	confidence          double precision NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edge_src ON edge(src);
CREATE INDEX IF NOT EXISTS idx_edge_dst ON edge(dst);
CREATE INDEX IF NOT EXISTS idx_edge_type_source ON edge(type, source_system);

CREATE TABLE IF NOT EXISTS evidence (
	id             uuid PRIMARY KEY,
	source_system  text NOT NULL,
	source_ref     text NOT NULL,
	retrieved_at   timestamptz NOT NULL,
	content_type   text NOT NULL DEFAULT '',
	payload_sha256 text NOT NULL,
	raw_path       text NOT NULL DEFAULT '',
	excerpt        text NOT NULL DEFAULT '',
	status         text NOT NULL DEFAULT '',
	meta           jsonb NOT NULL DEFAULT '{}',
	UNIQUE (source_system, source_ref, payload_sha256)
);

CREATE TABLE IF NOT EXISTS edge_evidence (
	edge_id     uuid NOT NULL REFERENCES edge(id),
	evidence_id uuid NOT NULL REFERENCES evidence(id),
	PRIMARY KEY (edge_id, evidence_id)
);

CREATE TABLE IF NOT EXISTS claim (
	id                  uuid PRIMARY KEY,
	text                text NOT NULL,
	subject_node_id     uuid NOT NULL REFERENCES node(id),
	confidence          double precision NOT NULL DEFAULT 0,
	status              text NOT NULL,
	supersedes_claim_id uuid,
	event_time_start    timestamptz,
	event_time_end      timestamptz,
	ingested_at         timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_evidence (
	claim_id    uuid NOT NULL REFERENCES claim(id),
	evidence_id uuid NOT NULL REFERENCES evidence(id),
	PRIMARY KEY (claim_id, evidence_id)
);

CREATE TABLE IF NOT EXISTS contradiction (
	id                uuid PRIMARY KEY,
	claim_a           uuid NOT NULL,
	claim_b           uuid NOT NULL,
	detected_at       timestamptz NOT NULL,
	resolution_status text NOT NULL,
	type              text NOT NULL,
	narrative         text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS missing_evidence_request (
	id                       uuid PRIMARY KEY,
	case_id                  uuid,
	source_system            text NOT NULL,
	request_type             text NOT NULL,
	request_params           jsonb NOT NULL DEFAULT '{}',
	reason                   text NOT NULL DEFAULT '',
	criticality              text NOT NULL,
	created_at               timestamptz NOT NULL,
	resolved_at              timestamptz,
	resolved_by_evidence_id  uuid
);
CREATE INDEX IF NOT EXISTS idx_mer_case ON missing_evidence_request(case_id);

CREATE TABLE IF NOT EXISTS action (
	id                uuid PRIMARY KEY,
	case_id           uuid NOT NULL,
	type              text NOT NULL,
	args              jsonb NOT NULL DEFAULT '{}',
	state             text NOT NULL,
	risk_level        text NOT NULL DEFAULT '',
	requires_approval boolean NOT NULL DEFAULT false,
	created_at        timestamptz NOT NULL,
	approved_by       text NOT NULL DEFAULT '',
	approved_at       timestamptz,
	playbook_guided   boolean NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS idx_action_case ON action(case_id);

CREATE TABLE IF NOT EXISTS outcome (
	id          uuid PRIMARY KEY,
	action_id   uuid NOT NULL REFERENCES action(id),
	success     boolean NOT NULL,
	detail      text NOT NULL DEFAULT '',
	occurred_at timestamptz NOT NULL,
	rolled_back boolean NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS policy (
	id       uuid PRIMARY KEY,
	name     text NOT NULL UNIQUE,
	version  text NOT NULL,
	document text NOT NULL,
	active   boolean NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS playbook (
	id               uuid PRIMARY KEY,
	name             text NOT NULL UNIQUE,
	version          text NOT NULL DEFAULT '1.0.0',
	case_type        text NOT NULL,
	scope_keys       jsonb NOT NULL DEFAULT '[]',
	signal_signature jsonb NOT NULL DEFAULT '[]',
	action_template  jsonb NOT NULL DEFAULT '[]',
	use_count        integer NOT NULL DEFAULT 0,
	success_count    integer NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS playbook_case (
	playbook_id uuid NOT NULL REFERENCES playbook(id),
	case_id     uuid NOT NULL,
	matched_at  timestamptz NOT NULL,
	PRIMARY KEY (playbook_id, case_id)
);

CREATE TABLE IF NOT EXISTS trace_event (
	id         uuid PRIMARY KEY,
	case_id    uuid NOT NULL,
	seq        bigint NOT NULL,
	event_type text NOT NULL,
	ref_type   text NOT NULL DEFAULT '',
	ref_id     text NOT NULL DEFAULT '',
	meta       jsonb NOT NULL DEFAULT '{}',
	created_at timestamptz NOT NULL,
	UNIQUE (case_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_trace_case ON trace_event(case_id);

CREATE TABLE IF NOT EXISTS embedding_case (
	case_id    uuid PRIMARY KEY,
	text       text NOT NULL DEFAULT '',
	embedding  vector(384),
	edge_types text[] NOT NULL DEFAULT '{}',
	created_at timestamptz NOT NULL
);
`

// EnsureSchema creates every table the core needs if it does not already
// exist. Called once at startup by the owning cmd/gpdectl binary, matching
// the teacher's NewStore-creates-tables idiom rather than a separate
// migration tool.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("ensure pgvector extension: %w", err)
	}
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
