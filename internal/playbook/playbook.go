/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package playbook matches a case against the library of learned
// (pattern, action-template) pairs per §4.7: scope-key intersection plus
// evidence-signal fingerprint, gated by a semver compatibility constraint on
// the playbook's recorded version.
package playbook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// MatchThreshold is the minimum combined score a playbook must clear to be
// considered matched.
const MatchThreshold = 0.5

// compatConstraint bounds which playbook versions this build's matcher will
// honor. Bumped when the action-template schema changes incompatibly.
var compatConstraint = mustConstraint("^1.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(fmt.Sprintf("invalid playbook compat constraint %q: %v", s, err))
	}
	return c
}

// Matcher finds the best-matching playbook for a case from the persisted
// library.
type Matcher struct {
	pool *pgxpool.Pool
}

// New wraps the shared connection pool.
func New(pool *pgxpool.Pool) *Matcher {
	return &Matcher{pool: pool}
}

// Candidate is one playbook under consideration with its computed score.
type Candidate struct {
	Playbook model.Playbook
	Score    float64
}

// Seed inserts a playbook if no row with the same name exists yet.
func (m *Matcher) Seed(ctx context.Context, pb model.Playbook) error {
	scopeKeysJSON, err := json.Marshal(pb.ScopeKeys)
	if err != nil {
		return fmt.Errorf("marshal scope_keys: %w", err)
	}
	signalSigJSON, err := json.Marshal(pb.SignalSignature)
	if err != nil {
		return fmt.Errorf("marshal signal_signature: %w", err)
	}
	templateJSON, err := json.Marshal(pb.ActionTemplate)
	if err != nil {
		return fmt.Errorf("marshal action_template: %w", err)
	}
	if pb.ID == uuid.Nil {
		pb.ID = uuid.New()
	}
	if pb.Version == "" {
		pb.Version = "1.0.0"
	}
	_, err = m.pool.Exec(ctx, `
		INSERT INTO playbook (id, name, version, case_type, scope_keys, signal_signature, action_template, use_count, success_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,0)
		ON CONFLICT (name) DO NOTHING`,
		pb.ID, pb.Name, pb.Version, pb.CaseType, scopeKeysJSON, signalSigJSON, templateJSON)
	if err != nil {
		return fmt.Errorf("seed playbook: %w", err)
	}
	return nil
}

// Match returns the highest-scoring playbook above MatchThreshold for
// (caseType, scope, signals), or ok=false if none clears the bar. Playbooks
// whose recorded version fails the compatibility constraint are skipped
// entirely, never merely scored low.
func (m *Matcher) Match(ctx context.Context, caseType model.CaseType, scope map[string]string, signals []string) (Candidate, bool, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT id, name, version, case_type, scope_keys, signal_signature, action_template, use_count, success_count
		FROM playbook WHERE case_type = $1`, caseType)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("query playbooks: %w", err)
	}
	defer rows.Close()

	var best Candidate
	found := false
	for rows.Next() {
		pb, err := scanPlaybook(rows)
		if err != nil {
			return Candidate{}, false, err
		}
		v, err := semver.NewVersion(pb.Version)
		if err != nil || !compatConstraint.Check(v) {
			continue
		}
		score := matchScore(pb, scope, signals)
		if score < MatchThreshold {
			continue
		}
		if !found || score > best.Score {
			best = Candidate{Playbook: pb, Score: score}
			found = true
		}
	}
	return best, found, rows.Err()
}

// matchScore combines scope-key intersection (Jaccard over keys present in
// both the case scope and the playbook's recorded scope keys) with an
// evidence-signal fingerprint (Jaccard over signal strings), weighted
// evenly. Both sub-scores are in [0,1].
func matchScore(pb model.Playbook, scope map[string]string, signals []string) float64 {
	scopeKeys := make([]string, 0, len(scope))
	for k := range scope {
		scopeKeys = append(scopeKeys, k)
	}
	scopeScore := jaccard(scopeKeys, pb.ScopeKeys)
	signalScore := jaccard(signals, pb.SignalSignature)
	return 0.5*scopeScore + 0.5*signalScore
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	intersection := 0
	for s := range set {
		if inB[s] {
			intersection++
		}
	}
	union := len(set)
	for s := range inB {
		if !set[s] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// RecordUse increments use_count, and success_count iff the stop condition
// the case ended on was MET, per §4.7's completion bookkeeping.
func (m *Matcher) RecordUse(ctx context.Context, playbookID uuid.UUID, caseID uuid.UUID, succeeded bool) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin playbook use tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE playbook SET use_count = use_count + 1 WHERE id = $1`, playbookID); err != nil {
		return fmt.Errorf("increment use_count: %w", err)
	}
	if succeeded {
		if _, err := tx.Exec(ctx, `UPDATE playbook SET success_count = success_count + 1 WHERE id = $1`, playbookID); err != nil {
			return fmt.Errorf("increment success_count: %w", err)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO playbook_case (playbook_id, case_id, matched_at) VALUES ($1,$2,now()) ON CONFLICT DO NOTHING`,
		playbookID, caseID); err != nil {
		return fmt.Errorf("record playbook_case: %w", err)
	}
	return tx.Commit(ctx)
}

// LoadFromYAML parses a playbook library file: a single YAML sequence with
// one entry per playbook.
func LoadFromYAML(data []byte) ([]model.Playbook, error) {
	var docs []struct {
		Name            string                         `yaml:"name"`
		Version         string                         `yaml:"version"`
		CaseType        model.CaseType                 `yaml:"case_type"`
		ScopeKeys       []string                       `yaml:"scope_keys"`
		SignalSignature []string                       `yaml:"signal_signature"`
		ActionTemplate  []yamlActionTemplate           `yaml:"action_template"`
	}
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse playbook yaml: %w", err)
	}
	out := make([]model.Playbook, 0, len(docs))
	for _, d := range docs {
		tmpl := make([]model.PlaybookActionTemplate, 0, len(d.ActionTemplate))
		for _, t := range d.ActionTemplate {
			tmpl = append(tmpl, model.PlaybookActionTemplate{
				Type:             model.ActionType(t.Type),
				DefaultArgs:      t.DefaultArgs,
				RequiresApproval: t.RequiresApproval,
			})
		}
		out = append(out, model.Playbook{
			ID:              uuid.New(),
			Name:            d.Name,
			Version:         d.Version,
			CaseType:        d.CaseType,
			ScopeKeys:       d.ScopeKeys,
			SignalSignature: d.SignalSignature,
			ActionTemplate:  tmpl,
		})
	}
	return out, nil
}

type yamlActionTemplate struct {
	Type             string         `yaml:"type"`
	DefaultArgs      map[string]any `yaml:"default_args"`
	RequiresApproval bool           `yaml:"requires_approval"`
}

func scanPlaybook(rows pgx.Rows) (model.Playbook, error) {
	var pb model.Playbook
	var scopeKeysJSON, signalSigJSON, templateJSON []byte
	if err := rows.Scan(&pb.ID, &pb.Name, &pb.Version, &pb.CaseType, &scopeKeysJSON, &signalSigJSON,
		&templateJSON, &pb.UseCount, &pb.SuccessCount); err != nil {
		return model.Playbook{}, fmt.Errorf("scan playbook: %w", err)
	}
	if err := unmarshalJSONOrEmpty(scopeKeysJSON, &pb.ScopeKeys); err != nil {
		return model.Playbook{}, err
	}
	if err := unmarshalJSONOrEmpty(signalSigJSON, &pb.SignalSignature); err != nil {
		return model.Playbook{}, err
	}
	if err := unmarshalJSONOrEmpty(templateJSON, &pb.ActionTemplate); err != nil {
		return model.Playbook{}, err
	}
	return pb, nil
}

func unmarshalJSONOrEmpty(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal playbook field: %w", err)
	}
	return nil
}
