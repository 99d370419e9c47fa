/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package retrieval implements the hybrid case-similarity search used by the
// playbook/replay layer: a fixed-weight blend of pgvector cosine similarity,
// Postgres text-rank, and a graph Jaccard over shared edge types.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	semanticWeight = 0.5
	keywordWeight  = 0.3
	graphWeight    = 0.2

	// candidatePoolSize bounds how many nearest-neighbor rows pgvector
	// returns before the keyword/graph re-ranking runs in Go.
	candidatePoolSize = 50
)

// Result is one ranked hybrid-search hit.
type Result struct {
	CaseID         uuid.UUID
	FinalScore     float64
	SemanticScore  float64
	KeywordScore   float64
	GraphScore     float64
}

// Retriever runs hybrid search over embedding_case.
type Retriever struct {
	pool *pgxpool.Pool
}

// New builds a Retriever over the shared connection pool.
func New(pool *pgxpool.Pool) *Retriever {
	return &Retriever{pool: pool}
}

type candidate struct {
	caseID      uuid.UUID
	edgeTypes   []string
	semantic    float64
	keywordRaw  float64
}

// Search returns the top `limit` cases by final_score =
// 0.5*semantic + 0.3*keyword + 0.2*graph, ties broken by ascending case id.
// queryEdgeTypes is the calling case's own edge-type set, used for the graph
// Jaccard term; pass nil when there is no case context (pure text search).
func (r *Retriever) Search(ctx context.Context, queryText string, queryEmbedding [384]float32, queryEdgeTypes []string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(queryEmbedding[:])
	rows, err := r.pool.Query(ctx, `
		SELECT case_id, edge_types,
			1 - (embedding <=> $1) AS semantic,
			ts_rank(to_tsvector('english', text), websearch_to_tsquery('english', $2)) AS keyword_raw
		FROM embedding_case
		ORDER BY embedding <=> $1
		LIMIT $3`, vec, queryText, candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("hybrid search query: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	maxKeyword := 0.0
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.caseID, &c.edgeTypes, &c.semantic, &c.keywordRaw); err != nil {
			return nil, fmt.Errorf("scan hybrid search row: %w", err)
		}
		if c.keywordRaw > maxKeyword {
			maxKeyword = c.keywordRaw
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hybrid search rows: %w", err)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		keyword := 0.0
		if maxKeyword > 0 {
			keyword = c.keywordRaw / maxKeyword
		}
		graph := jaccard(queryEdgeTypes, c.edgeTypes)
		final := semanticWeight*c.semantic + keywordWeight*keyword + graphWeight*graph
		results = append(results, Result{
			CaseID:        c.caseID,
			FinalScore:    final,
			SemanticScore: c.semantic,
			KeywordScore:  keyword,
			GraphScore:    graph,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].CaseID.String() < results[j].CaseID.String()
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)
	intersection := 0
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA)
	for k := range setB {
		if !setA[k] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(vals []string) map[string]bool {
	out := make(map[string]bool, len(vals))
	for _, v := range vals {
		out[strings.ToUpper(v)] = true
	}
	return out
}

// IndexCase upserts a case's hybrid-retrieval row. Called once per case at
// COMPLETE, keyed on case_id.
func (r *Retriever) IndexCase(ctx context.Context, caseID uuid.UUID, text string, embedding [384]float32, edgeTypes []string) error {
	vec := pgvector.NewVector(embedding[:])
	_, err := r.pool.Exec(ctx, `
		INSERT INTO embedding_case (case_id, text, embedding, edge_types, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (case_id) DO UPDATE SET
			text = EXCLUDED.text, embedding = EXCLUDED.embedding, edge_types = EXCLUDED.edge_types`,
		caseID, text, vec, edgeTypes)
	if err != nil {
		return fmt.Errorf("index case for retrieval: %w", err)
	}
	return nil
}
