package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-qen/gatewayposture/internal/model"
)

// MaxHops is the hard traversal-depth cap per SPEC_FULL.md §9.
const MaxHops = 5

// Subgraph is a deduplicated node/edge result. Traversal never returns flat
// rows; cycles are handled by de-duplicating on edge id.
type Subgraph struct {
	Nodes []model.Node
	Edges []model.Edge
}

// TraversalParams configures a bounded reachability query.
type TraversalParams struct {
	StartNodeIDs   []uuid.UUID
	AllowedTypes   []model.EdgeType
	EventTime      time.Time
	IngestTime     time.Time
	MaxHops        int
}

// Traverse runs a recursive reachability query from StartNodeIDs following
// only AllowedTypes edges, visible at (EventTime, IngestTime), bounded by
// MaxHops (0 means only directly incident edges of the start set).
func (s *Store) Traverse(ctx context.Context, p TraversalParams) (Subgraph, error) {
	hops := p.MaxHops
	if hops > MaxHops {
		hops = MaxHops
	}
	if hops < 0 {
		hops = 0
	}

	typeFilter := ""
	args := []any{p.StartNodeIDs, p.EventTime, p.IngestTime, hops}
	if len(p.AllowedTypes) > 0 {
		typeFilter = "AND e.type = ANY($5)"
		args = append(args, p.AllowedTypes)
	}

	// VisibilitySQL names its times @eT/@iT; bind them to $2/$3 here.
	visibility := strings.NewReplacer("@eT", "$2", "@iT", "$3").Replace(VisibilitySQL("e"))

	query := fmt.Sprintf(`
WITH RECURSIVE reach(node_id, depth) AS (
	SELECT unnest($1::uuid[]), 0
	UNION
	SELECT CASE WHEN e.src = r.node_id THEN e.dst ELSE e.src END, r.depth + 1
	FROM edge e
	JOIN reach r ON (e.src = r.node_id OR e.dst = r.node_id)
	WHERE r.depth < $4
	%s
	AND %s
)
SELECT DISTINCT e.id, e.src, e.dst, e.type, e.attrs, e.status, e.supersedes_edge_id,
	e.event_time_start, e.event_time_end, e.ingested_at, e.valid_from, e.valid_to,
	e.source_system, e.confidence
FROM edge e
JOIN reach r ON (e.src = r.node_id OR e.dst = r.node_id)
WHERE %s
%s`, typeFilter, visibility, visibility, typeFilter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Subgraph{}, fmt.Errorf("traverse: %w", err)
	}
	defer rows.Close()

	var out Subgraph
	nodeSet := map[uuid.UUID]struct{}{}
	for rows.Next() {
		var e model.Edge
		var attrsJSON []byte
		if err := rows.Scan(&e.ID, &e.Src, &e.Dst, &e.Type, &attrsJSON, &e.Status, &e.SupersedesEdgeID,
			&e.EventTimeStart, &e.EventTimeEnd, &e.IngestedAt, &e.ValidFrom, &e.ValidTo,
			&e.SourceSystem, &e.Confidence); err != nil {
			return Subgraph{}, fmt.Errorf("scan traversal edge: %w", err)
		}
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &e.Attrs); err != nil {
				return Subgraph{}, fmt.Errorf("unmarshal edge attrs: %w", err)
			}
		}
		out.Edges = append(out.Edges, e)
		nodeSet[e.Src] = struct{}{}
		nodeSet[e.Dst] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return Subgraph{}, fmt.Errorf("iterate traversal rows: %w", err)
	}

	if len(nodeSet) > 0 {
		ids := make([]uuid.UUID, 0, len(nodeSet))
		for id := range nodeSet {
			ids = append(ids, id)
		}
		nodeRows, err := s.pool.Query(ctx, `SELECT id, type, identifier, created_at FROM node WHERE id = ANY($1)`, ids)
		if err != nil {
			return Subgraph{}, fmt.Errorf("fetch traversal nodes: %w", err)
		}
		defer nodeRows.Close()
		for nodeRows.Next() {
			var n model.Node
			if err := nodeRows.Scan(&n.ID, &n.Type, &n.Identifier, &n.CreatedAt); err != nil {
				return Subgraph{}, fmt.Errorf("scan traversal node: %w", err)
			}
			out.Nodes = append(out.Nodes, n)
		}
	}

	return out, nil
}
