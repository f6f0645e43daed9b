package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/database"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// SnapshotWrite is one crawl's fully assembled graph state for a source.
// Nodes is the complete expected set: anything owned by the source but not
// listed here is stale and gets pruned.
type SnapshotWrite struct {
	SourceNodeID string
	Nodes        []*models.GraphNode
	Edges        []*models.GraphEdge
	Provenance   []*models.ProvenanceRecord
}

// GraphRepository defines data access for the property graph.
type GraphRepository interface {
	// ApplySnapshot upserts the snapshot's nodes and edges, prunes stale
	// entities owned by the source, and records provenance, all in one
	// transaction. Props are replaced wholesale, never merged.
	ApplySnapshot(ctx context.Context, write *SnapshotWrite) (*models.IngestResult, error)

	// GetGraph returns nodes and edges matching the filter. Edges are only
	// returned when both endpoints are in the node result.
	GetGraph(ctx context.Context, filter models.GraphFilter) (*models.GraphResult, error)

	// DeleteSourceCascade removes everything a source owns in dependency
	// order and finally the source record itself, in one transaction.
	// Returns apperrors.ErrNotFound when the source record does not exist.
	DeleteSourceCascade(ctx context.Context, sourceID uuid.UUID) (*models.DeleteCounts, error)
}

type graphRepository struct {
	db *database.DB
}

// NewGraphRepository creates a new graph repository.
func NewGraphRepository(db *database.DB) GraphRepository {
	return &graphRepository{db: db}
}

func (r *graphRepository) ApplySnapshot(ctx context.Context, write *SnapshotWrite) (*models.IngestResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	result := &models.IngestResult{}

	result.NodesUpserted, err = upsertNodes(ctx, tx, write.Nodes)
	if err != nil {
		return nil, err
	}

	result.EdgesUpserted, err = upsertEdges(ctx, tx, write.Edges)
	if err != nil {
		return nil, err
	}

	keepIDs := make([]string, len(write.Nodes))
	for i, n := range write.Nodes {
		keepIDs[i] = n.ID
	}
	result.NodesPruned, result.EdgesPruned, err = pruneStaleNodes(ctx, tx, write.SourceNodeID, keepIDs)
	if err != nil {
		return nil, err
	}

	result.ProvenanceRows, err = insertProvenance(ctx, tx, write.Provenance)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return result, nil
}

// upsertNodes bulk-upserts nodes with unnest parallel arrays. Array-valued
// fields (owner_ids, tags) travel as JSON text and expand server-side,
// since unnest cannot carry per-row arrays directly.
func upsertNodes(ctx context.Context, tx pgx.Tx, nodes []*models.GraphNode) (int, error) {
	if len(nodes) == 0 {
		return 0, nil
	}

	ids := make([]string, len(nodes))
	types := make([]string, len(nodes))
	props := make([]string, len(nodes))
	ownerIDs := make([]string, len(nodes))
	tags := make([]string, len(nodes))
	sensitivities := make([]*string, len(nodes))
	statuses := make([]*string, len(nodes))

	for i, n := range nodes {
		ids[i] = n.ID
		types[i] = n.Type

		propsJSON, err := json.Marshal(n.Props)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal props for node %s: %w", n.ID, err)
		}
		props[i] = string(propsJSON)

		ownersJSON, err := json.Marshal(orEmpty(n.OwnerIDs))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal owner_ids for node %s: %w", n.ID, err)
		}
		ownerIDs[i] = string(ownersJSON)

		tagsJSON, err := json.Marshal(orEmpty(n.Tags))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal tags for node %s: %w", n.ID, err)
		}
		tags[i] = string(tagsJSON)

		sensitivities[i] = n.Sensitivity
		statuses[i] = n.Status
	}

	query := `
		INSERT INTO nodes (id, node_type, props, owner_ids, tags, sensitivity, status, created_at, updated_at)
		SELECT n.id, n.node_type, n.props::jsonb,
		       ARRAY(SELECT jsonb_array_elements_text(n.owner_ids::jsonb)),
		       ARRAY(SELECT jsonb_array_elements_text(n.tags::jsonb)),
		       n.sensitivity, n.status, NOW(), NOW()
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[])
		     AS n(id, node_type, props, owner_ids, tags, sensitivity, status)
		ON CONFLICT (id) DO UPDATE SET
			node_type = EXCLUDED.node_type,
			props = EXCLUDED.props,
			owner_ids = EXCLUDED.owner_ids,
			tags = EXCLUDED.tags,
			sensitivity = EXCLUDED.sensitivity,
			status = EXCLUDED.status,
			updated_at = NOW()`

	tag, err := tx.Exec(ctx, query, ids, types, props, ownerIDs, tags, sensitivities, statuses)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert nodes: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func upsertEdges(ctx context.Context, tx pgx.Tx, edges []*models.GraphEdge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	ids := make([]string, len(edges))
	srcIDs := make([]string, len(edges))
	dstIDs := make([]string, len(edges))
	types := make([]string, len(edges))
	props := make([]string, len(edges))

	for i, e := range edges {
		ids[i] = e.ID
		srcIDs[i] = e.SrcID
		dstIDs[i] = e.DstID
		types[i] = e.Type

		propsJSON, err := json.Marshal(orEmptyMap(e.Props))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal props for edge %s: %w", e.ID, err)
		}
		props[i] = string(propsJSON)
	}

	query := `
		INSERT INTO edges (id, src_id, dst_id, edge_type, props, created_at, updated_at)
		SELECT e.id, e.src_id, e.dst_id, e.edge_type, e.props::jsonb, NOW(), NOW()
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[])
		     AS e(id, src_id, dst_id, edge_type, props)
		ON CONFLICT (id) DO UPDATE SET
			props = EXCLUDED.props,
			updated_at = NOW()`

	tag, err := tx.Exec(ctx, query, ids, srcIDs, dstIDs, types, props)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert edges: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// pruneStaleNodes deletes nodes owned by the source that are absent from the
// expected set, edges first so the counts are visible rather than swallowed
// by the FK cascade.
func pruneStaleNodes(ctx context.Context, tx pgx.Tx, sourceNodeID string, keepIDs []string) (int64, int64, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM nodes WHERE owner_ids[1] = $1 AND NOT (id = ANY($2::text[]))`,
		sourceNodeID, keepIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find stale nodes: %w", err)
	}
	staleIDs, err := collectIDs(rows)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to scan stale nodes: %w", err)
	}
	if len(staleIDs) == 0 {
		return 0, 0, nil
	}

	edgeTag, err := tx.Exec(ctx,
		`DELETE FROM edges WHERE src_id = ANY($1::text[]) OR dst_id = ANY($1::text[])`,
		staleIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prune stale edges: %w", err)
	}

	nodeTag, err := tx.Exec(ctx, `DELETE FROM nodes WHERE id = ANY($1::text[])`, staleIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prune stale nodes: %w", err)
	}

	return nodeTag.RowsAffected(), edgeTag.RowsAffected(), nil
}

func insertProvenance(ctx context.Context, tx pgx.Tx, records []*models.ProvenanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(records))
	entityIDs := make([]string, len(records))
	sourceIDs := make([]uuid.UUID, len(records))
	origins := make([]string, len(records))
	crawlIDs := make([]uuid.UUID, len(records))

	for i, p := range records {
		ids[i] = p.ID
		entityIDs[i] = p.EntityID
		sourceIDs[i] = p.SourceID
		origins[i] = p.Origin
		crawlIDs[i] = p.CrawlID
	}

	query := `
		INSERT INTO provenance (id, entity_id, source_id, origin, crawl_id, created_at)
		SELECT p.id, p.entity_id, p.source_id, p.origin, p.crawl_id, NOW()
		FROM unnest($1::uuid[], $2::text[], $3::uuid[], $4::text[], $5::uuid[])
		     AS p(id, entity_id, source_id, origin, crawl_id)`

	tag, err := tx.Exec(ctx, query, ids, entityIDs, sourceIDs, origins, crawlIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert provenance: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *graphRepository) GetGraph(ctx context.Context, filter models.GraphFilter) (*models.GraphResult, error) {
	query := `
		SELECT id, node_type, props, owner_ids, tags, sensitivity, status, created_at, updated_at
		FROM nodes`

	var conds []string
	var args []any

	if len(filter.SourceIDs) > 0 {
		sourceNodeIDs := make([]string, 0, len(filter.SourceIDs))
		for _, s := range filter.SourceIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalid source id %q: %w", s, err)
			}
			sourceNodeIDs = append(sourceNodeIDs, models.SourceNodeID(id))
		}
		args = append(args, sourceNodeIDs)
		conds = append(conds, fmt.Sprintf("(id = ANY($%d::text[]) OR owner_ids && $%d::text[])", len(args), len(args)))
	}
	if len(filter.NodeTypes) > 0 {
		args = append(args, filter.NodeTypes)
		conds = append(conds, fmt.Sprintf("node_type = ANY($%d::text[])", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(id ILIKE $%d OR props->>'name' ILIKE $%d OR props->>'display_name' ILIKE $%d)", n, n, n))
	}

	for i, c := range conds {
		if i == 0 {
			query += "\n\t\tWHERE " + c
		} else {
			query += "\n\t\t  AND " + c
		}
	}
	query += "\n\t\tORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*models.GraphNode, 0)
	nodeIDs := make([]string, 0)
	nodesByType := make(map[string]int64)
	for rows.Next() {
		var n models.GraphNode
		err := rows.Scan(&n.ID, &n.Type, &n.Props, &n.OwnerIDs, &n.Tags,
			&n.Sensitivity, &n.Status, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, &n)
		nodeIDs = append(nodeIDs, n.ID)
		nodesByType[n.Type]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	edges, err := r.edgesAmong(ctx, nodeIDs, filter.EdgeTypes)
	if err != nil {
		return nil, err
	}

	return &models.GraphResult{
		Nodes: nodes,
		Edges: edges,
		Stats: models.GraphStats{
			NodeCount:   int64(len(nodes)),
			EdgeCount:   int64(len(edges)),
			NodesByType: nodesByType,
		},
	}, nil
}

// edgesAmong returns edges with both endpoints in the given node set.
func (r *graphRepository) edgesAmong(ctx context.Context, nodeIDs, edgeTypes []string) ([]*models.GraphEdge, error) {
	if len(nodeIDs) == 0 {
		return []*models.GraphEdge{}, nil
	}

	query := `
		SELECT id, src_id, dst_id, edge_type, props, created_at, updated_at
		FROM edges
		WHERE src_id = ANY($1::text[]) AND dst_id = ANY($1::text[])`
	args := []any{nodeIDs}

	if len(edgeTypes) > 0 {
		args = append(args, edgeTypes)
		query += fmt.Sprintf(" AND edge_type = ANY($%d::text[])", len(args))
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	edges := make([]*models.GraphEdge, 0)
	for rows.Next() {
		var e models.GraphEdge
		err := rows.Scan(&e.ID, &e.SrcID, &e.DstID, &e.Type, &e.Props, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

func (r *graphRepository) DeleteSourceCascade(ctx context.Context, sourceID uuid.UUID) (*models.DeleteCounts, error) {
	sourceNodeID := models.SourceNodeID(sourceID)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	// The owned-node set is computed once and drives every graph-side step.
	rows, err := tx.Query(ctx,
		`SELECT id FROM nodes WHERE id = $1 OR owner_ids[1] = $1`, sourceNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find owned nodes: %w", err)
	}
	ownedIDs, err := collectIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan owned nodes: %w", err)
	}

	counts := &models.DeleteCounts{}

	if len(ownedIDs) > 0 {
		counts.Embeddings, err = execCount(ctx, tx,
			`DELETE FROM embeddings WHERE node_id = ANY($1::text[])`, ownedIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to delete embeddings: %w", err)
		}
	}

	// Provenance keys on source_id so rows for edge entities go too.
	counts.Provenance, err = execCount(ctx, tx,
		`DELETE FROM provenance WHERE source_id = $1`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete provenance: %w", err)
	}

	if len(ownedIDs) > 0 {
		counts.SemanticEdges, err = execCount(ctx, tx,
			`DELETE FROM edges
			 WHERE edge_type != ALL($2::text[])
			   AND (src_id = ANY($1::text[]) OR dst_id = ANY($1::text[]))`,
			ownedIDs, models.ValidEdgeTypes)
		if err != nil {
			return nil, fmt.Errorf("failed to delete semantic edges: %w", err)
		}

		counts.Edges, err = execCount(ctx, tx,
			`DELETE FROM edges
			 WHERE src_id = ANY($1::text[]) OR dst_id = ANY($1::text[])`,
			ownedIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to delete edges: %w", err)
		}

		counts.Nodes, err = execCount(ctx, tx,
			`DELETE FROM nodes WHERE id = ANY($1::text[])`, ownedIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to delete nodes: %w", err)
		}
	}

	counts.Changelog, err = execCount(ctx, tx,
		`DELETE FROM changelog WHERE source_id = $1`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete changelog: %w", err)
	}

	counts.Sources, err = execCount(ctx, tx,
		`DELETE FROM sources WHERE id = $1`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete source: %w", err)
	}
	if counts.Sources == 0 {
		return nil, fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cascade: %w", err)
	}

	return counts, nil
}

func execCount(ctx context.Context, tx pgx.Tx, query string, args ...any) (int64, error) {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectIDs(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

var _ GraphRepository = (*graphRepository)(nil)
