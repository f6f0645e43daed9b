package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/repositories"
)

// IngestRequest carries one fully assembled crawl for persistence.
// Snapshot is required; RowCounts, Profiles, and Warnings are optional
// enrichments gathered by the other crawl phases.
type IngestRequest struct {
	SourceID   uuid.UUID
	SourceName string
	Kind       string
	CrawlID    uuid.UUID
	Snapshot   *models.SchemaSnapshot
	RowCounts  map[models.TableKey]*int64
	Profiles   []models.ColumnProfile
	Warnings   []models.Warning
}

// GraphIngestor converts assembled snapshots into property graph writes.
type GraphIngestor interface {
	// PersistSnapshot derives deterministic node and edge IDs from the
	// snapshot and applies them in one store transaction. Re-ingesting an
	// identical snapshot produces an identical graph; entities that
	// disappeared from the source since the last crawl are pruned.
	PersistSnapshot(ctx context.Context, req *IngestRequest) (*models.IngestResult, error)
}

type graphIngestor struct {
	graphRepo repositories.GraphRepository
	logger    *zap.Logger
}

// NewGraphIngestor creates a new graph ingestor.
func NewGraphIngestor(graphRepo repositories.GraphRepository, logger *zap.Logger) GraphIngestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &graphIngestor{graphRepo: graphRepo, logger: logger}
}

func (g *graphIngestor) PersistSnapshot(ctx context.Context, req *IngestRequest) (*models.IngestResult, error) {
	if req.Snapshot == nil {
		return nil, fmt.Errorf("snapshot is required")
	}

	write, skippedFKs, fkWarnings := g.buildWrite(req)

	result, err := g.graphRepo.ApplySnapshot(ctx, write)
	if err != nil {
		return nil, fmt.Errorf("failed to apply snapshot: %w", err)
	}
	result.SkippedFKs = skippedFKs
	result.Warnings = append(append([]models.Warning{}, req.Warnings...), fkWarnings...)

	g.logger.Info("snapshot persisted",
		zap.String("source_id", req.SourceID.String()),
		zap.String("kind", req.Kind),
		zap.Int("nodes_upserted", result.NodesUpserted),
		zap.Int("edges_upserted", result.EdgesUpserted),
		zap.Int64("nodes_pruned", result.NodesPruned),
		zap.Int64("edges_pruned", result.EdgesPruned),
		zap.Int("skipped_fks", skippedFKs))

	return result, nil
}

type profileKey struct {
	schema, table, column string
}

// buildWrite assembles the complete node and edge set for one snapshot.
// Node identity is a pure function of (source, entity path), so repeated
// crawls of the same schema converge on the same IDs.
func (g *graphIngestor) buildWrite(req *IngestRequest) (*repositories.SnapshotWrite, int, []models.Warning) {
	document := req.Kind == models.SourceKindMongoDB
	sourceNodeID := models.SourceNodeID(req.SourceID)

	profiles := make(map[profileKey]models.ColumnProfile, len(req.Profiles))
	for _, p := range req.Profiles {
		profiles[profileKey{p.Schema, p.Table, p.Column}] = p
	}

	write := &repositories.SnapshotWrite{SourceNodeID: sourceNodeID}
	write.Nodes = append(write.Nodes, &models.GraphNode{
		ID:   sourceNodeID,
		Type: models.NodeTypeSource,
		Props: map[string]any{
			"name":         req.SourceName,
			"kind":         req.Kind,
			"display_name": titleCase(req.SourceName),
		},
	})

	columnIDs := make(map[string]bool)

	for i := range req.Snapshot.Tables {
		table := &req.Snapshot.Tables[i]

		tableNodeID := models.TableNodeID(req.SourceID, table.Schema, table.Name)
		tableNodeType := models.NodeTypeTable
		columnNodeType := models.NodeTypeColumn
		columnEdgeType := models.EdgeTypeHasColumn
		if document {
			tableNodeID = models.CollectionNodeID(req.SourceID, table.Schema, table.Name)
			tableNodeType = models.NodeTypeCollection
			columnNodeType = models.NodeTypeField
			columnEdgeType = models.EdgeTypeHasField
		}

		props := map[string]any{
			"name":         table.Name,
			"schema":       table.Schema,
			"kind":         table.Kind,
			"display_name": displayName(table.Name),
		}
		if table.Comment != nil {
			props["comment"] = *table.Comment
		}
		if count, ok := req.RowCounts[table.Key()]; ok && count != nil {
			props["row_count"] = *count
		}

		write.Nodes = append(write.Nodes, &models.GraphNode{
			ID:       tableNodeID,
			Type:     tableNodeType,
			Props:    props,
			OwnerIDs: []string{sourceNodeID},
		})
		write.Edges = append(write.Edges,
			&models.GraphEdge{
				ID:    models.EdgeID(models.EdgeTypeContains, sourceNodeID, tableNodeID),
				SrcID: sourceNodeID,
				DstID: tableNodeID,
				Type:  models.EdgeTypeContains,
			},
			&models.GraphEdge{
				ID:    models.EdgeID(models.EdgeTypeBelongsTo, tableNodeID, sourceNodeID),
				SrcID: tableNodeID,
				DstID: sourceNodeID,
				Type:  models.EdgeTypeBelongsTo,
			})

		for _, col := range table.Columns {
			colID := models.ColumnNodeID(tableNodeID, col.Name)
			if document {
				colID = models.FieldNodeID(tableNodeID, col.Name)
			}

			colProps := map[string]any{
				"name":         col.Name,
				"data_type":    col.DataType,
				"nullable":     col.Nullable,
				"display_name": titleCase(col.Name),
			}
			if col.Default != nil {
				colProps["default"] = *col.Default
			}
			if col.Comment != nil {
				colProps["comment"] = *col.Comment
			}
			if p, ok := profiles[profileKey{table.Schema, table.Name, col.Name}]; ok {
				if p.NullFrac != nil {
					colProps["null_frac"] = *p.NullFrac
				}
				if p.DistinctCount != nil {
					colProps["distinct_count"] = *p.DistinctCount
				}
				if p.AvgWidthBytes != nil {
					colProps["avg_width_bytes"] = *p.AvgWidthBytes
				}
			}

			write.Nodes = append(write.Nodes, &models.GraphNode{
				ID:       colID,
				Type:     columnNodeType,
				Props:    colProps,
				OwnerIDs: []string{sourceNodeID},
			})
			write.Edges = append(write.Edges, &models.GraphEdge{
				ID:    models.EdgeID(columnEdgeType, tableNodeID, colID),
				SrcID: tableNodeID,
				DstID: colID,
				Type:  columnEdgeType,
			})
			columnIDs[colID] = true
		}
	}

	skipped := 0
	var warnings []models.Warning
	for _, fk := range req.Snapshot.ForeignKeys {
		srcID := models.ColumnNodeID(models.TableNodeID(req.SourceID, fk.SourceSchema, fk.SourceTable), fk.SourceColumn)
		dstID := models.ColumnNodeID(models.TableNodeID(req.SourceID, fk.TargetSchema, fk.TargetTable), fk.TargetColumn)
		if !columnIDs[srcID] || !columnIDs[dstID] {
			skipped++
			missing := fmt.Sprintf("%s.%s.%s", fk.TargetSchema, fk.TargetTable, fk.TargetColumn)
			if !columnIDs[srcID] {
				missing = fmt.Sprintf("%s.%s.%s", fk.SourceSchema, fk.SourceTable, fk.SourceColumn)
			}
			warnings = append(warnings, models.Warning{
				Severity: models.SeverityWarning,
				Feature:  "foreign_keys",
				Message: fmt.Sprintf("foreign key %s references %s outside this crawl; edge skipped",
					fk.ConstraintName, missing),
			})
			g.logger.Debug("skipping foreign key with unresolved endpoint",
				zap.String("constraint", fk.ConstraintName),
				zap.String("source", fk.SourceKey().String()),
				zap.String("target", fk.TargetKey().String()))
			continue
		}
		write.Edges = append(write.Edges, &models.GraphEdge{
			ID:    models.ForeignKeyEdgeID(srcID, dstID),
			SrcID: srcID,
			DstID: dstID,
			Type:  models.EdgeTypeForeignKey,
			Props: map[string]any{"constraint_name": fk.ConstraintName},
		})
	}

	for _, n := range write.Nodes {
		write.Provenance = append(write.Provenance, &models.ProvenanceRecord{
			ID:       uuid.New(),
			EntityID: n.ID,
			SourceID: req.SourceID,
			Origin:   models.ProvenanceOriginCrawl,
			CrawlID:  req.CrawlID,
		})
	}

	return write, skipped, warnings
}

// displayName renders an identifier as a human heading, singularized:
// "user_accounts" becomes "User Account".
func displayName(identifier string) string {
	return titleCase(inflection.Singular(identifier))
}

// titleCase splits an identifier on separators and capitalizes each word.
func titleCase(identifier string) string {
	words := strings.FieldsFunc(identifier, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Ensure graphIngestor implements GraphIngestor at compile time.
var _ GraphIngestor = (*graphIngestor)(nil)
