package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/probe"
)

// SchemaCrawler discovers tables and columns through a live adapter session.
type SchemaCrawler interface {
	// CrawlSchema lists tables through the adapter's privilege tiers, lists
	// columns in a single pass, and joins the two by (schema, name). Tier
	// permission failures degrade into warnings; connectivity and query
	// errors abort the crawl.
	CrawlSchema(ctx context.Context, adapter source.Adapter) (*models.EnhancedResult[*models.SchemaSnapshot], error)
}

type schemaCrawler struct {
	logger *zap.Logger
}

// NewSchemaCrawler creates a new schema crawler.
func NewSchemaCrawler(logger *zap.Logger) SchemaCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &schemaCrawler{logger: logger}
}

func (c *schemaCrawler) CrawlSchema(ctx context.Context, adapter source.Adapter) (*models.EnhancedResult[*models.SchemaSnapshot], error) {
	tableTiers := adapter.TableTiers()
	tiers := make([]probe.Tier[[]source.TableRecord], len(tableTiers))
	for i, t := range tableTiers {
		tiers[i] = probe.Tier[[]source.TableRecord]{
			Feature:     t.Feature,
			Remediation: t.Remediation,
			Run:         t.List,
		}
	}

	outcome, err := probe.Run(ctx, c.logger, "table_listing", tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	result := &models.EnhancedResult[*models.SchemaSnapshot]{
		Data:     &models.SchemaSnapshot{},
		Warnings: outcome.Warnings,
	}
	if outcome.TierIndex >= 0 {
		result.Features.HasComments = tableTiers[outcome.TierIndex].HasComments
	}

	if len(outcome.Data) == 0 {
		// Nothing to join columns against.
		result.Features.HasPermissionErrors = len(result.Warnings) > 0
		return result, nil
	}

	columns, err := adapter.ListColumns(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrPermissionDenied) {
			return nil, fmt.Errorf("failed to list columns: %w", err)
		}
		severity := models.SeverityWarning
		if len(result.Warnings) > 0 {
			severity = models.SeverityInfo
		}
		result.Warnings = append(result.Warnings, models.Warning{
			Severity:         severity,
			Feature:          "column_listing",
			Message:          "access to column metadata was denied; tables are reported without columns",
			Remediation:      "grant the crawl role read access to the columns catalog view",
			PermissionDenied: true,
		})
		columns = nil
	}

	known := make(map[models.TableKey]bool, len(outcome.Data))
	for _, t := range outcome.Data {
		known[models.TableKey{Schema: t.Schema, Name: t.Name}] = true
	}

	// Group columns by owning table, preserving introspection order. The
	// column listing runs under looser permission filtering than the table
	// listing, so it can surface tables the winning tier did not; such
	// orphan columns are dropped.
	byTable := make(map[models.TableKey][]models.SchemaColumn, len(outcome.Data))
	matched := 0
	for _, col := range columns {
		key := models.TableKey{Schema: col.TableSchema, Name: col.TableName}
		if !known[key] {
			c.logger.Debug("dropping column without a matching table",
				zap.String("table", key.String()),
				zap.String("column", col.Name))
			continue
		}
		byTable[key] = append(byTable[key], models.SchemaColumn{
			Name:     col.Name,
			DataType: col.DataType,
			Nullable: col.Nullable,
			Default:  col.Default,
			Comment:  col.Comment,
		})
		matched++
	}

	tables := make([]models.SchemaTable, 0, len(outcome.Data))
	for _, t := range outcome.Data {
		tables = append(tables, models.SchemaTable{
			Schema:  t.Schema,
			Name:    t.Name,
			Kind:    t.Kind,
			Comment: t.Comment,
			Columns: byTable[models.TableKey{Schema: t.Schema, Name: t.Name}],
		})
	}
	result.Data.Tables = tables
	result.Features.HasPermissionErrors = len(result.Warnings) > 0

	c.logger.Info("schema crawl complete",
		zap.String("kind", adapter.Kind()),
		zap.Int("tables", len(tables)),
		zap.Int("columns", matched),
		zap.Int("tier", outcome.TierIndex+1),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}

// Ensure schemaCrawler implements SchemaCrawler at compile time.
var _ SchemaCrawler = (*schemaCrawler)(nil)
