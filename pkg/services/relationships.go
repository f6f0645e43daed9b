package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/probe"
)

// RelationshipDiscoverer surfaces declared foreign key constraints through
// the adapter's tiered catalog queries.
type RelationshipDiscoverer interface {
	// GetForeignKeys probes the adapter's constraint tiers and returns the
	// resolved constraints. Source kinds without a foreign key concept
	// return an empty list plus an info warning, without probing.
	GetForeignKeys(ctx context.Context, adapter source.Adapter) ([]models.ForeignKeyConstraint, []models.Warning, error)
}

type relationshipDiscoverer struct {
	logger *zap.Logger
}

// NewRelationshipDiscoverer creates a new relationship discoverer.
func NewRelationshipDiscoverer(logger *zap.Logger) RelationshipDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &relationshipDiscoverer{logger: logger}
}

func (d *relationshipDiscoverer) GetForeignKeys(ctx context.Context, adapter source.Adapter) ([]models.ForeignKeyConstraint, []models.Warning, error) {
	fkTiers := adapter.ForeignKeyTiers()
	if len(fkTiers) == 0 {
		return nil, []models.Warning{{
			Severity: models.SeverityInfo,
			Feature:  "foreign_keys",
			Message:  fmt.Sprintf("%s sources do not declare foreign keys; document relationships manually", adapter.Kind()),
		}}, nil
	}

	tiers := make([]probe.Tier[[]source.ForeignKeyRecord], len(fkTiers))
	for i, t := range fkTiers {
		tiers[i] = probe.Tier[[]source.ForeignKeyRecord]{
			Feature:     t.Feature,
			Remediation: t.Remediation,
			Run:         t.List,
		}
	}

	outcome, err := probe.Run(ctx, d.logger, "foreign_keys", tiers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}

	constraints := make([]models.ForeignKeyConstraint, 0, len(outcome.Data))
	skipped := 0
	for _, rec := range outcome.Data {
		if rec.SourceSchema == nil || rec.SourceTable == nil || rec.SourceColumn == nil ||
			rec.TargetSchema == nil || rec.TargetTable == nil || rec.TargetColumn == nil {
			skipped++
			continue
		}
		name := ""
		if rec.ConstraintName != nil {
			name = *rec.ConstraintName
		}
		if name == "" {
			// Degraded catalogs can omit the constraint name.
			name = fmt.Sprintf("fk_%s_%s", *rec.SourceTable, *rec.SourceColumn)
		}
		constraints = append(constraints, models.ForeignKeyConstraint{
			ConstraintName: name,
			SourceSchema:   *rec.SourceSchema,
			SourceTable:    *rec.SourceTable,
			SourceColumn:   *rec.SourceColumn,
			TargetSchema:   *rec.TargetSchema,
			TargetTable:    *rec.TargetTable,
			TargetColumn:   *rec.TargetColumn,
		})
	}

	if skipped > 0 {
		d.logger.Warn("skipped malformed foreign key rows",
			zap.String("kind", adapter.Kind()),
			zap.Int("skipped", skipped))
	}

	return constraints, outcome.Warnings, nil
}

// Ensure relationshipDiscoverer implements RelationshipDiscoverer at compile time.
var _ RelationshipDiscoverer = (*relationshipDiscoverer)(nil)
