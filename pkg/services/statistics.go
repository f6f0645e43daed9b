package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// StatisticsProfiler gathers row counts and column statistics through an
// adapter session.
type StatisticsProfiler interface {
	// GetRowCounts resolves a row count per table through the adapter's
	// strategy chain. A strategy that fails once is skipped for every
	// remaining table in this crawl, which bounds the total query count.
	// A nil map value means the count is unknown, distinct from zero.
	GetRowCounts(ctx context.Context, adapter source.Adapter, tables []models.TableKey) (map[models.TableKey]*int64, []models.Warning, error)

	// ProfileTables gathers per-column statistics in one bulk query.
	// Unsupported kinds and failed queries both return an empty list plus
	// exactly one warning; statistics are never a fatal concern.
	ProfileTables(ctx context.Context, adapter source.Adapter, tables []models.TableKey) ([]models.ColumnProfile, []models.Warning, error)
}

type statisticsProfiler struct {
	logger *zap.Logger
}

// NewStatisticsProfiler creates a new statistics profiler.
func NewStatisticsProfiler(logger *zap.Logger) StatisticsProfiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statisticsProfiler{logger: logger}
}

func (p *statisticsProfiler) GetRowCounts(ctx context.Context, adapter source.Adapter, tables []models.TableKey) (map[models.TableKey]*int64, []models.Warning, error) {
	counts := make(map[models.TableKey]*int64, len(tables))

	strategies := adapter.RowCountStrategies()
	if len(strategies) == 0 {
		for _, table := range tables {
			counts[table] = nil
		}
		return counts, []models.Warning{{
			Severity: models.SeverityInfo,
			Feature:  "row_counts",
			Message:  fmt.Sprintf("row counts are not supported for %s sources", adapter.Kind()),
		}}, nil
	}

	// A failing strategy stays disabled for the whole crawl, so each
	// strategy pays for at most one failing call.
	disabled := make([]bool, len(strategies))
	var warnings []models.Warning

	for _, table := range tables {
		counts[table] = nil
		for i, strategy := range strategies {
			if disabled[i] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("row counting cancelled: %w", err)
			}

			n, err := strategy.Count(ctx, table)
			if err != nil {
				disabled[i] = true
				severity := models.SeverityInfo
				if len(warnings) == 0 {
					severity = models.SeverityWarning
				}
				warnings = append(warnings, models.Warning{
					Severity:         severity,
					Feature:          strategy.Name,
					Message:          fmt.Sprintf("row count strategy %s failed and was disabled for this crawl: %v", strategy.Name, err),
					PermissionDenied: errors.Is(err, apperrors.ErrPermissionDenied),
				})
				p.logger.Debug("row count strategy disabled",
					zap.String("kind", adapter.Kind()),
					zap.String("strategy", strategy.Name),
					zap.Error(err))
				continue
			}

			counts[table] = &n
			break
		}
	}

	return counts, warnings, nil
}

func (p *statisticsProfiler) ProfileTables(ctx context.Context, adapter source.Adapter, tables []models.TableKey) ([]models.ColumnProfile, []models.Warning, error) {
	if len(tables) == 0 {
		return nil, nil, nil
	}
	if !adapter.SupportsColumnProfiles() {
		return nil, []models.Warning{{
			Severity: models.SeverityInfo,
			Feature:  "column_statistics",
			Message:  fmt.Sprintf("column statistics are not supported for %s sources", adapter.Kind()),
		}}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("column profiling cancelled: %w", err)
	}

	// One bulk query with no per-table fallback: the statistics view either
	// answers for every table at once or the crawl goes on without profiles.
	profiles, err := adapter.ProfileColumns(ctx, tables)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("column profiling cancelled: %w", ctxErr)
		}
		warning := models.Warning{
			Severity: models.SeverityWarning,
			Feature:  "column_statistics",
			Message:  fmt.Sprintf("column statistics query failed: %v", err),
		}
		if errors.Is(err, apperrors.ErrPermissionDenied) {
			warning.Message = "access to column statistics was denied"
			warning.Remediation = "grant the crawl role read access to the statistics catalog views"
			warning.PermissionDenied = true
		}
		p.logger.Debug("column profiling unavailable",
			zap.String("kind", adapter.Kind()),
			zap.Error(err))
		return nil, []models.Warning{warning}, nil
	}

	return profiles, nil, nil
}

// Ensure statisticsProfiler implements StatisticsProfiler at compile time.
var _ StatisticsProfiler = (*statisticsProfiler)(nil)
