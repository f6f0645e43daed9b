//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// RowCountStrategies returns counting strategies. The catalog estimate is
// free; COUNT(*) over a columnar file is cheap enough to be the fallback.
func (a *Adapter) RowCountStrategies() []source.RowCountStrategy {
	return []source.RowCountStrategy{
		{Name: "estimated_size", Exact: false, Count: a.countFromEstimatedSize},
		{Name: "count_star", Exact: true, Count: a.countExact},
	}
}

func (a *Adapter) countFromEstimatedSize(ctx context.Context, table models.TableKey) (int64, error) {
	const query = `
		SELECT COALESCE(MAX(t.estimated_size), 0)
		FROM duckdb_tables() t
		WHERE t.schema_name = ? AND t.table_name = ?`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.db.QueryRowContext(qctx, query, table.Schema, table.Name).Scan(&count); err != nil {
		return 0, fmt.Errorf("estimate rows for %s: %w", table, err)
	}
	return count, nil
}

func (a *Adapter) countExact(ctx context.Context, table models.TableKey) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", qualifiedTableName(table.Schema, table.Name))

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.db.QueryRowContext(qctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows for %s: %w", table, err)
	}
	return count, nil
}

// SupportsColumnProfiles reports false: DuckDB keeps no standing statistics
// catalog, and profiling would mean scanning every column of every table.
func (a *Adapter) SupportsColumnProfiles() bool {
	return false
}

func (a *Adapter) ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error) {
	return nil, fmt.Errorf("column profiles for duckdb: %w", apperrors.ErrUnsupportedOperation)
}
