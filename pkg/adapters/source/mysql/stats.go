//go:build mysql || all_adapters

package mysql

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// RowCountStrategies returns counting strategies from cheapest to most
// expensive. TABLE_ROWS is the storage engine's estimate and can be off by
// a large factor for InnoDB; COUNT(*) is exact but scans.
func (a *Adapter) RowCountStrategies() []source.RowCountStrategy {
	return []source.RowCountStrategy{
		{Name: "table_rows_estimate", Exact: false, Count: a.countFromTableRows},
		{Name: "count_star", Exact: true, Count: a.countExact},
	}
}

// countFromTableRows reads the engine estimate. The MAX/COALESCE pair keeps
// the query returning a row even when the table is missing from the catalog.
func (a *Adapter) countFromTableRows(ctx context.Context, table models.TableKey) (int64, error) {
	const query = `
		SELECT COALESCE(MAX(t.TABLE_ROWS), 0)
		FROM information_schema.TABLES t
		WHERE t.TABLE_SCHEMA = ? AND t.TABLE_NAME = ?`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	err := a.db.QueryRowContext(qctx, query, table.Schema, table.Name).Scan(&count)
	if err != nil {
		return 0, wrapPermission(err, fmt.Sprintf("estimate rows for %s", table))
	}
	return count, nil
}

func (a *Adapter) countExact(ctx context.Context, table models.TableKey) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", qualifiedTableName(table.Schema, table.Name))

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.db.QueryRowContext(qctx, query).Scan(&count); err != nil {
		return 0, wrapPermission(err, fmt.Sprintf("count rows for %s", table))
	}
	return count, nil
}

// SupportsColumnProfiles reports false: MySQL keeps histogram statistics in
// column_statistics as JSON without the per-column null fraction and width
// numbers the profile model wants.
func (a *Adapter) SupportsColumnProfiles() bool {
	return false
}

func (a *Adapter) ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error) {
	return nil, fmt.Errorf("column profiles for mysql: %w", apperrors.ErrUnsupportedOperation)
}
