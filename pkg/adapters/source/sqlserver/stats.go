//go:build sqlserver || all_adapters

package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// RowCountStrategies returns counting strategies from cheapest to most
// expensive. Partition stats need VIEW DATABASE STATE, sys.partitions only
// needs catalog visibility, COUNT_BIG scans.
func (a *Adapter) RowCountStrategies() []source.RowCountStrategy {
	return []source.RowCountStrategy{
		{Name: "partition_stats", Exact: false, Count: a.countFromPartitionStats},
		{Name: "sys_partitions", Exact: false, Count: a.countFromSysPartitions},
		{Name: "count_star", Exact: true, Count: a.countExact},
	}
}

func (a *Adapter) countFromPartitionStats(ctx context.Context, table models.TableKey) (int64, error) {
	const query = `
	SELECT COALESCE(SUM(ps.row_count), 0)
	FROM sys.dm_db_partition_stats ps
	WHERE ps.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	    AND ps.index_id IN (0, 1)`

	return a.countByQuery(ctx, query, table, "partition stats")
}

func (a *Adapter) countFromSysPartitions(ctx context.Context, table models.TableKey) (int64, error) {
	const query = `
	SELECT COALESCE(SUM(p.rows), 0)
	FROM sys.partitions p
	WHERE p.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	    AND p.index_id IN (0, 1)`

	return a.countByQuery(ctx, query, table, "sys partitions")
}

func (a *Adapter) countByQuery(ctx context.Context, query string, table models.TableKey, what string) (int64, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	err := a.db.QueryRowContext(qctx, query,
		sql.Named("schema", table.Schema),
		sql.Named("table", table.Name),
	).Scan(&count)
	if err != nil {
		return 0, wrapPermission(err, fmt.Sprintf("%s for %s", what, table))
	}
	return count, nil
}

func (a *Adapter) countExact(ctx context.Context, table models.TableKey) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT_BIG(*) FROM %s", qualifiedTableName(table.Schema, table.Name))

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.db.QueryRowContext(qctx, query).Scan(&count); err != nil {
		return 0, wrapPermission(err, fmt.Sprintf("count rows for %s", table))
	}
	return count, nil
}

// SupportsColumnProfiles reports false: DBCC SHOW_STATISTICS output is not
// queryable without elevated permissions, so there is no bulk profile read.
func (a *Adapter) SupportsColumnProfiles() bool {
	return false
}

func (a *Adapter) ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error) {
	return nil, fmt.Errorf("column profiles for sqlserver: %w", apperrors.ErrUnsupportedOperation)
}
