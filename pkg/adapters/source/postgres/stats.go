//go:build postgres || all_adapters

package postgres

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// RowCountStrategies returns counting strategies ordered from cheapest to
// most expensive. The first two are planner estimates and stay cheap on huge
// tables; COUNT(*) is exact but scans.
func (a *Adapter) RowCountStrategies() []source.RowCountStrategy {
	return []source.RowCountStrategy{
		{Name: "pg_stat_user_tables", Exact: false, Count: a.countFromStatTables},
		{Name: "pg_class_reltuples", Exact: false, Count: a.countFromRelTuples},
		{Name: "count_star", Exact: true, Count: a.countExact},
	}
}

func (a *Adapter) countFromStatTables(ctx context.Context, table models.TableKey) (int64, error) {
	// SUM over zero rows yields NULL rather than a no-rows error, so tables
	// missing from the stats view (fresh or partitioned parents) report 0.
	const query = `
		SELECT COALESCE(SUM(n_live_tup), 0)::bigint
		FROM pg_catalog.pg_stat_user_tables
		WHERE schemaname = $1 AND relname = $2
	`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.pool.QueryRow(qctx, query, table.Schema, table.Name).Scan(&count); err != nil {
		return 0, wrapPermission(err, "query pg_stat_user_tables")
	}
	return count, nil
}

func (a *Adapter) countFromRelTuples(ctx context.Context, table models.TableKey) (int64, error) {
	// reltuples is -1 on never-analyzed tables since PG14; clamp to 0.
	const query = `
		SELECT COALESCE(MAX(GREATEST(c.reltuples::bigint, 0)), 0)
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.pool.QueryRow(qctx, query, table.Schema, table.Name).Scan(&count); err != nil {
		return 0, wrapPermission(err, "query pg_class reltuples")
	}
	return count, nil
}

func (a *Adapter) countExact(ctx context.Context, table models.TableKey) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", qualifiedTableName(table.Schema, table.Name))

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := a.pool.QueryRow(qctx, query).Scan(&count); err != nil {
		return 0, wrapPermission(err, "count rows in "+table.String())
	}
	return count, nil
}

func (a *Adapter) SupportsColumnProfiles() bool {
	return true
}

// ProfileColumns reads pg_stats for the requested tables in one pass.
// n_distinct is only carried over when the planner recorded an absolute
// count; negative ratio values would need row counts to resolve.
func (a *Adapter) ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	const query = `
		SELECT schemaname, tablename, attname, null_frac, n_distinct, avg_width
		FROM pg_catalog.pg_stats
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schemaname, tablename, attname
	`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.pool.Query(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query pg_stats")
	}
	defer rows.Close()

	wanted := make(map[models.TableKey]bool, len(tables))
	for _, t := range tables {
		wanted[t] = true
	}

	var profiles []models.ColumnProfile
	for rows.Next() {
		var (
			schema, table, column string
			nullFrac              *float64
			nDistinct             *float64
			avgWidth              *int64
		)
		if err := rows.Scan(&schema, &table, &column, &nullFrac, &nDistinct, &avgWidth); err != nil {
			return nil, fmt.Errorf("scan pg_stats row: %w", err)
		}

		if !wanted[models.TableKey{Schema: schema, Name: table}] {
			continue
		}

		p := models.ColumnProfile{
			Schema:        schema,
			Table:         table,
			Column:        column,
			NullFrac:      nullFrac,
			AvgWidthBytes: avgWidth,
		}
		if nDistinct != nil && *nDistinct >= 0 {
			v := int64(*nDistinct)
			p.DistinctCount = &v
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate pg_stats")
	}

	return profiles, nil
}

var _ source.StatisticsIntrospector = (*Adapter)(nil)
