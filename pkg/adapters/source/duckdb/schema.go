//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// TableTiers returns the single listing strategy. DuckDB has no privilege
// system, so there is nothing to degrade to.
func (a *Adapter) TableTiers() []source.TableTier {
	return []source.TableTier{
		{
			Feature:     "duckdb_tables",
			Remediation: "ensure the database file is readable by the crawler process",
			HasComments: true,
			List:        a.listTables,
		},
	}
}

func (a *Adapter) listTables(ctx context.Context) ([]source.TableRecord, error) {
	const query = `
		SELECT t.schema_name, t.table_name, 'base-table' AS table_kind, t.comment
		FROM duckdb_tables() t
		WHERE NOT t.internal
		UNION ALL
		SELECT v.schema_name, v.view_name, 'view' AS table_kind, v.comment
		FROM duckdb_views() v
		WHERE NOT v.internal
		ORDER BY 1, 2`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, fmt.Errorf("query duckdb tables: %w", err)
	}
	defer rows.Close()

	var tables []source.TableRecord
	for rows.Next() {
		var t source.TableRecord
		if err := rows.Scan(&t.Schema, &t.Name, &t.Kind, &t.Comment); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return tables, nil
}

// ListColumns reads every column of the attached database in one query.
func (a *Adapter) ListColumns(ctx context.Context) ([]source.ColumnRecord, error) {
	const query = `
		SELECT c.schema_name, c.table_name, c.column_name, c.data_type,
			c.is_nullable, c.column_default, c.comment
		FROM duckdb_columns() c
		WHERE NOT c.internal
		ORDER BY c.schema_name, c.table_name, c.column_index`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, fmt.Errorf("query duckdb columns: %w", err)
	}
	defer rows.Close()

	var columns []source.ColumnRecord
	for rows.Next() {
		var c source.ColumnRecord
		if err := rows.Scan(&c.TableSchema, &c.TableName, &c.Name, &c.DataType, &c.Nullable, &c.Default, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}
