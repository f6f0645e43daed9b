//go:build postgres || all_adapters

package postgres

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// TableTiers returns the table listing strategies, richest first. The
// pg_catalog tier carries table comments; the information_schema fallback
// does not.
func (a *Adapter) TableTiers() []source.TableTier {
	return []source.TableTier{
		{
			Feature:     "pg_catalog_tables",
			Remediation: "grant the crawl role SELECT on pg_catalog.pg_class and pg_catalog.pg_namespace",
			HasComments: true,
			List:        a.listTablesFromCatalog,
		},
		{
			Feature:     "information_schema_tables",
			Remediation: "grant the crawl role SELECT on information_schema views",
			HasComments: false,
			List:        a.listTablesFromInfoSchema,
		},
	}
}

func (a *Adapter) listTablesFromCatalog(ctx context.Context) ([]source.TableRecord, error) {
	const query = `
		SELECT
			n.nspname AS table_schema,
			c.relname AS table_name,
			CASE WHEN c.relkind IN ('v', 'm') THEN 'view' ELSE 'base-table' END AS table_kind,
			obj_description(c.oid, 'pg_class') AS table_comment
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p', 'v', 'm')
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY n.nspname, c.relname
	`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.pool.Query(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query pg_catalog tables")
	}
	defer rows.Close()

	var tables []source.TableRecord
	for rows.Next() {
		var t source.TableRecord
		if err := rows.Scan(&t.Schema, &t.Name, &t.Kind, &t.Comment); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate pg_catalog tables")
	}

	return tables, nil
}

func (a *Adapter) listTablesFromInfoSchema(ctx context.Context) ([]source.TableRecord, error) {
	const query = `
		SELECT
			t.table_schema,
			t.table_name,
			CASE WHEN t.table_type = 'VIEW' THEN 'view' ELSE 'base-table' END AS table_kind
		FROM information_schema.tables t
		WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_schema, t.table_name
	`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.pool.Query(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query information_schema tables")
	}
	defer rows.Close()

	var tables []source.TableRecord
	for rows.Next() {
		var t source.TableRecord
		if err := rows.Scan(&t.Schema, &t.Name, &t.Kind); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate information_schema tables")
	}

	return tables, nil
}

// ListColumns returns every column of every user table in one pass. Column
// comments come from pg_description when readable; the LEFT JOINs keep the
// listing usable for roles that cannot see the catalog.
func (a *Adapter) ListColumns(ctx context.Context) ([]source.ColumnRecord, error) {
	const query = `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			c.column_default,
			d.description AS column_comment
		FROM information_schema.columns c
		LEFT JOIN pg_catalog.pg_namespace pn ON pn.nspname = c.table_schema
		LEFT JOIN pg_catalog.pg_class pc ON pc.relname = c.table_name AND pc.relnamespace = pn.oid
		LEFT JOIN pg_catalog.pg_description d ON d.objoid = pc.oid AND d.objsubid = c.ordinal_position
		WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.pool.Query(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query columns")
	}
	defer rows.Close()

	var columns []source.ColumnRecord
	for rows.Next() {
		var c source.ColumnRecord
		if err := rows.Scan(&c.TableSchema, &c.TableName, &c.Name, &c.DataType, &c.Nullable, &c.Default, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate columns")
	}

	return columns, nil
}

var _ source.SchemaIntrospector = (*Adapter)(nil)
