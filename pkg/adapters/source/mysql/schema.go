//go:build mysql || all_adapters

package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// TableTiers returns table listing strategies from richest to most basic.
// information_schema carries table comments; SHOW FULL TABLES needs only
// the ability to see the objects themselves.
func (a *Adapter) TableTiers() []source.TableTier {
	return []source.TableTier{
		{
			Feature:     "information_schema_tables",
			Remediation: "grant the crawl account SELECT on the target database so information_schema exposes its tables",
			HasComments: true,
			List:        a.listTablesFromInformationSchema,
		},
		{
			Feature:     "show_tables",
			Remediation: "grant the crawl account SHOW privileges on the target database",
			HasComments: false,
			List:        a.listTablesFromShow,
		},
	}
}

// listTablesFromInformationSchema reads tables and views with their comments.
// MySQL stores the literal string VIEW as the comment of every view, so view
// comments are dropped rather than reported as noise.
func (a *Adapter) listTablesFromInformationSchema(ctx context.Context) ([]source.TableRecord, error) {
	const query = `
		SELECT
			t.TABLE_SCHEMA,
			t.TABLE_NAME,
			CASE WHEN t.TABLE_TYPE = 'VIEW' THEN 'view' ELSE 'base-table' END AS table_kind,
			CASE WHEN t.TABLE_TYPE = 'VIEW' THEN NULL ELSE NULLIF(t.TABLE_COMMENT, '') END AS table_comment
		FROM information_schema.TABLES t
		WHERE t.TABLE_SCHEMA = DATABASE()
			AND t.TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY t.TABLE_NAME`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query information_schema tables")
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
		return nil, wrapPermission(err, "iterate table rows")
	}

	return tables, nil
}

// listTablesFromShow lists table and view names without comments.
func (a *Adapter) listTablesFromShow(ctx context.Context) ([]source.TableRecord, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	schema, err := a.currentDatabase(qctx)
	if err != nil {
		return nil, wrapPermission(err, "resolve database for SHOW TABLES")
	}

	rows, err := a.db.QueryContext(qctx, "SHOW FULL TABLES")
	if err != nil {
		return nil, wrapPermission(err, "run SHOW FULL TABLES")
	}
	defer rows.Close()

	var tables []source.TableRecord
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, fmt.Errorf("scan SHOW FULL TABLES row: %w", err)
		}
		kind := models.TableKindBaseTable
		if tableType == "VIEW" {
			kind = models.TableKindView
		}
		tables = append(tables, source.TableRecord{
			Schema: schema,
			Name:   name,
			Kind:   kind,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate SHOW FULL TABLES rows")
	}

	return tables, nil
}

// ListColumns reads every column of the connected database in one query.
// COLUMN_TYPE keeps the length and sign modifiers (varchar(255), int unsigned)
// that DATA_TYPE strips.
func (a *Adapter) ListColumns(ctx context.Context) ([]source.ColumnRecord, error) {
	const query = `
		SELECT
			c.TABLE_SCHEMA,
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.COLUMN_TYPE,
			c.IS_NULLABLE,
			c.COLUMN_DEFAULT,
			NULLIF(c.COLUMN_COMMENT, '') AS column_comment
		FROM information_schema.COLUMNS c
		WHERE c.TABLE_SCHEMA = DATABASE()
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query information_schema columns")
	}
	defer rows.Close()

	var columns []source.ColumnRecord
	for rows.Next() {
		var (
			c          source.ColumnRecord
			isNullable string
			colDefault sql.NullString
		)
		if err := rows.Scan(&c.TableSchema, &c.TableName, &c.Name, &c.DataType, &isNullable, &colDefault, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		c.Nullable = isNullable == "YES"
		if colDefault.Valid {
			c.Default = &colDefault.String
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate column rows")
	}

	return columns, nil
}
