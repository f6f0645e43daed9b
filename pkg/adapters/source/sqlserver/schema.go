//go:build sqlserver || all_adapters

package sqlserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// TableTiers returns table listing strategies from richest to most basic.
// The sys catalog carries MS_Description extended properties as comments.
func (a *Adapter) TableTiers() []source.TableTier {
	return []source.TableTier{
		{
			Feature:     "sys_catalog_tables",
			Remediation: "grant the crawl login VIEW DEFINITION on the database so the sys catalog exposes its objects",
			HasComments: true,
			List:        a.listTablesFromSysCatalog,
		},
		{
			Feature:     "information_schema_tables",
			Remediation: "grant the crawl login SELECT on the tables to crawl",
			HasComments: false,
			List:        a.listTablesFromInformationSchema,
		},
	}
}

func (a *Adapter) listTablesFromSysCatalog(ctx context.Context) ([]source.TableRecord, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    s.name AS schema_name,
	    o.name AS table_name,
	    CASE WHEN o.type = 'V' THEN 'view' ELSE 'base-table' END AS table_kind,
	    CAST(ep.value AS nvarchar(4000)) AS table_comment
	FROM sys.objects o
	INNER JOIN sys.schemas s ON s.schema_id = o.schema_id
	LEFT JOIN sys.extended_properties ep
	    ON ep.class = 1 AND ep.major_id = o.object_id AND ep.minor_id = 0 AND ep.name = 'MS_Description'
	WHERE o.type IN ('U', 'V') AND o.is_ms_shipped = 0
	ORDER BY s.name, o.name`

	return a.scanTables(ctx, query, "sys catalog tables")
}

func (a *Adapter) listTablesFromInformationSchema(ctx context.Context) ([]source.TableRecord, error) {
	const query = `
	SELECT
	    t.TABLE_SCHEMA,
	    t.TABLE_NAME,
	    CASE WHEN t.TABLE_TYPE = 'VIEW' THEN 'view' ELSE 'base-table' END AS table_kind,
	    CAST(NULL AS nvarchar(1)) AS table_comment
	FROM INFORMATION_SCHEMA.TABLES t
	WHERE t.TABLE_TYPE IN ('BASE TABLE', 'VIEW')
	ORDER BY t.TABLE_SCHEMA, t.TABLE_NAME`

	return a.scanTables(ctx, query, "information_schema tables")
}

func (a *Adapter) scanTables(ctx context.Context, query, what string) ([]source.TableRecord, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query "+what)
	}
	defer rows.Close()

	var tables []source.TableRecord
	for rows.Next() {
		var t source.TableRecord
		if err := rows.Scan(&t.Schema, &t.Name, &t.Kind, &t.Comment); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", what, err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate "+what)
	}

	return tables, nil
}

// ListColumns reads every column of the database in one query. Type names
// are rendered the way sp_help prints them, with length and precision kept.
func (a *Adapter) ListColumns(ctx context.Context) ([]source.ColumnRecord, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    s.name AS schema_name,
	    o.name AS table_name,
	    c.name AS column_name,
	    tp.name AS data_type,
	    c.max_length,
	    c.precision,
	    c.scale,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    object_definition(c.default_object_id) AS column_default,
	    CAST(ep.value AS nvarchar(4000)) AS column_comment
	FROM sys.columns c
	INNER JOIN sys.objects o ON o.object_id = c.object_id AND o.type IN ('U', 'V') AND o.is_ms_shipped = 0
	INNER JOIN sys.schemas s ON s.schema_id = o.schema_id
	INNER JOIN sys.types tp ON tp.user_type_id = c.user_type_id
	LEFT JOIN sys.extended_properties ep
	    ON ep.class = 1 AND ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.name = 'MS_Description'
	ORDER BY s.name, o.name, c.column_id`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query sys columns")
	}
	defer rows.Close()

	var columns []source.ColumnRecord
	for rows.Next() {
		var (
			c          source.ColumnRecord
			baseType   string
			maxLength  int64
			precision  int64
			scale      int64
			isNullable int
		)
		if err := rows.Scan(
			&c.TableSchema,
			&c.TableName,
			&c.Name,
			&baseType,
			&maxLength,
			&precision,
			&scale,
			&isNullable,
			&c.Default,
			&c.Comment,
		); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		c.DataType = formatDataType(baseType, maxLength, precision, scale)
		c.Nullable = isNullable == 1
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate column rows")
	}

	return columns, nil
}

// formatDataType renders a type name with the modifiers that matter for it.
// sys.columns reports max_length in bytes, so UTF-16 types halve it, and -1
// means (max).
func formatDataType(baseType string, maxLength, precision, scale int64) string {
	switch strings.ToLower(baseType) {
	case "char", "varchar", "binary", "varbinary":
		if maxLength == -1 {
			return baseType + "(max)"
		}
		return fmt.Sprintf("%s(%d)", baseType, maxLength)
	case "nchar", "nvarchar":
		if maxLength == -1 {
			return baseType + "(max)"
		}
		return fmt.Sprintf("%s(%d)", baseType, maxLength/2)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", baseType, precision, scale)
	case "datetime2", "datetimeoffset", "time":
		return fmt.Sprintf("%s(%d)", baseType, scale)
	default:
		return baseType
	}
}
