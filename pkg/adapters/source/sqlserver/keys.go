//go:build sqlserver || all_adapters

package sqlserver

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// ForeignKeyTiers returns foreign key discovery strategies. The sys catalog
// resolves names through metadata functions that return NULL for objects the
// login cannot see; such rows are skipped downstream.
func (a *Adapter) ForeignKeyTiers() []source.ForeignKeyTier {
	return []source.ForeignKeyTier{
		{
			Feature:     "sys_foreign_keys",
			Remediation: "grant the crawl login VIEW DEFINITION on the database so the sys catalog exposes its constraints",
			List:        a.listForeignKeysFromSysCatalog,
		},
		{
			Feature:     "information_schema_constraints",
			Remediation: "grant the crawl login SELECT on both sides of the constrained tables",
			List:        a.listForeignKeysFromInformationSchema,
		},
	}
}

func (a *Adapter) listForeignKeysFromSysCatalog(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    fk.name AS constraint_name,
	    SCHEMA_NAME(fk.schema_id) AS source_schema,
	    OBJECT_NAME(fk.parent_object_id) AS source_table,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
	    SCHEMA_NAME(rt.schema_id) AS target_schema,
	    OBJECT_NAME(fk.referenced_object_id) AS target_table,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
	INNER JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
	WHERE fk.is_ms_shipped = 0
	ORDER BY fk.name, fkc.constraint_column_id`

	return a.scanForeignKeys(ctx, query, "sys foreign keys")
}

func (a *Adapter) listForeignKeysFromInformationSchema(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	const query = `
	SELECT
	    rc.CONSTRAINT_NAME,
	    kcu1.TABLE_SCHEMA AS source_schema,
	    kcu1.TABLE_NAME AS source_table,
	    kcu1.COLUMN_NAME AS source_column,
	    kcu2.TABLE_SCHEMA AS target_schema,
	    kcu2.TABLE_NAME AS target_table,
	    kcu2.COLUMN_NAME AS target_column
	FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
	INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu1
	    ON kcu1.CONSTRAINT_CATALOG = rc.CONSTRAINT_CATALOG
	    AND kcu1.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
	    AND kcu1.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
	INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu2
	    ON kcu2.CONSTRAINT_CATALOG = rc.UNIQUE_CONSTRAINT_CATALOG
	    AND kcu2.CONSTRAINT_SCHEMA = rc.UNIQUE_CONSTRAINT_SCHEMA
	    AND kcu2.CONSTRAINT_NAME = rc.UNIQUE_CONSTRAINT_NAME
	    AND kcu2.ORDINAL_POSITION = kcu1.ORDINAL_POSITION
	ORDER BY rc.CONSTRAINT_NAME, kcu1.ORDINAL_POSITION`

	return a.scanForeignKeys(ctx, query, "information_schema constraints")
}

func (a *Adapter) scanForeignKeys(ctx context.Context, query, what string) ([]source.ForeignKeyRecord, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query "+what)
	}
	defer rows.Close()

	var keys []source.ForeignKeyRecord
	for rows.Next() {
		var fk source.ForeignKeyRecord
		if err := rows.Scan(
			&fk.ConstraintName,
			&fk.SourceSchema,
			&fk.SourceTable,
			&fk.SourceColumn,
			&fk.TargetSchema,
			&fk.TargetTable,
			&fk.TargetColumn,
		); err != nil {
			return nil, wrapPermission(err, "scan "+what)
		}
		keys = append(keys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate "+what)
	}

	return keys, nil
}
