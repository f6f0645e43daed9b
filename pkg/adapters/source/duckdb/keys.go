//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// ForeignKeyTiers returns the single discovery strategy. DuckDB does not
// name constraints, so names are synthesized from the table and constraint
// index. REFERENCES resolves within the schema of the referencing table.
func (a *Adapter) ForeignKeyTiers() []source.ForeignKeyTier {
	return []source.ForeignKeyTier{
		{
			Feature:     "duckdb_constraints",
			Remediation: "ensure the database file is readable by the crawler process",
			List:        a.listForeignKeys,
		},
	}
}

func (a *Adapter) listForeignKeys(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	const query = `
		SELECT
			con.table_name || '_fk' || CAST(con.constraint_index AS VARCHAR) AS constraint_name,
			con.schema_name AS source_schema,
			con.table_name AS source_table,
			UNNEST(con.constraint_column_names) AS source_column,
			con.schema_name AS target_schema,
			con.referenced_table AS target_table,
			UNNEST(con.referenced_column_names) AS target_column
		FROM duckdb_constraints() con
		WHERE con.constraint_type = 'FOREIGN KEY'
		ORDER BY con.schema_name, con.table_name, con.constraint_index`

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, query)
	if err != nil {
		return nil, fmt.Errorf("query duckdb constraints: %w", err)
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
			return nil, fmt.Errorf("scan constraint row: %w", err)
		}
		keys = append(keys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate constraint rows: %w", err)
	}

	return keys, nil
}
