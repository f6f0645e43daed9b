//go:build postgres || all_adapters

package postgres

import (
	"context"
	"fmt"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// ForeignKeyTiers returns the constraint listing strategies, richest first.
// The pg_constraint tier resolves composite keys column by column; the
// information_schema fallback covers roles that cannot read the catalog.
func (a *Adapter) ForeignKeyTiers() []source.ForeignKeyTier {
	return []source.ForeignKeyTier{
		{
			Feature:     "pg_constraint",
			Remediation: "grant the crawl role SELECT on pg_catalog.pg_constraint",
			List:        a.listForeignKeysFromCatalog,
		},
		{
			Feature:     "information_schema_constraints",
			Remediation: "grant the crawl role SELECT on information_schema constraint views",
			List:        a.listForeignKeysFromInfoSchema,
		},
	}
}

func (a *Adapter) listForeignKeysFromCatalog(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	// Composite constraints emit one row per column pair, matched by ordinal.
	const query = `
		SELECT
			con.conname AS constraint_name,
			src_ns.nspname AS source_schema,
			src_cl.relname AS source_table,
			src_att.attname AS source_column,
			tgt_ns.nspname AS target_schema,
			tgt_cl.relname AS target_table,
			tgt_att.attname AS target_column
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class src_cl ON src_cl.oid = con.conrelid
		JOIN pg_catalog.pg_namespace src_ns ON src_ns.oid = src_cl.relnamespace
		JOIN pg_catalog.pg_class tgt_cl ON tgt_cl.oid = con.confrelid
		JOIN pg_catalog.pg_namespace tgt_ns ON tgt_ns.oid = tgt_cl.relnamespace
		JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS sk(attnum, ord) ON true
		JOIN LATERAL unnest(con.confkey) WITH ORDINALITY AS tk(attnum, ord) ON tk.ord = sk.ord
		JOIN pg_catalog.pg_attribute src_att ON src_att.attrelid = con.conrelid AND src_att.attnum = sk.attnum
		JOIN pg_catalog.pg_attribute tgt_att ON tgt_att.attrelid = con.confrelid AND tgt_att.attnum = tk.attnum
		WHERE con.contype = 'f'
		  AND src_ns.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY con.conname, sk.ord
	`

	return a.scanForeignKeys(ctx, query, "pg_constraint")
}

func (a *Adapter) listForeignKeysFromInfoSchema(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	const query = `
		SELECT
			tc.constraint_name,
			kcu.table_schema AS source_schema,
			kcu.table_name AS source_table,
			kcu.column_name AS source_column,
			ccu.table_schema AS target_schema,
			ccu.table_name AS target_table,
			ccu.column_name AS target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	`

	return a.scanForeignKeys(ctx, query, "information_schema constraints")
}

func (a *Adapter) scanForeignKeys(ctx context.Context, query, what string) ([]source.ForeignKeyRecord, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.pool.Query(qctx, query)
	if err != nil {
		return nil, wrapPermission(err, "query "+what)
	}
	defer rows.Close()

	var fks []source.ForeignKeyRecord
	for rows.Next() {
		var fk source.ForeignKeyRecord
		if err := rows.Scan(&fk.ConstraintName, &fk.SourceSchema, &fk.SourceTable, &fk.SourceColumn,
			&fk.TargetSchema, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate "+what)
	}

	return fks, nil
}

var _ source.RelationshipIntrospector = (*Adapter)(nil)
