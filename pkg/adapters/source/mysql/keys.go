//go:build mysql || all_adapters

package mysql

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// ForeignKeyTiers returns foreign key discovery strategies. The referential
// constraint join is authoritative; KEY_COLUMN_USAGE alone covers accounts
// that can see key usage but not REFERENTIAL_CONSTRAINTS.
func (a *Adapter) ForeignKeyTiers() []source.ForeignKeyTier {
	return []source.ForeignKeyTier{
		{
			Feature:     "referential_constraints",
			Remediation: "grant the crawl account SELECT on the target database so information_schema exposes its referential constraints",
			List:        a.listForeignKeysFromReferentialConstraints,
		},
		{
			Feature:     "key_column_usage",
			Remediation: "grant the crawl account REFERENCES or SELECT on the referencing tables",
			List:        a.listForeignKeysFromKeyColumnUsage,
		},
	}
}

func (a *Adapter) listForeignKeysFromReferentialConstraints(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	const query = `
		SELECT
			rc.CONSTRAINT_NAME,
			kcu.TABLE_SCHEMA,
			kcu.TABLE_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_SCHEMA,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.REFERENTIAL_CONSTRAINTS rc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
			AND kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
		WHERE rc.CONSTRAINT_SCHEMA = DATABASE()
		ORDER BY rc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	return a.scanForeignKeys(ctx, query, "referential constraints")
}

func (a *Adapter) listForeignKeysFromKeyColumnUsage(ctx context.Context) ([]source.ForeignKeyRecord, error) {
	const query = `
		SELECT
			kcu.CONSTRAINT_NAME,
			kcu.TABLE_SCHEMA,
			kcu.TABLE_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_SCHEMA,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE kcu
		WHERE kcu.TABLE_SCHEMA = DATABASE()
			AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	return a.scanForeignKeys(ctx, query, "key column usage")
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
