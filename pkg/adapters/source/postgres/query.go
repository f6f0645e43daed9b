//go:build postgres || all_adapters

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// Query runs a read-only statement with a bounded result set. SELECT and
// WITH statements are wrapped in a LIMIT subselect; pgx binds args natively.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, args []any, limit int) (*source.QueryResult, error) {
	limit = source.NormalizeLimit(limit)
	trimmed := strings.TrimRight(strings.TrimSpace(sqlQuery), ";")
	wrapped := trimmed
	if source.WrapsAsSubquery(trimmed) {
		wrapped = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", trimmed, limit)
	}

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.pool.Query(qctx, wrapped, args...)
	if err != nil {
		return nil, wrapPermission(err, "execute query")
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]source.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = source.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapPermission(err, "iterate query results")
	}

	return &source.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// pgTypeNames maps common PostgreSQL type OIDs to readable type names.
var pgTypeNames = map[uint32]string{
	16:   "BOOL",
	17:   "BYTEA",
	18:   "CHAR",
	20:   "INT8",
	21:   "INT2",
	23:   "INT4",
	25:   "TEXT",
	26:   "OID",
	114:  "JSON",
	142:  "XML",
	700:  "FLOAT4",
	701:  "FLOAT8",
	790:  "MONEY",
	1042: "BPCHAR",
	1043: "VARCHAR",
	1082: "DATE",
	1083: "TIME",
	1114: "TIMESTAMP",
	1184: "TIMESTAMPTZ",
	1186: "INTERVAL",
	1266: "TIMETZ",
	1700: "NUMERIC",
	2950: "UUID",
	3802: "JSONB",
	1000: "BOOL[]",
	1005: "INT2[]",
	1007: "INT4[]",
	1016: "INT8[]",
	1009: "TEXT[]",
	1015: "VARCHAR[]",
	1021: "FLOAT4[]",
	1022: "FLOAT8[]",
	2951: "UUID[]",
	3807: "JSONB[]",
}

func pgTypeNameFromOID(oid uint32) string {
	if name, ok := pgTypeNames[oid]; ok {
		return name
	}
	return "UNKNOWN"
}
