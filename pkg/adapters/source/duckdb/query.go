//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// Query runs a read-only statement with a row limit enforced by wrapping
// SELECT and WITH statements as a subquery. PRAGMA and SHOW statements run
// unwrapped.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, args []any, limit int) (*source.QueryResult, error) {
	limit = source.NormalizeLimit(limit)

	trimmed := strings.TrimRight(strings.TrimSpace(sqlQuery), ";")
	limitedQuery := trimmed
	if source.WrapsAsSubquery(trimmed) {
		limitedQuery = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", trimmed, limit)
	}

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, limitedQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	return source.CollectRows(rows)
}
