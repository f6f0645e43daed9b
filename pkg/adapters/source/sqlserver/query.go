//go:build sqlserver || all_adapters

package sqlserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// Query runs a read-only statement with a row limit enforced by wrapping
// SELECT statements as a subquery with TOP. T-SQL does not allow a CTE
// inside a derived table, so WITH statements run unwrapped. Positional args
// bind as @p1..@pN.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, args []any, limit int) (*source.QueryResult, error) {
	limit = source.NormalizeLimit(limit)

	trimmed := strings.TrimRight(strings.TrimSpace(sqlQuery), ";")
	limitedQuery := trimmed
	if fields := strings.Fields(trimmed); len(fields) > 0 && strings.EqualFold(fields[0], "SELECT") {
		limitedQuery = fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", limit, trimmed)
	}

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(qctx, limitedQuery, args...)
	if err != nil {
		return nil, wrapPermission(err, "execute query")
	}
	defer rows.Close()

	result, err := source.CollectRows(rows)
	if err != nil {
		return nil, wrapPermission(err, "collect query results")
	}
	return result, nil
}
