package source

import (
	"database/sql"
	"fmt"
	"strings"
)

// WrapsAsSubquery reports whether a statement can be wrapped as a derived
// table for limit enforcement. SHOW, EXPLAIN, DESCRIBE, and PRAGMA produce
// bounded output and run unwrapped.
func WrapsAsSubquery(sqlQuery string) bool {
	fields := strings.Fields(sqlQuery)
	if len(fields) == 0 {
		return false
	}
	head := strings.ToUpper(fields[0])
	return head == "SELECT" || head == "WITH"
}

// CollectRows drains a database/sql result set into a QueryResult. Byte
// slices are converted to strings so text columns stay readable in JSON;
// type names come from the driver via DatabaseTypeName.
func CollectRows(rows *sql.Rows) (*QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("get column types: %w", err)
	}

	columns := make([]ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		columns[i] = ColumnInfo{
			Name: name,
			Type: columnTypes[i].DatabaseTypeName(),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, name := range columnNames {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			rowMap[name] = val
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}
