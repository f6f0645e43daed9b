// Package source defines the adapter contract for crawlable data sources.
// Each supported kind (postgres, mysql, sqlserver, duckdb, mongodb) registers
// a factory via init(); build tags control which kinds are compiled in.
package source

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// MaxQueryLimit is the hard cap on rows returned by Query methods.
// This protects against unbounded queries that could crash the server.
const MaxQueryLimit = 1000

// NormalizeLimit clamps a requested row limit into (0, MaxQueryLimit].
// Non-positive and oversized values both fall back to MaxQueryLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

// Adapter is a live session against one source. A session is opened per crawl
// (or per ad-hoc query), serves every introspection capability, and must be
// closed when done.
type Adapter interface {
	// Kind returns the source kind this adapter serves.
	Kind() string

	// TestConnection verifies the source is reachable with valid credentials.
	TestConnection(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	SchemaIntrospector
	RelationshipIntrospector
	StatisticsIntrospector
}

// SchemaIntrospector lists tables and columns.
type SchemaIntrospector interface {
	// TableTiers returns table listing strategies ordered from richest to most
	// degraded. The first tier a connection can actually run wins.
	TableTiers() []TableTier

	// ListColumns returns every column of every user table in a single pass.
	// Callers join the result to the table listing by (schema, table).
	ListColumns(ctx context.Context) ([]ColumnRecord, error)
}

// RelationshipIntrospector lists declared foreign key constraints.
type RelationshipIntrospector interface {
	// ForeignKeyTiers returns constraint listing strategies ordered from
	// richest to most degraded. An empty slice means the source kind has no
	// foreign key concept.
	ForeignKeyTiers() []ForeignKeyTier
}

// StatisticsIntrospector gathers row counts and column statistics.
type StatisticsIntrospector interface {
	// RowCountStrategies returns per-table counting strategies ordered from
	// cheapest to most expensive.
	RowCountStrategies() []RowCountStrategy

	// SupportsColumnProfiles reports whether ProfileColumns is implemented.
	SupportsColumnProfiles() bool

	// ProfileColumns gathers per-column statistics for the given tables in a
	// single bulk pass.
	ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error)
}

// QueryExecutor runs bounded ad-hoc reads. Relational adapters implement it;
// callers discover support with a type assertion on the Adapter.
type QueryExecutor interface {
	// Query runs a read-only statement and returns bounded results. The query
	// is always wrapped with a dialect-specific limit:
	//   - limit <= 0: uses MaxQueryLimit
	//   - limit > MaxQueryLimit: capped to MaxQueryLimit
	Query(ctx context.Context, sqlQuery string, args []any, limit int) (*QueryResult, error)
}

// ColumnInfo describes a result column with the source's native type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the results from executing an ad-hoc query.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}
