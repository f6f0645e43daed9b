package source

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// TableRecord is one table, view, or collection returned by a listing tier.
type TableRecord struct {
	Schema  string
	Name    string
	Kind    string // models.TableKindBaseTable or models.TableKindView
	Comment *string
}

// ColumnRecord is one column from the bulk column listing, keyed by the
// owning table's schema and name.
type ColumnRecord struct {
	TableSchema string
	TableName   string
	Name        string
	DataType    string
	Nullable    bool
	Default     *string
	Comment     *string
}

// ForeignKeyRecord is a raw constraint row. Fields are pointers because
// degraded catalogs can return NULLs; callers skip rows that are missing
// essential fields.
type ForeignKeyRecord struct {
	ConstraintName *string
	SourceSchema   *string
	SourceTable    *string
	SourceColumn   *string
	TargetSchema   *string
	TargetTable    *string
	TargetColumn   *string
}

// TableTier couples one table listing strategy with the catalog feature it
// exercises. HasComments reports whether this tier surfaces table and column
// comments.
type TableTier struct {
	Feature     string
	Remediation string
	HasComments bool
	List        func(ctx context.Context) ([]TableRecord, error)
}

// ForeignKeyTier is one constraint listing strategy.
type ForeignKeyTier struct {
	Feature     string
	Remediation string
	List        func(ctx context.Context) ([]ForeignKeyRecord, error)
}

// RowCountStrategy counts or estimates rows for a single table. Exact reports
// whether the strategy returns true counts rather than planner estimates.
type RowCountStrategy struct {
	Name  string
	Exact bool
	Count func(ctx context.Context, table models.TableKey) (int64, error)
}
