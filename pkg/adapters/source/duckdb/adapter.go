//go:build duckdb || all_adapters

// Package duckdb implements the source adapter for local DuckDB files.
// DuckDB is embedded and has no privilege system, so introspection is
// single-tier and every query error is treated as fatal.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// Adapter provides DuckDB connectivity for one crawl session.
type Adapter struct {
	sourceID     uuid.UUID
	cfg          models.SourceConfig
	db           *sql.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

// buildDSN resolves the database location. File-backed databases open in
// read-only mode so a crawl can never write into a user's file; in-memory
// databases cannot be read-only and are mostly useful in tests.
func buildDSN(cfg models.SourceConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return ""
	}
	return cfg.Path + "?access_mode=read_only"
}

// NewAdapter opens the database for one session. The ping forces the file
// open so a missing or corrupt file fails at connect time.
func NewAdapter(ctx context.Context, params source.Params) (*Adapter, error) {
	db, err := sql.Open("duckdb", buildDSN(params.Config))
	if err != nil {
		return nil, fmt.Errorf("open duckdb database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to duckdb: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{
		sourceID:     params.SourceID,
		cfg:          params.Config,
		db:           db,
		queryTimeout: params.QueryTimeout,
		logger:       logger,
	}, nil
}

func (a *Adapter) Kind() string {
	return models.SourceKindDuckDB
}

// TestConnection verifies the database file opens and answers queries.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	return nil
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// queryCtx bounds a single introspection query.
func (a *Adapter) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.queryTimeout)
}

// quoteIdentifier double-quotes a DuckDB identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualifiedTableName returns a properly quoted table reference.
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := quoteIdentifier(tableName)
	if schemaName == "" {
		return quotedTable
	}
	return quoteIdentifier(schemaName) + "." + quotedTable
}

var _ source.Adapter = (*Adapter)(nil)
var _ source.QueryExecutor = (*Adapter)(nil)
