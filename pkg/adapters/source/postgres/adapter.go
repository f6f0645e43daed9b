//go:build postgres || all_adapters

// Package postgres implements the source adapter for PostgreSQL and
// compatible servers (Aurora, Supabase). Introspection prefers pg_catalog
// and degrades to information_schema when the crawl role lacks access.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// Adapter provides PostgreSQL connectivity for one crawl session.
type Adapter struct {
	sourceID     uuid.UUID
	cfg          models.SourceConfig
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	logger       *zap.Logger
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// User-provided fields are URL-escaped so special characters in passwords
// (@, /, #, ?) do not break URL parsing. When running in a container,
// localhost is resolved to host.docker.internal.
func buildConnectionString(cfg models.SourceConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	host := config.ResolveSourceHost(cfg.Host)

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		host,
		port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}

// NewAdapter opens a connection pool for one session. The pool dials
// lazily, so an explicit ping surfaces bad credentials or an unreachable
// host at connect time instead of on the first introspection query.
func NewAdapter(ctx context.Context, params source.Params) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(params.Config))
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{
		sourceID:     params.SourceID,
		cfg:          params.Config,
		pool:         pool,
		queryTimeout: params.QueryTimeout,
		logger:       logger,
	}, nil
}

func (a *Adapter) Kind() string {
	return models.SourceKindPostgres
}

// TestConnection verifies the database is reachable with valid credentials.
// It checks server connectivity, database access, and that the session landed
// on the configured database rather than a default one.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if a.cfg.Database != "" {
		var currentDB string
		if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
			return fmt.Errorf("get current database name: %w", err)
		}
		if !strings.EqualFold(currentDB, a.cfg.Database) {
			return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.cfg.Database, currentDB)
		}
	}

	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

// queryCtx bounds a single introspection query.
func (a *Adapter) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.queryTimeout)
}

// qualifiedTableName returns a properly quoted table reference.
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	return pgx.Identifier{schemaName}.Sanitize() + "." + quotedTable
}

var _ source.Adapter = (*Adapter)(nil)
var _ source.QueryExecutor = (*Adapter)(nil)
