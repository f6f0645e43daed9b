//go:build sqlserver || all_adapters

// Package sqlserver implements the source adapter for Microsoft SQL Server
// and Azure SQL. Introspection prefers the sys catalog views and degrades
// to INFORMATION_SCHEMA when the crawl login lacks VIEW DEFINITION.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// Adapter provides SQL Server connectivity for one crawl session.
type Adapter struct {
	sourceID     uuid.UUID
	cfg          models.SourceConfig
	db           *sql.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

// buildConnectionString builds a sqlserver:// URL. url.UserPassword handles
// escaping, so passwords with @ or / survive. When running in a container,
// localhost is resolved to host.docker.internal.
func buildConnectionString(cfg models.SourceConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	encrypt := "true"
	if cfg.SSLMode == "disable" {
		encrypt = "disable"
	}

	query := url.Values{}
	query.Set("database", cfg.Database)
	query.Set("encrypt", encrypt)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveSourceHost(cfg.Host), port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// NewAdapter opens a connection for one session and pings so a bad login
// or unreachable host fails at connect time.
func NewAdapter(ctx context.Context, params source.Params) (*Adapter, error) {
	db, err := sql.Open("sqlserver", buildConnectionString(params.Config))
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
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
	return models.SourceKindSQLServer
}

// TestConnection verifies the server is reachable with valid credentials
// and that the session landed on the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if a.cfg.Database != "" {
		var currentDB string
		if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
			return fmt.Errorf("get current database name: %w", err)
		}
		if !strings.EqualFold(currentDB, a.cfg.Database) {
			return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.cfg.Database, currentDB)
		}
	}

	return nil
}

// Close releases the underlying connection pool.
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

// quoteIdentifier bracket-quotes a SQL Server identifier.
func quoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
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
