//go:build mysql || all_adapters

// Package mysql implements the source adapter for MySQL and MariaDB.
// Introspection reads information_schema scoped to the connected database
// and degrades to SHOW statements when that access is denied.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// Adapter provides MySQL connectivity for one crawl session.
type Adapter struct {
	sourceID     uuid.UUID
	cfg          models.SourceConfig
	db           *sql.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

// buildDSN builds a driver DSN from the source config. ParseTime makes the
// driver return time.Time for temporal columns instead of raw bytes. When
// running in a container, localhost is resolved to host.docker.internal.
func buildDSN(cfg models.SourceConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", config.ResolveSourceHost(cfg.Host), port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// NewAdapter opens a connection for one session. sql.Open does not dial,
// so an explicit ping surfaces bad credentials or an unreachable host at
// connect time instead of on the first introspection query.
func NewAdapter(ctx context.Context, params source.Params) (*Adapter, error) {
	db, err := sql.Open("mysql", buildDSN(params.Config))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to mysql: %w", err)
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
	return models.SourceKindMySQL
}

// TestConnection verifies the database is reachable with valid credentials
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
		var currentDB sql.NullString
		if err := a.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&currentDB); err != nil {
			return fmt.Errorf("get current database name: %w", err)
		}
		if !strings.EqualFold(currentDB.String, a.cfg.Database) {
			return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.cfg.Database, currentDB.String)
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

// currentDatabase resolves the schema name for SHOW-based tiers, preferring
// the configured database and falling back to the session default.
func (a *Adapter) currentDatabase(ctx context.Context) (string, error) {
	if a.cfg.Database != "" {
		return a.cfg.Database, nil
	}
	var name sql.NullString
	if err := a.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return "", fmt.Errorf("resolve current database: %w", err)
	}
	return name.String, nil
}

// quoteIdentifier backtick-quotes a MySQL identifier.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
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
