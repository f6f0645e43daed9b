// Package testhelpers provides shared infrastructure for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/database"
)

// MetaDBImage is the PostgreSQL image backing the metadata store in tests.
const MetaDBImage = "postgres:16-alpine"

// MetaDB holds a shared metadata store container with migrations applied.
type MetaDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedMetaDB     *MetaDB
	sharedMetaDBOnce sync.Once
	sharedMetaDBErr  error
)

// GetMetaDB returns a shared migrated metadata store for integration tests.
// The container is created once and reused across all tests in the run.
func GetMetaDB(t *testing.T) *MetaDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMetaDBOnce.Do(func() {
		sharedMetaDB, sharedMetaDBErr = setupMetaDB()
	})

	if sharedMetaDBErr != nil {
		t.Fatalf("Failed to setup metadata store: %v", sharedMetaDBErr)
	}

	return sharedMetaDB
}

func setupMetaDB() (*MetaDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        MetaDBImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "metastore_test",
			"POSTGRES_USER":     "metastore",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://metastore:test_password@%s:%s/metastore_test?sslmode=disable",
		host, port.Port())

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to metadata store: %w", err)
	}

	sqlDB := db.SQLDB()
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, migrationsDir(), zap.NewNop()); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &MetaDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// migrationsDir resolves the repository's migrations directory relative to
// this file, so tests work from any package directory.
func migrationsDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}

// ResetTables truncates every metadata table so a test starts clean.
func ResetTables(t *testing.T, db *database.DB) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		"TRUNCATE provenance, embeddings, changelog, edges, nodes, sources")
	if err != nil {
		t.Fatalf("reset tables: %v", err)
	}
}
