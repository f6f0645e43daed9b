package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source kinds
const (
	SourceKindPostgres  = "postgres"
	SourceKindMySQL     = "mysql"
	SourceKindSQLServer = "sqlserver"
	SourceKindDuckDB    = "duckdb"
	SourceKindMongoDB   = "mongodb"
)

// ValidSourceKinds contains all valid source kind values.
var ValidSourceKinds = []string{
	SourceKindPostgres,
	SourceKindMySQL,
	SourceKindSQLServer,
	SourceKindDuckDB,
	SourceKindMongoDB,
}

// IsValidSourceKind checks if the given kind is valid.
func IsValidSourceKind(k string) bool {
	for _, v := range ValidSourceKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Source status values
const (
	SourceStatusActive   = "active"
	SourceStatusCrawling = "crawling"
	SourceStatusDeleting = "deleting"
)

// Source represents a registered external data source to crawl.
type Source struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Kind          string       `json:"kind"`
	Config        SourceConfig `json:"config"`
	Status        string       `json:"status"`
	LastCrawledAt *time.Time   `json:"last_crawled_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// SourceConfig holds the connection settings for a source. Either DSN is set,
// or the discrete fields are. Password never serializes to JSON.
type SourceConfig struct {
	DSN      string `json:"dsn,omitempty" yaml:"dsn"`
	Host     string `json:"host,omitempty" yaml:"host"`
	Port     int    `json:"port,omitempty" yaml:"port"`
	User     string `json:"user,omitempty" yaml:"user"`
	Password string `json:"-" yaml:"password"`
	Database string `json:"database,omitempty" yaml:"database"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode"`
	// Path is used by embedded sources (DuckDB file, ":memory:").
	Path string `json:"path,omitempty" yaml:"path"`
}

// Redacted returns a loggable summary of the config with credentials removed.
func (c SourceConfig) Redacted() string {
	if c.Path != "" {
		return c.Path
	}
	if c.DSN != "" {
		return "dsn:[REDACTED]"
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}
