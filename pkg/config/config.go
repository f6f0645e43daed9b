package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (the engine store password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3970"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Logging
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Engine store configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory containing engine store migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Crawl behavior
	Crawl CrawlConfig `yaml:"crawl"`

	// SourcesFile is an optional YAML file of sources to register at startup.
	SourcesFile string `yaml:"sources_file" env:"SOURCES_FILE" env-default:""`
}

// DatabaseConfig holds the engine store PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"semantiqa"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"semantiqa_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// CrawlConfig holds crawl scheduling and adapter I/O settings.
type CrawlConfig struct {
	// ConnectTimeoutSeconds bounds adapter session establishment.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"CRAWL_CONNECT_TIMEOUT_SECONDS" env-default:"10"`
	// QueryTimeoutSeconds bounds each introspection query.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"CRAWL_QUERY_TIMEOUT_SECONDS" env-default:"30"`
	// MaxConcurrentCrawls caps crawls running across different sources.
	MaxConcurrentCrawls int `yaml:"max_concurrent_crawls" env:"CRAWL_MAX_CONCURRENT" env-default:"4"`
	// DocumentSampleSize is how many documents per collection are sampled
	// when inferring document-store fields.
	DocumentSampleSize int `yaml:"document_sample_size" env:"CRAWL_DOCUMENT_SAMPLE_SIZE" env-default:"100"`
}

// ConnectTimeout returns the adapter connect timeout as a duration.
func (c *CrawlConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-query timeout as a duration.
func (c *CrawlConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (PGPASSWORD) must come from environment variables
// (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Crawl.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.connect_timeout_seconds must be positive")
	}
	if c.Crawl.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.query_timeout_seconds must be positive")
	}
	if c.Crawl.MaxConcurrentCrawls <= 0 {
		return fmt.Errorf("crawl.max_concurrent_crawls must be positive")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string for the engine store.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
