// Package repositories provides data access for the metadata store.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/database"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// SourceRepository defines data access for the source registry.
type SourceRepository interface {
	// Create inserts a new source. Returns apperrors.ErrConflict when the
	// name is already taken.
	Create(ctx context.Context, src *models.Source) error

	// GetByID retrieves a source by ID. Returns apperrors.ErrNotFound when
	// no such source exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error)

	// GetByName retrieves a source by its unique name.
	GetByName(ctx context.Context, name string) (*models.Source, error)

	// List retrieves all registered sources, newest first.
	List(ctx context.Context) ([]*models.Source, error)

	// TransitionStatus moves a source from one status to another atomically.
	// Returns apperrors.ErrNotFound when the source does not exist and
	// apperrors.ErrConflict when its current status is not `from`.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error

	// SetStatus sets the status unconditionally. Used to restore a source to
	// active after a failed crawl.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error

	// MarkCrawled restores active status and stamps last_crawled_at.
	MarkCrawled(ctx context.Context, id uuid.UUID) error
}

// storedConfig mirrors models.SourceConfig for JSONB persistence. The model
// hides the password from API serialization; the store has to keep it.
type storedConfig struct {
	DSN      string `json:"dsn,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`
	Path     string `json:"path,omitempty"`
}

func toStoredConfig(c models.SourceConfig) storedConfig {
	return storedConfig{
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		SSLMode:  c.SSLMode,
		Path:     c.Path,
	}
}

func (s storedConfig) toModel() models.SourceConfig {
	return models.SourceConfig{
		DSN:      s.DSN,
		Host:     s.Host,
		Port:     s.Port,
		User:     s.User,
		Password: s.Password,
		Database: s.Database,
		SSLMode:  s.SSLMode,
		Path:     s.Path,
	}
}

type sourceRepository struct {
	db *database.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *database.DB) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) Create(ctx context.Context, src *models.Source) error {
	now := time.Now()
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	src.CreatedAt = now
	src.UpdatedAt = now
	if src.Status == "" {
		src.Status = models.SourceStatusActive
	}

	configJSON, err := json.Marshal(toStoredConfig(src.Config))
	if err != nil {
		return fmt.Errorf("failed to marshal source config: %w", err)
	}

	query := `
		INSERT INTO sources (id, name, kind, config, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		src.ID, src.Name, src.Kind, configJSON, src.Status, src.CreatedAt, src.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("source name %q already exists: %w", src.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create source: %w", err)
	}

	return nil
}

func (r *sourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	query := `
		SELECT id, name, kind, config, status, last_crawled_at, created_at, updated_at
		FROM sources
		WHERE id = $1`

	return r.scanSource(r.db.QueryRow(ctx, query, id))
}

func (r *sourceRepository) GetByName(ctx context.Context, name string) (*models.Source, error) {
	query := `
		SELECT id, name, kind, config, status, last_crawled_at, created_at, updated_at
		FROM sources
		WHERE name = $1`

	return r.scanSource(r.db.QueryRow(ctx, query, name))
}

func (r *sourceRepository) scanSource(row pgx.Row) (*models.Source, error) {
	var src models.Source
	var configJSON []byte
	err := row.Scan(
		&src.ID,
		&src.Name,
		&src.Kind,
		&configJSON,
		&src.Status,
		&src.LastCrawledAt,
		&src.CreatedAt,
		&src.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	var stored storedConfig
	if err := json.Unmarshal(configJSON, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source config: %w", err)
	}
	src.Config = stored.toModel()

	return &src, nil
}

func (r *sourceRepository) List(ctx context.Context) ([]*models.Source, error) {
	query := `
		SELECT id, name, kind, config, status, last_crawled_at, created_at, updated_at
		FROM sources
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	sources := make([]*models.Source, 0)
	for rows.Next() {
		var src models.Source
		var configJSON []byte
		err := rows.Scan(
			&src.ID,
			&src.Name,
			&src.Kind,
			&configJSON,
			&src.Status,
			&src.LastCrawledAt,
			&src.CreatedAt,
			&src.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		var stored storedConfig
		if err := json.Unmarshal(configJSON, &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source config: %w", err)
		}
		src.Config = stored.toModel()
		sources = append(sources, &src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	return sources, nil
}

func (r *sourceRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	query := `
		UPDATE sources
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to transition source status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: distinguish a missing source from a status mismatch.
	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM sources WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("source: %w", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to check source status: %w", err)
	}
	return fmt.Errorf("source status is %q, expected %q: %w", current, from, apperrors.ErrConflict)
}

func (r *sourceRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE sources SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set source status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *sourceRepository) MarkCrawled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sources
		SET status = $2, last_crawled_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, models.SourceStatusActive)
	if err != nil {
		return fmt.Errorf("failed to mark source crawled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}
	return nil
}

var _ SourceRepository = (*sourceRepository)(nil)
