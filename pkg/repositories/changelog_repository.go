package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anshumax/semantiqa-sub001/pkg/database"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// ChangelogRepository records crawl and deletion history per source.
type ChangelogRepository interface {
	// Insert appends one changelog entry.
	Insert(ctx context.Context, entry *models.ChangelogEntry) error

	// ListBySource returns entries for a source, newest first.
	ListBySource(ctx context.Context, sourceID uuid.UUID, limit int) ([]*models.ChangelogEntry, error)

	// LatestByAction returns the newest entry of the given action for a
	// source, or nil when none exists.
	LatestByAction(ctx context.Context, sourceID uuid.UUID, action string) (*models.ChangelogEntry, error)
}

type changelogRepository struct {
	db *database.DB
}

// NewChangelogRepository creates a new changelog repository.
func NewChangelogRepository(db *database.DB) ChangelogRepository {
	return &changelogRepository{db: db}
}

func (r *changelogRepository) Insert(ctx context.Context, entry *models.ChangelogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	detailsJSON, err := json.Marshal(orEmptyMap(entry.Details))
	if err != nil {
		return fmt.Errorf("failed to marshal changelog details: %w", err)
	}

	query := `
		INSERT INTO changelog (id, source_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.db.Exec(ctx, query,
		entry.ID, entry.SourceID, entry.Action, detailsJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert changelog entry: %w", err)
	}

	return nil
}

func (r *changelogRepository) ListBySource(ctx context.Context, sourceID uuid.UUID, limit int) ([]*models.ChangelogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, source_id, action, details, created_at
		FROM changelog
		WHERE source_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changelog entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.ChangelogEntry, 0)
	for rows.Next() {
		var e models.ChangelogEntry
		err := rows.Scan(&e.ID, &e.SourceID, &e.Action, &e.Details, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan changelog entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changelog entries: %w", err)
	}

	return entries, nil
}

func (r *changelogRepository) LatestByAction(ctx context.Context, sourceID uuid.UUID, action string) (*models.ChangelogEntry, error) {
	query := `
		SELECT id, source_id, action, details, created_at
		FROM changelog
		WHERE source_id = $1 AND action = $2
		ORDER BY created_at DESC
		LIMIT 1`

	rows, err := r.db.Query(ctx, query, sourceID, action)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest changelog entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var e models.ChangelogEntry
	if err := rows.Scan(&e.ID, &e.SourceID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan changelog entry: %w", err)
	}

	return &e, nil
}

var _ ChangelogRepository = (*changelogRepository)(nil)
