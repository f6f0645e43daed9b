//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/testhelpers"
)

func setupChangelogTest(t *testing.T) ChangelogRepository {
	t.Helper()

	metaDB := testhelpers.GetMetaDB(t)
	testhelpers.ResetTables(t, metaDB.DB)

	return NewChangelogRepository(metaDB.DB)
}

func TestChangelogRepository_InsertAndList(t *testing.T) {
	repo := setupChangelogTest(t)
	ctx := context.Background()
	sourceID := uuid.New()

	entries := []*models.ChangelogEntry{
		{SourceID: sourceID, Action: models.ChangelogActionCrawl,
			Details: map[string]any{"tables": float64(12)}},
		{SourceID: sourceID, Action: models.ChangelogActionCrawl,
			Details: map[string]any{"tables": float64(14)}},
		{SourceID: uuid.New(), Action: models.ChangelogActionDelete},
	}
	for _, e := range entries {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if e.ID == uuid.Nil {
			t.Error("expected ID to be assigned")
		}
	}

	listed, err := repo.ListBySource(ctx, sourceID, 0)
	if err != nil {
		t.Fatalf("ListBySource failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 entries for source, got %d", len(listed))
	}
	// Newest first.
	if listed[0].Details["tables"] != float64(14) {
		t.Errorf("expected newest entry first, got details %v", listed[0].Details)
	}
}

func TestChangelogRepository_LatestByAction(t *testing.T) {
	repo := setupChangelogTest(t)
	ctx := context.Background()
	sourceID := uuid.New()

	if err := repo.Insert(ctx, &models.ChangelogEntry{
		SourceID: sourceID,
		Action:   models.ChangelogActionCrawl,
		Details:  map[string]any{"run": "old"},
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Insert(ctx, &models.ChangelogEntry{
		SourceID: sourceID,
		Action:   models.ChangelogActionCrawl,
		Details:  map[string]any{"run": "new"},
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	latest, err := repo.LatestByAction(ctx, sourceID, models.ChangelogActionCrawl)
	if err != nil {
		t.Fatalf("LatestByAction failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected an entry")
	}
	if latest.Details["run"] != "new" {
		t.Errorf("expected newest crawl entry, got %v", latest.Details)
	}

	missing, err := repo.LatestByAction(ctx, sourceID, models.ChangelogActionDelete)
	if err != nil {
		t.Fatalf("LatestByAction for absent action failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for absent action, got %v", missing)
	}
}
