package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/audit"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/repositories"
)

// SourceService manages registered sources and orchestrates their crawls.
type SourceService interface {
	// CreateSource registers a new source.
	CreateSource(ctx context.Context, name, kind string, cfg models.SourceConfig) (*models.Source, error)

	// GetSource retrieves a source by ID.
	GetSource(ctx context.Context, id uuid.UUID) (*models.Source, error)

	// ListSources retrieves all registered sources.
	ListSources(ctx context.Context) ([]*models.Source, error)

	// DeleteSource cancels any in-flight crawl of the source, then removes
	// the source and everything it owns in one cascade transaction.
	DeleteSource(ctx context.Context, id uuid.UUID) (*models.DeleteCounts, error)

	// RefreshSource runs a full crawl of the source and persists the
	// resulting snapshot. A second refresh while one is in flight returns
	// apperrors.ErrCrawlInProgress.
	RefreshSource(ctx context.Context, id uuid.UUID) (*models.CrawlResult, error)

	// TestConnection dials a source with the given config without saving it.
	TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error

	// GetSourceWarnings returns the warnings recorded by the source's most
	// recent crawl, or an empty list when it has never been crawled.
	GetSourceWarnings(ctx context.Context, id uuid.UUID) ([]models.Warning, error)

	// SeedSources registers any seed not already present, matched by name.
	SeedSources(ctx context.Context, seeds []config.SourceSeed) error
}

type sourceService struct {
	sourceRepo    repositories.SourceRepository
	changelogRepo repositories.ChangelogRepository
	factory       source.AdapterFactory
	crawler       SchemaCrawler
	relationships RelationshipDiscoverer
	statistics    StatisticsProfiler
	ingestor      GraphIngestor
	graph         GraphService
	auditSink     audit.Sink
	crawls        *crawlManager
	logger        *zap.Logger
}

// NewSourceService creates a new source service with dependencies.
func NewSourceService(
	sourceRepo repositories.SourceRepository,
	changelogRepo repositories.ChangelogRepository,
	factory source.AdapterFactory,
	crawler SchemaCrawler,
	relationships RelationshipDiscoverer,
	statistics StatisticsProfiler,
	ingestor GraphIngestor,
	graph GraphService,
	auditSink audit.Sink,
	maxConcurrentCrawls int,
	logger *zap.Logger,
) SourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sourceService{
		sourceRepo:    sourceRepo,
		changelogRepo: changelogRepo,
		factory:       factory,
		crawler:       crawler,
		relationships: relationships,
		statistics:    statistics,
		ingestor:      ingestor,
		graph:         graph,
		auditSink:     auditSink,
		crawls:        newCrawlManager(maxConcurrentCrawls),
		logger:        logger,
	}
}

func (s *sourceService) CreateSource(ctx context.Context, name, kind string, cfg models.SourceConfig) (*models.Source, error) {
	if name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	if !models.IsValidSourceKind(kind) {
		return nil, fmt.Errorf("source kind %q: %w", kind, apperrors.ErrUnsupportedKind)
	}

	src := &models.Source{
		Name:   name,
		Kind:   kind,
		Config: cfg,
		Status: models.SourceStatusActive,
	}
	if err := s.sourceRepo.Create(ctx, src); err != nil {
		return nil, err
	}

	s.auditSink.SourceCreated(ctx, src.ID, kind)
	s.logger.Info("source created",
		zap.String("source_id", src.ID.String()),
		zap.String("name", name),
		zap.String("kind", kind),
		zap.String("target", cfg.Redacted()))

	return src, nil
}

func (s *sourceService) GetSource(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	return s.sourceRepo.GetByID(ctx, id)
}

func (s *sourceService) ListSources(ctx context.Context) ([]*models.Source, error) {
	return s.sourceRepo.List(ctx)
}

func (s *sourceService) RefreshSource(ctx context.Context, id uuid.UUID) (*models.CrawlResult, error) {
	src, err := s.sourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	crawlCtx, release, err := s.crawls.beginCrawl(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.sourceRepo.TransitionStatus(crawlCtx, id, models.SourceStatusActive, models.SourceStatusCrawling); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			if current, getErr := s.sourceRepo.GetByID(ctx, id); getErr == nil && current.Status == models.SourceStatusDeleting {
				return nil, fmt.Errorf("source %s: %w", id, apperrors.ErrSourceDeleting)
			}
		}
		return nil, err
	}

	startedAt := time.Now()
	crawlID := uuid.New()
	s.auditSink.CrawlStarted(ctx, id, src.Kind)

	// Any failure past this point audits the crawl as failed and restores
	// the source to active, unless a concurrent deletion owns the status.
	fail := func(cause error) (*models.CrawlResult, error) {
		s.auditSink.CrawlFailed(ctx, id, cause.Error())
		restoreCtx := context.WithoutCancel(ctx)
		stErr := s.sourceRepo.TransitionStatus(restoreCtx, id, models.SourceStatusCrawling, models.SourceStatusActive)
		if stErr != nil && !errors.Is(stErr, apperrors.ErrConflict) && !errors.Is(stErr, apperrors.ErrNotFound) {
			s.logger.Warn("failed to restore source status after crawl failure",
				zap.String("source_id", id.String()),
				zap.Error(stErr))
		}
		return nil, cause
	}

	adapter, err := s.factory.Connect(crawlCtx, src)
	if err != nil {
		return fail(fmt.Errorf("failed to connect to source: %w", err))
	}
	defer adapter.Close()

	schemaRes, err := s.crawler.CrawlSchema(crawlCtx, adapter)
	if err != nil {
		return fail(err)
	}
	snapshot := schemaRes.Data

	fks, fkWarnings, err := s.relationships.GetForeignKeys(crawlCtx, adapter)
	if err != nil {
		return fail(err)
	}
	snapshot.ForeignKeys = fks

	tables := make([]models.TableKey, len(snapshot.Tables))
	for i, t := range snapshot.Tables {
		tables[i] = t.Key()
	}

	var (
		rowCounts    map[models.TableKey]*int64
		rcWarnings   []models.Warning
		profiles     []models.ColumnProfile
		profWarnings []models.Warning
	)
	if len(tables) > 0 {
		rowCounts, rcWarnings, err = s.statistics.GetRowCounts(crawlCtx, adapter, tables)
		if err != nil {
			return fail(err)
		}
		profiles, profWarnings, err = s.statistics.ProfileTables(crawlCtx, adapter, tables)
		if err != nil {
			return fail(err)
		}
	}

	warnings := make([]models.Warning, 0, len(schemaRes.Warnings)+len(fkWarnings)+len(rcWarnings)+len(profWarnings))
	warnings = append(warnings, schemaRes.Warnings...)
	warnings = append(warnings, fkWarnings...)
	warnings = append(warnings, rcWarnings...)
	warnings = append(warnings, profWarnings...)

	ingestRes, err := s.ingestor.PersistSnapshot(crawlCtx, &IngestRequest{
		SourceID:   id,
		SourceName: src.Name,
		Kind:       src.Kind,
		CrawlID:    crawlID,
		Snapshot:   snapshot,
		RowCounts:  rowCounts,
		Profiles:   profiles,
		Warnings:   warnings,
	})
	if err != nil {
		return fail(err)
	}

	features := models.AvailableFeatures{
		HasComments:         schemaRes.Features.HasComments,
		HasRowCounts:        hasAnyCount(rowCounts),
		HasStatistics:       len(profiles) > 0,
		HasPermissionErrors: models.AnyPermissionDenied(ingestRes.Warnings),
	}

	result := &models.CrawlResult{
		SourceID:  id,
		Kind:      src.Kind,
		Snapshot:  snapshot,
		RowCounts: rowCounts,
		Profiles:  profiles,
		Warnings:  ingestRes.Warnings,
		Features:  features,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}

	columns := 0
	for _, t := range snapshot.Tables {
		columns += len(t.Columns)
	}

	// The ingest transaction has committed; bookkeeping finishes even if
	// the request context dies underneath it.
	bookCtx := context.WithoutCancel(ctx)

	entry := &models.ChangelogEntry{
		SourceID: id,
		Action:   models.ChangelogActionCrawl,
		Details: map[string]any{
			"crawl_id":       crawlID.String(),
			"tables":         len(snapshot.Tables),
			"columns":        columns,
			"foreign_keys":   len(snapshot.ForeignKeys),
			"nodes_upserted": ingestRes.NodesUpserted,
			"edges_upserted": ingestRes.EdgesUpserted,
			"nodes_pruned":   ingestRes.NodesPruned,
			"edges_pruned":   ingestRes.EdgesPruned,
			"skipped_fks":    ingestRes.SkippedFKs,
			"warnings":       result.Warnings,
			"features":       features,
			"duration_ms":    result.Duration.Milliseconds(),
		},
	}
	if err := s.changelogRepo.Insert(bookCtx, entry); err != nil {
		return fail(fmt.Errorf("failed to record crawl: %w", err))
	}

	if err := s.sourceRepo.MarkCrawled(bookCtx, id); err != nil {
		return fail(fmt.Errorf("failed to mark source crawled: %w", err))
	}

	s.auditSink.CrawlSucceeded(ctx, id, audit.CrawlOutcome{
		Tables:        len(snapshot.Tables),
		Columns:       columns,
		ForeignKeys:   len(snapshot.ForeignKeys),
		Warnings:      len(result.Warnings),
		NodesUpserted: ingestRes.NodesUpserted,
		DurationMs:    result.Duration.Milliseconds(),
	})

	s.logger.Info("source refresh complete",
		zap.String("source_id", id.String()),
		zap.String("name", src.Name),
		zap.String("kind", src.Kind),
		zap.Int("tables", len(snapshot.Tables)),
		zap.Int("columns", columns),
		zap.Int("foreign_keys", len(snapshot.ForeignKeys)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (s *sourceService) DeleteSource(ctx context.Context, id uuid.UUID) (*models.DeleteCounts, error) {
	src, err := s.sourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.Status == models.SourceStatusDeleting {
		return nil, fmt.Errorf("source %s: %w", id, apperrors.ErrSourceDeleting)
	}

	if err := s.sourceRepo.SetStatus(ctx, id, models.SourceStatusDeleting); err != nil {
		return nil, fmt.Errorf("failed to mark source deleting: %w", err)
	}

	// Abort any in-flight crawl and hold the slot for the whole cascade so
	// no crawl can write between cancellation and commit.
	unlock := s.crawls.cancelAndLock(id)
	defer unlock()

	counts, err := s.graph.DeleteSourceCascade(ctx, id)
	if err != nil {
		restoreCtx := context.WithoutCancel(ctx)
		if stErr := s.sourceRepo.SetStatus(restoreCtx, id, models.SourceStatusActive); stErr != nil {
			s.logger.Warn("failed to restore source status after delete failure",
				zap.String("source_id", id.String()),
				zap.Error(stErr))
		}
		return nil, err
	}

	// Tombstone entry; the cascade removed the source's crawl history.
	entry := &models.ChangelogEntry{
		SourceID: id,
		Action:   models.ChangelogActionDelete,
		Details: map[string]any{
			"name":         src.Name,
			"kind":         src.Kind,
			"rows_removed": counts.Total(),
		},
	}
	if err := s.changelogRepo.Insert(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to record source deletion",
			zap.String("source_id", id.String()),
			zap.Error(err))
	}

	s.auditSink.SourceDeleted(ctx, id, counts.Total())
	s.logger.Info("source deleted",
		zap.String("source_id", id.String()),
		zap.String("name", src.Name),
		zap.Int64("rows_removed", counts.Total()))

	return counts, nil
}

func (s *sourceService) TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error {
	if !models.IsValidSourceKind(kind) {
		return fmt.Errorf("source kind %q: %w", kind, apperrors.ErrUnsupportedKind)
	}
	if err := s.factory.TestConnection(ctx, kind, cfg); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	s.logger.Info("connection test successful",
		zap.String("kind", kind),
		zap.String("target", cfg.Redacted()))
	return nil
}

func (s *sourceService) GetSourceWarnings(ctx context.Context, id uuid.UUID) ([]models.Warning, error) {
	if _, err := s.sourceRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entry, err := s.changelogRepo.LatestByAction(ctx, id, models.ChangelogActionCrawl)
	if err != nil {
		return nil, fmt.Errorf("failed to read crawl history: %w", err)
	}
	if entry == nil {
		return []models.Warning{}, nil
	}

	// Details come back as generic JSON; round-trip the warnings value into
	// its typed form.
	raw, err := json.Marshal(entry.Details["warnings"])
	if err != nil {
		return nil, fmt.Errorf("failed to decode crawl warnings: %w", err)
	}
	var warnings []models.Warning
	if err := json.Unmarshal(raw, &warnings); err != nil {
		return nil, fmt.Errorf("failed to decode crawl warnings: %w", err)
	}
	if warnings == nil {
		warnings = []models.Warning{}
	}
	return warnings, nil
}

func (s *sourceService) SeedSources(ctx context.Context, seeds []config.SourceSeed) error {
	created := 0
	for _, seed := range seeds {
		_, err := s.sourceRepo.GetByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to check source %q: %w", seed.Name, err)
		}
		if _, err := s.CreateSource(ctx, seed.Name, seed.Kind, seed.Config); err != nil {
			return fmt.Errorf("failed to seed source %q: %w", seed.Name, err)
		}
		created++
	}

	if len(seeds) > 0 {
		s.logger.Info("source seeding complete",
			zap.Int("seeds", len(seeds)),
			zap.Int("created", created))
	}
	return nil
}

func hasAnyCount(counts map[models.TableKey]*int64) bool {
	for _, c := range counts {
		if c != nil {
			return true
		}
	}
	return false
}

// Ensure sourceService implements SourceService at compile time.
var _ SourceService = (*sourceService)(nil)
