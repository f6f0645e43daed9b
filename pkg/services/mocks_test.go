package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/audit"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/repositories"
)

// errPermission matches the sentinel the probe falls through on.
var errPermission = fmt.Errorf("permission denied for relation: %w", apperrors.ErrPermissionDenied)

// mockAdapter is a configurable source.Adapter. Tiers and strategies are
// provided by the test, usually as closures that count their own calls.
type mockAdapter struct {
	kind             string
	tableTiers       []source.TableTier
	fkTiers          []source.ForeignKeyTier
	strategies       []source.RowCountStrategy
	columns          []source.ColumnRecord
	columnsErr       error
	supportsProfiles bool
	profiles         []models.ColumnProfile
	profilesErr      error
	testErr          error
	closed           bool
}

func (m *mockAdapter) Kind() string {
	if m.kind == "" {
		return models.SourceKindPostgres
	}
	return m.kind
}

func (m *mockAdapter) TestConnection(ctx context.Context) error { return m.testErr }

func (m *mockAdapter) Close() error {
	m.closed = true
	return nil
}

func (m *mockAdapter) TableTiers() []source.TableTier { return m.tableTiers }

func (m *mockAdapter) ListColumns(ctx context.Context) ([]source.ColumnRecord, error) {
	return m.columns, m.columnsErr
}

func (m *mockAdapter) ForeignKeyTiers() []source.ForeignKeyTier { return m.fkTiers }

func (m *mockAdapter) RowCountStrategies() []source.RowCountStrategy { return m.strategies }

func (m *mockAdapter) SupportsColumnProfiles() bool { return m.supportsProfiles }

func (m *mockAdapter) ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error) {
	return m.profiles, m.profilesErr
}

var _ source.Adapter = (*mockAdapter)(nil)

// mockAdapterFactory hands out a fixed adapter.
type mockAdapterFactory struct {
	adapter    source.Adapter
	connectErr error
	testErr    error
}

func (m *mockAdapterFactory) Connect(ctx context.Context, src *models.Source) (source.Adapter, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return m.adapter, nil
}

func (m *mockAdapterFactory) TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error {
	return m.testErr
}

func (m *mockAdapterFactory) ListKinds() []source.AdapterInfo {
	return []source.AdapterInfo{{Kind: models.SourceKindPostgres, DisplayName: "PostgreSQL"}}
}

var _ source.AdapterFactory = (*mockAdapterFactory)(nil)

// mockGraphRepository captures snapshot writes and serves canned reads.
type mockGraphRepository struct {
	mu        sync.Mutex
	applied   []*repositories.SnapshotWrite
	applyErr  error
	graph     *models.GraphResult
	getErr    error
	counts    *models.DeleteCounts
	deleteErr error
}

func (m *mockGraphRepository) ApplySnapshot(ctx context.Context, write *repositories.SnapshotWrite) (*models.IngestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.mu.Lock()
	m.applied = append(m.applied, write)
	m.mu.Unlock()
	return &models.IngestResult{
		NodesUpserted:  len(write.Nodes),
		EdgesUpserted:  len(write.Edges),
		ProvenanceRows: len(write.Provenance),
	}, nil
}

func (m *mockGraphRepository) GetGraph(ctx context.Context, filter models.GraphFilter) (*models.GraphResult, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.graph != nil {
		return m.graph, nil
	}
	return &models.GraphResult{Nodes: []*models.GraphNode{}, Edges: []*models.GraphEdge{}}, nil
}

func (m *mockGraphRepository) DeleteSourceCascade(ctx context.Context, sourceID uuid.UUID) (*models.DeleteCounts, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	if m.counts != nil {
		return m.counts, nil
	}
	return &models.DeleteCounts{Sources: 1}, nil
}

func (m *mockGraphRepository) lastWrite() *repositories.SnapshotWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.applied) == 0 {
		return nil
	}
	return m.applied[len(m.applied)-1]
}

var _ repositories.GraphRepository = (*mockGraphRepository)(nil)

// mockSourceRepository is a small in-memory source store. The status state
// machine is real because the orchestrator's transitions are under test.
type mockSourceRepository struct {
	mu               sync.Mutex
	sources          map[uuid.UUID]*models.Source
	createErr        error
	markCrawledCalls int
	transitions      []string
}

func newMockSourceRepository(sources ...*models.Source) *mockSourceRepository {
	m := &mockSourceRepository{sources: make(map[uuid.UUID]*models.Source)}
	for _, src := range sources {
		m.sources[src.ID] = src
	}
	return m
}

func (m *mockSourceRepository) Create(ctx context.Context, src *models.Source) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sources {
		if existing.Name == src.Name {
			return fmt.Errorf("source name %q already exists: %w", src.Name, apperrors.ErrConflict)
		}
	}
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	if src.Status == "" {
		src.Status = models.SourceStatusActive
	}
	m.sources[src.ID] = src
	return nil
}

func (m *mockSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}
	copied := *src
	return &copied, nil
}

func (m *mockSourceRepository) GetByName(ctx context.Context, name string) (*models.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range m.sources {
		if src.Name == name {
			copied := *src
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("source: %w", apperrors.ErrNotFound)
}

func (m *mockSourceRepository) List(ctx context.Context) ([]*models.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Source, 0, len(m.sources))
	for _, src := range m.sources {
		copied := *src
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockSourceRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}
	if src.Status != from {
		return fmt.Errorf("source status is %q, expected %q: %w", src.Status, from, apperrors.ErrConflict)
	}
	src.Status = to
	m.transitions = append(m.transitions, from+"->"+to)
	return nil
}

func (m *mockSourceRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}
	src.Status = status
	return nil
}

func (m *mockSourceRepository) MarkCrawled(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source: %w", apperrors.ErrNotFound)
	}
	src.Status = models.SourceStatusActive
	m.markCrawledCalls++
	return nil
}

func (m *mockSourceRepository) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return ""
	}
	return src.Status
}

var _ repositories.SourceRepository = (*mockSourceRepository)(nil)

// mockChangelogRepository records inserted entries.
type mockChangelogRepository struct {
	mu        sync.Mutex
	entries   []*models.ChangelogEntry
	insertErr error
}

func (m *mockChangelogRepository) Insert(ctx context.Context, entry *models.ChangelogEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	return nil
}

func (m *mockChangelogRepository) ListBySource(ctx context.Context, sourceID uuid.UUID, limit int) ([]*models.ChangelogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ChangelogEntry
	for _, e := range m.entries {
		if e.SourceID == sourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockChangelogRepository) LatestByAction(ctx context.Context, sourceID uuid.UUID, action string) (*models.ChangelogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].SourceID == sourceID && m.entries[i].Action == action {
			return m.entries[i], nil
		}
	}
	return nil, nil
}

func (m *mockChangelogRepository) lastEntry() *models.ChangelogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

var _ repositories.ChangelogRepository = (*mockChangelogRepository)(nil)

// mockAuditSink counts events per type.
type mockAuditSink struct {
	mu             sync.Mutex
	started        int
	succeeded      int
	failed         int
	created        int
	deleted        int
	rejected       int
	injections     int
	lastFailReason string
	lastOutcome    audit.CrawlOutcome
}

func (m *mockAuditSink) CrawlStarted(ctx context.Context, sourceID uuid.UUID, kind string) {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
}

func (m *mockAuditSink) CrawlSucceeded(ctx context.Context, sourceID uuid.UUID, outcome audit.CrawlOutcome) {
	m.mu.Lock()
	m.succeeded++
	m.lastOutcome = outcome
	m.mu.Unlock()
}

func (m *mockAuditSink) CrawlFailed(ctx context.Context, sourceID uuid.UUID, reason string) {
	m.mu.Lock()
	m.failed++
	m.lastFailReason = reason
	m.mu.Unlock()
}

func (m *mockAuditSink) SourceCreated(ctx context.Context, sourceID uuid.UUID, kind string) {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
}

func (m *mockAuditSink) SourceDeleted(ctx context.Context, sourceID uuid.UUID, rowsRemoved int64) {
	m.mu.Lock()
	m.deleted++
	m.mu.Unlock()
}

func (m *mockAuditSink) QueryRejected(ctx context.Context, sourceID uuid.UUID, rejection audit.QueryRejection) {
	m.mu.Lock()
	m.rejected++
	m.mu.Unlock()
}

func (m *mockAuditSink) InjectionDetected(ctx context.Context, sourceID uuid.UUID, attempt audit.InjectionAttempt) {
	m.mu.Lock()
	m.injections++
	m.mu.Unlock()
}

func (m *mockAuditSink) counts() (started, succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, m.succeeded, m.failed
}

var _ audit.Sink = (*mockAuditSink)(nil)
