package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/services"
)

type mockSourceService struct {
	source   *models.Source
	sources  []*models.Source
	crawl    *models.CrawlResult
	counts   *models.DeleteCounts
	warnings []models.Warning
	err      error

	gotName   string
	gotKind   string
	gotConfig models.SourceConfig
	gotID     uuid.UUID
}

func (m *mockSourceService) CreateSource(ctx context.Context, name, kind string, cfg models.SourceConfig) (*models.Source, error) {
	m.gotName = name
	m.gotKind = kind
	m.gotConfig = cfg
	if m.err != nil {
		return nil, m.err
	}
	return m.source, nil
}

func (m *mockSourceService) GetSource(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.source, nil
}

func (m *mockSourceService) ListSources(ctx context.Context) ([]*models.Source, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sources, nil
}

func (m *mockSourceService) DeleteSource(ctx context.Context, id uuid.UUID) (*models.DeleteCounts, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func (m *mockSourceService) RefreshSource(ctx context.Context, id uuid.UUID) (*models.CrawlResult, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.crawl, nil
}

func (m *mockSourceService) TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error {
	m.gotKind = kind
	m.gotConfig = cfg
	return m.err
}

func (m *mockSourceService) GetSourceWarnings(ctx context.Context, id uuid.UUID) ([]models.Warning, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.warnings, nil
}

func (m *mockSourceService) SeedSources(ctx context.Context, seeds []config.SourceSeed) error {
	return m.err
}

type mockQueryService struct {
	result *source.QueryResult
	err    error

	gotSourceID uuid.UUID
	gotQuery    string
	gotArgs     []any
	gotLimit    int
}

func (m *mockQueryService) ExecuteQuery(ctx context.Context, sourceID uuid.UUID, query string, args []any, limit int) (*source.QueryResult, error) {
	m.gotSourceID = sourceID
	m.gotQuery = query
	m.gotArgs = args
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockGraphService struct {
	graph  *models.GraphResult
	counts *models.DeleteCounts
	err    error

	gotFilter models.GraphFilter
}

func (m *mockGraphService) GetGraph(ctx context.Context, filter models.GraphFilter) (*models.GraphResult, error) {
	m.gotFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.graph, nil
}

func (m *mockGraphService) DeleteSourceCascade(ctx context.Context, sourceID uuid.UUID) (*models.DeleteCounts, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

type mockAdapterFactory struct {
	kinds []source.AdapterInfo
}

func (m *mockAdapterFactory) Connect(ctx context.Context, src *models.Source) (source.Adapter, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAdapterFactory) TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error {
	return nil
}

func (m *mockAdapterFactory) ListKinds() []source.AdapterInfo {
	return m.kinds
}

var (
	_ services.SourceService = (*mockSourceService)(nil)
	_ services.QueryService  = (*mockQueryService)(nil)
	_ services.GraphService  = (*mockGraphService)(nil)
	_ source.AdapterFactory  = (*mockAdapterFactory)(nil)
)
