package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// AdapterFactory opens adapter sessions from the registry.
type AdapterFactory interface {
	// Connect opens a session against the source for one crawl or query.
	// The caller owns the returned adapter and must close it.
	Connect(ctx context.Context, src *models.Source) (Adapter, error)

	// TestConnection dials a source with the given config, verifies
	// credentials, and tears the session down again.
	TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error

	// ListKinds returns info for all compiled-in adapter kinds.
	ListKinds() []AdapterInfo
}

type registryFactory struct {
	crawl  config.CrawlConfig
	logger *zap.Logger
}

// NewAdapterFactory returns a factory that uses the global registry.
func NewAdapterFactory(crawl config.CrawlConfig, logger *zap.Logger) AdapterFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{
		crawl:  crawl,
		logger: logger,
	}
}

func (f *registryFactory) Connect(ctx context.Context, src *models.Source) (Adapter, error) {
	factory := GetFactory(src.Kind)
	if factory == nil {
		return nil, fmt.Errorf("source kind %q not compiled in: %w", src.Kind, apperrors.ErrUnsupportedKind)
	}

	connectCtx, cancel := context.WithTimeout(ctx, f.crawl.ConnectTimeout())
	defer cancel()

	return factory(connectCtx, Params{
		SourceID:     src.ID,
		Config:       src.Config,
		QueryTimeout: f.crawl.QueryTimeout(),
		SampleSize:   f.crawl.DocumentSampleSize,
		Logger:       f.logger.Named(src.Kind),
	})
}

func (f *registryFactory) TestConnection(ctx context.Context, kind string, cfg models.SourceConfig) error {
	factory := GetFactory(kind)
	if factory == nil {
		return fmt.Errorf("source kind %q not compiled in: %w", kind, apperrors.ErrUnsupportedKind)
	}

	connectCtx, cancel := context.WithTimeout(ctx, f.crawl.ConnectTimeout())
	defer cancel()

	adapter, err := factory(connectCtx, Params{
		Config:       cfg,
		QueryTimeout: f.crawl.QueryTimeout(),
		SampleSize:   f.crawl.DocumentSampleSize,
		Logger:       f.logger.Named(kind),
	})
	if err != nil {
		return err
	}
	defer adapter.Close()

	return adapter.TestConnection(connectCtx)
}

func (f *registryFactory) ListKinds() []AdapterInfo {
	return RegisteredAdapters()
}

var _ AdapterFactory = (*registryFactory)(nil)
