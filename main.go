package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/audit"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/database"
	"github.com/anshumax/semantiqa-sub001/pkg/handlers"
	"github.com/anshumax/semantiqa-sub001/pkg/logging"
	"github.com/anshumax/semantiqa-sub001/pkg/middleware"
	"github.com/anshumax/semantiqa-sub001/pkg/repositories"
	"github.com/anshumax/semantiqa-sub001/pkg/retry"
	"github.com/anshumax/semantiqa-sub001/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("store", cfg.Database.Host),
		zap.String("store_database", cfg.Database.Database),
		zap.Int("max_concurrent_crawls", cfg.Crawl.MaxConcurrentCrawls),
	)

	ctx := context.Background()

	// The engine store often starts alongside the engine; retry until it
	// accepts connections.
	var db *database.DB
	err = retry.Do(ctx, retry.StoreConnectConfig(), func() error {
		var connErr error
		db, connErr = database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		return connErr
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine store", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db.SQLDB(), cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	sourceRepo := repositories.NewSourceRepository(db)
	graphRepo := repositories.NewGraphRepository(db)
	changelogRepo := repositories.NewChangelogRepository(db)

	factory := source.NewAdapterFactory(cfg.Crawl, logger)
	auditSink := audit.NewRecorder(logger)

	graphService := services.NewGraphService(graphRepo, logger)
	sourceService := services.NewSourceService(
		sourceRepo,
		changelogRepo,
		factory,
		services.NewSchemaCrawler(logger),
		services.NewRelationshipDiscoverer(logger),
		services.NewStatisticsProfiler(logger),
		services.NewGraphIngestor(graphRepo, logger),
		graphService,
		auditSink,
		cfg.Crawl.MaxConcurrentCrawls,
		logger,
	)
	queryService := services.NewQueryService(sourceRepo, factory, auditSink, logger)

	if cfg.SourcesFile != "" {
		seeds, err := config.LoadSources(cfg.SourcesFile)
		if err != nil {
			logger.Fatal("Failed to load sources file",
				zap.String("path", cfg.SourcesFile),
				zap.Error(err))
		}
		if err := sourceService.SeedSources(ctx, seeds); err != nil {
			logger.Fatal("Failed to seed sources", zap.Error(err))
		}
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	sourcesHandler := handlers.NewSourcesHandler(sourceService, queryService, logger)
	sourcesHandler.RegisterRoutes(mux)

	graphHandler := handlers.NewGraphHandler(graphService, logger)
	graphHandler.RegisterRoutes(mux)

	adaptersHandler := handlers.NewAdaptersHandler(factory, logger)
	adaptersHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting semantiqa-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.Strings("adapters", adapterKinds(factory)),
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func adapterKinds(factory source.AdapterFactory) []string {
	infos := factory.ListKinds()
	kinds := make([]string, len(infos))
	for i, info := range infos {
		kinds[i] = info.Kind
	}
	return kinds
}
