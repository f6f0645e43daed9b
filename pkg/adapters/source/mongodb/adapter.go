//go:build mongodb || all_adapters

// Package mongodb implements the source adapter for MongoDB. Collections
// map to tables, sampled document fields map to columns with dotted paths
// for nested documents, and there is no SQL query surface.
package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/config"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

const defaultSampleSize = 100

// Adapter provides MongoDB connectivity for one crawl session.
type Adapter struct {
	sourceID     uuid.UUID
	cfg          models.SourceConfig
	client       *mongo.Client
	database     string
	queryTimeout time.Duration
	sampleSize   int
	logger       *zap.Logger
}

// buildURI builds a mongodb:// URI. Credentials authenticate against the
// admin database, which is where operator-created users usually live. When
// running in a container, localhost is resolved to host.docker.internal.
func buildURI(cfg models.SourceConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	port := cfg.Port
	if port == 0 {
		port = 27017
	}

	u := &url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", config.ResolveSourceHost(cfg.Host), port),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
		u.RawQuery = "authSource=admin"
	}
	return u.String()
}

// NewAdapter connects for one session. MongoDB sources always need a
// database name since collections are scoped to one database.
func NewAdapter(ctx context.Context, params source.Params) (*Adapter, error) {
	if params.Config.Database == "" {
		return nil, fmt.Errorf("mongodb sources need a database name")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(buildURI(params.Config)))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sampleSize := params.SampleSize
	if sampleSize <= 0 {
		sampleSize = defaultSampleSize
	}

	return &Adapter{
		sourceID:     params.SourceID,
		cfg:          params.Config,
		client:       client,
		database:     params.Config.Database,
		queryTimeout: params.QueryTimeout,
		sampleSize:   sampleSize,
		logger:       logger,
	}, nil
}

func (a *Adapter) Kind() string {
	return models.SourceKindMongoDB
}

// TestConnection verifies the deployment is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close disconnects the client. Disconnect needs a context, so Close bounds
// it rather than waiting forever on a wedged server.
func (a *Adapter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

// db returns the configured database handle.
func (a *Adapter) db() *mongo.Database {
	return a.client.Database(a.database)
}

// queryCtx bounds a single introspection operation.
func (a *Adapter) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.queryTimeout)
}

var _ source.Adapter = (*Adapter)(nil)
