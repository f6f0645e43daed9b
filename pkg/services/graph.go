package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/repositories"
)

// GraphService exposes reads over the property graph and the source
// cascade delete.
type GraphService interface {
	// GetGraph returns the nodes and edges matching the filter, with
	// summary stats.
	GetGraph(ctx context.Context, filter models.GraphFilter) (*models.GraphResult, error)

	// DeleteSourceCascade removes a source and everything it owns in one
	// transaction, in dependency order, and reports per-table counts.
	DeleteSourceCascade(ctx context.Context, sourceID uuid.UUID) (*models.DeleteCounts, error)
}

type graphService struct {
	graphRepo repositories.GraphRepository
	logger    *zap.Logger
}

// NewGraphService creates a new graph service.
func NewGraphService(graphRepo repositories.GraphRepository, logger *zap.Logger) GraphService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &graphService{graphRepo: graphRepo, logger: logger}
}

func (s *graphService) GetGraph(ctx context.Context, filter models.GraphFilter) (*models.GraphResult, error) {
	result, err := s.graphRepo.GetGraph(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	return result, nil
}

func (s *graphService) DeleteSourceCascade(ctx context.Context, sourceID uuid.UUID) (*models.DeleteCounts, error) {
	counts, err := s.graphRepo.DeleteSourceCascade(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("source cascade delete complete",
		zap.String("source_id", sourceID.String()),
		zap.Int64("nodes", counts.Nodes),
		zap.Int64("edges", counts.Edges+counts.SemanticEdges),
		zap.Int64("rows_removed", counts.Total()))

	return counts, nil
}

// Ensure graphService implements GraphService at compile time.
var _ GraphService = (*graphService)(nil)
