package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/audit"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/repositories"
	"github.com/anshumax/semantiqa-sub001/pkg/sqlguard"
)

// QueryService runs bounded ad-hoc reads against registered sources. SQL
// statements pass the read-only guard before they reach the source; document
// sources take a JSON query descriptor instead and validate it in the
// adapter.
type QueryService interface {
	// ExecuteQuery runs a single read-only query against the source and
	// returns at most the adapter's row limit. Sources whose adapter does not
	// support ad-hoc reads return apperrors.ErrUnsupportedOperation.
	ExecuteQuery(ctx context.Context, sourceID uuid.UUID, query string, args []any, limit int) (*source.QueryResult, error)
}

type queryService struct {
	sourceRepo repositories.SourceRepository
	factory    source.AdapterFactory
	auditSink  audit.Sink
	logger     *zap.Logger
}

// NewQueryService creates a new query service with dependencies.
func NewQueryService(
	sourceRepo repositories.SourceRepository,
	factory source.AdapterFactory,
	auditSink audit.Sink,
	logger *zap.Logger,
) QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &queryService{
		sourceRepo: sourceRepo,
		factory:    factory,
		auditSink:  auditSink,
		logger:     logger,
	}
}

func (s *queryService) ExecuteQuery(ctx context.Context, sourceID uuid.UUID, query string, args []any, limit int) (*source.QueryResult, error) {
	src, err := s.sourceRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if src.Status == models.SourceStatusDeleting {
		return nil, fmt.Errorf("source %s: %w", sourceID, apperrors.ErrSourceDeleting)
	}

	// Document sources take a JSON descriptor, not SQL; the adapter validates
	// it during parsing.
	if src.Kind != models.SourceKindMongoDB {
		if err := s.guardSQL(ctx, sourceID, query, args); err != nil {
			return nil, err
		}
	}

	adapter, err := s.factory.Connect(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	defer adapter.Close()

	executor, ok := adapter.(source.QueryExecutor)
	if !ok {
		return nil, fmt.Errorf("%s sources do not support ad-hoc queries: %w", src.Kind, apperrors.ErrUnsupportedOperation)
	}

	startedAt := time.Now()
	result, err := executor.Query(ctx, query, args, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	s.logger.Info("query executed",
		zap.String("source_id", sourceID.String()),
		zap.String("kind", src.Kind),
		zap.Int("rows", result.RowCount),
		zap.Duration("duration", time.Since(startedAt)))

	return result, nil
}

func (s *queryService) guardSQL(ctx context.Context, sourceID uuid.UUID, query string, args []any) error {
	stmtType, err := sqlguard.ValidateReadOnly(query)
	if err != nil {
		reason := err.Error()
		var rejection *sqlguard.RejectionError
		if errors.As(err, &rejection) {
			reason = rejection.Reason
		}
		s.auditSink.QueryRejected(ctx, sourceID, audit.QueryRejection{
			Statement: string(stmtType),
			Reason:    reason,
		})
		return err
	}

	if findings := sqlguard.CheckArgs(args); len(findings) > 0 {
		for _, finding := range findings {
			s.auditSink.InjectionDetected(ctx, sourceID, audit.InjectionAttempt{
				ArgIndex:    finding.ArgIndex,
				Fingerprint: finding.Fingerprint,
			})
		}
		return fmt.Errorf("argument %d matched a SQL injection pattern: %w",
			findings[0].ArgIndex, apperrors.ErrQueryRejected)
	}

	return nil
}

// Ensure queryService implements QueryService at compile time.
var _ QueryService = (*queryService)(nil)
