//go:build mongodb || all_adapters

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// RowCountStrategies returns counting strategies. The estimate reads
// collection metadata; the exact count scans and needs find on the
// collection.
func (a *Adapter) RowCountStrategies() []source.RowCountStrategy {
	return []source.RowCountStrategy{
		{Name: "estimated_document_count", Exact: false, Count: a.countEstimated},
		{Name: "count_documents", Exact: true, Count: a.countExact},
	}
}

func (a *Adapter) countEstimated(ctx context.Context, table models.TableKey) (int64, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	count, err := a.db().Collection(table.Name).EstimatedDocumentCount(qctx)
	if err != nil {
		return 0, wrapPermission(err, fmt.Sprintf("estimate documents in %s", table.Name))
	}
	return count, nil
}

func (a *Adapter) countExact(ctx context.Context, table models.TableKey) (int64, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	count, err := a.db().Collection(table.Name).CountDocuments(qctx, bson.D{})
	if err != nil {
		return 0, wrapPermission(err, fmt.Sprintf("count documents in %s", table.Name))
	}
	return count, nil
}

// SupportsColumnProfiles reports false: field statistics would need a full
// aggregation per field, which is crawl-hostile on large collections.
func (a *Adapter) SupportsColumnProfiles() bool {
	return false
}

func (a *Adapter) ProfileColumns(ctx context.Context, tables []models.TableKey) ([]models.ColumnProfile, error) {
	return nil, fmt.Errorf("column profiles for mongodb: %w", apperrors.ErrUnsupportedOperation)
}
