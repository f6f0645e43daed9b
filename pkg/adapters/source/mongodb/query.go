//go:build mongodb || all_adapters

package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// queryDescriptor is the JSON shape accepted by Query. SQL has no meaning
// for a document store, so ad-hoc reads describe a find instead.
type queryDescriptor struct {
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// parseDescriptor validates the descriptor. Malformed descriptors are tagged
// apperrors.ErrQueryRejected so they surface as bad requests, not source
// failures.
func parseDescriptor(query string) (*queryDescriptor, error) {
	var desc queryDescriptor
	if err := json.Unmarshal([]byte(query), &desc); err != nil {
		return nil, fmt.Errorf("invalid query descriptor: %v: %w", err, apperrors.ErrQueryRejected)
	}
	if desc.Collection == "" {
		return nil, fmt.Errorf("query descriptor needs a collection: %w", apperrors.ErrQueryRejected)
	}
	return &desc, nil
}

// Query runs a bounded find against one collection. The query string is a
// JSON descriptor {collection, filter, projection, sort, limit}; positional
// args are rejected because the filter carries its values inline.
func (a *Adapter) Query(ctx context.Context, query string, args []any, limit int) (*source.QueryResult, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("document queries take no positional arguments: %w", apperrors.ErrQueryRejected)
	}

	desc, err := parseDescriptor(query)
	if err != nil {
		return nil, err
	}

	limit = source.NormalizeLimit(limit)
	if desc.Limit > 0 && desc.Limit < limit {
		limit = desc.Limit
	}

	findOpts := options.Find().SetLimit(int64(limit))
	if len(desc.Projection) > 0 {
		findOpts = findOpts.SetProjection(desc.Projection)
	}
	if len(desc.Sort) > 0 {
		findOpts = findOpts.SetSort(desc.Sort)
	}

	filter := desc.Filter
	if filter == nil {
		filter = map[string]any{}
	}

	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	cursor, err := a.db().Collection(desc.Collection).Find(qctx, filter, findOpts)
	if err != nil {
		return nil, wrapPermission(err, "run find")
	}
	defer cursor.Close(qctx)

	var columns []source.ColumnInfo
	seenColumns := make(map[string]bool)
	rows := make([]map[string]any, 0)

	for cursor.Next(qctx) {
		elements, err := cursor.Current.Elements()
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		for _, el := range elements {
			if seenColumns[el.Key()] {
				continue
			}
			seenColumns[el.Key()] = true
			columns = append(columns, source.ColumnInfo{
				Name: el.Key(),
				Type: bsonTypeName(el.Value().Type),
			})
		}

		var doc bson.M
		if err := bson.Unmarshal(cursor.Current, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		row := make(map[string]any, len(doc))
		for key, value := range doc {
			row[key] = plainValue(value)
		}
		rows = append(rows, row)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapPermission(err, "iterate documents")
	}

	if columns == nil {
		columns = []source.ColumnInfo{}
	}
	return &source.QueryResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

// plainValue converts BSON driver types into JSON-friendly Go values so the
// result serializes the same way as relational query results.
func plainValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case primitive.Decimal128:
		return val.String()
	case primitive.Binary:
		return val.Data
	case bson.M:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = plainValue(nested)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, nested := range val {
			out[i] = plainValue(nested)
		}
		return out
	default:
		return v
	}
}

var _ source.QueryExecutor = (*Adapter)(nil)
