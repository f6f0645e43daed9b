//go:build mongodb || all_adapters

package mongodb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// TableTiers returns collection listing strategies. The full listing needs
// the listCollections action on the database; the degraded tier asks only
// for collections the user is authorized on, which works for scoped roles.
// MongoDB has no comment concept, so neither tier claims comments.
func (a *Adapter) TableTiers() []source.TableTier {
	return []source.TableTier{
		{
			Feature:     "list_collections",
			Remediation: "grant the crawl user the listCollections action on the database",
			HasComments: false,
			List:        a.listCollectionsFull,
		},
		{
			Feature:     "list_authorized_collections",
			Remediation: "grant the crawl user find on the collections to crawl",
			HasComments: false,
			List:        a.listCollectionsAuthorized,
		},
	}
}

func (a *Adapter) listCollectionsFull(ctx context.Context) ([]source.TableRecord, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	cursor, err := a.db().ListCollections(qctx, bson.D{})
	if err != nil {
		return nil, wrapPermission(err, "list collections")
	}
	defer cursor.Close(qctx)

	var tables []source.TableRecord
	for cursor.Next(qctx) {
		var spec struct {
			Name string `bson:"name"`
			Type string `bson:"type"`
		}
		if err := cursor.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode collection spec: %w", err)
		}
		if strings.HasPrefix(spec.Name, "system.") {
			continue
		}
		kind := models.TableKindBaseTable
		if spec.Type == "view" {
			kind = models.TableKindView
		}
		tables = append(tables, source.TableRecord{
			Schema: a.database,
			Name:   spec.Name,
			Kind:   kind,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapPermission(err, "iterate collections")
	}

	sortTables(tables)
	return tables, nil
}

func (a *Adapter) listCollectionsAuthorized(ctx context.Context) ([]source.TableRecord, error) {
	names, err := a.authorizedCollectionNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]source.TableRecord, 0, len(names))
	for _, name := range names {
		tables = append(tables, source.TableRecord{
			Schema: a.database,
			Name:   name,
			Kind:   models.TableKindBaseTable,
		})
	}
	return tables, nil
}

// authorizedCollectionNames lists only collections the user can act on,
// sorted and with system collections removed.
func (a *Adapter) authorizedCollectionNames(ctx context.Context) ([]string, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	opts := options.ListCollections().SetNameOnly(true).SetAuthorizedCollections(true)
	names, err := a.db().ListCollectionNames(qctx, bson.D{}, opts)
	if err != nil {
		return nil, wrapPermission(err, "list authorized collections")
	}

	filtered := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}
		filtered = append(filtered, name)
	}
	sort.Strings(filtered)
	return filtered, nil
}

func sortTables(tables []source.TableRecord) {
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
}

// ListColumns infers fields by sampling documents from every authorized
// collection. Nested documents contribute dotted paths; a field missing
// from part of the sample reports as nullable.
func (a *Adapter) ListColumns(ctx context.Context) ([]source.ColumnRecord, error) {
	names, err := a.authorizedCollectionNames(ctx)
	if err != nil {
		return nil, err
	}

	var columns []source.ColumnRecord
	for _, name := range names {
		fields, err := a.sampleCollection(ctx, name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, fields...)
	}
	return columns, nil
}

func (a *Adapter) sampleCollection(ctx context.Context, name string) ([]source.ColumnRecord, error) {
	qctx, cancel := a.queryCtx(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: a.sampleSize}}}},
	}
	cursor, err := a.db().Collection(name).Aggregate(qctx, pipeline)
	if err != nil {
		return nil, wrapPermission(err, "sample collection "+name)
	}
	defer cursor.Close(qctx)

	acc := newFieldAccumulator()
	sampled := 0
	for cursor.Next(qctx) {
		sampled++
		if err := acc.observeDocument(cursor.Current, ""); err != nil {
			return nil, fmt.Errorf("inspect sampled document in %s: %w", name, err)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapPermission(err, "iterate samples of "+name)
	}

	return acc.records(a.database, name, sampled), nil
}
