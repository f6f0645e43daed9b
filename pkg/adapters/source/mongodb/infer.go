//go:build mongodb || all_adapters

package mongodb

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// fieldInfo tracks what the sample showed for one field path.
type fieldInfo struct {
	types   map[string]struct{}
	seen    int
	sawNull bool
}

// fieldAccumulator aggregates field observations across sampled documents.
type fieldAccumulator struct {
	fields map[string]*fieldInfo
}

func newFieldAccumulator() *fieldAccumulator {
	return &fieldAccumulator{fields: make(map[string]*fieldInfo)}
}

func (fa *fieldAccumulator) field(path string) *fieldInfo {
	info, ok := fa.fields[path]
	if !ok {
		info = &fieldInfo{types: make(map[string]struct{})}
		fa.fields[path] = info
	}
	return info
}

// observeDocument records every field of one document. Embedded documents
// recurse with dotted paths; array elements are not expanded.
func (fa *fieldAccumulator) observeDocument(doc bson.Raw, prefix string) error {
	elements, err := doc.Elements()
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	for _, el := range elements {
		path := el.Key()
		if prefix != "" {
			path = prefix + "." + el.Key()
		}

		info := fa.field(path)
		info.seen++

		value := el.Value()
		if value.Type == bsontype.Null {
			info.sawNull = true
			continue
		}
		info.types[bsonTypeName(value.Type)] = struct{}{}

		if value.Type == bsontype.EmbeddedDocument {
			if err := fa.observeDocument(value.Document(), path); err != nil {
				return err
			}
		}
	}
	return nil
}

// records flattens the accumulated observations into column records sorted
// by path. A field absent from part of the sample reports as nullable.
func (fa *fieldAccumulator) records(database, collection string, docsSampled int) []source.ColumnRecord {
	paths := make([]string, 0, len(fa.fields))
	for path := range fa.fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := make([]source.ColumnRecord, 0, len(paths))
	for _, path := range paths {
		info := fa.fields[path]
		out = append(out, source.ColumnRecord{
			TableSchema: database,
			TableName:   collection,
			Name:        path,
			DataType:    info.typeName(),
			Nullable:    info.sawNull || info.seen < docsSampled,
		})
	}
	return out
}

// typeName joins the observed types with | so polymorphic fields stay
// visible. A field that only ever held null reports as null.
func (fi *fieldInfo) typeName() string {
	if len(fi.types) == 0 {
		return "null"
	}
	names := make([]string, 0, len(fi.types))
	for name := range fi.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// bsonTypeName maps BSON types to the aliases the $type operator uses.
func bsonTypeName(t bsontype.Type) string {
	switch t {
	case bsontype.Double:
		return "double"
	case bsontype.String:
		return "string"
	case bsontype.EmbeddedDocument:
		return "object"
	case bsontype.Array:
		return "array"
	case bsontype.Binary:
		return "binData"
	case bsontype.ObjectID:
		return "objectId"
	case bsontype.Boolean:
		return "bool"
	case bsontype.DateTime:
		return "date"
	case bsontype.Regex:
		return "regex"
	case bsontype.Int32:
		return "int"
	case bsontype.Timestamp:
		return "timestamp"
	case bsontype.Int64:
		return "long"
	case bsontype.Decimal128:
		return "decimal"
	default:
		return t.String()
	}
}
