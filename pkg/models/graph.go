package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Node types
const (
	NodeTypeSource     = "source"
	NodeTypeTable      = "table"
	NodeTypeColumn     = "column"
	NodeTypeCollection = "collection"
	NodeTypeField      = "field"
)

// ValidNodeTypes contains all valid node type values.
var ValidNodeTypes = []string{
	NodeTypeSource,
	NodeTypeTable,
	NodeTypeColumn,
	NodeTypeCollection,
	NodeTypeField,
}

// IsValidNodeType checks if the given type is valid.
func IsValidNodeType(t string) bool {
	for _, v := range ValidNodeTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Structural edge types. Edges of any other type are treated as
// semantic-relationship edges written by downstream tooling.
const (
	EdgeTypeContains   = "CONTAINS"
	EdgeTypeHasColumn  = "HAS_COLUMN"
	EdgeTypeHasField   = "HAS_FIELD"
	EdgeTypeBelongsTo  = "BELONGS_TO"
	EdgeTypeForeignKey = "FOREIGN_KEY"
)

// ValidEdgeTypes contains the structural edge type values.
var ValidEdgeTypes = []string{
	EdgeTypeContains,
	EdgeTypeHasColumn,
	EdgeTypeHasField,
	EdgeTypeBelongsTo,
	EdgeTypeForeignKey,
}

// IsStructuralEdgeType checks if the given type is one of the structural five.
func IsStructuralEdgeType(t string) bool {
	for _, v := range ValidEdgeTypes {
		if v == t {
			return true
		}
	}
	return false
}

// GraphNode is one persisted vertex of the property graph. Identity is a
// deterministic string derived from (source, entity path); props are replaced
// wholesale on every upsert, never merged.
type GraphNode struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Props       map[string]any `json:"props"`
	OwnerIDs    []string       `json:"owner_ids,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Sensitivity *string        `json:"sensitivity,omitempty"`
	Status      *string        `json:"status,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// GraphEdge is one persisted relation. Identity is a deterministic string
// derived from (src, dst, type).
type GraphEdge struct {
	ID        string         `json:"id"`
	SrcID     string         `json:"src_id"`
	DstID     string         `json:"dst_id"`
	Type      string         `json:"type"`
	Props     map[string]any `json:"props,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// normalizeIDSegment makes a path segment safe and stable for use inside a
// deterministic node ID: lowercased, every non-alphanumeric run collapsed
// to a single underscore.
func normalizeIDSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// SourceNodeID derives the node ID for a source.
func SourceNodeID(sourceID uuid.UUID) string {
	return "src_" + normalizeIDSegment(sourceID.String())
}

// TableNodeID derives the node ID for a relational table.
func TableNodeID(sourceID uuid.UUID, schema, table string) string {
	return fmt.Sprintf("tbl_%s_%s_%s",
		normalizeIDSegment(sourceID.String()),
		normalizeIDSegment(schema),
		normalizeIDSegment(table))
}

// ColumnNodeID derives the node ID for a column of the given table node.
func ColumnNodeID(tableNodeID, column string) string {
	return fmt.Sprintf("col_%s_%s", tableNodeID, normalizeIDSegment(column))
}

// CollectionNodeID derives the node ID for a document collection.
func CollectionNodeID(sourceID uuid.UUID, database, collection string) string {
	return fmt.Sprintf("coll_%s_%s_%s",
		normalizeIDSegment(sourceID.String()),
		normalizeIDSegment(database),
		normalizeIDSegment(collection))
}

// FieldNodeID derives the node ID for a document field of the given
// collection node. Nested paths keep their dotted form ("address.city").
func FieldNodeID(collectionNodeID, fieldPath string) string {
	return fmt.Sprintf("fld_%s_%s", collectionNodeID, normalizeIDSegment(fieldPath))
}

// EdgeID derives the ID for a structural edge from its endpoints and type.
func EdgeID(edgeType, srcID, dstID string) string {
	return fmt.Sprintf("%s_%s_%s", strings.ToLower(edgeType), srcID, dstID)
}

// ForeignKeyEdgeID derives the ID for a FOREIGN_KEY edge between two column
// nodes.
func ForeignKeyEdgeID(srcColumnID, dstColumnID string) string {
	return fmt.Sprintf("fk_%s_%s", srcColumnID, dstColumnID)
}

// GraphFilter narrows a graph read. Zero value means the full graph.
type GraphFilter struct {
	SourceIDs []string `json:"source_ids,omitempty"`
	NodeTypes []string `json:"node_types,omitempty"`
	EdgeTypes []string `json:"edge_types,omitempty"`
	Search    string   `json:"search,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// GraphStats summarizes a graph read.
type GraphStats struct {
	NodeCount   int64            `json:"node_count"`
	EdgeCount   int64            `json:"edge_count"`
	NodesByType map[string]int64 `json:"nodes_by_type,omitempty"`
}

// GraphResult is the response shape of a graph read.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
	Stats GraphStats   `json:"stats"`
}

// DeleteCounts reports per-table row deletions from a source cascade, in the
// order the cascade runs.
type DeleteCounts struct {
	Embeddings    int64 `json:"embeddings"`
	Provenance    int64 `json:"provenance"`
	SemanticEdges int64 `json:"semantic_edges"`
	Edges         int64 `json:"edges"`
	Nodes         int64 `json:"nodes"`
	Changelog     int64 `json:"changelog"`
	Sources       int64 `json:"sources"`
}

// Total returns the sum of all deleted rows.
func (d DeleteCounts) Total() int64 {
	return d.Embeddings + d.Provenance + d.SemanticEdges + d.Edges + d.Nodes + d.Changelog + d.Sources
}
