package models

import "fmt"

// Table kinds
const (
	TableKindBaseTable = "base-table"
	TableKindView      = "view"
)

// TableKey identifies a table (or collection) within one source.
// For document sources Schema holds the database name.
type TableKey struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// String returns the "schema.name" form used for joining and logging.
func (k TableKey) String() string {
	return fmt.Sprintf("%s.%s", k.Schema, k.Name)
}

// SchemaSnapshot is the in-memory result of one crawl pass over one source.
// It is never persisted directly; only the ingestor writes to the graph store.
type SchemaSnapshot struct {
	Tables      []SchemaTable          `json:"tables"`
	ForeignKeys []ForeignKeyConstraint `json:"foreign_keys,omitempty"`
}

// TableByKey returns the table with the given key, or nil.
func (s *SchemaSnapshot) TableByKey(key TableKey) *SchemaTable {
	for i := range s.Tables {
		if s.Tables[i].Schema == key.Schema && s.Tables[i].Name == key.Name {
			return &s.Tables[i]
		}
	}
	return nil
}

// SchemaTable represents one discovered table or collection.
// Table keys (schema, name) are unique within a snapshot. Column order is
// introspection order; it matters for display, not identity.
type SchemaTable struct {
	Schema  string         `json:"schema"`
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Comment *string        `json:"comment,omitempty"`
	Columns []SchemaColumn `json:"columns"`
}

// Key returns the table's identity within the snapshot.
func (t SchemaTable) Key() TableKey {
	return TableKey{Schema: t.Schema, Name: t.Name}
}

// SchemaColumn represents one column or document field. DataType is the
// source-native type string, never normalized.
type SchemaColumn struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Comment  *string `json:"comment,omitempty"`
}

// ForeignKeyConstraint describes a discovered FK-like link between two
// columns. Endpoints must resolve within the same crawl snapshot to become
// graph edges.
type ForeignKeyConstraint struct {
	ConstraintName string `json:"constraint_name"`
	SourceSchema   string `json:"source_schema"`
	SourceTable    string `json:"source_table"`
	SourceColumn   string `json:"source_column"`
	TargetSchema   string `json:"target_schema"`
	TargetTable    string `json:"target_table"`
	TargetColumn   string `json:"target_column"`
}

// SourceKey returns the key of the constraint's owning table.
func (f ForeignKeyConstraint) SourceKey() TableKey {
	return TableKey{Schema: f.SourceSchema, Name: f.SourceTable}
}

// TargetKey returns the key of the referenced table.
func (f ForeignKeyConstraint) TargetKey() TableKey {
	return TableKey{Schema: f.TargetSchema, Name: f.TargetTable}
}
