package models

import (
	"time"

	"github.com/google/uuid"
)

// ColumnProfile holds the statistics-view entry for one column. Nil fields
// mean the statistic was unavailable, which is distinct from zero.
type ColumnProfile struct {
	Schema        string   `json:"schema"`
	Table         string   `json:"table"`
	Column        string   `json:"column"`
	NullFrac      *float64 `json:"null_frac,omitempty"`
	DistinctCount *int64   `json:"distinct_count,omitempty"`
	AvgWidthBytes *int64   `json:"avg_width_bytes,omitempty"`
}

// Key returns the (schema.table, column) join key used when merging profiles
// into column node props.
func (p ColumnProfile) Key() TableKey {
	return TableKey{Schema: p.Schema, Name: p.Table}
}

// CrawlResult is the fully assembled output of one crawl pass, handed to the
// ingestor only once complete. RowCounts values may be nil ("unknown").
type CrawlResult struct {
	SourceID  uuid.UUID           `json:"source_id"`
	Kind      string              `json:"kind"`
	Snapshot  *SchemaSnapshot     `json:"snapshot"`
	RowCounts map[TableKey]*int64 `json:"-"`
	Profiles  []ColumnProfile     `json:"profiles,omitempty"`
	Warnings  []Warning           `json:"warnings"`
	Features  AvailableFeatures   `json:"available_features"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
}

// IngestResult reports what one persistSnapshot transaction changed.
type IngestResult struct {
	NodesUpserted  int       `json:"nodes_upserted"`
	EdgesUpserted  int       `json:"edges_upserted"`
	NodesPruned    int64     `json:"nodes_pruned"`
	EdgesPruned    int64     `json:"edges_pruned"`
	SkippedFKs     int       `json:"skipped_fks"`
	ProvenanceRows int       `json:"provenance_rows"`
	Warnings       []Warning `json:"warnings,omitempty"`
}

// Changelog actions
const (
	ChangelogActionCrawl  = "crawl"
	ChangelogActionDelete = "delete"
)

// ChangelogEntry records one crawl or deletion of a source for audit history.
type ChangelogEntry struct {
	ID        uuid.UUID      `json:"id"`
	SourceID  uuid.UUID      `json:"source_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
