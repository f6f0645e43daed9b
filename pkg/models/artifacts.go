package models

import (
	"time"

	"github.com/google/uuid"
)

// Embedding is a downstream-derived vector for one graph node. The engine
// never writes these during a crawl; they exist so the cascade delete can
// remove them ahead of their owning nodes.
type Embedding struct {
	NodeID    string    `json:"node_id"`
	Model     string    `json:"model"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// Provenance origins
const (
	ProvenanceOriginCrawl  = "crawl"
	ProvenanceOriginManual = "manual"
	ProvenanceOriginModel  = "model"
)

// ProvenanceRecord ties a graph entity to the crawl (or other origin) that
// produced it.
type ProvenanceRecord struct {
	ID        uuid.UUID `json:"id"`
	EntityID  string    `json:"entity_id"`
	SourceID  uuid.UUID `json:"source_id"`
	Origin    string    `json:"origin"`
	CrawlID   uuid.UUID `json:"crawl_id"`
	CreatedAt time.Time `json:"created_at"`
}
