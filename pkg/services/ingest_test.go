package services

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func ingestFixture(sourceID uuid.UUID) *IngestRequest {
	rowCount := int64(1200)
	nullFrac := 0.1
	return &IngestRequest{
		SourceID:   sourceID,
		SourceName: "warehouse",
		Kind:       models.SourceKindPostgres,
		CrawlID:    uuid.New(),
		Snapshot: &models.SchemaSnapshot{
			Tables: []models.SchemaTable{
				{
					Schema: "public",
					Name:   "user_accounts",
					Kind:   models.TableKindBaseTable,
					Columns: []models.SchemaColumn{
						{Name: "id", DataType: "bigint", Nullable: false},
						{Name: "email", DataType: "text", Nullable: true},
					},
				},
				{
					Schema: "public",
					Name:   "orders",
					Kind:   models.TableKindBaseTable,
					Columns: []models.SchemaColumn{
						{Name: "id", DataType: "bigint", Nullable: false},
						{Name: "account_id", DataType: "bigint", Nullable: false},
					},
				},
			},
			ForeignKeys: []models.ForeignKeyConstraint{
				{
					ConstraintName: "orders_account_fkey",
					SourceSchema:   "public", SourceTable: "orders", SourceColumn: "account_id",
					TargetSchema: "public", TargetTable: "user_accounts", TargetColumn: "id",
				},
			},
		},
		RowCounts: map[models.TableKey]*int64{
			{Schema: "public", Name: "user_accounts"}: &rowCount,
			{Schema: "public", Name: "orders"}:        nil,
		},
		Profiles: []models.ColumnProfile{
			{Schema: "public", Table: "user_accounts", Column: "email", NullFrac: &nullFrac},
		},
	}
}

func nodeByID(write []*models.GraphNode, id string) *models.GraphNode {
	for _, n := range write {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func TestGraphIngestor_BuildsExpectedGraph(t *testing.T) {
	repo := &mockGraphRepository{}
	ingestor := NewGraphIngestor(repo, zap.NewNop())
	sourceID := uuid.New()

	result, err := ingestor.PersistSnapshot(context.Background(), ingestFixture(sourceID))
	if err != nil {
		t.Fatalf("PersistSnapshot failed: %v", err)
	}

	write := repo.lastWrite()
	if write == nil {
		t.Fatal("expected a snapshot write")
	}

	// 1 source + 2 tables + 4 columns.
	if len(write.Nodes) != 7 {
		t.Errorf("expected 7 nodes, got %d", len(write.Nodes))
	}
	// Per table: CONTAINS + BELONGS_TO + 2 HAS_COLUMN; plus 1 FK edge.
	if len(write.Edges) != 9 {
		t.Errorf("expected 9 edges, got %d", len(write.Edges))
	}
	if len(write.Provenance) != len(write.Nodes) {
		t.Errorf("expected one provenance row per node, got %d for %d nodes", len(write.Provenance), len(write.Nodes))
	}
	if result.SkippedFKs != 0 {
		t.Errorf("expected no skipped FKs, got %d", result.SkippedFKs)
	}

	srcNodeID := models.SourceNodeID(sourceID)
	if write.SourceNodeID != srcNodeID {
		t.Errorf("expected source node ID %q, got %q", srcNodeID, write.SourceNodeID)
	}

	tblID := models.TableNodeID(sourceID, "public", "user_accounts")
	table := nodeByID(write.Nodes, tblID)
	if table == nil {
		t.Fatalf("missing table node %q", tblID)
	}
	if table.Props["display_name"] != "User Account" {
		t.Errorf("expected singular title display name, got %v", table.Props["display_name"])
	}
	if table.Props["row_count"] != int64(1200) {
		t.Errorf("expected table row_count 1200, got %v", table.Props["row_count"])
	}
	if len(table.OwnerIDs) != 1 || table.OwnerIDs[0] != srcNodeID {
		t.Errorf("expected table owned by the source node, got %v", table.OwnerIDs)
	}

	orders := nodeByID(write.Nodes, models.TableNodeID(sourceID, "public", "orders"))
	if orders == nil {
		t.Fatal("missing orders node")
	}
	if _, ok := orders.Props["row_count"]; ok {
		t.Error("an unknown row count must not produce a row_count prop")
	}

	emailID := models.ColumnNodeID(tblID, "email")
	email := nodeByID(write.Nodes, emailID)
	if email == nil {
		t.Fatalf("missing column node %q", emailID)
	}
	if email.Props["null_frac"] != 0.1 {
		t.Errorf("expected the profile entry to merge into column props, got %v", email.Props["null_frac"])
	}
	if email.Props["display_name"] != "Email" {
		t.Errorf("expected column display name Email, got %v", email.Props["display_name"])
	}

	fkEdgeID := models.ForeignKeyEdgeID(
		models.ColumnNodeID(models.TableNodeID(sourceID, "public", "orders"), "account_id"),
		models.ColumnNodeID(tblID, "id"))
	found := false
	for _, e := range write.Edges {
		if e.ID == fkEdgeID {
			found = true
			if e.Props["constraint_name"] != "orders_account_fkey" {
				t.Errorf("expected constraint_name prop, got %v", e.Props["constraint_name"])
			}
		}
	}
	if !found {
		t.Errorf("missing foreign key edge %q", fkEdgeID)
	}
}

func TestGraphIngestor_Idempotent(t *testing.T) {
	repo := &mockGraphRepository{}
	ingestor := NewGraphIngestor(repo, zap.NewNop())
	sourceID := uuid.New()

	if _, err := ingestor.PersistSnapshot(context.Background(), ingestFixture(sourceID)); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if _, err := ingestor.PersistSnapshot(context.Background(), ingestFixture(sourceID)); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	first, second := repo.applied[0], repo.applied[1]

	firstIDs := make([]string, len(first.Nodes))
	for i, n := range first.Nodes {
		firstIDs[i] = n.ID
	}
	secondIDs := make([]string, len(second.Nodes))
	for i, n := range second.Nodes {
		secondIDs[i] = n.ID
	}
	sort.Strings(firstIDs)
	sort.Strings(secondIDs)

	if len(firstIDs) != len(secondIDs) {
		t.Fatalf("node sets differ in size: %d vs %d", len(firstIDs), len(secondIDs))
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Errorf("node ID mismatch at %d: %q vs %q", i, firstIDs[i], secondIDs[i])
		}
	}

	firstEdges := make([]string, len(first.Edges))
	for i, e := range first.Edges {
		firstEdges[i] = e.ID
	}
	secondEdges := make([]string, len(second.Edges))
	for i, e := range second.Edges {
		secondEdges[i] = e.ID
	}
	sort.Strings(firstEdges)
	sort.Strings(secondEdges)
	for i := range firstEdges {
		if firstEdges[i] != secondEdges[i] {
			t.Errorf("edge ID mismatch at %d: %q vs %q", i, firstEdges[i], secondEdges[i])
		}
	}
}

func TestGraphIngestor_SkipsUnresolvedForeignKey(t *testing.T) {
	repo := &mockGraphRepository{}
	ingestor := NewGraphIngestor(repo, zap.NewNop())
	sourceID := uuid.New()

	req := ingestFixture(sourceID)
	req.Snapshot.ForeignKeys = append(req.Snapshot.ForeignKeys, models.ForeignKeyConstraint{
		ConstraintName: "orders_warehouse_fkey",
		SourceSchema:   "public", SourceTable: "orders", SourceColumn: "account_id",
		TargetSchema: "inventory", TargetTable: "warehouses", TargetColumn: "id",
	})

	result, err := ingestor.PersistSnapshot(context.Background(), req)
	if err != nil {
		t.Fatalf("PersistSnapshot failed: %v", err)
	}

	if result.SkippedFKs != 1 {
		t.Errorf("expected 1 skipped FK, got %d", result.SkippedFKs)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a warning for the skipped FK, got %d", len(result.Warnings))
	}
	if result.Warnings[0].Severity != models.SeverityWarning || result.Warnings[0].Feature != "foreign_keys" {
		t.Errorf("unexpected warning %+v", result.Warnings[0])
	}

	write := repo.lastWrite()
	fkEdges := 0
	for _, e := range write.Edges {
		if e.Type == models.EdgeTypeForeignKey {
			fkEdges++
		}
	}
	if fkEdges != 1 {
		t.Errorf("expected only the resolvable FK edge, got %d", fkEdges)
	}
}

func TestGraphIngestor_DocumentSourceUsesCollectionNodes(t *testing.T) {
	repo := &mockGraphRepository{}
	ingestor := NewGraphIngestor(repo, zap.NewNop())
	sourceID := uuid.New()

	req := &IngestRequest{
		SourceID:   sourceID,
		SourceName: "appdb",
		Kind:       models.SourceKindMongoDB,
		CrawlID:    uuid.New(),
		Snapshot: &models.SchemaSnapshot{
			Tables: []models.SchemaTable{
				{
					Schema: "appdb",
					Name:   "events",
					Kind:   models.TableKindBaseTable,
					Columns: []models.SchemaColumn{
						{Name: "_id", DataType: "objectId", Nullable: false},
						{Name: "payload.user_id", DataType: "string", Nullable: true},
					},
				},
			},
		},
	}

	if _, err := ingestor.PersistSnapshot(context.Background(), req); err != nil {
		t.Fatalf("PersistSnapshot failed: %v", err)
	}

	write := repo.lastWrite()
	collID := models.CollectionNodeID(sourceID, "appdb", "events")
	coll := nodeByID(write.Nodes, collID)
	if coll == nil {
		t.Fatalf("missing collection node %q", collID)
	}
	if coll.Type != models.NodeTypeCollection {
		t.Errorf("expected collection node type, got %q", coll.Type)
	}

	fieldID := models.FieldNodeID(collID, "payload.user_id")
	field := nodeByID(write.Nodes, fieldID)
	if field == nil {
		t.Fatalf("missing field node %q", fieldID)
	}
	if field.Type != models.NodeTypeField {
		t.Errorf("expected field node type, got %q", field.Type)
	}

	hasField := 0
	for _, e := range write.Edges {
		if e.Type == models.EdgeTypeHasField {
			hasField++
		}
		if e.Type == models.EdgeTypeHasColumn {
			t.Error("document sources must not use HAS_COLUMN edges")
		}
	}
	if hasField != 2 {
		t.Errorf("expected 2 HAS_FIELD edges, got %d", hasField)
	}
}

func TestGraphIngestor_MergesRequestWarnings(t *testing.T) {
	repo := &mockGraphRepository{}
	ingestor := NewGraphIngestor(repo, zap.NewNop())

	req := ingestFixture(uuid.New())
	req.Warnings = []models.Warning{{
		Severity: models.SeverityWarning,
		Feature:  "pg_catalog_tables",
		Message:  "access denied",
	}}

	result, err := ingestor.PersistSnapshot(context.Background(), req)
	if err != nil {
		t.Fatalf("PersistSnapshot failed: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Feature != "pg_catalog_tables" {
		t.Errorf("expected the request warnings to ride along, got %v", result.Warnings)
	}
}

func TestGraphIngestor_NilSnapshot(t *testing.T) {
	ingestor := NewGraphIngestor(&mockGraphRepository{}, zap.NewNop())

	_, err := ingestor.PersistSnapshot(context.Background(), &IngestRequest{SourceID: uuid.New()})
	if err == nil {
		t.Fatal("expected an error for a nil snapshot")
	}
}
