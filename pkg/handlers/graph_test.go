package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func TestGraphHandler_GetGraph_Success(t *testing.T) {
	service := &mockGraphService{
		graph: &models.GraphResult{
			Nodes: []*models.GraphNode{
				{ID: "src_warehouse", Type: models.NodeTypeSource, Props: map[string]any{"name": "warehouse"}},
				{ID: "tbl_public_orders", Type: models.NodeTypeTable, Props: map[string]any{"name": "orders"}},
			},
			Edges: []*models.GraphEdge{
				{ID: "src_warehouse->tbl_public_orders", SrcID: "src_warehouse", DstID: "tbl_public_orders", Type: models.EdgeTypeContains},
			},
			Stats: models.GraphStats{NodeCount: 2, EdgeCount: 1},
		},
	}
	handler := NewGraphHandler(service, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/graph?source_id=abc&node_type=table&search=ord&limit=10", nil)

	rec := httptest.NewRecorder()
	handler.GetGraph(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var apiResp struct {
		Success bool               `json:"success"`
		Data    models.GraphResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &apiResp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(apiResp.Data.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(apiResp.Data.Nodes))
	}
	if apiResp.Data.Stats.EdgeCount != 1 {
		t.Errorf("expected edge_count 1, got %d", apiResp.Data.Stats.EdgeCount)
	}

	filter := service.gotFilter
	if len(filter.SourceIDs) != 1 || filter.SourceIDs[0] != "abc" {
		t.Errorf("expected source filter [abc], got %v", filter.SourceIDs)
	}
	if len(filter.NodeTypes) != 1 || filter.NodeTypes[0] != "table" {
		t.Errorf("expected node type filter [table], got %v", filter.NodeTypes)
	}
	if filter.Search != "ord" {
		t.Errorf("expected search 'ord', got %q", filter.Search)
	}
	if filter.Limit != 10 {
		t.Errorf("expected limit 10, got %d", filter.Limit)
	}
}

func TestGraphHandler_GetGraph_RepeatedParams(t *testing.T) {
	service := &mockGraphService{graph: &models.GraphResult{}}
	handler := NewGraphHandler(service, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/graph?node_type=table&node_type=column&edge_type=CONTAINS&edge_type=DERIVES_FROM", nil)

	rec := httptest.NewRecorder()
	handler.GetGraph(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	filter := service.gotFilter
	if len(filter.NodeTypes) != 2 {
		t.Errorf("expected 2 node types, got %v", filter.NodeTypes)
	}
	// Edge types pass through unvalidated so semantic edges stay queryable.
	if len(filter.EdgeTypes) != 2 || filter.EdgeTypes[1] != "DERIVES_FROM" {
		t.Errorf("expected edge types [CONTAINS DERIVES_FROM], got %v", filter.EdgeTypes)
	}
}

func TestGraphHandler_GetGraph_InvalidNodeType(t *testing.T) {
	handler := NewGraphHandler(&mockGraphService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/graph?node_type=warehouse", nil)

	rec := httptest.NewRecorder()
	handler.GetGraph(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp["error"] != "invalid_node_type" {
		t.Errorf("expected error 'invalid_node_type', got %q", resp["error"])
	}
}

func TestGraphHandler_GetGraph_InvalidLimit(t *testing.T) {
	handler := NewGraphHandler(&mockGraphService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/graph?limit=ten", nil)

	rec := httptest.NewRecorder()
	handler.GetGraph(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp["error"] != "invalid_limit" {
		t.Errorf("expected error 'invalid_limit', got %q", resp["error"])
	}
}

func TestGraphHandler_GetGraph_ServiceError(t *testing.T) {
	service := &mockGraphService{err: errors.New("database error")}
	handler := NewGraphHandler(service, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/graph", nil)

	rec := httptest.NewRecorder()
	handler.GetGraph(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp["error"] != "graph_read_failed" {
		t.Errorf("expected error 'graph_read_failed', got %q", resp["error"])
	}
}
