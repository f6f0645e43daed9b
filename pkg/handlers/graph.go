package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/services"
)

// GraphHandler handles graph read requests.
type GraphHandler struct {
	graphService services.GraphService
	logger       *zap.Logger
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(graphService services.GraphService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		graphService: graphService,
		logger:       logger,
	}
}

// RegisterRoutes registers the graph handler's routes on the given mux.
func (h *GraphHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.GetGraph)
}

// GetGraph handles GET /api/graph
// Returns the metadata graph, filtered by the query parameters.
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.GraphFilter{
		SourceIDs: q["source_id"],
		NodeTypes: q["node_type"],
		EdgeTypes: q["edge_type"],
		Search:    q.Get("search"),
	}

	for _, nodeType := range filter.NodeTypes {
		if !models.IsValidNodeType(nodeType) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_node_type", "Unknown node type: "+nodeType); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	if rawLimit := q.Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must be a non-negative integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Limit = limit
	}

	result, err := h.graphService.GetGraph(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to read graph", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "graph_read_failed", "Failed to read graph"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
