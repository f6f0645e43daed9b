package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
	"github.com/anshumax/semantiqa-sub001/pkg/services"
)

// SourceResponse is the API shape of a registered source. The config omits
// credentials through its JSON tags.
type SourceResponse struct {
	SourceID      string              `json:"source_id"`
	Name          string              `json:"name"`
	Kind          string              `json:"kind"`
	Status        string              `json:"status"`
	Config        models.SourceConfig `json:"config"`
	LastCrawledAt string              `json:"last_crawled_at,omitempty"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

// ListSourcesResponse wraps the source array.
type ListSourcesResponse struct {
	Sources []SourceResponse `json:"sources"`
}

// CreateSourceRequest for POST body.
type CreateSourceRequest struct {
	Name   string              `json:"name"`
	Kind   string              `json:"kind"`
	Config models.SourceConfig `json:"config"`
}

// TestSourceRequest for connection testing.
type TestSourceRequest struct {
	Kind   string              `json:"kind"`
	Config models.SourceConfig `json:"config"`
}

// RefreshSourceResponse summarizes a completed crawl.
type RefreshSourceResponse struct {
	SourceID    string                   `json:"source_id"`
	Kind        string                   `json:"kind"`
	Tables      int                      `json:"tables"`
	Columns     int                      `json:"columns"`
	ForeignKeys int                      `json:"foreign_keys"`
	Warnings    []models.Warning         `json:"warnings"`
	Features    models.AvailableFeatures `json:"features"`
	DurationMs  int64                    `json:"duration_ms"`
}

// DeleteSourceResponse for delete result.
type DeleteSourceResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	RowsRemoved int64               `json:"rows_removed"`
	Counts      models.DeleteCounts `json:"counts"`
}

// WarningsResponse wraps the latest crawl's warnings.
type WarningsResponse struct {
	Warnings []models.Warning `json:"warnings"`
}

// QueryRequest for ad-hoc reads. Query holds SQL for relational sources or a
// JSON find descriptor for document sources.
type QueryRequest struct {
	Query string `json:"query"`
	Args  []any  `json:"args,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SourcesHandler handles source-related HTTP requests.
type SourcesHandler struct {
	sourceService services.SourceService
	queryService  services.QueryService
	logger        *zap.Logger
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(sourceService services.SourceService, queryService services.QueryService, logger *zap.Logger) *SourcesHandler {
	return &SourcesHandler{
		sourceService: sourceService,
		queryService:  queryService,
		logger:        logger,
	}
}

// RegisterRoutes registers the sources handler's routes on the given mux.
func (h *SourcesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sources", h.Create)
	mux.HandleFunc("GET /api/sources", h.List)
	mux.HandleFunc("GET /api/sources/{id}", h.Get)
	mux.HandleFunc("DELETE /api/sources/{id}", h.Delete)
	mux.HandleFunc("POST /api/sources/{id}/refresh", h.Refresh)
	mux.HandleFunc("GET /api/sources/{id}/warnings", h.Warnings)
	mux.HandleFunc("POST /api/sources/{id}/query", h.Query)
	mux.HandleFunc("POST /api/sources/test", h.TestConnection)
}

func sourceResponse(src *models.Source) SourceResponse {
	resp := SourceResponse{
		SourceID:  src.ID.String(),
		Name:      src.Name,
		Kind:      src.Kind,
		Status:    src.Status,
		Config:    src.Config,
		CreatedAt: src.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: src.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if src.LastCrawledAt != nil {
		resp.LastCrawledAt = src.LastCrawledAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Create handles POST /api/sources
// Registers a new source.
func (h *SourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_name", "Source name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Kind == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_kind", "Source kind is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	src, err := h.sourceService.CreateSource(r.Context(), req.Name, req.Kind, req.Config)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnsupportedKind) {
			if err := ErrorResponse(w, http.StatusBadRequest, "unsupported_kind", "Source kind is not supported"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrConflict) {
			if err := ErrorResponse(w, http.StatusConflict, "duplicate_name", "A source with this name already exists"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to create source",
			zap.String("name", req.Name),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "create_failed", "Failed to create source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: sourceResponse(src)}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/sources
// Returns all registered sources.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sourceService.ListSources(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sources", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list sources"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	data := ListSourcesResponse{Sources: make([]SourceResponse, len(sources))}
	for i, src := range sources {
		data.Sources[i] = sourceResponse(src)
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/sources/{id}
// Returns a single source by ID.
func (h *SourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := ParseSourceID(w, r, h.logger)
	if !ok {
		return
	}

	src, err := h.sourceService.GetSource(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get source",
			zap.String("source_id", sourceID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: sourceResponse(src)}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Refresh handles POST /api/sources/{id}/refresh
// Runs a full crawl of the source and returns a summary.
func (h *SourcesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := ParseSourceID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.sourceService.RefreshSource(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrCrawlInProgress) {
			if err := ErrorResponse(w, http.StatusConflict, "crawl_in_progress", "A crawl of this source is already running"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrSourceDeleting) {
			if err := ErrorResponse(w, http.StatusConflict, "source_deleting", "The source is being deleted"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to refresh source",
			zap.String("source_id", sourceID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "refresh_failed", "Failed to refresh source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	columns := 0
	for _, t := range result.Snapshot.Tables {
		columns += len(t.Columns)
	}

	data := RefreshSourceResponse{
		SourceID:    result.SourceID.String(),
		Kind:        result.Kind,
		Tables:      len(result.Snapshot.Tables),
		Columns:     columns,
		ForeignKeys: len(result.Snapshot.ForeignKeys),
		Warnings:    result.Warnings,
		Features:    result.Features,
		DurationMs:  result.Duration.Milliseconds(),
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/sources/{id}
// Removes the source and everything crawled from it.
func (h *SourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := ParseSourceID(w, r, h.logger)
	if !ok {
		return
	}

	counts, err := h.sourceService.DeleteSource(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrSourceDeleting) {
			if err := ErrorResponse(w, http.StatusConflict, "source_deleting", "The source is already being deleted"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete source",
			zap.String("source_id", sourceID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_failed", "Failed to delete source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	data := DeleteSourceResponse{
		Success:     true,
		Message:     "Source and crawled metadata deleted",
		RowsRemoved: counts.Total(),
		Counts:      *counts,
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Warnings handles GET /api/sources/{id}/warnings
// Returns the warnings recorded by the source's most recent crawl.
func (h *SourcesHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := ParseSourceID(w, r, h.logger)
	if !ok {
		return
	}

	warnings, err := h.sourceService.GetSourceWarnings(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to read source warnings",
			zap.String("source_id", sourceID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to read source warnings"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: WarningsResponse{Warnings: warnings}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Query handles POST /api/sources/{id}/query
// Runs a bounded read-only query against the source.
func (h *SourcesHandler) Query(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := ParseSourceID(w, r, h.logger)
	if !ok {
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Query == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_query", "Query text is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.queryService.ExecuteQuery(r.Context(), sourceID, req.Query, req.Args, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Source not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrQueryRejected):
			if err := ErrorResponse(w, http.StatusBadRequest, "query_rejected", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrUnsupportedOperation):
			if err := ErrorResponse(w, http.StatusBadRequest, "unsupported_operation", "This source does not support ad-hoc queries"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrSourceDeleting):
			if err := ErrorResponse(w, http.StatusConflict, "source_deleting", "The source is being deleted"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrPermissionDenied):
			if err := ErrorResponse(w, http.StatusForbidden, "permission_denied", "The source denied the query"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to execute query",
				zap.String("source_id", sourceID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "query_failed", "Failed to execute query"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TestConnection handles POST /api/sources/test
// Tests connection to a source without saving it.
func (h *SourcesHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Kind == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_kind", "Source kind is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.sourceService.TestConnection(r.Context(), req.Kind, req.Config); err != nil {
		if errors.Is(err, apperrors.ErrUnsupportedKind) {
			if err := ErrorResponse(w, http.StatusBadRequest, "unsupported_kind", "Source kind is not supported"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Info("Connection test failed",
			zap.String("kind", req.Kind),
			zap.Error(err))
		if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: false, Error: err.Error()}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Connection successful"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
