package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// AdapterListResponse wraps the supported adapter kinds.
type AdapterListResponse struct {
	Adapters []source.AdapterInfo `json:"adapters"`
}

// AdaptersHandler handles adapter catalog requests.
type AdaptersHandler struct {
	factory source.AdapterFactory
	logger  *zap.Logger
}

// NewAdaptersHandler creates a new adapters handler.
func NewAdaptersHandler(factory source.AdapterFactory, logger *zap.Logger) *AdaptersHandler {
	return &AdaptersHandler{
		factory: factory,
		logger:  logger,
	}
}

// RegisterRoutes registers the adapters handler's routes on the given mux.
func (h *AdaptersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/adapters", h.List)
}

// List handles GET /api/adapters
// Returns the source kinds this build supports.
func (h *AdaptersHandler) List(w http.ResponseWriter, r *http.Request) {
	data := AdapterListResponse{Adapters: h.factory.ListKinds()}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
