package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/fieldlink/backend/internal/middleware"
	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/services"
)

type DirectoryHandler struct {
	directory *services.DirectoryService
	log       *zap.Logger
}

func NewDirectoryHandler(directory *services.DirectoryService, log *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, log: log}
}

// List serves the browse/search view: the in-memory snapshot filtered by the
// optional `type` chip and `q` search term. No store round-trip happens here.
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	category := services.ParseCategory(r.URL.Query().Get("type"))
	term := r.URL.Query().Get("q")

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(h.directory.Search(category, term)))
}

// Refresh re-fetches the full profile collection into the snapshot.
func (h *DirectoryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.directory.Refresh(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to refresh directory"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(h.directory.Snapshot()))
}
