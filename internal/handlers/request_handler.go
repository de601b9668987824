package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldlink/backend/internal/middleware"
	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/services"
)

type RequestHandler struct {
	requests services.RequestService
	log      *zap.Logger
}

func NewRequestHandler(requests services.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, log: log}
}

// Connect sends a connection request from the session user to the target.
// Re-sending to the same target overwrites the existing pending records and
// succeeds again.
func (h *RequestHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.requests.Connect(ctx, userID, targetID); err != nil {
		if errors.Is(err, services.ErrSelfConnect) {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("You cannot connect with yourself"))
			return
		}
		h.log.Error("connect failed",
			zap.String("sender", userID),
			zap.String("recipient", targetID),
			zap.Error(err))
		// The raw failure description is surfaced; one side's record may have
		// been written.
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send request: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.ConnectResponse{
		RecipientID: targetID,
		Status:      string(models.RequestStatusPending),
	}))
}

// List returns the session user's pending connection records.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	list, err := h.requests.ListForUser(ctx, userID)
	if err != nil {
		h.log.Error("list requests failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list requests"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}
