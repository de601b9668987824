package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldlink/backend/internal/middleware"
	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/services"
)

type ProfileHandler struct {
	profiles services.ProfileService
	log      *zap.Logger
}

func NewProfileHandler(profiles services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log}
}

// GetProfile returns the session user's own profile. A missing document comes
// back default-populated with needs_setup set, as does a stored profile still
// missing its required fields.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	email := middleware.GetUserEmail(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	prof, err := h.profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		h.log.Error("load profile failed", zap.String("user", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ProfileResponse{
		Profile:    prof,
		NeedsSetup: !prof.Complete(),
	}))
}

// UpsertProfile merge-saves the session user's profile. Identity and email
// come from the session; the request body cannot set them.
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	email := middleware.GetUserEmail(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.AccountType != "" && !req.AccountType.Valid() {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Account type must be player or team"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	prof, err := h.profiles.Upsert(ctx, userID, email, &req)
	if err != nil {
		if errors.Is(err, services.ErrAccountTypeChange) {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Account type cannot be changed"))
			return
		}
		h.log.Error("save profile failed", zap.String("user", userID), zap.Error(err))
		// The raw failure description is part of the user-visible message.
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to save profile: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ProfileResponse{
		Profile:    prof,
		NeedsSetup: !prof.Complete(),
	}))
}

// GetPublicProfile returns another user's profile in its directory form.
func (h *ProfileHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
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

	prof, err := h.profiles.Get(ctx, targetID)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		h.log.Error("load public profile failed", zap.String("target", targetID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.DirectoryEntryOf(prof)))
}
