package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/fieldlink/backend/internal/middleware"
	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/services"
)

type AuthHandler struct {
	accounts      services.AccountService
	profiles      services.ProfileService
	directory     *services.DirectoryService
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
}

func NewAuthHandler(
	accounts services.AccountService,
	profiles services.ProfileService,
	directory *services.DirectoryService,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		profiles:      profiles,
		directory:     directory,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

// Register creates an account and seeds the starter profile so the new user
// appears in the directory immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	account, err := h.accounts.Register(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Email already registered"))
			return
		}
		h.log.Error("register failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create account"))
		return
	}

	if _, err := h.profiles.Seed(ctx, account.ID, account.Email, req.DisplayName, req.AccountType); err != nil {
		// The account exists; the profile can still be completed via the
		// editor, so this is not fatal to registration.
		h.log.Warn("profile seed failed", zap.String("user", account.ID), zap.Error(err))
	}

	token, err := h.generateToken(account.ID, account.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	h.refreshDirectory(r.Context())

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.AuthResponse{
		Token:   token,
		Account: *account,
	}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	account, err := h.accounts.Login(ctx, &req)
	if err != nil {
		// Deliberately the same message for unknown email and wrong password.
		if errors.Is(err, services.ErrAccountNotFound) || errors.Is(err, services.ErrInvalidPassword) {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
			return
		}
		h.log.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	token, err := h.generateToken(account.ID, account.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	// Session start: load the directory for the new identity.
	h.refreshDirectory(r.Context())

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AuthResponse{
		Token:   token,
		Account: *account,
	}))
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	account, err := h.accounts.GetByID(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Account not found"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(account))
}

func (h *AuthHandler) refreshDirectory(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	// Failure already logged inside; login still succeeds with a stale or
	// empty directory.
	_ = h.directory.Refresh(refreshCtx)
}

func (h *AuthHandler) generateToken(userID, email string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(h.jwtExpiration).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
