package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldlink/backend/internal/middleware"
	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	router   *chi.Mux
	profiles services.ProfileService
	requests services.RequestService
}

// newTestEnv wires the local-identity route tree against the file-backed
// services, mirroring the server's setup.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	log := zap.NewNop()

	accounts, err := services.NewFileAccountService(dataDir)
	require.NoError(t, err)
	profiles, err := services.NewFileProfileService(dataDir)
	require.NoError(t, err)
	requests, err := services.NewFileRequestService(dataDir)
	require.NoError(t, err)

	directory := services.NewDirectoryService(profiles, log)

	authHandler := NewAuthHandler(accounts, profiles, directory, testSecret, time.Hour, log)
	profileHandler := NewProfileHandler(profiles, log)
	directoryHandler := NewDirectoryHandler(directory, log)
	requestHandler := NewRequestHandler(requests, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(testSecret))

			r.Get("/auth/me", authHandler.Me)
			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Get("/users/{userId}", profileHandler.GetPublicProfile)
			r.Get("/directory", directoryHandler.List)
			r.Post("/directory/refresh", directoryHandler.Refresh)
			r.Get("/requests", requestHandler.List)
			r.Post("/requests/{userId}", requestHandler.Connect)
		})
	})

	return &testEnv{router: r, profiles: profiles, requests: requests}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success, "expected success, got error: %s", resp.Error)
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
}

func (e *testEnv) register(t *testing.T, email, name string, accountType models.AccountType) (string, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email:       email,
		Password:    "secret1",
		DisplayName: name,
		AccountType: accountType,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var auth models.AuthResponse
	decodeData(t, rec, &auth)
	require.NotEmpty(t, auth.Token)
	return auth.Token, auth.Account.ID
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email:       "ana@example.com",
		Password:    "another1",
		DisplayName: "Ana Again",
		AccountType: models.AccountTypePlayer,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_BadCredentialsAreUndifferentiated(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "ana@example.com", Password: "wrong-1",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "ghost@example.com", Password: "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// Whether email or password was wrong must not be distinguishable.
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestProfile_RegistrationSeedsAndNeedsSetup(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)

	rec := env.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prof models.ProfileResponse
	decodeData(t, rec, &prof)
	assert.Equal(t, userID, prof.Profile.UserID)
	assert.Equal(t, "Ana", prof.Profile.DisplayName)
	assert.Equal(t, models.AccountTypePlayer, prof.Profile.AccountType)
	// About is still empty, so the client goes straight to edit mode.
	assert.True(t, prof.NeedsSetup)
}

func TestProfile_UpsertMergesAndClearsNeedsSetup(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)

	about := "Weekend striker"
	location := "SP"
	rec := env.do(t, http.MethodPut, "/api/profile", token, models.UpdateProfileRequest{
		About:    &about,
		Location: &location,
		Player:   &models.PlayerInfo{Position: "Striker"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var prof models.ProfileResponse
	decodeData(t, rec, &prof)
	assert.False(t, prof.NeedsSetup)
	assert.Equal(t, "Ana", prof.Profile.DisplayName)
	assert.Equal(t, "SP", prof.Profile.Location)
	require.NotNil(t, prof.Profile.Player)
	assert.Equal(t, "Striker", prof.Profile.Player.Position)
}

func TestProfile_AccountTypeChangeConflicts(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)

	rec := env.do(t, http.MethodPut, "/api/profile", token, models.UpdateProfileRequest{
		AccountType: models.AccountTypeTeam,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDirectory_FilterByTypeAndTerm(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)
	env.register(t, "lions@example.com", "FC Lions", models.AccountTypeTeam)

	rec := env.do(t, http.MethodPost, "/api/directory/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/directory?type=player", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var players []models.DirectoryEntry
	decodeData(t, rec, &players)
	require.Len(t, players, 1)
	assert.Equal(t, "Ana", players[0].DisplayName)

	rec = env.do(t, http.MethodGet, "/api/directory?q=LIONS", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []models.DirectoryEntry
	decodeData(t, rec, &teams)
	require.Len(t, teams, 1)
	assert.Equal(t, "FC Lions", teams[0].DisplayName)
}

func TestConnect_SelfConnectRejected(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)

	rec := env.do(t, http.MethodPost, "/api/requests/"+userID, token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list, err := env.requests.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConnect_PairedWriteVisibleToBothUsers(t *testing.T) {
	env := newTestEnv(t)
	senderToken, senderID := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)
	recipientToken, recipientID := env.register(t, "lions@example.com", "FC Lions", models.AccountTypeTeam)

	rec := env.do(t, http.MethodPost, "/api/requests/"+recipientID, senderToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/requests", senderToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var senderSide []*models.ConnectionRequest
	decodeData(t, rec, &senderSide)
	require.Len(t, senderSide, 1)
	assert.Equal(t, recipientID, senderSide[0].OtherID)
	assert.Equal(t, models.RequestStatusPending, senderSide[0].Status)

	rec = env.do(t, http.MethodGet, "/api/requests", recipientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recipientSide []*models.ConnectionRequest
	decodeData(t, rec, &recipientSide)
	require.Len(t, recipientSide, 1)
	assert.Equal(t, senderID, recipientSide[0].OtherID)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/profile", "/api/directory", "/api/requests"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestPublicProfile(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "ana@example.com", "Ana", models.AccountTypePlayer)
	_, otherID := env.register(t, "lions@example.com", "FC Lions", models.AccountTypeTeam)

	rec := env.do(t, http.MethodGet, "/api/users/"+otherID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entry models.DirectoryEntry
	decodeData(t, rec, &entry)
	assert.Equal(t, "FC Lions", entry.DisplayName)
	assert.Equal(t, models.AccountTypeTeam, entry.AccountType)

	rec = env.do(t, http.MethodGet, "/api/users/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
