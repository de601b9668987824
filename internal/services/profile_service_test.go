package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlink/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func newProfileService(t *testing.T) *FileProfileService {
	t.Helper()
	s, err := NewFileProfileService(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSeed_StarterProfileDefaults(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	p, err := s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, models.AccountTypePlayer, p.AccountType)
	assert.Equal(t, models.DefaultLevel, p.Level)
	assert.Equal(t, 0, p.GamesPlayed)
	assert.Equal(t, 0, p.TeamsJoined)
	assert.Equal(t, models.DefaultRating, p.Rating)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestGetOrCreate_AbsentProfileOpensWithDefaults(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	p, err := s.GetOrCreate(ctx, "nobody", "new@example.com")
	require.NoError(t, err)

	assert.Equal(t, "nobody", p.UserID)
	assert.Equal(t, "new@example.com", p.Email)
	assert.Equal(t, models.DefaultLevel, p.Level)
	assert.Equal(t, models.DefaultRating, p.Rating)
	assert.False(t, p.Complete())

	// Nothing was written: Get still reports not found.
	_, err = s.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUpsert_MergeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	_, err := s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	saved, err := s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		About:    strPtr("Weekend striker"),
		Location: strPtr("SP"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Weekend striker", saved.About)
	assert.Equal(t, "SP", saved.Location)
	// Unspecified fields keep their stored values.
	assert.Equal(t, "Ana", saved.DisplayName)
	assert.Equal(t, models.AccountTypePlayer, saved.AccountType)

	// A later save that omits those fields leaves them intact and never
	// touches the stats.
	saved, err = s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		AvailabilityNote: strPtr("evenings"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Weekend striker", saved.About)
	assert.Equal(t, "SP", saved.Location)
	assert.Equal(t, "evenings", saved.AvailabilityNote)
	assert.Equal(t, 0, saved.GamesPlayed)
	assert.Equal(t, 0, saved.TeamsJoined)
	assert.Equal(t, models.DefaultRating, saved.Rating)

	loaded, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestUpsert_StatsCarriedFromStoredValue(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	_, err := s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	// Simulate another process updating the stats.
	s.mu.Lock()
	s.profiles["u1"].GamesPlayed = 12
	s.profiles["u1"].Rating = 4.2
	s.mu.Unlock()

	saved, err := s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		About: strPtr("updated"),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, saved.GamesPlayed)
	assert.Equal(t, 4.2, saved.Rating)
}

func TestUpsert_PlayerFieldsOnlyForPlayers(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	_, err := s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	saved, err := s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		Player: &models.PlayerInfo{
			Position:      "Striker",
			PreferredFoot: "Left",
			AvailableDays: []string{"Saturday", "Sunday"},
		},
		// A team payload on a player account is ignored.
		Team: &models.TeamInfo{Category: "Amateur"},
	})
	require.NoError(t, err)

	require.NotNil(t, saved.Player)
	assert.Equal(t, "Striker", saved.Player.Position)
	assert.Equal(t, []string{"Saturday", "Sunday"}, saved.Player.AvailableDays)
	assert.Nil(t, saved.Team)
}

func TestUpsert_EmptyAvailableDaysKeepsStoredSet(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	_, err := s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		Player: &models.PlayerInfo{AvailableDays: []string{"Monday"}},
	})
	require.NoError(t, err)

	saved, err := s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		Player: &models.PlayerInfo{Position: "Keeper"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday"}, saved.Player.AvailableDays)
	assert.Equal(t, "Keeper", saved.Player.Position)
}

func TestUpsert_AccountTypeChangeRejected(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	_, err := s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, "u1", "ana@example.com", &models.UpdateProfileRequest{
		AccountType: models.AccountTypeTeam,
	})
	assert.ErrorIs(t, err, ErrAccountTypeChange)
}

func TestUpsert_RequestedTypeAppliesToUntypedProfile(t *testing.T) {
	ctx := context.Background()
	s := newProfileService(t)

	saved, err := s.Upsert(ctx, "fresh", "t@example.com", &models.UpdateProfileRequest{
		DisplayName: strPtr("FC Lions"),
		AccountType: models.AccountTypeTeam,
		Team:        &models.TeamInfo{Category: "Amateur", FoundedYear: "2020"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeTeam, saved.AccountType)
	require.NotNil(t, saved.Team)
	assert.Equal(t, "Amateur", saved.Team.Category)
}

func TestResolveAccountType(t *testing.T) {
	got, err := resolveAccountType(models.AccountTypePlayer, "")
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypePlayer, got)

	got, err = resolveAccountType(models.AccountTypePlayer, models.AccountTypePlayer)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypePlayer, got)

	_, err = resolveAccountType(models.AccountTypePlayer, models.AccountTypeTeam)
	assert.ErrorIs(t, err, ErrAccountTypeChange)

	got, err = resolveAccountType("", models.AccountTypeTeam)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeTeam, got)
}

func TestProfiles_SurviveReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileProfileService(dir)
	require.NoError(t, err)
	_, err = s.Seed(ctx, "u1", "ana@example.com", "Ana", models.AccountTypePlayer)
	require.NoError(t, err)

	reloaded, err := NewFileProfileService(dir)
	require.NoError(t, err)

	p, err := reloaded.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
}
