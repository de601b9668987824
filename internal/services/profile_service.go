package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldlink/backend/internal/models"
	"github.com/fieldlink/backend/internal/storage"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrAccountTypeChange = errors.New("account type cannot be changed once set")
)

// ProfileService owns the user profile documents. Saves are merges: fields the
// caller does not supply keep their stored values.
type ProfileService interface {
	// Seed creates the starter profile written at registration.
	Seed(ctx context.Context, userID, email, displayName string, accountType models.AccountType) (*models.Profile, error)
	// GetOrCreate returns the user's profile, materializing a default-populated
	// empty one if nothing is stored yet.
	GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error)
	// Get returns the stored profile or ErrProfileNotFound.
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// Upsert merge-saves the supplied fields. Identity and email come from the
	// session, never from the request body.
	Upsert(ctx context.Context, userID, email string, req *models.UpdateProfileRequest) (*models.Profile, error)
	// ListAll returns the entire profile collection, unordered.
	ListAll(ctx context.Context) ([]*models.Profile, error)
	Close(ctx context.Context) error
}

// resolveAccountType single-sources the variant discriminant: the stored type
// wins whenever present; the requested type only applies to a profile that has
// no type yet. Asking to change a stored type is an error rather than the
// silently-split behavior it replaces.
func resolveAccountType(stored, requested models.AccountType) (models.AccountType, error) {
	if stored.Valid() {
		if requested.Valid() && requested != stored {
			return "", ErrAccountTypeChange
		}
		return stored, nil
	}
	return requested, nil
}

// emptyProfile is what the editor opens with for a user who has no document.
func emptyProfile(userID, email string, now time.Time) *models.Profile {
	return &models.Profile{
		UserID:    userID,
		Email:     email,
		Level:     models.DefaultLevel,
		Rating:    models.DefaultRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FileProfileService is the file-backed implementation used for local
// development and tests.
type FileProfileService struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
	store    *storage.JSONStore
}

func NewFileProfileService(dataDir string) (*FileProfileService, error) {
	store, err := storage.NewJSONStore(dataDir, "profiles.json")
	if err != nil {
		return nil, err
	}

	s := &FileProfileService{
		profiles: make(map[string]*models.Profile),
		store:    store,
	}
	if err := store.Load(&s.profiles); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileProfileService) persistLocked() error {
	return s.store.Save(s.profiles)
}

func (s *FileProfileService) Seed(ctx context.Context, userID, email, displayName string, accountType models.AccountType) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p := &models.Profile{
		UserID:           userID,
		Email:            email,
		DisplayName:      displayName,
		AccountType:      accountType,
		Level:            models.DefaultLevel,
		Rating:           models.DefaultRating,
		AvailabilityNote: "every day",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.profiles[userID] = p
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return cloneProfile(p), nil
}

func (s *FileProfileService) GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error) {
	s.mu.RLock()
	p, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return emptyProfile(userID, email, time.Now().UTC()), nil
	}

	out := cloneProfile(p)
	if out.Email == "" {
		out.Email = email
	}
	return out, nil
}

func (s *FileProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (s *FileProfileService) Upsert(ctx context.Context, userID, email string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored, ok := s.profiles[userID]
	if !ok {
		stored = emptyProfile(userID, email, now)
	}

	merged, err := mergeProfile(stored, email, req, now)
	if err != nil {
		return nil, err
	}

	s.profiles[userID] = merged
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return cloneProfile(merged), nil
}

func (s *FileProfileService) ListAll(ctx context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, cloneProfile(p))
	}
	return out, nil
}

func (s *FileProfileService) Close(ctx context.Context) error { return nil }

// mergeProfile applies the update on top of the stored document. Numeric stats
// and timestamps carry through from the stored value; the editor never sets
// them. The variant field set is chosen by the resolved account type only.
func mergeProfile(stored *models.Profile, email string, req *models.UpdateProfileRequest, now time.Time) (*models.Profile, error) {
	accountType, err := resolveAccountType(stored.AccountType, req.AccountType)
	if err != nil {
		return nil, err
	}

	merged := cloneProfile(stored)
	merged.AccountType = accountType
	merged.UpdatedAt = now
	if email != "" {
		merged.Email = email
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}

	if req.DisplayName != nil {
		merged.DisplayName = *req.DisplayName
	}
	if req.About != nil {
		merged.About = *req.About
	}
	if req.Location != nil {
		merged.Location = *req.Location
	}
	if req.AvailabilityNote != nil {
		merged.AvailabilityNote = *req.AvailabilityNote
	}
	if req.Level != nil {
		merged.Level = *req.Level
	}

	switch accountType {
	case models.AccountTypePlayer:
		merged.Team = nil
		if req.Player != nil {
			merged.Player = mergePlayerInfo(merged.Player, req.Player)
		}
	case models.AccountTypeTeam:
		merged.Player = nil
		if req.Team != nil {
			merged.Team = mergeTeamInfo(merged.Team, req.Team)
		}
	}

	return merged, nil
}

// mergePlayerInfo overlays non-empty fields. AvailableDays replaces the stored
// set wholesale and is only persisted when non-empty.
func mergePlayerInfo(stored, in *models.PlayerInfo) *models.PlayerInfo {
	out := &models.PlayerInfo{}
	if stored != nil {
		*out = *stored
	}
	if in.Position != "" {
		out.Position = in.Position
	}
	if in.PreferredFoot != "" {
		out.PreferredFoot = in.PreferredFoot
	}
	if in.ExperienceLevel != "" {
		out.ExperienceLevel = in.ExperienceLevel
	}
	if in.PreviousClubs != "" {
		out.PreviousClubs = in.PreviousClubs
	}
	if len(in.AvailableDays) > 0 {
		out.AvailableDays = append([]string(nil), in.AvailableDays...)
	}
	return out
}

func mergeTeamInfo(stored, in *models.TeamInfo) *models.TeamInfo {
	out := &models.TeamInfo{}
	if stored != nil {
		*out = *stored
	}
	if in.Category != "" {
		out.Category = in.Category
	}
	if in.FoundedYear != "" {
		out.FoundedYear = in.FoundedYear
	}
	if in.SoughtPositions != "" {
		out.SoughtPositions = in.SoughtPositions
	}
	if in.TrainingLocation != "" {
		out.TrainingLocation = in.TrainingLocation
	}
	if in.Achievements != "" {
		out.Achievements = in.Achievements
	}
	return out
}

func cloneProfile(p *models.Profile) *models.Profile {
	out := *p
	if p.Player != nil {
		pi := *p.Player
		pi.AvailableDays = append([]string(nil), p.Player.AvailableDays...)
		out.Player = &pi
	}
	if p.Team != nil {
		ti := *p.Team
		out.Team = &ti
	}
	return &out
}
