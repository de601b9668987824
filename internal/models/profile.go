package models

import "time"

// AccountType discriminates which optional field set applies to a profile.
type AccountType string

const (
	AccountTypePlayer AccountType = "player"
	AccountTypeTeam   AccountType = "team"
)

func (t AccountType) Valid() bool {
	return t == AccountTypePlayer || t == AccountTypeTeam
}

// Defaults seeded into a freshly registered profile.
const (
	DefaultLevel  = "Beginner"
	DefaultRating = 5.0
)

// PlayerInfo holds the fields that are only meaningful for player accounts.
type PlayerInfo struct {
	Position        string   `json:"position,omitempty" bson:"position,omitempty"`
	PreferredFoot   string   `json:"preferred_foot,omitempty" bson:"preferred_foot,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty" bson:"experience_level,omitempty"`
	PreviousClubs   string   `json:"previous_clubs,omitempty" bson:"previous_clubs,omitempty"`
	AvailableDays   []string `json:"available_days,omitempty" bson:"available_days,omitempty"`
}

// TeamInfo holds the fields that are only meaningful for team accounts.
type TeamInfo struct {
	Category         string `json:"category,omitempty" bson:"category,omitempty"`
	FoundedYear      string `json:"founded_year,omitempty" bson:"founded_year,omitempty"`
	SoughtPositions  string `json:"sought_positions,omitempty" bson:"sought_positions,omitempty"`
	TrainingLocation string `json:"training_location,omitempty" bson:"training_location,omitempty"`
	Achievements     string `json:"achievements,omitempty" bson:"achievements,omitempty"`
}

// Profile is the user-editable profile document, keyed by the identity subject id.
// At most one of Player/Team is populated, matching AccountType.
type Profile struct {
	UserID           string      `json:"user_id" bson:"user_id"`
	Email            string      `json:"email" bson:"email,omitempty"`
	DisplayName      string      `json:"display_name" bson:"display_name,omitempty"`
	AccountType      AccountType `json:"account_type" bson:"account_type,omitempty"`
	About            string      `json:"about" bson:"about,omitempty"`
	Location         string      `json:"location" bson:"location,omitempty"`
	AvailabilityNote string      `json:"availability_note" bson:"availability_note,omitempty"`
	Level            string      `json:"level" bson:"level,omitempty"`
	GamesPlayed      int         `json:"games_played" bson:"games_played"`
	TeamsJoined      int         `json:"teams_joined" bson:"teams_joined"`
	Rating           float64     `json:"rating" bson:"rating"`
	Player           *PlayerInfo `json:"player,omitempty" bson:"player,omitempty"`
	Team             *TeamInfo   `json:"team,omitempty" bson:"team,omitempty"`
	CreatedAt        time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" bson:"updated_at"`
}

// Complete reports whether the profile has the fields required after onboarding.
// An incomplete profile sends the client straight into edit mode.
func (p *Profile) Complete() bool {
	return p.DisplayName != "" && p.AccountType.Valid() && p.About != ""
}

// UpdateProfileRequest is a partial update: nil pointers leave the stored value
// untouched. Email and the numeric stats are never client-writable.
type UpdateProfileRequest struct {
	DisplayName      *string     `json:"display_name"`
	AccountType      AccountType `json:"account_type"`
	About            *string     `json:"about"`
	Location         *string     `json:"location"`
	AvailabilityNote *string     `json:"availability_note"`
	Level            *string     `json:"level"`
	Player           *PlayerInfo `json:"player"`
	Team             *TeamInfo   `json:"team"`
}

// ProfileResponse wraps a profile with the derived onboarding flag so clients
// don't have to infer edit mode from missing fields.
type ProfileResponse struct {
	Profile    *Profile `json:"profile"`
	NeedsSetup bool     `json:"needs_setup"`
}

// DirectoryEntry is the public browse/search view of a profile.
type DirectoryEntry struct {
	UserID           string      `json:"user_id"`
	DisplayName      string      `json:"display_name"`
	AccountType      AccountType `json:"account_type"`
	About            string      `json:"about"`
	Location         string      `json:"location"`
	AvailabilityNote string      `json:"availability_note"`
	Level            string      `json:"level"`
	GamesPlayed      int         `json:"games_played"`
	TeamsJoined      int         `json:"teams_joined"`
	Rating           float64     `json:"rating"`
}

// DirectoryEntryOf projects a profile into its public directory form.
func DirectoryEntryOf(p *Profile) DirectoryEntry {
	return DirectoryEntry{
		UserID:           p.UserID,
		DisplayName:      p.DisplayName,
		AccountType:      p.AccountType,
		About:            p.About,
		Location:         p.Location,
		AvailabilityNote: p.AvailabilityNote,
		Level:            p.Level,
		GamesPlayed:      p.GamesPlayed,
		TeamsJoined:      p.TeamsJoined,
		Rating:           p.Rating,
	}
}
