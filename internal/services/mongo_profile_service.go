package services

import (
	"context"
	"crypto/tls"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldlink/backend/internal/models"
)

type MongoProfileService struct {
	client   *mongo.Client
	db       *mongo.Database
	usersCol *mongo.Collection
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	col := db.Collection("users")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoProfileService{
		client:   client,
		db:       db,
		usersCol: col,
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileService) Seed(ctx context.Context, userID, email, displayName string, accountType models.AccountType) (*models.Profile, error) {
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
	if _, err := s.usersCol.InsertOne(ctx, p); err != nil {
		// A race with a concurrent seed leaves a usable document; read it back.
		if mongo.IsDuplicateKeyError(err) {
			return s.Get(ctx, userID)
		}
		return nil, err
	}
	return p, nil
}

func (s *MongoProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.usersCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoProfileService) GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err == ErrProfileNotFound {
		// Nothing stored yet: the editor opens pre-populated with defaults.
		// No document is written until the first save.
		return emptyProfile(userID, email, time.Now().UTC()), nil
	}
	if err != nil {
		return nil, err
	}

	if email != "" && p.Email == "" {
		// Keep email in sync with the identity provider.
		_, _ = s.usersCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
			"$set": bson.M{"email": email, "updated_at": time.Now().UTC()},
		})
		p.Email = email
	}
	return p, nil
}

// Upsert merge-saves the supplied fields: only supplied paths go into $set, so
// fields written by other processes (stats updates in particular) survive.
func (s *MongoProfileService) Upsert(ctx context.Context, userID, email string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	stored, err := s.Get(ctx, userID)
	if err != nil && err != ErrProfileNotFound {
		return nil, err
	}

	var storedType models.AccountType
	if stored != nil {
		storedType = stored.AccountType
	}
	accountType, err := resolveAccountType(storedType, req.AccountType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	set := bson.M{
		"updated_at": now,
	}
	if email != "" {
		set["email"] = email
	}
	if accountType.Valid() {
		set["account_type"] = accountType
	}
	if req.DisplayName != nil {
		set["display_name"] = *req.DisplayName
	}
	if req.About != nil {
		set["about"] = *req.About
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.AvailabilityNote != nil {
		set["availability_note"] = *req.AvailabilityNote
	}
	if req.Level != nil {
		set["level"] = *req.Level
	}

	switch accountType {
	case models.AccountTypePlayer:
		if req.Player != nil {
			addPlayerFields(set, req.Player)
		}
	case models.AccountTypeTeam:
		if req.Team != nil {
			addTeamFields(set, req.Team)
		}
	}

	// Defaults only materialize on first insert; stats are otherwise never
	// touched by a profile save.
	setOnInsert := bson.M{
		"user_id":      userID,
		"level":        models.DefaultLevel,
		"games_played": 0,
		"teams_joined": 0,
		"rating":       models.DefaultRating,
		"created_at":   now,
	}
	if _, ok := set["level"]; ok {
		delete(setOnInsert, "level")
	}

	_, err = s.usersCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}

func addPlayerFields(set bson.M, in *models.PlayerInfo) {
	if in.Position != "" {
		set["player.position"] = in.Position
	}
	if in.PreferredFoot != "" {
		set["player.preferred_foot"] = in.PreferredFoot
	}
	if in.ExperienceLevel != "" {
		set["player.experience_level"] = in.ExperienceLevel
	}
	if in.PreviousClubs != "" {
		set["player.previous_clubs"] = in.PreviousClubs
	}
	if len(in.AvailableDays) > 0 {
		set["player.available_days"] = in.AvailableDays
	}
}

func addTeamFields(set bson.M, in *models.TeamInfo) {
	if in.Category != "" {
		set["team.category"] = in.Category
	}
	if in.FoundedYear != "" {
		set["team.founded_year"] = in.FoundedYear
	}
	if in.SoughtPositions != "" {
		set["team.sought_positions"] = in.SoughtPositions
	}
	if in.TrainingLocation != "" {
		set["team.training_location"] = in.TrainingLocation
	}
	if in.Achievements != "" {
		set["team.achievements"] = in.Achievements
	}
}

// ListAll fetches the entire users collection, unordered; filtering happens
// client-side after full retrieval.
func (s *MongoProfileService) ListAll(ctx context.Context) ([]*models.Profile, error) {
	cur, err := s.usersCol.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Profile, 0)
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}
