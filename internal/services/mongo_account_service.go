package services

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldlink/backend/internal/models"
)

type MongoAccountService struct {
	client      *mongo.Client
	db          *mongo.Database
	accountsCol *mongo.Collection
}

func NewMongoAccountService(ctx context.Context, mongoURI, dbName string) (*MongoAccountService, error) {
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
	col := db.Collection("accounts")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoAccountService{
		client:      client,
		db:          db,
		accountsCol: col,
	}, nil
}

func (s *MongoAccountService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoAccountService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.accountsCol.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return account, nil
}

func (s *MongoAccountService) Login(ctx context.Context, req *models.LoginRequest) (*models.Account, error) {
	var account models.Account
	if err := s.accountsCol.FindOne(ctx, bson.M{"email": req.Email}).Decode(&account); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return &account, nil
}

func (s *MongoAccountService) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.accountsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&account); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}
