package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldlink/backend/internal/models"
)

type MongoRequestService struct {
	client      *mongo.Client
	db          *mongo.Database
	requestsCol *mongo.Collection
}

func NewMongoRequestService(ctx context.Context, mongoURI, dbName string) (*MongoRequestService, error) {
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
	reqs := db.Collection("requests")

	// Best-effort indexes. The unique pair index is what makes a re-send an
	// overwrite instead of a duplicate.
	_, _ = reqs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "other_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})

	return &MongoRequestService{
		client:      client,
		db:          db,
		requestsCol: reqs,
	}, nil
}

func (s *MongoRequestService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Connect writes the pending record on both sides: under the recipient keyed
// by the sender, then under the sender keyed by the recipient. The writes are
// independent; if the second fails the first is not rolled back.
func (s *MongoRequestService) Connect(ctx context.Context, senderID, recipientID string) error {
	if senderID == recipientID {
		return ErrSelfConnect
	}

	if err := s.upsertPending(ctx, recipientID, senderID); err != nil {
		return fmt.Errorf("write recipient record: %w", err)
	}
	if err := s.upsertPending(ctx, senderID, recipientID); err != nil {
		return fmt.Errorf("write sender record: %w", err)
	}
	return nil
}

func (s *MongoRequestService) upsertPending(ctx context.Context, ownerID, otherID string) error {
	_, err := s.requestsCol.UpdateOne(
		ctx,
		bson.M{"owner_id": ownerID, "other_id": otherID},
		bson.M{
			"$set": bson.M{
				"status": models.RequestStatusPending,
				"since":  nil,
			},
			"$setOnInsert": bson.M{
				"_id":        uuid.New().String(),
				"owner_id":   ownerID,
				"other_id":   otherID,
				"created_at": time.Now().UTC(),
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoRequestService) ListForUser(ctx context.Context, userID string) ([]*models.ConnectionRequest, error) {
	cur, err := s.requestsCol.Find(
		ctx,
		bson.M{"owner_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.ConnectionRequest, 0)
	for cur.Next(ctx) {
		var r models.ConnectionRequest
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}
