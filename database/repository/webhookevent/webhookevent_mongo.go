package webhookEventRepo

import (
	"context"
	"fmt"
	"time"

	"mentra/database"
	"mentra/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWebhookEventRepo implements WebhookEventRepository using MongoDB.
type MongoWebhookEventRepo struct {
	coll *mongo.Collection
}

// NewMongoWebhookEventRepo creates a new instance of WebhookEventRepository using MongoDB.
func NewMongoWebhookEventRepo() WebhookEventRepository {
	coll := database.MongoClient.Database("mentra").Collection("webhook_events")
	repo := &MongoWebhookEventRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoWebhookEventRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "receivedAt", Value: -1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create webhook event indexes: %w", err)
	}
	return nil
}

// Reserve upserts the event row and inspects the prior document: a missing
// prior means first sight, an unprocessed prior means a failed delivery
// being retried, and a processed prior means the delivery is a replay.
func (r *MongoWebhookEventRepo) Reserve(ctx context.Context, eventID, eventType string) (bool, error) {
	update := bson.M{
		"$setOnInsert": bson.M{
			"eventId":    eventID,
			"type":       eventType,
			"processed":  false,
			"receivedAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var prev models.WebhookEvent
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"eventId": eventID}, update, opts).Decode(&prev)
	if err == mongo.ErrNoDocuments {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reserve webhook event %s: %w", eventID, err)
	}
	return !prev.Processed, nil
}

// MarkProcessed stamps a successful outcome and clears any prior error.
func (r *MongoWebhookEventRepo) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()
	update := bson.M{
		"$set":   bson.M{"processed": true, "processedAt": now},
		"$unset": bson.M{"error": ""},
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"eventId": eventID}, update); err != nil {
		return fmt.Errorf("failed to mark webhook event %s processed: %w", eventID, err)
	}
	return nil
}

// MarkFailed records the processing error; the row stays claimable for the
// processor's redelivery.
func (r *MongoWebhookEventRepo) MarkFailed(ctx context.Context, eventID string, procErr error) error {
	update := bson.M{
		"$set": bson.M{"processed": false, "error": procErr.Error()},
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"eventId": eventID}, update); err != nil {
		return fmt.Errorf("failed to mark webhook event %s failed: %w", eventID, err)
	}
	return nil
}

// ListRecent returns the newest rows first.
func (r *MongoWebhookEventRepo) ListRecent(limit int64) ([]models.WebhookEvent, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if limit < 1 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "receivedAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.WebhookEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode webhook events: %w", err)
	}
	return events, nil
}
