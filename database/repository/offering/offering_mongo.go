package offeringRepo

import (
	"context"
	"fmt"
	"time"

	"mentra/database"
	"mentra/models"
	"mentra/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOfferingRepo implements OfferingRepository using MongoDB.
type MongoOfferingRepo struct {
	coll *mongo.Collection
}

// NewMongoOfferingRepo creates a new instance of OfferingRepository using MongoDB.
func NewMongoOfferingRepo() OfferingRepository {
	coll := database.MongoClient.Database("mentra").Collection("services")
	repo := &MongoOfferingRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoOfferingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mentorId", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create offering indexes: %w", err)
	}
	return nil
}

// GetByID retrieves an offering by its unique ID.
func (r *MongoOfferingRepo) GetByID(id string) (*models.ServiceOffering, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var offering models.ServiceOffering
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&offering); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFoundError("service offering", id)
		}
		return nil, fmt.Errorf("failed to fetch offering %s: %w", id, err)
	}
	return &offering, nil
}

// ListByMentor returns a mentor's active offerings.
func (r *MongoOfferingRepo) ListByMentor(mentorID string) ([]models.ServiceOffering, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"mentorId": mentorID, "active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings for mentor %s: %w", mentorID, err)
	}
	defer cursor.Close(ctx)

	var offerings []models.ServiceOffering
	if err := cursor.All(ctx, &offerings); err != nil {
		return nil, fmt.Errorf("failed to decode offerings for mentor %s: %w", mentorID, err)
	}
	return offerings, nil
}
