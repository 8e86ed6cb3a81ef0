package earningsRepo

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

// MongoEarningsRepo implements EarningsRepository using MongoDB.
type MongoEarningsRepo struct {
	coll *mongo.Collection
}

// NewMongoEarningsRepo creates a new instance of EarningsRepository using MongoDB.
func NewMongoEarningsRepo() EarningsRepository {
	coll := database.MongoClient.Database("mentra").Collection("mentor_earnings")
	repo := &MongoEarningsRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoEarningsRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "mentorId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create earnings indexes: %w", err)
	}
	return nil
}

// ApplyIncome moves lifetime totals and the month bucket with one $inc.
func (r *MongoEarningsRepo) ApplyIncome(ctx context.Context, mentorID string, delta models.IncomeDelta) (*models.MentorEarnings, error) {
	monthPrefix := "monthly." + delta.MonthKey + "."

	inc := bson.M{
		"totalEarnings":               delta.Net,
		monthPrefix + "totalEarnings": delta.Net,
	}
	switch delta.Kind {
	case models.IncomeMessage:
		inc["messageEarnings"] = delta.Net
		inc["messageCount"] = 1
		inc[monthPrefix+"messageEarnings"] = delta.Net
		inc[monthPrefix+"messageCount"] = 1
	default:
		inc["sessionEarnings"] = delta.Net
		inc["sessionCount"] = 1
		inc[monthPrefix+"sessionEarnings"] = delta.Net
		inc[monthPrefix+"sessionCount"] = 1
	}

	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updatedAt": time.Now()},
		"$setOnInsert": bson.M{
			"mentorId": mentorID,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var earnings models.MentorEarnings
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"mentorId": mentorID}, update, opts).Decode(&earnings); err != nil {
		return nil, fmt.Errorf("failed to apply income for mentor %s: %w", mentorID, err)
	}
	return &earnings, nil
}

// PromoteTier applies a rank-guarded tier write. The filter admits only a
// strictly higher rank, so concurrent completions cannot downgrade a
// mentor and replays are no-ops.
func (r *MongoEarningsRepo) PromoteTier(ctx context.Context, mentorID, tier string, rank int, at time.Time) (bool, error) {
	filter := bson.M{
		"mentorId": mentorID,
		"tierRank": bson.M{"$lt": rank},
	}
	update := bson.M{"$set": bson.M{
		"currentTier":   tier,
		"tierRank":      rank,
		"tierUpdatedAt": at,
		"updatedAt":     time.Now(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to promote tier for mentor %s: %w", mentorID, err)
	}
	return res.ModifiedCount > 0, nil
}

// GetByMentor returns the aggregate, or nil when none exists yet.
func (r *MongoEarningsRepo) GetByMentor(mentorID string) (*models.MentorEarnings, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var earnings models.MentorEarnings
	if err := r.coll.FindOne(ctx, bson.M{"mentorId": mentorID}).Decode(&earnings); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch earnings for mentor %s: %w", mentorID, err)
	}
	return &earnings, nil
}
