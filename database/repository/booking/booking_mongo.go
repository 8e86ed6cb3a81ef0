package bookingRepo

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

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll     *mongo.Collection
	lockColl *mongo.Collection
}

// NewMongoBookingRepo creates a new instance of BookingRepository using MongoDB.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database("mentra")
	repo := &MongoBookingRepo{
		coll:     db.Collection("bookings"),
		lockColl: db.Collection("slot_locks"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "scheduledAt", Value: 1}}},
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "transferId", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	lockIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingId", Value: 1}}},
	}
	if _, err := r.lockColl.Indexes().CreateMany(ctx, lockIndexes); err != nil {
		return fmt.Errorf("failed to create slot lock indexes: %w", err)
	}
	return nil
}

// Create inserts the booking and its slot locks transactionally. The lock
// rows are keyed by mentor and granule start, so two overlapping bookings
// always contend on at least one _id and exactly one insert wins.
func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	locks := make([]interface{}, 0, 4)
	for _, key := range LockKeys(b.MentorID, b.ScheduledAt, b.DurationMinutes) {
		locks = append(locks, slotLock{Key: key, BookingID: b.ID, MentorID: b.MentorID, CreatedAt: now})
	}

	err := database.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.coll.InsertOne(sc, b); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		if _, err := r.lockColl.InsertMany(sc, locks); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return utils.ConflictError("mentor already has a booking overlapping %s", b.ScheduledAt.UTC().Format(time.RFC3339))
			}
			return fmt.Errorf("insert slot locks failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if utils.KindOf(err) == utils.KindConflict {
			return err
		}
		return fmt.Errorf("booking create transaction failed: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its unique ID.
func (r *MongoBookingRepo) GetByID(id string) (*models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var b models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFoundError("booking", id)
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &b, nil
}

// Update persists the full booking document.
func (r *MongoBookingRepo) Update(b *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	b.UpdatedAt = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": b.ID}, bson.M{"$set": b})
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", b.ID, err)
	}
	if result.MatchedCount == 0 {
		return utils.NotFoundError("booking", b.ID)
	}
	return nil
}

// Terminate sets a terminal status and frees the interval for rebooking.
func (r *MongoBookingRepo) Terminate(ctx context.Context, id, status, actor, reason string) error {
	err := database.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		update := bson.M{"$set": bson.M{
			"status":       status,
			"cancelReason": reason,
			"cancelledBy":  actor,
			"updatedAt":    time.Now(),
		}}
		filter := bson.M{
			"id":     id,
			"status": bson.M{"$in": []string{models.StatusPending, models.StatusConfirmed}},
		}
		res, err := r.coll.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("terminate booking failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return utils.DomainStateError("booking %s is no longer in a cancellable state", id)
		}
		if _, err := r.lockColl.DeleteMany(sc, bson.M{"bookingId": id}); err != nil {
			return fmt.Errorf("release slot locks failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if utils.KindOf(err) != utils.KindInternal {
			return err
		}
		return fmt.Errorf("terminate transaction failed: %w", err)
	}
	return nil
}

// MarkRefunded records the refund sub-record once; replays do not match.
func (r *MongoBookingRepo) MarkRefunded(ctx context.Context, id string, refund models.RefundRecord) (bool, error) {
	filter := bson.M{
		"id":               id,
		"refund.processed": bson.M{"$ne": true},
	}
	update := bson.M{"$set": bson.M{
		"refund":        refund,
		"paymentStatus": models.PaymentRefunded,
		"updatedAt":     time.Now(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking %s refunded: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}
