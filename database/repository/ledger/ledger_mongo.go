package ledgerRepo

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

// MongoLedgerRepo implements LedgerRepository using MongoDB. It spans the
// users, token_transactions and bookings collections so that a payment or
// refund moves balance, ledger entry and booking state in one transaction.
type MongoLedgerRepo struct {
	userColl    *mongo.Collection
	entryColl   *mongo.Collection
	bookingColl *mongo.Collection
}

// NewMongoLedgerRepo creates a new instance of LedgerRepository using MongoDB.
func NewMongoLedgerRepo() LedgerRepository {
	db := database.MongoClient.Database("mentra")
	repo := &MongoLedgerRepo{
		userColl:    db.Collection("users"),
		entryColl:   db.Collection("token_transactions"),
		bookingColl: db.Collection("bookings"),
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

func (r *MongoLedgerRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	// (reference, type) pairs occur at most once in legitimate flows; the
	// unique index turns a racing duplicate credit into an aborted
	// transaction instead of a double-credit.
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "reference", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"reference": bson.M{"$exists": true, "$gt": ""}}),
		},
	}

	if _, err := r.entryColl.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}

// Balance reads the user's current token balance.
func (r *MongoLedgerRepo) Balance(userID string) (float64, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var user struct {
		TokenBalance float64 `bson:"tokenBalance"`
	}
	opts := options.FindOne().SetProjection(bson.M{"tokenBalance": 1})
	if err := r.userColl.FindOne(ctx, bson.M{"id": userID}, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, utils.NotFoundError("user", userID)
		}
		return 0, fmt.Errorf("failed to fetch balance for user %s: %w", userID, err)
	}
	return user.TokenBalance, nil
}

// creditTx increments the balance and appends the entry against the given
// session context.
func (r *MongoLedgerRepo) creditTx(sc mongo.SessionContext, entry *models.TokenTransaction) (float64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"tokenBalance": entry.Amount}}

	var user struct {
		TokenBalance float64 `bson:"tokenBalance"`
	}
	if err := r.userColl.FindOneAndUpdate(sc, bson.M{"id": entry.UserID}, update, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, utils.NotFoundError("user", entry.UserID)
		}
		return 0, fmt.Errorf("credit balance update failed: %w", err)
	}

	if _, err := r.entryColl.InsertOne(sc, entry); err != nil {
		return 0, fmt.Errorf("append credit entry failed: %w", err)
	}
	return user.TokenBalance, nil
}

// debitTx decrements the balance only when it covers the amount, then
// appends the entry. The floor check and the decrement are one storage
// operation, so two concurrent debits can never both pass against a stale
// balance.
func (r *MongoLedgerRepo) debitTx(sc mongo.SessionContext, entry *models.TokenTransaction) (float64, error) {
	filter := bson.M{
		"id":           entry.UserID,
		"tokenBalance": bson.M{"$gte": entry.Amount},
	}
	update := bson.M{"$inc": bson.M{"tokenBalance": -entry.Amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user struct {
		TokenBalance float64 `bson:"tokenBalance"`
	}
	if err := r.userColl.FindOneAndUpdate(sc, filter, update, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			balance, balErr := r.Balance(entry.UserID)
			if balErr != nil {
				return 0, balErr
			}
			return 0, utils.InsufficientBalanceError(balance, entry.Amount)
		}
		return 0, fmt.Errorf("debit balance update failed: %w", err)
	}

	if _, err := r.entryColl.InsertOne(sc, entry); err != nil {
		return 0, fmt.Errorf("append debit entry failed: %w", err)
	}
	return user.TokenBalance, nil
}

// Credit increments the balance and appends the entry transactionally.
func (r *MongoLedgerRepo) Credit(ctx context.Context, entry *models.TokenTransaction) (float64, error) {
	stampEntry(entry)
	var balance float64
	err := database.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		var err error
		balance, err = r.creditTx(sc, entry)
		return err
	})
	if err != nil {
		return 0, passThrough(err, "credit transaction failed")
	}
	return balance, nil
}

// Debit decrements with a floor check and appends the entry transactionally.
func (r *MongoLedgerRepo) Debit(ctx context.Context, entry *models.TokenTransaction) (float64, error) {
	stampEntry(entry)
	var balance float64
	err := database.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		var err error
		balance, err = r.debitTx(sc, entry)
		return err
	})
	if err != nil {
		return 0, passThrough(err, "debit transaction failed")
	}
	return balance, nil
}

// PayBooking performs the debit and the paid/confirmed booking write as one
// unit: either the student is charged and the booking is paid, or neither.
func (r *MongoLedgerRepo) PayBooking(ctx context.Context, b *models.Booking, entry *models.TokenTransaction) (*models.Booking, error) {
	stampEntry(entry)
	var paid models.Booking
	err := database.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.debitTx(sc, entry); err != nil {
			return err
		}

		set := bson.D{
			{Key: "paymentStatus", Value: models.PaymentPaid},
			{Key: "paymentMethod", Value: models.MethodTokens},
			{Key: "paymentRef", Value: entry.Reference},
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$status", models.StatusPending}}},
				models.StatusConfirmed,
				"$status",
			}}}},
			{Key: "updatedAt", Value: time.Now()},
		}
		pipeline := mongo.Pipeline{bson.D{{Key: "$set", Value: set}}}
		filter := bson.M{
			"id":            b.ID,
			"paymentStatus": models.PaymentPending,
			"status":        bson.M{"$in": []string{models.StatusPending, models.StatusConfirmed}},
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		if err := r.bookingColl.FindOneAndUpdate(sc, filter, pipeline, opts).Decode(&paid); err != nil {
			if err == mongo.ErrNoDocuments {
				return utils.ConflictError("booking %s is no longer awaiting payment", b.ID)
			}
			return fmt.Errorf("mark booking paid failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "pay booking transaction failed")
	}
	return &paid, nil
}

// RefundBooking credits the student and stamps the refund sub-record in one
// transaction. The refund guard lives in the booking filter, so a replay
// finds no document and the credit never lands twice.
func (r *MongoLedgerRepo) RefundBooking(ctx context.Context, b *models.Booking, refund models.RefundRecord, entry *models.TokenTransaction) (float64, error) {
	stampEntry(entry)
	var balance float64
	err := database.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		filter := bson.M{
			"id":               b.ID,
			"paymentStatus":    models.PaymentPaid,
			"refund.processed": bson.M{"$ne": true},
		}
		update := bson.M{"$set": bson.M{
			"refund":        refund,
			"paymentStatus": models.PaymentRefunded,
			"updatedAt":     time.Now(),
		}}
		res, err := r.bookingColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("mark booking refunded failed: %w", err)
		}
		if res.ModifiedCount == 0 {
			return utils.ConflictError("refund already processed for booking %s", b.ID)
		}

		balance, err = r.creditTx(sc, entry)
		return err
	})
	if err != nil {
		return 0, passThrough(err, "refund booking transaction failed")
	}
	return balance, nil
}

// History returns a page of the user's entries, newest first.
func (r *MongoLedgerRepo) History(userID string, page, pageSize int) ([]models.TokenTransaction, int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"userId": userID}
	total, err := r.entryColl.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.entryColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.TokenTransaction
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, total, nil
}

// HasEntryWithReference reports whether a (reference, type) entry exists.
func (r *MongoLedgerRepo) HasEntryWithReference(reference, entryType string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	count, err := r.entryColl.CountDocuments(ctx, bson.M{"reference": reference, "type": entryType})
	if err != nil {
		return false, fmt.Errorf("failed to check ledger reference %s: %w", reference, err)
	}
	return count > 0, nil
}

// stampEntry fills the entry's timestamp just before insertion.
func stampEntry(entry *models.TokenTransaction) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
}

// passThrough keeps typed domain errors intact and wraps everything else.
func passThrough(err error, msg string) error {
	if utils.KindOf(err) != utils.KindInternal {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
