package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"mentra/models"
	"mentra/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// List returns a page of bookings matching the filter, newest first.
func (r *MongoBookingRepo) List(f models.BookingFilter) ([]models.Booking, int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{}
	if f.MentorID != "" {
		filter["mentorId"] = f.MentorID
	}
	if f.StudentID != "" {
		filter["studentId"] = f.StudentID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, total, nil
}

// FindOverlapping returns blocking bookings intersecting [start, end).
func (r *MongoBookingRepo) FindOverlapping(mentorID string, start, end time.Time) ([]models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"mentorId":     mentorID,
		"status":       bson.M{"$in": []string{models.StatusPending, models.StatusConfirmed}},
		"scheduledAt":  bson.M{"$lt": end},
		"scheduledEnd": bson.M{"$gt": start},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping bookings: %w", err)
	}
	return bookings, nil
}

// MarkPaid applies the payment outcome in a single pipeline update so a
// still-pending booking confirms in the same write. Replays miss the filter
// and return nil, nil.
func (r *MongoBookingRepo) MarkPaid(ctx context.Context, id, paymentRef, method string) (*models.Booking, error) {
	set := bson.D{
		{Key: "paymentStatus", Value: models.PaymentPaid},
		{Key: "paymentMethod", Value: method},
		{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$status", models.StatusPending}}},
			models.StatusConfirmed,
			"$status",
		}}}},
		{Key: "updatedAt", Value: time.Now()},
	}
	if paymentRef != "" {
		set = append(set, bson.E{Key: "paymentRef", Value: paymentRef})
	}
	pipeline := mongo.Pipeline{bson.D{{Key: "$set", Value: set}}}

	filter := bson.M{"id": id, "paymentStatus": models.PaymentPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	if err := r.coll.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark booking %s paid: %w", id, err)
	}
	return &b, nil
}

// SetPaymentStatus writes an explicit payment status.
func (r *MongoBookingRepo) SetPaymentStatus(id, status, paymentRef string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{"paymentStatus": status, "updatedAt": time.Now()}
	if paymentRef != "" {
		set["paymentRef"] = paymentRef
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to set payment status on booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFoundError("booking", id)
	}
	return nil
}

// SetStatus applies a guarded from→to status write.
func (r *MongoBookingRepo) SetStatus(id, from, to string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to set booking %s status %s: %w", id, to, err)
	}
	return res.ModifiedCount > 0, nil
}

// SettleCompletion writes reviewable status and the settlement in one shot.
func (r *MongoBookingRepo) SettleCompletion(id string, s models.CompletionSettlement) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.StatusConfirmed}
	update := bson.M{"$set": bson.M{
		"status":             models.StatusReviewable,
		"commissionTier":     s.Tier,
		"platformCommission": s.Commission,
		"mentorPayout":       s.Payout,
		"payoutStatus":       models.PayoutPending,
		"disputePeriodEnds":  s.DisputePeriodEnds,
		"updatedAt":          time.Now(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to settle booking %s completion: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// UpdatePayout writes payout bookkeeping onto one booking. A booking
// already in the target payout status is left untouched, so the operator
// path and the webhook path converge instead of re-stamping each other.
func (r *MongoBookingRepo) UpdatePayout(id string, u models.PayoutUpdate) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "payoutStatus": bson.M{"$ne": u.Status}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": payoutSet(u)})
	if err != nil {
		return false, fmt.Errorf("failed to update payout on booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// UpdatePayoutByTransfer converges every booking on the transfer to the
// target payout status; replayed events modify nothing.
func (r *MongoBookingRepo) UpdatePayoutByTransfer(transferID string, u models.PayoutUpdate) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"transferId":   transferID,
		"payoutStatus": bson.M{"$ne": u.Status},
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": payoutSet(u)})
	if err != nil {
		return 0, fmt.Errorf("failed to update payouts for transfer %s: %w", transferID, err)
	}
	return res.ModifiedCount, nil
}

// ListByTransfer returns all bookings settled under one transfer id.
func (r *MongoBookingRepo) ListByTransfer(transferID string) ([]models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"transferId": transferID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for transfer %s: %w", transferID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings for transfer %s: %w", transferID, err)
	}
	return bookings, nil
}

func payoutSet(u models.PayoutUpdate) bson.M {
	set := bson.M{
		"payoutStatus": u.Status,
		"updatedAt":    time.Now(),
	}
	if u.TransferID != "" {
		set["transferId"] = u.TransferID
	}
	if u.Date != nil {
		set["payoutDate"] = u.Date
	}
	switch {
	case u.FailureReason != "":
		set["payoutFailureReason"] = u.FailureReason
	case u.Status == models.PayoutPaid:
		// A payout that converged to paid has no standing failure.
		set["payoutFailureReason"] = ""
	}
	return set
}
