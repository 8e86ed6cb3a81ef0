package ledger

import (
	"context"
	"math"
	"strconv"
	"strings"

	"mentra/models"
	"mentra/services/commission"
	"mentra/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CreateTopUpIntent opens a processor intent for the token purchase. The
// generated reference travels in the intent metadata and later keys the
// idempotent credit.
func (s *DefaultLedgerService) CreateTopUpIntent(ctx context.Context, userID string, amount float64) (*models.TopUpIntent, error) {
	if userID == "" {
		return nil, utils.ValidationError("user id is required")
	}
	if amount <= 0 {
		return nil, utils.ValidationError("top-up amount must be positive")
	}
	cents := int64(math.Round(amount * float64(s.TokenUnitPriceCents)))
	if cents <= 0 {
		return nil, utils.ValidationError("top-up amount %.2f is below the minimum charge", amount)
	}

	reference := models.RefPrefixTopUp + uuid.New().String()
	metadata := map[string]string{
		"reference": reference,
		"userId":    userID,
		"tokens":    strconv.FormatFloat(amount, 'f', -1, 64),
	}
	intent, err := s.Processor.CreateIntent(ctx, cents, s.Currency, "Mentra wallet top-up", metadata)
	if err != nil {
		return nil, err
	}

	utils.GetLogger().Info("top-up intent created",
		zap.String("userId", userID),
		zap.String("intentId", intent.ID),
		zap.String("reference", reference),
		zap.Float64("tokens", amount),
	)
	return &models.TopUpIntent{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Reference:    reference,
		Amount:       amount,
	}, nil
}

// ConfirmTopUp verifies the intent with the processor and credits the
// wallet. Clients call this after completing the payment; the webhook
// reconciler performs the same credit independently, so both paths go
// through CreditTopUp and only one lands.
func (s *DefaultLedgerService) ConfirmTopUp(ctx context.Context, userID, intentID string) (bool, error) {
	if intentID == "" {
		return false, utils.ValidationError("intent id is required")
	}
	intent, err := s.Processor.RetrieveIntent(ctx, intentID)
	if err != nil {
		return false, err
	}
	if intent.Status != models.IntentStatusSucceeded {
		return false, utils.DomainStateError("payment intent %s has not succeeded (status %s)", intentID, intent.Status)
	}
	if !strings.HasPrefix(intent.Reference, models.RefPrefixTopUp) {
		return false, utils.ValidationError("payment intent %s is not a wallet top-up", intentID)
	}
	if intent.UserID != "" && intent.UserID != userID {
		return false, utils.AuthorizationError("payment intent %s belongs to another user", intentID)
	}

	tokens := commission.Round2(float64(intent.AmountCents) / float64(s.TokenUnitPriceCents))
	return s.CreditTopUp(ctx, userID, tokens, intent.Reference)
}

// CreditTopUp applies a succeeded top-up exactly once per reference. The
// pre-check catches ordinary replays; the unique (reference, type) index
// turns a racing duplicate into an aborted insert, reported as a no-op.
func (s *DefaultLedgerService) CreditTopUp(ctx context.Context, userID string, tokens float64, reference string) (bool, error) {
	if tokens <= 0 {
		return false, utils.ValidationError("top-up token amount must be positive")
	}
	if !strings.HasPrefix(reference, models.RefPrefixTopUp) {
		return false, utils.ValidationError("reference %s is not a top-up reference", reference)
	}

	seen, err := s.Repo.HasEntryWithReference(reference, models.TokenCredit)
	if err != nil {
		return false, err
	}
	if seen {
		utils.GetLogger().Info("top-up already credited, skipping",
			zap.String("userId", userID),
			zap.String("reference", reference),
		)
		return false, nil
	}

	entry := &models.TokenTransaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        models.TokenCredit,
		Amount:      tokens,
		Description: "Wallet top-up",
		Reference:   reference,
	}
	if _, err := s.Repo.Credit(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.GetLogger().Info("top-up credited concurrently, skipping",
				zap.String("userId", userID),
				zap.String("reference", reference),
			)
			return false, nil
		}
		return false, err
	}

	utils.GetLogger().Info("wallet topped up",
		zap.String("userId", userID),
		zap.String("reference", reference),
		zap.Float64("tokens", tokens),
	)
	s.Notification.PaymentReceived(ctx, models.PaymentEvent{
		UserID:    userID,
		Amount:    tokens,
		Method:    models.MethodStripe,
		Reference: reference,
	})
	return true, nil
}
