package payments

import (
	"context"

	"mentra/models"
	"mentra/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/transfer"
)

// Processor abstracts the payment processor: intents for inbound charges,
// refunds against stored intents, and transfers to connected payout
// accounts. Amounts are in the currency's minor unit.
type Processor interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, description string, metadata map[string]string) (*models.PaymentIntentInfo, error)
	RetrieveIntent(ctx context.Context, id string) (*models.PaymentIntentInfo, error)
	RefundPayment(ctx context.Context, intentID, reason string) (*models.RefundInfo, error)
	CreateTransfer(ctx context.Context, amountCents int64, currency, destination string, metadata map[string]string) (*models.TransferInfo, error)
}

// StripeProcessor implements Processor against the Stripe API. The API key
// is set process-wide at startup.
type StripeProcessor struct{}

func (StripeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency, description string, metadata map[string]string) (*models.PaymentIntentInfo, error) {
	params := &stripe.PaymentIntentParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, utils.PaymentProcessorError("failed to create payment intent", err)
	}
	return intentInfo(pi), nil
}

func (StripeProcessor) RetrieveIntent(ctx context.Context, id string) (*models.PaymentIntentInfo, error) {
	pi, err := paymentintent.Get(id, &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, utils.PaymentProcessorError("failed to retrieve payment intent", err)
	}
	return intentInfo(pi), nil
}

func (StripeProcessor) RefundPayment(ctx context.Context, intentID, reason string) (*models.RefundInfo, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(intentID),
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	re, err := refund.New(params)
	if err != nil {
		return nil, utils.PaymentProcessorError("failed to create refund", err)
	}
	return &models.RefundInfo{ID: re.ID, Status: string(re.Status)}, nil
}

func (StripeProcessor) CreateTransfer(ctx context.Context, amountCents int64, currency, destination string, metadata map[string]string) (*models.TransferInfo, error) {
	params := &stripe.TransferParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destination),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	tr, err := transfer.New(params)
	if err != nil {
		return nil, utils.PaymentProcessorError("failed to create transfer", err)
	}
	return &models.TransferInfo{ID: tr.ID, AmountCents: tr.Amount, Destination: destination}, nil
}

func intentInfo(pi *stripe.PaymentIntent) *models.PaymentIntentInfo {
	return &models.PaymentIntentInfo{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Reference:    pi.Metadata["reference"],
		UserID:       pi.Metadata["userId"],
	}
}
