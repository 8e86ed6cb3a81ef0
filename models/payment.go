package models

// PaymentIntentInfo is the processor-neutral view of a payment intent that
// the ledger and operator paths consume. Amounts are minor units.
type PaymentIntentInfo struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amountCents"`
	Currency     string `json:"currency"`

	// Reference is the classification tag carried in intent metadata
	// (bkg_, topup_, msg_ prefixed); UserID identifies the paying user for
	// wallet top-ups.
	Reference string `json:"reference,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// TransferInfo is the processor-neutral view of a created payout transfer.
type TransferInfo struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amountCents"`
	Destination string `json:"destination"`
}

// RefundInfo is the processor-neutral view of a processor-side refund.
type RefundInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// IntentSucceeded statuses considered final success by the synchronous
// top-up confirmation path.
const IntentStatusSucceeded = "succeeded"
