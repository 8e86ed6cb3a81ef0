package models

import "time"

// Token transaction types. Refunds are credits tagged distinctly and
// cross-referenced to the original booking.
const (
	TokenCredit = "credit"
	TokenDebit  = "debit"
	TokenRefund = "refund"
)

// Reference prefixes classify ledger entries and processor intents. The
// webhook reconciler routes payment events by these prefixes.
const (
	RefPrefixBooking = "bkg_"
	RefPrefixTopUp   = "topup_"
	RefPrefixMessage = "msg_"
)

// TokenTransaction is one append-only ledger entry. Entries are never
// mutated or deleted; a user's balance equals the signed sum of entries.
type TokenTransaction struct {
	ID          string    `bson:"id" json:"id"`
	UserID      string    `bson:"userId" json:"userId"`
	Type        string    `bson:"type" json:"type"`
	Amount      float64   `bson:"amount" json:"amount"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Reference   string    `bson:"reference,omitempty" json:"reference,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Signed returns the transaction's contribution to the owner's balance.
func (t *TokenTransaction) Signed() float64 {
	if t.Type == TokenDebit {
		return -t.Amount
	}
	return t.Amount
}

// WalletSummary is the balance view returned by the wallet API.
type WalletSummary struct {
	UserID   string  `json:"userId"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// TransactionPage is a paginated slice of a user's ledger history.
type TransactionPage struct {
	Items    []TokenTransaction `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

// TopUpRequest asks for a processor payment intent funding the wallet.
type TopUpRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// TopUpIntent is the client-facing handle for a wallet top-up in flight.
// Confirmation arrives through the webhook reconciler or the explicit
// confirm endpoint; crediting is idempotent by Reference.
type TopUpIntent struct {
	IntentID     string  `json:"intentId"`
	ClientSecret string  `json:"clientSecret"`
	Reference    string  `json:"reference"`
	Amount       float64 `json:"amount"`
}

// TopUpConfirmRequest confirms a top-up by intent id (synchronous path).
type TopUpConfirmRequest struct {
	IntentID string `json:"intentId" binding:"required"`
}
