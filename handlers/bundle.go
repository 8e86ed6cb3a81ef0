package handlers

import (
	userRepoPkg "mentra/database/repository/user"
)

// HandlerBundle groups the endpoint handlers handed to route registration.
type HandlerBundle struct {
	UserRepo userRepoPkg.UserRepository

	Booking  *BookingHandler
	Wallet   *WalletHandler
	Earnings *EarningsHandler
	Webhook  *WebhookHandler
	Operator *OperatorHandler
}
