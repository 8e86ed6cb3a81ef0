package userRepo

import (
	"context"

	"mentra/models"

	"go.mongodb.org/mongo-driver/bson"
)

// UserRepository exposes the narrow slice of the externally owned users
// collection that the booking core reads and writes: identity, timezone,
// declared availability, token balance and the connected payout account.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(id string) (*models.User, error)
	// GetByIDWithProjection retrieves a user by its unique ID with a projection.
	GetByIDWithProjection(id string, projection bson.M) (*models.User, error)
	// GetMentor retrieves a user and verifies the mentor role.
	GetMentor(id string) (*models.User, error)
	// FindByPayoutAccount resolves the mentor owning a connected payout
	// account id, or nil when no user references it.
	FindByPayoutAccount(accountID string) (*models.User, error)
	// SetPayoutAccountStatus writes the payout account status only when it
	// differs from the stored value, reporting whether a transition happened.
	SetPayoutAccountStatus(ctx context.Context, userID, status string) (bool, error)
}
