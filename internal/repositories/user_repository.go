package repositories

import (
	"context"

	"storefront/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// Update persists the account fields of user. The address book is left untouched.
	Update(ctx context.Context, user *models.User) error
	// ReplaceAddresses stores user.Addresses as the complete address book.
	ReplaceAddresses(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}
