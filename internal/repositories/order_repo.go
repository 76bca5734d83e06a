package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderBuilder turns the live products of an order (keyed by id) into the
// order to insert. It runs inside the placing transaction and may reject the
// order by returning an error.
type OrderBuilder func(products map[string]models.Product) (*models.Order, error)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Place reserves stock for every line of the built order and inserts it, all or nothing.
	Place(ctx context.Context, productIDs []string, build OrderBuilder) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time, result models.PaymentResult) (*models.Order, error)
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time, requirePaid bool) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}
