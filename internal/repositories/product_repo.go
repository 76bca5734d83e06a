package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, offset, limit int) ([]models.Product, int64, error)
	TopRated(ctx context.Context, limit int) ([]models.Product, error)
	TopSelling(ctx context.Context, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error

	// ReviewProductID returns the id of the product the review belongs to.
	ReviewProductID(ctx context.Context, reviewID string) (string, error)
	// ModifyReviews loads the product with its reviews, lets fn edit the review
	// list and persists the result with a recomputed rating in one transaction.
	ModifyReviews(ctx context.Context, productID string, fn func(*models.Product) error) (*models.Product, error)
}
