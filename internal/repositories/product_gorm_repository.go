package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// productColumns are the columns an admin edit may change. Rating, review
// count and sold are derived and only written by their own operations.
var productColumns = []string{
	"name", "description", "price", "discount", "category", "material", "weight",
	"images", "tags", "count_in_stock", "featured", "is_new", "version", "updated_at",
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List returns one page of products, newest first, and the total count.
func (r *GORMProductRepository) List(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id").Offset(offset).Limit(limit).Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// TopRated returns the best rated products.
func (r *GORMProductRepository) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("rating DESC").Order("num_reviews DESC").Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get top rated products: %w", err)
	}
	return products, nil
}

// TopSelling returns the products with the most units sold.
func (r *GORMProductRepository) TopSelling(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("sold DESC").Order("created_at DESC").Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get top selling products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product with its reviews.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Reviews", orderByCreated).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// GetByIDs returns the existing products among ids keyed by id. Missing ids are absent from the map.
func (r *GORMProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Count returns the number of products in the catalog.
func (r *GORMProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.Version = 1
	if err := r.db.WithContext(ctx).Omit("Reviews").Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update writes the editable fields of product if its version still matches
// the stored one. On success product.Version is the new version.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	expected := product.Version
	product.Version = expected + 1
	product.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND version = ?", product.ID, expected).
		Select(productColumns).
		Updates(product)
	if res.Error != nil {
		product.Version = expected
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		product.Version = expected
		return r.missingOrStale(ctx, r.db, product.ID)
	}
	return nil
}

// Delete removes a product and its reviews.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete product reviews: %w", err)
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil
	})
}

// ReviewProductID returns the product id of a review.
func (r *GORMProductRepository) ReviewProductID(ctx context.Context, reviewID string) (string, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Select("product_id").First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrReviewNotFound, reviewID)
		}
		return "", fmt.Errorf("failed to get review %s: %w", reviewID, err)
	}
	return review.ProductID, nil
}

// ModifyReviews runs fn against the product and its reviews inside a
// transaction, then syncs the review rows and the derived rating. The product
// version guards against concurrent review edits.
func (r *GORMProductRepository) ModifyReviews(ctx context.Context, productID string, fn func(*models.Product) error) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Reviews", orderByCreated).First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
			}
			return fmt.Errorf("failed to load product %s: %w", productID, err)
		}

		before := make(map[string]struct{}, len(product.Reviews))
		for _, review := range product.Reviews {
			before[review.ID] = struct{}{}
		}

		if err := fn(&product); err != nil {
			return err
		}
		product.RecalculateRating()

		kept := make([]string, 0, len(product.Reviews))
		now := time.Now()
		for i := range product.Reviews {
			review := &product.Reviews[i]
			review.ProductID = product.ID
			review.UpdatedAt = now
			if review.ID == "" {
				review.ID = uuid.New().String()
				review.CreatedAt = now
				if err := tx.Create(review).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						return ErrAlreadyReviewed
					}
					return fmt.Errorf("failed to create review: %w", err)
				}
			} else if err := tx.Model(review).Select("rating", "comment", "name", "updated_at").Updates(review).Error; err != nil {
				return fmt.Errorf("failed to update review %s: %w", review.ID, err)
			}
			kept = append(kept, review.ID)
			delete(before, review.ID)
		}

		for id := range before {
			if err := tx.Delete(&models.Review{}, "id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to delete review %s: %w", id, err)
			}
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND version = ?", product.ID, product.Version).
			Updates(map[string]any{
				"rating":      product.Rating,
				"num_reviews": product.NumReviews,
				"version":     product.Version + 1,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update product rating: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		product.Version++
		product.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// missingOrStale tells a deleted product from one that was modified concurrently.
func (r *GORMProductRepository) missingOrStale(ctx context.Context, db *gorm.DB, id string) error {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check product %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return ErrVersionConflict
}

func orderByCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at").Order("id")
}
