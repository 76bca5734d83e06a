package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartStore keeps carts of registered users in the database.
type GORMCartStore struct {
	db *gorm.DB
}

// NewGORMCartStore creates a new instance of GORMCartStore.
func NewGORMCartStore(db *gorm.DB) *GORMCartStore {
	return &GORMCartStore{db: db}
}

// Get returns the cart of ownerID, or an empty one.
func (s *GORMCartStore) Get(ctx context.Context, ownerID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items", orderItemsByID).First(&cart, "owner_id = ?", ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{OwnerID: ownerID}, nil
		}
		return nil, fmt.Errorf("failed to get cart of %s: %w", ownerID, err)
	}
	return &cart, nil
}

// Save replaces the stored lines with cart.Items if the version matches.
func (s *GORMCartStore) Save(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(tx, &models.Cart{OwnerID: cart.OwnerID, Version: cart.Version + 1, UpdatedAt: now}, cart.OwnerID, cart.Version, now); err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", cart.OwnerID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if len(cart.Items) == 0 {
			return nil
		}

		items := make([]models.CartItem, len(cart.Items))
		for i, item := range cart.Items {
			items[i] = models.CartItem{OwnerID: cart.OwnerID, ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to save cart items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cart.Version++
	cart.UpdatedAt = now
	return nil
}

// Clear removes every line of the cart and advances its version.
func (s *GORMCartStore) Clear(ctx context.Context, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		err := tx.Model(&models.Cart{}).Where("owner_id = ?", ownerID).
			Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": time.Now()}).Error
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

// Delete drops the cart entirely.
func (s *GORMCartStore) Delete(ctx context.Context, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.Cart{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
}

// bumpVersion claims the next version of a cart or wishlist header. A first
// save inserts the header and loses to a concurrent first save; later saves
// match on the expected version.
func bumpVersion(tx *gorm.DB, header any, ownerID string, expected int64, now time.Time) error {
	var res *gorm.DB
	if expected == 0 {
		res = tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(header)
	} else {
		res = tx.Model(header).Where("owner_id = ? AND version = ?", ownerID, expected).
			Updates(map[string]any{"version": expected + 1, "updated_at": now})
	}
	if res.Error != nil {
		return fmt.Errorf("failed to save %s: %w", ownerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
