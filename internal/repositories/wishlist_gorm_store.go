package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMWishlistStore keeps wishlists of registered users in the database.
// The unique (owner, product) index backs the no-duplicates rule.
type GORMWishlistStore struct {
	db *gorm.DB
}

// NewGORMWishlistStore creates a new instance of GORMWishlistStore.
func NewGORMWishlistStore(db *gorm.DB) *GORMWishlistStore {
	return &GORMWishlistStore{db: db}
}

// Get returns the wishlist of ownerID, or an empty one.
func (s *GORMWishlistStore) Get(ctx context.Context, ownerID string) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	err := s.db.WithContext(ctx).Preload("Items", orderItemsByID).First(&wishlist, "owner_id = ?", ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Wishlist{OwnerID: ownerID}, nil
		}
		return nil, fmt.Errorf("failed to get wishlist of %s: %w", ownerID, err)
	}
	return &wishlist, nil
}

// Save replaces the stored entries with wishlist.Items if the version matches.
func (s *GORMWishlistStore) Save(ctx context.Context, wishlist *models.Wishlist) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := &models.Wishlist{OwnerID: wishlist.OwnerID, Version: wishlist.Version + 1, UpdatedAt: now}
		if err := bumpVersion(tx, header, wishlist.OwnerID, wishlist.Version, now); err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", wishlist.OwnerID).Delete(&models.WishlistItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear wishlist items: %w", err)
		}
		if len(wishlist.Items) == 0 {
			return nil
		}

		items := make([]models.WishlistItem, len(wishlist.Items))
		for i, item := range wishlist.Items {
			added := item.AddedAt
			if added.IsZero() {
				added = now
			}
			items[i] = models.WishlistItem{OwnerID: wishlist.OwnerID, ProductID: item.ProductID, AddedAt: added}
		}
		if err := tx.Create(&items).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to save wishlist items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	wishlist.Version++
	wishlist.UpdatedAt = now
	return nil
}

// Clear removes every entry of the wishlist and advances its version.
func (s *GORMWishlistStore) Clear(ctx context.Context, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.WishlistItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear wishlist items: %w", err)
		}
		err := tx.Model(&models.Wishlist{}).Where("owner_id = ?", ownerID).
			Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": time.Now()}).Error
		if err != nil {
			return fmt.Errorf("failed to clear wishlist: %w", err)
		}
		return nil
	})
}

// Delete drops the wishlist entirely.
func (s *GORMWishlistStore) Delete(ctx context.Context, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.WishlistItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete wishlist items: %w", err)
		}
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.Wishlist{}).Error; err != nil {
			return fmt.Errorf("failed to delete wishlist: %w", err)
		}
		return nil
	})
}
