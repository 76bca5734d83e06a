package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartStore persists carts with optimistic versioning.
//
// Get never fails for an unknown owner: it returns an empty cart at version 0.
// Save succeeds only if cart.Version equals the stored version (0 for a cart
// that was never saved) and then advances cart.Version. A stale version yields
// ErrVersionConflict.
type CartStore interface {
	Get(ctx context.Context, ownerID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	// Clear empties the cart regardless of its version.
	Clear(ctx context.Context, ownerID string) error
	Delete(ctx context.Context, ownerID string) error
}

// WishlistStore persists wishlists with the same versioning contract as CartStore.
type WishlistStore interface {
	Get(ctx context.Context, ownerID string) (*models.Wishlist, error)
	Save(ctx context.Context, wishlist *models.Wishlist) error
	Clear(ctx context.Context, ownerID string) error
	Delete(ctx context.Context, ownerID string) error
}
