package repositories

import (
	"context"
	"sync"
	"time"

	"storefront/internal/models"
)

// MemoryCartStore is an in-process CartStore. It serves guest carts when no
// Redis is configured and backs tests.
type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string]models.Cart
}

// NewMemoryCartStore creates an empty MemoryCartStore.
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]models.Cart)}
}

// Get returns a copy of the stored cart, or an empty one.
func (s *MemoryCartStore) Get(_ context.Context, ownerID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[ownerID]
	if !ok {
		return &models.Cart{OwnerID: ownerID}, nil
	}
	cart.Items = append([]models.CartItem(nil), cart.Items...)
	return &cart, nil
}

// Save stores a copy of cart if its version matches.
func (s *MemoryCartStore) Save(_ context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.carts[cart.OwnerID].Version != cart.Version {
		return ErrVersionConflict
	}
	cart.Version++
	cart.UpdatedAt = time.Now()

	stored := *cart
	stored.Items = append([]models.CartItem(nil), cart.Items...)
	s.carts[cart.OwnerID] = stored
	return nil
}

// Clear empties the cart.
func (s *MemoryCartStore) Clear(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart, ok := s.carts[ownerID]; ok {
		cart.Items = nil
		cart.Version++
		cart.UpdatedAt = time.Now()
		s.carts[ownerID] = cart
	}
	return nil
}

// Delete drops the cart.
func (s *MemoryCartStore) Delete(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, ownerID)
	return nil
}

// MemoryWishlistStore is the in-process WishlistStore.
type MemoryWishlistStore struct {
	mu        sync.RWMutex
	wishlists map[string]models.Wishlist
}

// NewMemoryWishlistStore creates an empty MemoryWishlistStore.
func NewMemoryWishlistStore() *MemoryWishlistStore {
	return &MemoryWishlistStore{wishlists: make(map[string]models.Wishlist)}
}

// Get returns a copy of the stored wishlist, or an empty one.
func (s *MemoryWishlistStore) Get(_ context.Context, ownerID string) (*models.Wishlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wishlist, ok := s.wishlists[ownerID]
	if !ok {
		return &models.Wishlist{OwnerID: ownerID}, nil
	}
	wishlist.Items = append([]models.WishlistItem(nil), wishlist.Items...)
	return &wishlist, nil
}

// Save stores a copy of wishlist if its version matches.
func (s *MemoryWishlistStore) Save(_ context.Context, wishlist *models.Wishlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wishlists[wishlist.OwnerID].Version != wishlist.Version {
		return ErrVersionConflict
	}
	wishlist.Version++
	wishlist.UpdatedAt = time.Now()

	stored := *wishlist
	stored.Items = append([]models.WishlistItem(nil), wishlist.Items...)
	s.wishlists[wishlist.OwnerID] = stored
	return nil
}

// Clear empties the wishlist.
func (s *MemoryWishlistStore) Clear(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wishlist, ok := s.wishlists[ownerID]; ok {
		wishlist.Items = nil
		wishlist.Version++
		wishlist.UpdatedAt = time.Now()
		s.wishlists[ownerID] = wishlist
	}
	return nil
}

// Delete drops the wishlist.
func (s *MemoryWishlistStore) Delete(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.wishlists, ownerID)
	return nil
}
