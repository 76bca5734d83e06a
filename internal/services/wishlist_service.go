package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// WishlistProduct is a wishlist entry joined with the live product.
type WishlistProduct struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Price        decimal.Decimal        `json:"price"`
	Images       []string               `json:"images"`
	Category     models.ProductCategory `json:"category"`
	Discount     int                    `json:"discount"`
	CountInStock int                    `json:"countInStock"`
}

// WishlistView is what every wishlist operation returns.
type WishlistView struct {
	Version int64             `json:"version"`
	Items   []WishlistProduct `json:"items"`
}

// WishlistService implements the wishlist operations for users and guests.
type WishlistService struct {
	products repositories.ProductRepository
	users    repositories.WishlistStore
	guests   repositories.WishlistStore
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(products repositories.ProductRepository, users, guests repositories.WishlistStore) *WishlistService {
	return &WishlistService{products: products, users: users, guests: guests}
}

func (s *WishlistService) store(ownerID string) repositories.WishlistStore {
	if models.IsGuestOwner(ownerID) {
		return s.guests
	}
	return s.users
}

// Get returns the wishlist of ownerID.
func (s *WishlistService) Get(ctx context.Context, ownerID string) (*WishlistView, error) {
	w, err := s.store(ownerID).Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, w)
}

// Add saves a product to the wishlist. A product is listed at most once.
func (s *WishlistService) Add(ctx context.Context, ownerID, productID string) (*WishlistView, error) {
	products, err := s.products.GetByIDs(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	if _, ok := products[productID]; !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrProductNotFound, productID)
	}

	store := s.store(ownerID)
	w, err := store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if w.Contains(productID) {
		return nil, ErrAlreadyExists
	}
	w.Items = append(w.Items, models.WishlistItem{ProductID: productID, AddedAt: time.Now()})

	if err := store.Save(ctx, w); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// A concurrent add of the same product is reported as a duplicate, not a conflict.
			if current, getErr := store.Get(ctx, ownerID); getErr == nil && current.Contains(productID) {
				return nil, ErrAlreadyExists
			}
		}
		return nil, err
	}
	return s.view(ctx, w)
}

// Remove drops a product from the wishlist. Removing an absent product changes nothing.
func (s *WishlistService) Remove(ctx context.Context, ownerID, productID string) (*WishlistView, error) {
	store := s.store(ownerID)
	w, err := store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	kept := w.Items[:0]
	for _, item := range w.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(w.Items) {
		return s.view(ctx, w)
	}
	w.Items = kept

	if err := store.Save(ctx, w); err != nil {
		return nil, err
	}
	return s.view(ctx, w)
}

// Clear empties the wishlist.
func (s *WishlistService) Clear(ctx context.Context, ownerID string) (*WishlistView, error) {
	if err := s.store(ownerID).Clear(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID)
}

// Merge adds the products of a guest wishlist to the user's and deletes the guest wishlist.
func (s *WishlistService) Merge(ctx context.Context, userID, guestID string) (*WishlistView, error) {
	guestOwner := models.GuestOwnerID(guestID)
	guest, err := s.guests.Get(ctx, guestOwner)
	if err != nil {
		return nil, err
	}
	w, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(guest.Items) > 0 {
		ids := make([]string, 0, len(guest.Items))
		for _, item := range guest.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		added := false
		for _, item := range guest.Items {
			if _, ok := products[item.ProductID]; !ok || w.Contains(item.ProductID) {
				continue
			}
			w.Items = append(w.Items, item)
			added = true
		}
		if added {
			if err := s.users.Save(ctx, w); err != nil {
				return nil, err
			}
		}
	}

	if err := s.guests.Delete(ctx, guestOwner); err != nil {
		return nil, err
	}
	return s.view(ctx, w)
}

func (s *WishlistService) view(ctx context.Context, w *models.Wishlist) (*WishlistView, error) {
	out := &WishlistView{Version: w.Version, Items: []WishlistProduct{}}
	if len(w.Items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(w.Items))
	for _, item := range w.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, item := range w.Items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		out.Items = append(out.Items, WishlistProduct{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Images:       p.Images,
			Category:     p.Category,
			Discount:     p.Discount,
			CountInStock: p.CountInStock,
		})
	}
	return out, nil
}
