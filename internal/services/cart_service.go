package services

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CartLine is a cart line joined with the live product.
type CartLine struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	CountInStock int             `json:"countInStock"`
	Discount     int             `json:"discount"`
	Quantity     int             `json:"quantity"`
}

// CartView is what every cart operation returns.
type CartView struct {
	Version   int64           `json:"version"`
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"` // sale prices times quantities
}

// CartService implements the cart operations for users and guests. Owners
// with the guest prefix are kept in the guest store.
type CartService struct {
	products repositories.ProductRepository
	users    repositories.CartStore
	guests   repositories.CartStore
}

// NewCartService creates a new CartService.
func NewCartService(products repositories.ProductRepository, users, guests repositories.CartStore) *CartService {
	return &CartService{products: products, users: users, guests: guests}
}

func (s *CartService) store(ownerID string) repositories.CartStore {
	if models.IsGuestOwner(ownerID) {
		return s.guests
	}
	return s.users
}

// Get returns the cart of ownerID.
func (s *CartService) Get(ctx context.Context, ownerID string) (*CartView, error) {
	cart, err := s.store(ownerID).Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Add puts qty units of a product in the cart. An existing line grows, capped at the stock.
func (s *CartService) Add(ctx context.Context, ownerID, productID string, qty int) (*CartView, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if qty > MaxLineQuantity {
		return nil, ErrQuantityTooLarge
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > product.CountInStock {
		return nil, fmt.Errorf("%w: %s has %d left", ErrOutOfStock, product.Name, product.CountInStock)
	}

	store := s.store(ownerID)
	cart, err := store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if i := cart.IndexOf(productID); i >= 0 {
		cart.Items[i].Quantity = min(cart.Items[i].Quantity+qty, product.CountInStock)
	} else {
		cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: qty})
	}

	if err := store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Update sets the quantity of an existing line.
func (s *CartService) Update(ctx context.Context, ownerID, productID string, qty int) (*CartView, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if qty > MaxLineQuantity {
		return nil, ErrQuantityTooLarge
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > product.CountInStock {
		return nil, fmt.Errorf("%w: %s has %d left", ErrOutOfStock, product.Name, product.CountInStock)
	}

	store := s.store(ownerID)
	cart, err := store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	i := cart.IndexOf(productID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotInCart, productID)
	}
	cart.Items[i].Quantity = qty

	if err := store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Remove drops the line of a product. Removing an absent line changes nothing.
func (s *CartService) Remove(ctx context.Context, ownerID, productID string) (*CartView, error) {
	store := s.store(ownerID)
	cart, err := store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	i := cart.IndexOf(productID)
	if i < 0 {
		return s.view(ctx, cart)
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)

	if err := store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, ownerID string) (*CartView, error) {
	store := s.store(ownerID)
	if err := store.Clear(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID)
}

// Merge folds a guest cart into the user's cart and deletes the guest cart.
// Lines the user already has keep the user's quantity. Guest lines are
// clamped to the current stock; gone or sold out products are skipped.
func (s *CartService) Merge(ctx context.Context, userID, guestID string) (*CartView, error) {
	guestOwner := models.GuestOwnerID(guestID)
	guest, err := s.guests.Get(ctx, guestOwner)
	if err != nil {
		return nil, err
	}
	cart, err := s.users.Get(ctx, userID)
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

		merged := 0
		for _, item := range guest.Items {
			p, ok := products[item.ProductID]
			if !ok || p.CountInStock <= 0 || cart.IndexOf(item.ProductID) >= 0 {
				continue
			}
			cart.Items = append(cart.Items, models.CartItem{ProductID: item.ProductID, Quantity: min(item.Quantity, p.CountInStock)})
			merged++
		}
		if merged > 0 {
			if err := s.users.Save(ctx, cart); err != nil {
				return nil, err
			}
		}
		log.Info().Str("user_id", userID).Int("merged", merged).Int("guest_lines", len(guest.Items)).Msg("guest cart merged")
	}

	if err := s.guests.Delete(ctx, guestOwner); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) product(ctx context.Context, id string) (*models.Product, error) {
	products, err := s.products.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p, ok := products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrProductNotFound, id)
	}
	return &p, nil
}

// view joins the cart lines with the live products. Lines of deleted products are left out.
func (s *CartService) view(ctx context.Context, cart *models.Cart) (*CartView, error) {
	out := &CartView{Version: cart.Version, Items: []CartLine{}, Subtotal: decimal.Zero}
	if len(cart.Items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		out.Items = append(out.Items, CartLine{
			ProductID:    p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Image:        p.FirstImage(),
			CountInStock: p.CountInStock,
			Discount:     p.Discount,
			Quantity:     item.Quantity,
		})
		out.ItemCount += item.Quantity
		out.Subtotal = out.Subtotal.Add(p.SalePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return out, nil
}
