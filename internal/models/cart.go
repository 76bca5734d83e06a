package models

import (
	"strings"
	"time"
)

// GuestOwnerPrefix marks owner ids of carts and wishlists kept for anonymous visitors.
const GuestOwnerPrefix = "guest:"

// GuestOwnerID builds the owner id of a guest's cart or wishlist.
func GuestOwnerID(guestID string) string {
	return GuestOwnerPrefix + guestID
}

// IsGuestOwner reports whether ownerID belongs to a guest.
func IsGuestOwner(ownerID string) bool {
	return strings.HasPrefix(ownerID, GuestOwnerPrefix)
}

// Cart is the set of line items a shopper intends to buy.
// Version is bumped on every successful save.
type Cart struct {
	OwnerID   string     `json:"ownerId" gorm:"primaryKey;type:varchar(64)"`
	Version   int64      `json:"version" gorm:"not null;default:0"`
	Items     []CartItem `json:"items" gorm:"foreignKey:OwnerID;references:OwnerID;constraint:OnDelete:CASCADE"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem is a (product, quantity) line of a cart. A cart holds at most one line per product.
type CartItem struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	OwnerID   string `json:"-" gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_item_product"`
	ProductID string `json:"productId" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_item_product"`
	Quantity  int    `json:"quantity" gorm:"not null"`
}

// IndexOf returns the index of the line for productID, or -1.
func (c *Cart) IndexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Wishlist is the set of products a shopper saved for later.
type Wishlist struct {
	OwnerID   string         `json:"ownerId" gorm:"primaryKey;type:varchar(64)"`
	Version   int64          `json:"version" gorm:"not null;default:0"`
	Items     []WishlistItem `json:"items" gorm:"foreignKey:OwnerID;references:OwnerID;constraint:OnDelete:CASCADE"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// WishlistItem is a product reference of a wishlist.
type WishlistItem struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	OwnerID   string    `json:"-" gorm:"type:varchar(64);not null;uniqueIndex:idx_wishlist_item_product"`
	ProductID string    `json:"productId" gorm:"type:varchar(36);not null;uniqueIndex:idx_wishlist_item_product"`
	AddedAt   time.Time `json:"addedAt"`
}

// Contains reports whether productID is on the wishlist.
func (w *Wishlist) Contains(productID string) bool {
	for _, item := range w.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
