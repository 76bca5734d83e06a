package models_test

import (
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_RecalculateRating(t *testing.T) {
	tests := []struct {
		name       string
		ratings    []int
		wantRating float64
	}{
		{name: "no reviews", ratings: nil, wantRating: 0},
		{name: "single review", ratings: []int{4}, wantRating: 4},
		{name: "rounds to one decimal", ratings: []int{5, 4, 4}, wantRating: 4.3},
		{name: "rounds half up", ratings: []int{5, 4, 4, 4}, wantRating: 4.3},
		{name: "mixed", ratings: []int{1, 2, 5}, wantRating: 2.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Product{Rating: 3.3, NumReviews: 99}
			for _, r := range tt.ratings {
				p.Reviews = append(p.Reviews, models.Review{Rating: r})
			}

			p.RecalculateRating()

			assert.Equal(t, tt.wantRating, p.Rating)
			assert.Equal(t, len(tt.ratings), p.NumReviews)
		})
	}
}

func TestProduct_SalePrice(t *testing.T) {
	p := &models.Product{Price: decimal.RequireFromString("199.99"), Discount: 15}
	assert.Equal(t, "169.99", p.SalePrice().StringFixed(2))

	p.Discount = 0
	assert.Equal(t, "199.99", p.SalePrice().StringFixed(2))

	p.Discount = 100
	assert.True(t, p.SalePrice().IsZero())
}

func TestProductCategoryAndMaterial_Valid(t *testing.T) {
	assert.True(t, models.CategoryWatch.Valid())
	assert.False(t, models.ProductCategory("anklet").Valid())
	assert.True(t, models.MaterialPlatinum.Valid())
	assert.False(t, models.ProductMaterial("wood").Valid())
}

func TestUser_NormalizeAddresses(t *testing.T) {
	t.Run("first address is promoted when none is default", func(t *testing.T) {
		u := &models.User{ID: "u1", Addresses: []models.Address{{ID: "a"}, {ID: "b"}}}
		u.NormalizeAddresses()
		assert.True(t, u.Addresses[0].Default)
		assert.False(t, u.Addresses[1].Default)
	})

	t.Run("only the first flagged default survives", func(t *testing.T) {
		u := &models.User{ID: "u1", Addresses: []models.Address{{ID: "a"}, {ID: "b", Default: true}, {ID: "c", Default: true}}}
		u.NormalizeAddresses()
		assert.Equal(t, []bool{false, true, false}, defaults(u))
		assert.Equal(t, 2, u.Addresses[2].Position)
		assert.Equal(t, "u1", u.Addresses[2].UserID)
	})

	t.Run("empty book stays empty", func(t *testing.T) {
		u := &models.User{}
		u.NormalizeAddresses()
		assert.Empty(t, u.Addresses)
	})
}

func TestUser_OTP(t *testing.T) {
	u := &models.User{}
	assert.False(t, u.HasOTP())

	u.OTPCode = "123456"
	assert.False(t, u.HasOTP(), "code without expiry is not a pending OTP")

	u.ClearOTP()
	assert.Empty(t, u.OTPCode)
	assert.Nil(t, u.OTPExpiresAt)
}

func TestCartAndWishlistLookups(t *testing.T) {
	c := &models.Cart{Items: []models.CartItem{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 3}}}
	assert.Equal(t, 1, c.IndexOf("p2"))
	assert.Equal(t, -1, c.IndexOf("p3"))

	w := &models.Wishlist{Items: []models.WishlistItem{{ProductID: "p1"}}}
	assert.True(t, w.Contains("p1"))
	assert.False(t, w.Contains("p2"))

	assert.True(t, models.IsGuestOwner(models.GuestOwnerID("abc")))
	assert.False(t, models.IsGuestOwner("abc"))
}

func defaults(u *models.User) []bool {
	out := make([]bool, len(u.Addresses))
	for i, a := range u.Addresses {
		out[i] = a.Default
	}
	return out
}
