package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory is the catalog section a product is listed under.
type ProductCategory string

const (
	CategoryNecklace ProductCategory = "necklace"
	CategoryBracelet ProductCategory = "bracelet"
	CategoryEarring  ProductCategory = "earring"
	CategoryRing     ProductCategory = "ring"
	CategoryPendant  ProductCategory = "pendant"
	CategoryWatch    ProductCategory = "watch"
	CategoryOther    ProductCategory = "other"
)

// Valid reports whether c is a known category.
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryNecklace, CategoryBracelet, CategoryEarring, CategoryRing, CategoryPendant, CategoryWatch, CategoryOther:
		return true
	}
	return false
}

// ProductMaterial is the primary material of a product.
type ProductMaterial string

const (
	MaterialGold     ProductMaterial = "gold"
	MaterialSilver   ProductMaterial = "silver"
	MaterialPlatinum ProductMaterial = "platinum"
	MaterialDiamond  ProductMaterial = "diamond"
	MaterialOther    ProductMaterial = "other"
)

// Valid reports whether m is a known material.
func (m ProductMaterial) Valid() bool {
	switch m {
	case MaterialGold, MaterialSilver, MaterialPlatinum, MaterialDiamond, MaterialOther:
		return true
	}
	return false
}

// Product represents a sellable item in the catalog.
type Product struct {
	ID           string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string           `json:"name" gorm:"type:varchar(200);not null"`
	Description  string           `json:"description" gorm:"type:text"`
	Price        decimal.Decimal  `json:"price" gorm:"type:decimal(12,2);not null"`
	Discount     int              `json:"discount" gorm:"not null;default:0"` // percentage off list price
	Category     ProductCategory  `json:"category" gorm:"type:varchar(20);index"`
	Material     *ProductMaterial `json:"material,omitempty" gorm:"type:varchar(20)"`
	Weight       float64          `json:"weight,omitempty"`
	Images       []string         `json:"images" gorm:"type:text;serializer:json"`
	Tags         []string         `json:"tags" gorm:"type:text;serializer:json"`
	CountInStock int              `json:"countInStock" gorm:"not null;default:0"`
	Reviews      []Review         `json:"reviews,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Rating       float64          `json:"rating" gorm:"not null;default:0"`
	NumReviews   int              `json:"numReviews" gorm:"not null;default:0"`
	Featured     bool             `json:"featured"`
	IsNew        bool             `json:"isNew"`
	Sold         int              `json:"sold" gorm:"not null;default:0;index"`
	Version      int64            `json:"version" gorm:"not null;default:0"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// RecalculateRating derives Rating and NumReviews from Reviews.
// Rating is the mean review rating rounded to one decimal place.
func (p *Product) RecalculateRating() {
	if len(p.Reviews) == 0 {
		p.Rating = 0
		p.NumReviews = 0
		return
	}

	total := 0
	for _, r := range p.Reviews {
		total += r.Rating
	}
	p.Rating = math.Round(float64(total)/float64(len(p.Reviews))*10) / 10
	p.NumReviews = len(p.Reviews)
}

// SalePrice is the list price with the discount applied, rounded to cents.
func (p *Product) SalePrice() decimal.Decimal {
	if p.Discount <= 0 {
		return p.Price.Round(2)
	}
	factor := decimal.NewFromInt(int64(100 - p.Discount)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}

// FirstImage returns the primary image reference, or "" if there is none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Review is a user's rating of a product. A user reviews a product at most once.
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID string    `json:"productId" gorm:"type:varchar(36);not null;uniqueIndex:idx_review_product_user"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_review_product_user"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
