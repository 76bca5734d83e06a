package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a frozen snapshot of a purchased product. Later edits of the
// product do not change it.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"type:varchar(36);index;not null"`
	ProductID string          `json:"productId" gorm:"type:varchar(36);not null"`
	Name      string          `json:"name" gorm:"type:varchar(200)"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"` // unit price at the time of order
	Quantity  int             `json:"quantity" gorm:"not null"`
}

// ShippingAddress is the free text destination of an order.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// PaymentResult records the confirmation the client received from the payment provider.
type PaymentResult struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status,omitempty"`
	UpdateTime   string `json:"updateTime,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// Order represents a finalized purchase.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"userId" gorm:"type:varchar(36);index;not null"`
	Items           []OrderItem     `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentMethod   string          `json:"paymentMethod" gorm:"type:varchar(50)"`
	PaymentResult   PaymentResult   `json:"paymentResult" gorm:"embedded;embeddedPrefix:payment_"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice" gorm:"type:decimal(12,2);not null"`
	TaxPrice        decimal.Decimal `json:"taxPrice" gorm:"type:decimal(12,2);not null"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice" gorm:"type:decimal(12,2);not null"`
	TotalPrice      decimal.Decimal `json:"totalPrice" gorm:"type:decimal(12,2);not null"`
	IsPaid          bool            `json:"isPaid" gorm:"not null;default:false"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered" gorm:"not null;default:false"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
