package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account of the store.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string     `json:"name" gorm:"type:varchar(100);not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password     string     `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash
	Phone        string     `json:"phone,omitempty" gorm:"type:varchar(50)"`
	IsAdmin      bool       `json:"isAdmin"`
	IsVerified   bool       `json:"isVerified"`
	Addresses    []Address  `json:"addresses" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	OTPCode      string     `json:"-" gorm:"type:varchar(12)"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Address is an entry of a user's address book.
type Address struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string `json:"-" gorm:"type:varchar(36);index;not null"`
	Position   int    `json:"-" gorm:"not null;default:0"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Default    bool   `json:"default"`
}

// NormalizeAddresses keeps at most one default address: the first address
// flagged default wins and every other one is demoted. When none is flagged
// the first address is promoted. Positions are renumbered in list order.
func (u *User) NormalizeAddresses() {
	defaultIdx := -1
	for i := range u.Addresses {
		if u.Addresses[i].Default {
			defaultIdx = i
			break
		}
	}
	if defaultIdx == -1 && len(u.Addresses) > 0 {
		defaultIdx = 0
	}

	for i := range u.Addresses {
		u.Addresses[i].Default = i == defaultIdx
		u.Addresses[i].Position = i
		u.Addresses[i].UserID = u.ID
	}
}

// AddressIndex returns the index of the address with the given id, or -1.
func (u *User) AddressIndex(id string) int {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return i
		}
	}
	return -1
}

// SetOTP stores a one-time password that expires at expiresAt.
func (u *User) SetOTP(code string, expiresAt time.Time) {
	u.OTPCode = code
	u.OTPExpiresAt = &expiresAt
}

// ClearOTP discards the pending one-time password.
func (u *User) ClearOTP() {
	u.OTPCode = ""
	u.OTPExpiresAt = nil
}

// HasOTP reports whether a one-time password is pending.
func (u *User) HasOTP() bool {
	return u.OTPCode != "" && u.OTPExpiresAt != nil
}

// BeforeSave normalizes the address book before it is persisted.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.NormalizeAddresses()
	return nil
}
