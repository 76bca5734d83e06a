package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var userColumns = []string{
	"name", "email", "password", "phone", "is_admin", "is_verified", "otp_code", "otp_expires_at", "updated_at",
}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = normalizeEmail(user.Email)
	for i := range user.Addresses {
		if user.Addresses[i].ID == "" {
			user.Addresses[i].ID = uuid.New().String()
		}
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Addresses", orderByPosition).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Addresses", orderByPosition).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// List returns every user ordered by signup time.
func (r *GORMUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Preload("Addresses", orderByPosition).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update persists the account fields of user.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	res := r.db.WithContext(ctx).Model(user).Omit("Addresses").Select(userColumns).Updates(user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, user.ID)
	}
	return nil
}

// ReplaceAddresses rewrites the address book of user in one transaction.
func (r *GORMUserRepository) ReplaceAddresses(ctx context.Context, user *models.User) error {
	user.NormalizeAddresses()
	for i := range user.Addresses {
		if user.Addresses[i].ID == "" {
			user.Addresses[i].ID = uuid.New().String()
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check user %s: %w", user.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, user.ID)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Address{}).Error; err != nil {
			return fmt.Errorf("failed to clear addresses: %w", err)
		}
		if len(user.Addresses) == 0 {
			return nil
		}
		if err := tx.Create(&user.Addresses).Error; err != nil {
			return fmt.Errorf("failed to save addresses: %w", err)
		}
		return nil
	})
}

// Delete removes the user with their address book, cart and wishlist.
// Orders and reviews are kept.
func (r *GORMUserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Address{}).Error; err != nil {
			return fmt.Errorf("failed to delete addresses: %w", err)
		}
		for _, owned := range []any{&models.CartItem{}, &models.Cart{}, &models.WishlistItem{}, &models.Wishlist{}} {
			if err := tx.Where("owner_id = ?", id).Delete(owned).Error; err != nil {
				return fmt.Errorf("failed to delete %T: %w", owned, err)
			}
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}
