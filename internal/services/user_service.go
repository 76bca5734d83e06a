package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ProfileUpdate holds the optional profile fields a user may change.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Password *string
}

// AdminUserUpdate holds the optional fields an admin may change on any account.
type AdminUserUpdate struct {
	Name    *string
	Email   *string
	IsAdmin *bool
}

// AddressInput is a new address book entry.
type AddressInput struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	Default    bool
}

// AddressPatch holds the optional fields of an address edit.
type AddressPatch struct {
	Street     *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
	Default    *bool
}

// UserService manages profiles, address books and admin user maintenance.
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile returns the user with their address book.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile applies the set fields of in to the user's account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("name must not be empty")
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if err := s.changeEmail(ctx, user, *in.Email); err != nil {
			return nil, err
		}
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, ErrWeakPassword
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddAddress appends an address. The first address, or one flagged default, becomes the default.
func (s *UserService) AddAddress(ctx context.Context, userID string, in AddressInput) ([]models.Address, error) {
	address := models.Address{
		ID:         uuid.New().String(),
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
	}
	if err := requireAddressFields(address); err != nil {
		return nil, err
	}

	return s.editAddresses(ctx, userID, func(user *models.User) error {
		if in.Default {
			demoteAll(user.Addresses)
			address.Default = true
		}
		user.Addresses = append(user.Addresses, address)
		return nil
	})
}

// UpdateAddress edits an address in place.
func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID string, in AddressPatch) ([]models.Address, error) {
	return s.editAddresses(ctx, userID, func(user *models.User) error {
		i := user.AddressIndex(addressID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		a := &user.Addresses[i]
		assign(&a.Street, in.Street)
		assign(&a.City, in.City)
		assign(&a.State, in.State)
		assign(&a.PostalCode, in.PostalCode)
		assign(&a.Country, in.Country)
		if err := requireAddressFields(*a); err != nil {
			return err
		}
		if in.Default != nil {
			if *in.Default {
				demoteAll(user.Addresses)
			}
			a.Default = *in.Default
		}
		return nil
	})
}

// DeleteAddress removes an address. Removing the default promotes the first remaining one.
func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID string) ([]models.Address, error) {
	return s.editAddresses(ctx, userID, func(user *models.User) error {
		i := user.AddressIndex(addressID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		user.Addresses = append(user.Addresses[:i], user.Addresses[i+1:]...)
		return nil
	})
}

// SetDefaultAddress makes addressID the only default address.
func (s *UserService) SetDefaultAddress(ctx context.Context, userID, addressID string) ([]models.Address, error) {
	return s.editAddresses(ctx, userID, func(user *models.User) error {
		i := user.AddressIndex(addressID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		demoteAll(user.Addresses)
		user.Addresses[i].Default = true
		return nil
	})
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

// GetUser returns any account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateUser applies an admin edit.
func (s *UserService) UpdateUser(ctx context.Context, id string, in AdminUserUpdate) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("name must not be empty")
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if err := s.changeEmail(ctx, user, *in.Email); err != nil {
			return nil, err
		}
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.userRepo.Delete(ctx, id)
}

func (s *UserService) changeEmail(ctx context.Context, user *models.User, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return invalid("a valid email is required")
	}
	if email == user.Email {
		return nil
	}
	other, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && other.ID != user.ID:
		return fmt.Errorf("%w: %s", repositories.ErrEmailTaken, email)
	case err != nil && !errors.Is(err, repositories.ErrUserNotFound):
		return err
	}
	user.Email = email
	return nil
}

// editAddresses loads the address book, applies edit and stores the normalized result.
func (s *UserService) editAddresses(ctx context.Context, userID string, edit func(*models.User) error) ([]models.Address, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := edit(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.ReplaceAddresses(ctx, user); err != nil {
		return nil, err
	}
	return user.Addresses, nil
}

func requireAddressFields(a models.Address) error {
	if a.Street == "" || a.City == "" || a.State == "" || a.PostalCode == "" || a.Country == "" {
		return invalid("street, city, state, postal code and country are required")
	}
	return nil
}

func demoteAll(addresses []models.Address) {
	for i := range addresses {
		addresses[i].Default = false
	}
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
