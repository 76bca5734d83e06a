package handlers

import (
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles profile, address book and admin user requests.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the user routes. admin runs after verified.
func (h *UserHandler) RegisterRoutes(router fiber.Router, verified []fiber.Handler, admin fiber.Handler) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/profile", chain(verified, h.HandleGetProfile)...)
	userRoutes.Put("/profile", chain(verified, h.HandleUpdateProfile)...)
	userRoutes.Post("/address", chain(verified, h.HandleAddAddress)...)
	userRoutes.Put("/address/:id", chain(verified, h.HandleUpdateAddress)...)
	userRoutes.Delete("/address/:id", chain(verified, h.HandleDeleteAddress)...)
	userRoutes.Put("/address/:id/default", chain(verified, h.HandleSetDefaultAddress)...)

	userRoutes.Get("/", chain(verified, admin, h.HandleListUsers)...)
	userRoutes.Get("/:id", chain(verified, admin, h.HandleGetUser)...)
	userRoutes.Put("/:id", chain(verified, admin, h.HandleUpdateUser)...)
	userRoutes.Delete("/:id", chain(verified, admin, h.HandleDeleteUser)...)
}

// HandleGetProfile returns the signed in user.
func (h *UserHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.service.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ProfileRequest holds the optional profile fields.
type ProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// HandleUpdateProfile edits the signed in user.
func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.service.UpdateProfile(c.UserContext(), currentUserID(c), services.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// AddressRequest is a new address book entry.
type AddressRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Default    bool   `json:"default"`
}

// HandleAddAddress appends an address to the book.
func (h *UserHandler) HandleAddAddress(c *fiber.Ctx) error {
	var req AddressRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	addresses, err := h.service.AddAddress(c.UserContext(), currentUserID(c), services.AddressInput{
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Default:    req.Default,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(addresses)
}

// AddressPatchRequest holds the optional fields of an address edit.
type AddressPatchRequest struct {
	Street     *string `json:"street"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postalCode"`
	Country    *string `json:"country"`
	Default    *bool   `json:"default"`
}

// HandleUpdateAddress edits one address.
func (h *UserHandler) HandleUpdateAddress(c *fiber.Ctx) error {
	var req AddressPatchRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	addresses, err := h.service.UpdateAddress(c.UserContext(), currentUserID(c), c.Params("id"), services.AddressPatch{
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Default:    req.Default,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(addresses)
}

// HandleDeleteAddress removes one address.
func (h *UserHandler) HandleDeleteAddress(c *fiber.Ctx) error {
	addresses, err := h.service.DeleteAddress(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(addresses)
}

// HandleSetDefaultAddress makes one address the default.
func (h *UserHandler) HandleSetDefaultAddress(c *fiber.Ctx) error {
	addresses, err := h.service.SetDefaultAddress(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(addresses)
}

// HandleListUsers returns every account.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleGetUser returns one account.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// AdminUserRequest holds the fields an admin may change.
type AdminUserRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Email   *string `json:"email" validate:"omitempty,email"`
	IsAdmin *bool   `json:"isAdmin"`
}

// HandleUpdateUser applies an admin edit.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var req AdminUserRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.service.UpdateUser(c.UserContext(), c.Params("id"), services.AdminUserUpdate{
		Name:    req.Name,
		Email:   req.Email,
		IsAdmin: req.IsAdmin,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleDeleteUser removes an account.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.service.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}
