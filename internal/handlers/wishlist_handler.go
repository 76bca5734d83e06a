package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// WishlistHandler serves the wishlist of signed in users and of guests.
type WishlistHandler struct {
	service  *services.WishlistService
	validate *validator.Validate
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(service *services.WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers /wishlist behind verified and /guest/wishlist behind the guest identity.
func (h *WishlistHandler) RegisterRoutes(router fiber.Router, verified []fiber.Handler) {
	userList := router.Group("/wishlist")
	userList.Get("/", chain(verified, h.handleGet(userOwner))...)
	userList.Post("/", chain(verified, h.handleAdd(userOwner))...)
	userList.Delete("/", chain(verified, h.handleClear(userOwner))...)
	userList.Post("/merge", chain(verified, h.HandleMerge)...)
	userList.Delete("/:productId", chain(verified, h.handleRemove(userOwner))...)

	guestList := router.Group("/guest/wishlist", middleware.GuestIdentity())
	guestList.Get("/", h.handleGet(middleware.GuestOwner))
	guestList.Post("/", h.handleAdd(middleware.GuestOwner))
	guestList.Delete("/", h.handleClear(middleware.GuestOwner))
	guestList.Delete("/:productId", h.handleRemove(middleware.GuestOwner))
}

func (h *WishlistHandler) handleGet(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := h.service.Get(c.UserContext(), owner(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	}
}

// WishlistRequest represents the body of an add-to-wishlist request.
type WishlistRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

func (h *WishlistHandler) handleAdd(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req WishlistRequest
		if err := bind(c, h.validate, &req); err != nil {
			return respondError(c, err)
		}
		list, err := h.service.Add(c.UserContext(), owner(c), req.ProductID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(list)
	}
}

func (h *WishlistHandler) handleRemove(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := h.service.Remove(c.UserContext(), owner(c), c.Params("productId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	}
}

func (h *WishlistHandler) handleClear(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := h.service.Clear(c.UserContext(), owner(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	}
}

// HandleMerge folds the guest wishlist into the user's wishlist.
func (h *WishlistHandler) HandleMerge(c *fiber.Ctx) error {
	guestID, err := mergeGuestID(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.service.Merge(c.UserContext(), currentUserID(c), guestID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}
