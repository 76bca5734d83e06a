package handlers

import (
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CartHandler serves the cart of signed in users and of guests.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers /cart behind verified and /guest/cart behind the guest identity.
func (h *CartHandler) RegisterRoutes(router fiber.Router, verified []fiber.Handler) {
	userCart := router.Group("/cart")
	userCart.Get("/", chain(verified, h.handleGet(userOwner))...)
	userCart.Post("/", chain(verified, h.handleAdd(userOwner))...)
	userCart.Delete("/", chain(verified, h.handleClear(userOwner))...)
	userCart.Post("/merge", chain(verified, h.HandleMerge)...)
	userCart.Put("/:productId", chain(verified, h.handleUpdate(userOwner))...)
	userCart.Delete("/:productId", chain(verified, h.handleRemove(userOwner))...)

	guestCart := router.Group("/guest/cart", middleware.GuestIdentity())
	guestCart.Get("/", h.handleGet(middleware.GuestOwner))
	guestCart.Post("/", h.handleAdd(middleware.GuestOwner))
	guestCart.Delete("/", h.handleClear(middleware.GuestOwner))
	guestCart.Put("/:productId", h.handleUpdate(middleware.GuestOwner))
	guestCart.Delete("/:productId", h.handleRemove(middleware.GuestOwner))
}

// owner resolves whose cart a request addresses.
type owner func(c *fiber.Ctx) string

func userOwner(c *fiber.Ctx) string {
	return currentUserID(c)
}

func (h *CartHandler) handleGet(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cart, err := h.service.Get(c.UserContext(), owner(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cart)
	}
}

// CartItemRequest represents the body of an add-to-cart request.
type CartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,max=1000"`
}

func (h *CartHandler) handleAdd(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CartItemRequest
		if err := bind(c, h.validate, &req); err != nil {
			return respondError(c, err)
		}
		cart, err := h.service.Add(c.UserContext(), owner(c), req.ProductID, req.Quantity)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cart)
	}
}

// QuantityRequest represents the body of a quantity change.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0,max=1000"`
}

func (h *CartHandler) handleUpdate(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req QuantityRequest
		if err := bind(c, h.validate, &req); err != nil {
			return respondError(c, err)
		}
		cart, err := h.service.Update(c.UserContext(), owner(c), c.Params("productId"), req.Quantity)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cart)
	}
}

func (h *CartHandler) handleRemove(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cart, err := h.service.Remove(c.UserContext(), owner(c), c.Params("productId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cart)
	}
}

func (h *CartHandler) handleClear(owner owner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cart, err := h.service.Clear(c.UserContext(), owner(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cart)
	}
}

// MergeRequest names the guest whose items move to the signed in user. The
// guest is always the one in the caller's X-Guest-ID header; a body guest id
// must be the same one.
type MergeRequest struct {
	GuestID string `json:"guestId"`
}

// HandleMerge folds the guest cart into the user's cart.
func (h *CartHandler) HandleMerge(c *fiber.Ctx) error {
	guestID, err := mergeGuestID(c)
	if err != nil {
		return respondError(c, err)
	}
	cart, err := h.service.Merge(c.UserContext(), currentUserID(c), guestID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cart)
}

func mergeGuestID(c *fiber.Ctx) (string, error) {
	var req MergeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	guestID := strings.TrimSpace(c.Get(middleware.GuestHeader))
	session, err := uuid.Parse(guestID)
	if err != nil {
		return "", &validationError{fields: map[string]string{middleware.GuestHeader: "the guest session header is required"}}
	}
	if claimed := strings.TrimSpace(req.GuestID); claimed != "" {
		if id, err := uuid.Parse(claimed); err != nil || id != session {
			return "", fiber.NewError(fiber.StatusForbidden, "Guest id does not belong to this session")
		}
	}
	return guestID, nil
}
