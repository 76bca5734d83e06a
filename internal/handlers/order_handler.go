package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, verified []fiber.Handler, admin fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", chain(verified, h.HandleCreateOrder)...)
	orderRoutes.Get("/", chain(verified, h.HandleListMine)...)
	orderRoutes.Get("/all", chain(verified, admin, h.HandleListAll)...)
	orderRoutes.Get("/:id", chain(verified, h.HandleGetOrderByID)...)
	orderRoutes.Put("/:id/pay", chain(verified, h.HandlePay)...)
	orderRoutes.Put("/:id/deliver", chain(verified, admin, h.HandleDeliver)...)
	orderRoutes.Delete("/:id", chain(verified, admin, h.HandleDeleteOrder)...)
}

// OrderItemRequest is one requested line of an order.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,max=1000"`
}

// ShippingAddressRequest is the destination of an order.
type ShippingAddressRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone"`
}

// CreateOrderRequest represents the checkout body. Prices are never taken from the client.
type CreateOrderRequest struct {
	OrderItems      []OrderItemRequest     `json:"orderItems" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required"`
}

// HandleCreateOrder creates a new order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	lines := make([]services.OrderLineInput, len(req.OrderItems))
	for i, item := range req.OrderItems {
		lines[i] = services.OrderLineInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	a := req.ShippingAddress

	order, err := h.service.CreateOrder(c.UserContext(), middleware.CurrentUser(c), services.CreateOrderInput{
		Lines: lines,
		ShippingAddress: models.ShippingAddress{
			FullName:   a.FullName,
			Street:     a.Street,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Phone:      a.Phone,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleListMine returns the caller's orders.
func (h *OrderHandler) HandleListMine(c *fiber.Ctx) error {
	orders, err := h.service.ListMine(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// HandleListAll returns every order.
func (h *OrderHandler) HandleListAll(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// PaymentRequest is the confirmation the client received from the payment provider.
type PaymentRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"updateTime"`
	EmailAddress string `json:"emailAddress" validate:"omitempty,email"`
}

// HandlePay marks an order paid.
func (h *OrderHandler) HandlePay(c *fiber.Ctx) error {
	var req PaymentRequest
	if len(c.Body()) > 0 {
		if err := bind(c, h.validate, &req); err != nil {
			return respondError(c, err)
		}
	}

	order, err := h.service.Pay(c.UserContext(), c.Params("id"), middleware.CurrentUser(c), models.PaymentResult{
		ID:           req.ID,
		Status:       req.Status,
		UpdateTime:   req.UpdateTime,
		EmailAddress: req.EmailAddress,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleDeliver marks an order delivered.
func (h *OrderHandler) HandleDeliver(c *fiber.Ctx) error {
	order, err := h.service.Deliver(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleDeleteOrder removes an order.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	if err := h.service.DeleteOrder(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}
