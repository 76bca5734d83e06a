package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Routing keys of the order events.
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

// EventPublisher publishes domain events. It may be nil.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// OrderEvent is the payload of every order event.
type OrderEvent struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"orderId"`
	UserID     string          `json:"userId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Items      int             `json:"items"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Pricing derives tax and shipping from the items total. Shipping is free
// once the items total reaches FreeShippingThreshold, unless the threshold is zero.
type Pricing struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// NewPricing builds a Pricing from plain config values.
func NewPricing(taxRate, shippingFee, freeShippingThreshold float64) Pricing {
	return Pricing{
		TaxRate:               decimal.NewFromFloat(taxRate),
		ShippingFee:           decimal.NewFromFloat(shippingFee),
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
	}
}

// Totals are the price fields of an order.
type Totals struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Quote prices an order whose items sum to items.
func (p Pricing) Quote(items decimal.Decimal) Totals {
	tax := items.Mul(p.TaxRate).Round(2)
	shipping := p.ShippingFee.Round(2)
	if p.FreeShippingThreshold.IsPositive() && items.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Totals{Items: items, Tax: tax, Shipping: shipping, Total: items.Add(tax).Add(shipping)}
}

// OrderLineInput is a requested (product, quantity) pair.
type OrderLineInput struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput is what a shopper submits at checkout. Prices are always
// computed by the server.
type CreateOrderInput struct {
	Lines           []OrderLineInput
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orders      repositories.OrderRepository
	publisher   EventPublisher
	requirePaid bool

	mu      sync.RWMutex
	pricing Pricing
}

// NewOrderService creates a new OrderService. When requirePaidBeforeDelivery
// is set an order must be paid before it can be delivered.
func NewOrderService(orders repositories.OrderRepository, publisher EventPublisher, pricing Pricing, requirePaidBeforeDelivery bool) *OrderService {
	return &OrderService{
		orders:      orders,
		publisher:   publisher,
		requirePaid: requirePaidBeforeDelivery,
		pricing:     pricing,
	}
}

// SetPricing swaps the pricing used for new orders.
func (s *OrderService) SetPricing(p Pricing) {
	s.mu.Lock()
	s.pricing = p
	s.mu.Unlock()
	log.Info().Str("tax_rate", p.TaxRate.String()).Str("shipping_fee", p.ShippingFee.String()).
		Str("free_shipping_threshold", p.FreeShippingThreshold.String()).Msg("pricing updated")
}

// Pricing returns the pricing used for new orders.
func (s *OrderService) Pricing() Pricing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pricing
}

// CreateOrder prices the requested lines from the live catalog and places the
// order, reserving stock for every line in the same transaction.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, in CreateOrderInput) (*models.Order, error) {
	lines, err := coalesce(in.Lines)
	if err != nil {
		return nil, err
	}
	if err := validateShipping(in.ShippingAddress); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, invalid("payment method is required")
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	pricing := s.Pricing()

	order, err := s.orders.Place(ctx, ids, func(products map[string]models.Product) (*models.Order, error) {
		order := &models.Order{
			UserID:          user.ID,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		}
		items := decimal.Zero
		for _, l := range lines {
			p, ok := products[l.ProductID]
			if !ok {
				return nil, fmt.Errorf("%w: %s", repositories.ErrProductNotFound, l.ProductID)
			}
			if l.Quantity > p.CountInStock {
				return nil, fmt.Errorf("%w: %s has %d left", ErrOutOfStock, p.Name, p.CountInStock)
			}
			unit := p.SalePrice()
			order.Items = append(order.Items, models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Image:     p.FirstImage(),
				Price:     unit,
				Quantity:  l.Quantity,
			})
			items = items.Add(unit.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}

		totals := pricing.Quote(items)
		order.ItemsPrice = totals.Items
		order.TaxPrice = totals.Tax
		order.ShippingPrice = totals.Shipping
		order.TotalPrice = totals.Total
		return order, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID).Str("user_id", user.ID).Str("total", order.TotalPrice.String()).Msg("order created")
	s.publish(ctx, EventOrderCreated, order)
	return order, nil
}

// GetOrder returns an order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, id string, caller *models.User) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.ID && !caller.IsAdmin {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order, newest first.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// Pay marks an order paid. The owner or an admin may do so, once.
func (s *OrderService) Pay(ctx context.Context, id string, caller *models.User, result models.PaymentResult) (*models.Order, error) {
	if _, err := s.GetOrder(ctx, id, caller); err != nil {
		return nil, err
	}
	order, err := s.orders.MarkPaid(ctx, id, time.Now(), result)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", id).Msg("order paid")
	s.publish(ctx, EventOrderPaid, order)
	return order, nil
}

// Deliver marks an order delivered, once.
func (s *OrderService) Deliver(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.MarkDelivered(ctx, id, time.Now(), s.requirePaid)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", id).Msg("order delivered")
	s.publish(ctx, EventOrderDelivered, order)
	return order, nil
}

// DeleteOrder removes an order and its items.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	return s.orders.Delete(ctx, id)
}

// publish sends an order event. Failures are logged; the order itself is already committed.
func (s *OrderService) publish(ctx context.Context, routingKey string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	event := OrderEvent{
		Type:       routingKey,
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Items:      count,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Str("event", routingKey).Msg("failed to publish order event")
	}
}

// MaxLineQuantity bounds the units of one product in a cart line or an order.
const MaxLineQuantity = 1000

// coalesce validates the requested lines and merges duplicates of a product.
func coalesce(in []OrderLineInput) ([]OrderLineInput, error) {
	if len(in) == 0 {
		return nil, invalid("an order needs at least one item")
	}
	out := make([]OrderLineInput, 0, len(in))
	index := make(map[string]int, len(in))
	for _, l := range in {
		if strings.TrimSpace(l.ProductID) == "" {
			return nil, invalid("every item needs a product id")
		}
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if l.Quantity > MaxLineQuantity {
			return nil, ErrQuantityTooLarge
		}
		if i, ok := index[l.ProductID]; ok {
			if out[i].Quantity > MaxLineQuantity-l.Quantity {
				return nil, ErrQuantityTooLarge
			}
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func validateShipping(a models.ShippingAddress) error {
	for _, field := range []string{a.FullName, a.Street, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(field) == "" {
			return invalid("shipping address needs full name, street, city, postal code and country")
		}
	}
	return nil
}
