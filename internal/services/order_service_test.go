package services_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testShipping = models.ShippingAddress{FullName: "Ana", Street: "1 Main St", City: "Lisbon", PostalCode: "1000", Country: "PT"}

func testPricing() services.Pricing {
	return services.NewPricing(0.15, 10, 100)
}

func TestPricing_Quote(t *testing.T) {
	tests := []struct {
		name         string
		pricing      services.Pricing
		items        string
		wantTax      string
		wantShipping string
		wantTotal    string
	}{
		{name: "below threshold", pricing: testPricing(), items: "50", wantTax: "7.5", wantShipping: "10", wantTotal: "67.5"},
		{name: "at threshold ships free", pricing: testPricing(), items: "100", wantTax: "15", wantShipping: "0", wantTotal: "115"},
		{name: "tax is rounded to cents", pricing: testPricing(), items: "33.33", wantTax: "5", wantShipping: "10", wantTotal: "48.33"},
		{name: "zero threshold always charges", pricing: services.NewPricing(0, 5, 0), items: "1000", wantTax: "0", wantShipping: "5", wantTotal: "1005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := tt.pricing.Quote(decimal.RequireFromString(tt.items))
			assert.Equal(t, tt.wantTax, totals.Tax.String())
			assert.Equal(t, tt.wantShipping, totals.Shipping.String())
			assert.Equal(t, tt.wantTotal, totals.Total.String())
		})
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	publisher := new(MockPublisher)
	svc := services.NewOrderService(orders, publisher, testPricing(), true)

	products := map[string]models.Product{"p1": ring, "p2": necklace}
	orders.On("Place", ctx, []string{"p1", "p2"}).Return(products, nil).Once()
	publisher.On("Publish", ctx, services.EventOrderCreated, mock.MatchedBy(func(e services.OrderEvent) bool {
		return e.OrderID == "order-1" && e.UserID == "u1" && e.Items == 3
	})).Return(nil).Once()

	order, err := svc.CreateOrder(ctx, ana, services.CreateOrderInput{
		Lines: []services.OrderLineInput{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
			{ProductID: "p1", Quantity: 1},
		},
		ShippingAddress: testShipping,
		PaymentMethod:   " PayPal ",
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	assert.Equal(t, 2, order.Items[0].Quantity, "duplicate lines are coalesced")
	assert.Equal(t, "90", order.Items[0].Price.String(), "unit price is the sale price")
	assert.Equal(t, "ring.jpg", order.Items[0].Image)
	assert.Equal(t, "Ring", order.Items[0].Name)
	assert.Equal(t, "220", order.ItemsPrice.String())
	assert.Equal(t, "33", order.TaxPrice.String())
	assert.Equal(t, "0", order.ShippingPrice.String())
	assert.Equal(t, "253", order.TotalPrice.String())
	assert.Equal(t, "PayPal", order.PaymentMethod)
	assert.Equal(t, "u1", order.UserID)
	orders.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOrderService_CreateOrder_Rejects(t *testing.T) {
	ctx := context.Background()
	valid := func() services.CreateOrderInput {
		return services.CreateOrderInput{
			Lines:           []services.OrderLineInput{{ProductID: "p2", Quantity: 1}},
			ShippingAddress: testShipping,
			PaymentMethod:   "card",
		}
	}

	tests := []struct {
		name     string
		modify   func(*services.CreateOrderInput)
		wantKind apperror.Kind
		wantErr  error
	}{
		{name: "no lines", modify: func(in *services.CreateOrderInput) { in.Lines = nil }, wantKind: apperror.Validation},
		{name: "zero quantity", modify: func(in *services.CreateOrderInput) { in.Lines[0].Quantity = 0 }, wantErr: services.ErrInvalidQuantity},
		{name: "line above the limit", modify: func(in *services.CreateOrderInput) { in.Lines[0].Quantity = services.MaxLineQuantity + 1 }, wantErr: services.ErrQuantityTooLarge},
		{name: "duplicate lines summing past the limit", modify: func(in *services.CreateOrderInput) {
			in.Lines = []services.OrderLineInput{{ProductID: "p2", Quantity: services.MaxLineQuantity}, {ProductID: "p2", Quantity: 1}}
		}, wantErr: services.ErrQuantityTooLarge},
		{name: "duplicate lines overflowing int", modify: func(in *services.CreateOrderInput) {
			in.Lines = []services.OrderLineInput{{ProductID: "p2", Quantity: math.MaxInt}, {ProductID: "p2", Quantity: 2}}
		}, wantErr: services.ErrQuantityTooLarge},
		{name: "missing city", modify: func(in *services.CreateOrderInput) { in.ShippingAddress.City = "" }, wantKind: apperror.Validation},
		{name: "missing payment method", modify: func(in *services.CreateOrderInput) { in.PaymentMethod = " " }, wantKind: apperror.Validation},
		{name: "more than in stock", modify: func(in *services.CreateOrderInput) { in.Lines[0].Quantity = 3 }, wantErr: services.ErrOutOfStock},
		{name: "unknown product", modify: func(in *services.CreateOrderInput) { in.Lines[0].ProductID = "gone" }, wantErr: repositories.ErrProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderRepository)
			publisher := new(MockPublisher)
			svc := services.NewOrderService(orders, publisher, testPricing(), true)
			orders.On("Place", ctx, mock.Anything).Return(map[string]models.Product{"p2": necklace}, nil).Maybe()

			in := valid()
			tt.modify(&in)
			_, err := svc.CreateOrder(ctx, ana, in)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
			}
			publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	publisher := new(MockPublisher)
	svc := services.NewOrderService(orders, publisher, testPricing(), true)

	orders.On("Place", ctx, []string{"p2"}).Return(map[string]models.Product{"p2": necklace}, nil).Once()
	publisher.On("Publish", ctx, services.EventOrderCreated, mock.Anything).Return(errors.New("broker down")).Once()

	order, err := svc.CreateOrder(ctx, ana, services.CreateOrderInput{
		Lines:           []services.OrderLineInput{{ProductID: "p2", Quantity: 2}},
		ShippingAddress: testShipping,
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
}

func TestOrderService_NilPublisher(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	svc := services.NewOrderService(orders, nil, testPricing(), true)
	orders.On("MarkDelivered", ctx, "o1", true).Return(&models.Order{ID: "o1", IsDelivered: true}, nil).Once()

	order, err := svc.Deliver(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, order.IsDelivered)
}

func TestOrderService_SetPricing(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	svc := services.NewOrderService(orders, nil, testPricing(), true)
	svc.SetPricing(services.NewPricing(0, 0, 0))
	assert.True(t, svc.Pricing().TaxRate.IsZero())

	orders.On("Place", ctx, []string{"p2"}).Return(map[string]models.Product{"p2": necklace}, nil).Once()
	order, err := svc.CreateOrder(ctx, ana, services.CreateOrderInput{
		Lines:           []services.OrderLineInput{{ProductID: "p2", Quantity: 1}},
		ShippingAddress: testShipping,
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "40", order.TotalPrice.String())
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	svc := services.NewOrderService(orders, nil, testPricing(), true)
	orders.On("GetByID", ctx, "o1").Return(&models.Order{ID: "o1", UserID: "u1"}, nil)

	_, err := svc.GetOrder(ctx, "o1", ana)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, "o1", admin)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, "o1", ben)
	assert.ErrorIs(t, err, services.ErrNotOrderOwner)
	assert.Equal(t, apperror.Forbidden, apperror.KindOf(err))
}

func TestOrderService_Pay(t *testing.T) {
	ctx := context.Background()
	result := models.PaymentResult{ID: "pay-1", Status: "COMPLETED"}

	t.Run("owner pays", func(t *testing.T) {
		orders := new(MockOrderRepository)
		publisher := new(MockPublisher)
		svc := services.NewOrderService(orders, publisher, testPricing(), true)
		orders.On("GetByID", ctx, "o1").Return(&models.Order{ID: "o1", UserID: "u1"}, nil).Once()
		orders.On("MarkPaid", ctx, "o1", result).Return(&models.Order{ID: "o1", UserID: "u1", IsPaid: true, PaymentResult: result}, nil).Once()
		publisher.On("Publish", ctx, services.EventOrderPaid, mock.AnythingOfType("services.OrderEvent")).Return(nil).Once()

		order, err := svc.Pay(ctx, "o1", ana, result)
		require.NoError(t, err)
		assert.True(t, order.IsPaid)
		publisher.AssertExpectations(t)
	})

	t.Run("stranger cannot pay", func(t *testing.T) {
		orders := new(MockOrderRepository)
		svc := services.NewOrderService(orders, nil, testPricing(), true)
		orders.On("GetByID", ctx, "o1").Return(&models.Order{ID: "o1", UserID: "u1"}, nil).Once()

		_, err := svc.Pay(ctx, "o1", ben, result)
		assert.ErrorIs(t, err, services.ErrNotOrderOwner)
		orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("second payment", func(t *testing.T) {
		orders := new(MockOrderRepository)
		publisher := new(MockPublisher)
		svc := services.NewOrderService(orders, publisher, testPricing(), true)
		orders.On("GetByID", ctx, "o1").Return(&models.Order{ID: "o1", UserID: "u1", IsPaid: true}, nil).Once()
		orders.On("MarkPaid", ctx, "o1", result).Return(nil, repositories.ErrAlreadyPaid).Once()

		_, err := svc.Pay(ctx, "o1", ana, result)
		assert.ErrorIs(t, err, repositories.ErrAlreadyPaid)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_Deliver_HonorsPaymentRequirement(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	svc := services.NewOrderService(orders, nil, testPricing(), false)
	orders.On("MarkDelivered", ctx, "o1", false).Return(&models.Order{ID: "o1", IsDelivered: true}, nil).Once()

	_, err := svc.Deliver(ctx, "o1")
	require.NoError(t, err)
	orders.AssertExpectations(t)
}
